package view

import (
	"sync"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

// Change identifies which slice of the view state a notification covers.
type Change string

const (
	ChangeUsers     Change = "users"
	ChangeAuctions  Change = "auctions"
	ChangeDetail    Change = "detail"
	ChangeCountdown Change = "countdown"
	ChangeStatus    Change = "status"
	ChangeForm      Change = "form"
	ChangeBidState  Change = "bid_state"
)

// Subscriber receives a notification after each state mutation. Called
// synchronously, outside the state lock, from the mutating goroutine.
type Subscriber func(Change)

// State is the merged snapshot every component reads and writes. Fields
// are updated one category at a time, last writer wins per category;
// the mutex keeps individual reads and writes coherent across the
// goroutines the poll streams run on.
type State struct {
	mu sync.Mutex

	users     []models.User
	auctions  []models.AuctionSummary
	focusedID int64
	detail    *models.AuctionDetail
	bids      []models.Bid
	countdown string
	status    string

	selectedUserID int64
	enteredAmount  string
	bidInFlight    bool

	subscribers []Subscriber
}

func NewState() *State {
	return &State{}
}

// Subscribe registers a change listener. Not safe to call concurrently
// with mutations; wire subscribers up before the timers start.
func (s *State) Subscribe(fn Subscriber) {
	s.subscribers = append(s.subscribers, fn)
}

func (s *State) notify(c Change) {
	for _, fn := range s.subscribers {
		fn(c)
	}
}

func (s *State) SetUsers(users []models.User) {
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	s.notify(ChangeUsers)
}

func (s *State) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users
}

func (s *State) SetAuctions(auctions []models.AuctionSummary) {
	s.mu.Lock()
	s.auctions = auctions
	s.mu.Unlock()
	s.notify(ChangeAuctions)
}

func (s *State) Auctions() []models.AuctionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auctions
}

// SetFocusedID records which auction the detail stream is tracking.
func (s *State) SetFocusedID(id int64) {
	s.mu.Lock()
	s.focusedID = id
	s.mu.Unlock()
}

func (s *State) FocusedID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusedID
}

// SetFocusedDetail applies a detail+bids pair fetched for auction id.
// The pair is applied atomically and only while id is still the focused
// auction; a response for a since-abandoned focus is discarded here, as
// the last gate after the poll controller's own generation check.
// Returns whether the response was applied.
func (s *State) SetFocusedDetail(id int64, detail *models.AuctionDetail, bids []models.Bid) bool {
	s.mu.Lock()
	if s.focusedID != id {
		s.mu.Unlock()
		return false
	}
	s.detail = detail
	s.bids = bids
	s.mu.Unlock()
	s.notify(ChangeDetail)
	return true
}

// ClearDetail drops the focused auction's detail and history, used when
// focus is cleared or the auction turns out not to exist.
func (s *State) ClearDetail() {
	s.mu.Lock()
	s.detail = nil
	s.bids = nil
	s.mu.Unlock()
	s.notify(ChangeDetail)
}

func (s *State) Detail() *models.AuctionDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail
}

func (s *State) Bids() []models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bids
}

func (s *State) SetCountdown(text string) {
	s.mu.Lock()
	changed := s.countdown != text
	s.countdown = text
	s.mu.Unlock()
	if changed {
		s.notify(ChangeCountdown)
	}
}

func (s *State) Countdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown
}

func (s *State) SetStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
	s.notify(ChangeStatus)
}

func (s *State) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *State) SetSelectedUser(id int64) {
	s.mu.Lock()
	s.selectedUserID = id
	s.mu.Unlock()
	s.notify(ChangeForm)
}

func (s *State) SelectedUser() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedUserID
}

func (s *State) SetEnteredAmount(amount string) {
	s.mu.Lock()
	s.enteredAmount = amount
	s.mu.Unlock()
	s.notify(ChangeForm)
}

func (s *State) EnteredAmount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enteredAmount
}

// TryBeginBid flips the in-flight flag if no bid is outstanding.
// At most one bid submission may be in flight at a time.
func (s *State) TryBeginBid() bool {
	s.mu.Lock()
	if s.bidInFlight {
		s.mu.Unlock()
		return false
	}
	s.bidInFlight = true
	s.mu.Unlock()
	s.notify(ChangeBidState)
	return true
}

// EndBid clears the in-flight flag. Safe to call from any completion
// branch; clearing an already-clear flag is a no-op.
func (s *State) EndBid() {
	s.mu.Lock()
	changed := s.bidInFlight
	s.bidInFlight = false
	s.mu.Unlock()
	if changed {
		s.notify(ChangeBidState)
	}
}

func (s *State) BidInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bidInFlight
}
