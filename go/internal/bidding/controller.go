package bidding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidwatch/go/clients/auction_api_client"
	"github.com/mcdev12/bidwatch/go/internal/view"
)

// Local precondition failures. Each is rejected before any network
// round-trip.
var (
	ErrNoAuctionLoaded = errors.New("no auction loaded")
	ErrNoUserSelected  = errors.New("no user selected")
	ErrInvalidAmount   = errors.New("invalid bid amount")
	ErrBidInProgress   = errors.New("a bid is already in progress")
)

// BidPlacer defines what the controller needs from the auction client.
type BidPlacer interface {
	PlaceBid(ctx context.Context, req auction_api_client.PlaceBidRequest) (*auction_api_client.PlaceBidResponse, error)
}

// Refresher triggers an out-of-cycle detail refresh after an accepted bid.
type Refresher interface {
	RefreshFocusedNow(ctx context.Context)
}

// Controller validates and submits bids. It enforces the
// single-in-flight-bid invariant through the view's pending-bid flag,
// which also drives the UI's disabled affordances.
type Controller struct {
	api       BidPlacer
	state     *view.State
	refresher Refresher
}

func NewController(api BidPlacer, state *view.State, refresher Refresher) *Controller {
	return &Controller{
		api:       api,
		state:     state,
		refresher: refresher,
	}
}

// Submit reads the pending bid from the view (focused auction, selected
// user, entered amount), checks local preconditions, and submits.
// Whatever branch the submission ends in, the in-flight flag is cleared
// so the user can act again.
func (c *Controller) Submit(ctx context.Context) error {
	auctionID := c.state.FocusedID()
	if auctionID == 0 || c.state.Detail() == nil {
		c.state.SetStatus("load an auction before bidding")
		return ErrNoAuctionLoaded
	}

	userID := c.state.SelectedUser()
	if userID == 0 {
		c.state.SetStatus("select a user before bidding")
		return ErrNoUserSelected
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(c.state.EnteredAmount()), 64)
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) || amount <= 0 {
		c.state.SetStatus("enter a valid bid amount")
		return ErrInvalidAmount
	}

	// The UI disables bidding while a submission is outstanding; this
	// is the backstop for anything that slips past it.
	if !c.state.TryBeginBid() {
		c.state.SetStatus("previous bid still in progress")
		return ErrBidInProgress
	}
	defer c.state.EndBid()

	bidID := uuid.New()
	log.Debug().
		Str("bid_id", bidID.String()).
		Int64("auction_id", auctionID).
		Int64("user_id", userID).
		Float64("amount", amount).
		Msg("submitting bid")

	_, err = c.api.PlaceBid(ctx, auction_api_client.PlaceBidRequest{
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    amount,
	})
	if err != nil {
		c.state.SetStatus(rejectionMessage(err))
		log.Warn().Err(err).Str("bid_id", bidID.String()).Msg("bid rejected")
		return err
	}

	c.state.SetEnteredAmount("")
	c.state.SetStatus(fmt.Sprintf("bid of %v placed on auction %d", amount, auctionID))
	log.Info().Str("bid_id", bidID.String()).Int64("auction_id", auctionID).Float64("amount", amount).Msg("bid accepted")

	c.refresher.RefreshFocusedNow(ctx)
	return nil
}

// rejectionMessage renders a server rejection for the status line. Only
// amount_too_low gets a structured message, quoting the server's
// authoritative numbers rather than anything recomputed locally; every
// other failure surfaces its own text.
func rejectionMessage(err error) string {
	var rejected *auction_api_client.BidRejectedError
	if errors.As(err, &rejected) && rejected.Reason == auction_api_client.ReasonAmountTooLow {
		return fmt.Sprintf("bid too low: current price is %v, minimum next bid is %v",
			rejected.CurrentPrice, rejected.RequiredMinimum)
	}
	return "bid failed: " + err.Error()
}
