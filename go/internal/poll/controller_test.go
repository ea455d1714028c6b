package poll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidwatch/go/clients/auction_api_client"
	"github.com/mcdev12/bidwatch/go/internal/models"
	"github.com/mcdev12/bidwatch/go/internal/schedule"
	"github.com/mcdev12/bidwatch/go/internal/view"
)

// fakeAPI is an in-memory AuctionAPI whose calls can be made to block
// on gates, simulating slow network responses.
type fakeAPI struct {
	mu            sync.Mutex
	listCalls     int
	listActive    int
	listMaxActive int
	detailCalls   map[int64]int
	listGate      chan struct{}
	detailGates   map[int64]chan struct{}
	auctions      []models.AuctionSummary
	details       map[int64]*models.AuctionDetail
	bids          map[int64][]models.Bid
	started       chan string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		detailCalls: make(map[int64]int),
		detailGates: make(map[int64]chan struct{}),
		details:     make(map[int64]*models.AuctionDetail),
		bids:        make(map[int64][]models.Bid),
		started:     make(chan string, 64),
	}
}

func (f *fakeAPI) ListAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	f.mu.Lock()
	f.listCalls++
	f.listActive++
	if f.listActive > f.listMaxActive {
		f.listMaxActive = f.listActive
	}
	gate := f.listGate
	auctions := f.auctions
	f.mu.Unlock()

	f.started <- "list"
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.listActive--
	f.mu.Unlock()
	return auctions, nil
}

func (f *fakeAPI) GetAuctionDetail(ctx context.Context, auctionID int64) (*models.AuctionDetail, error) {
	f.mu.Lock()
	f.detailCalls[auctionID]++
	gate := f.detailGates[auctionID]
	detail := f.details[auctionID]
	f.mu.Unlock()

	f.started <- fmt.Sprintf("detail-%d", auctionID)
	if gate != nil {
		<-gate
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: auction not found", auction_api_client.ErrNotFound)
	}
	return detail, nil
}

func (f *fakeAPI) GetBids(ctx context.Context, auctionID int64) ([]models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bids[auctionID], nil
}

func (f *fakeAPI) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAPI) detailCallCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[id]
}

func (f *fakeAPI) awaitStarted(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("no %s call started", want)
	}
}

func newTestController(t *testing.T, api *fakeAPI) (*Controller, *view.State, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	state := view.NewState()
	ctrl := NewController(api, state, schedule.NewScheduler(clock), DefaultConfig())
	t.Cleanup(ctrl.Stop)
	return ctrl, state, clock
}

func TestListPollingFetchesImmediatelyThenOnCadence(t *testing.T) {
	api := newFakeAPI()
	api.auctions = []models.AuctionSummary{{ID: 1, ItemName: "clock"}}
	ctrl, state, clock := newTestController(t, api)

	require.NoError(t, ctrl.StartListPolling(context.Background()))
	api.awaitStarted(t, "list")

	require.Eventually(t, func() bool {
		return len(state.Auctions()) == 1
	}, time.Second, time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	api.awaitStarted(t, "list")

	require.Eventually(t, func() bool {
		return api.listCallCount() == 2
	}, time.Second, time.Millisecond)
}

func TestListPollingNeverOverlaps(t *testing.T) {
	api := newFakeAPI()
	api.listGate = make(chan struct{})
	ctrl, _, clock := newTestController(t, api)

	require.NoError(t, ctrl.StartListPolling(context.Background()))
	api.awaitStarted(t, "list")

	// The first call is still blocked when the next two ticks fire;
	// both ticks must be dropped, not queued.
	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, api.listCallCount())

	close(api.listGate)
	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		return api.listCallCount() >= 2
	}, time.Second, time.Millisecond)

	// However ticks and completions interleave, the stream never has
	// two list requests outstanding at once.
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 1, api.listMaxActive)
}

func TestStartListPollingTwiceFails(t *testing.T) {
	api := newFakeAPI()
	ctrl, _, _ := newTestController(t, api)

	require.NoError(t, ctrl.StartListPolling(context.Background()))
	assert.Error(t, ctrl.StartListPolling(context.Background()))
}

func TestFocusAuctionLoadsDetailAndBids(t *testing.T) {
	api := newFakeAPI()
	api.details[1] = &models.AuctionDetail{ID: 1, ItemName: "lamp", CurrentPrice: 50, Active: true}
	api.bids[1] = []models.Bid{{ID: 1, UserID: 2, Amount: 50}}
	ctrl, state, _ := newTestController(t, api)

	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))

	require.NotNil(t, state.Detail())
	assert.Equal(t, int64(1), state.Detail().ID)
	assert.Len(t, state.Bids(), 1)
	assert.Equal(t, int64(1), state.FocusedID())
}

func TestFocusAuctionPollsOnCadence(t *testing.T) {
	api := newFakeAPI()
	api.details[1] = &models.AuctionDetail{ID: 1, Active: true}
	ctrl, _, clock := newTestController(t, api)

	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))
	api.awaitStarted(t, "detail-1")
	assert.Equal(t, 1, api.detailCallCount(1))

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)
	api.awaitStarted(t, "detail-1")
	require.Eventually(t, func() bool {
		return api.detailCallCount(1) == 2
	}, time.Second, time.Millisecond)
}

func TestFocusAuctionIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.details[1] = &models.AuctionDetail{ID: 1, Active: true}
	ctrl, _, clock := newTestController(t, api)

	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))
	api.awaitStarted(t, "detail-1")
	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))
	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))

	// Refocusing the same auction issues no extra fetches and stacks no
	// extra timers: exactly one fetch per interval.
	assert.Equal(t, 1, api.detailCallCount(1))

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)
	api.awaitStarted(t, "detail-1")
	require.Eventually(t, func() bool {
		return api.detailCallCount(1) == 2
	}, time.Second, time.Millisecond)
	assert.Empty(t, api.started)
}

func TestLateResponseForSupersededFocusIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.details[1] = &models.AuctionDetail{ID: 1, ItemName: "slow", Active: true}
	api.details[2] = &models.AuctionDetail{ID: 2, ItemName: "fast", Active: true}
	api.detailGates[1] = make(chan struct{})
	ctrl, state, _ := newTestController(t, api)

	// Focus 1; its response hangs.
	focusDone := make(chan error, 1)
	go func() {
		focusDone <- ctrl.FocusAuction(context.Background(), 1)
	}()
	api.awaitStarted(t, "detail-1")

	// Refocus to 2 while 1 is still in flight.
	require.NoError(t, ctrl.FocusAuction(context.Background(), 2))
	api.awaitStarted(t, "detail-2")
	require.Eventually(t, func() bool {
		d := state.Detail()
		return d != nil && d.ID == 2
	}, time.Second, time.Millisecond)

	// Now auction 1's stale response lands; it must not clobber 2.
	close(api.detailGates[1])
	require.NoError(t, <-focusDone)

	require.Eventually(t, func() bool {
		return state.Detail() != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, int64(2), state.Detail().ID)
	assert.Equal(t, int64(2), state.FocusedID())
}

func TestFocusUnknownAuctionDoesNotStartPolling(t *testing.T) {
	api := newFakeAPI()
	ctrl, state, clock := newTestController(t, api)

	err := ctrl.FocusAuction(context.Background(), 9)
	require.ErrorIs(t, err, auction_api_client.ErrNotFound)
	api.awaitStarted(t, "detail-9")

	assert.Nil(t, state.Detail())
	assert.Contains(t, state.Status(), "not found")

	// No detail stream was started for the unknown id.
	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, api.detailCallCount(9))
}

func TestFocusZeroStopsDetailPolling(t *testing.T) {
	api := newFakeAPI()
	api.details[1] = &models.AuctionDetail{ID: 1, Active: true}
	ctrl, state, clock := newTestController(t, api)

	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))
	api.awaitStarted(t, "detail-1")
	require.NoError(t, ctrl.FocusAuction(context.Background(), 0))

	assert.Nil(t, state.Detail())
	assert.Nil(t, state.Bids())

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, api.detailCallCount(1))
}

func TestRefreshFocusedNow(t *testing.T) {
	api := newFakeAPI()
	api.details[1] = &models.AuctionDetail{ID: 1, Active: true}
	ctrl, _, _ := newTestController(t, api)

	require.NoError(t, ctrl.FocusAuction(context.Background(), 1))
	api.awaitStarted(t, "detail-1")

	// Out-of-band refresh, no clock movement at all.
	ctrl.RefreshFocusedNow(context.Background())
	api.awaitStarted(t, "detail-1")
	require.Eventually(t, func() bool {
		return api.detailCallCount(1) == 2
	}, time.Second, time.Millisecond)
}

func TestRefreshFocusedNowWithoutFocusIsNoop(t *testing.T) {
	api := newFakeAPI()
	ctrl, _, _ := newTestController(t, api)

	ctrl.RefreshFocusedNow(context.Background())
	assert.Empty(t, api.started)
}
