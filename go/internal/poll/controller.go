package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidwatch/go/clients/auction_api_client"
	"github.com/mcdev12/bidwatch/go/internal/models"
	"github.com/mcdev12/bidwatch/go/internal/schedule"
	"github.com/mcdev12/bidwatch/go/internal/view"
)

// AuctionAPI defines what the controller needs from the auction client.
type AuctionAPI interface {
	ListAuctions(ctx context.Context) ([]models.AuctionSummary, error)
	GetAuctionDetail(ctx context.Context, auctionID int64) (*models.AuctionDetail, error)
	GetBids(ctx context.Context, auctionID int64) ([]models.Bid, error)
}

// Config holds the polling cadences.
type Config struct {
	ListInterval   time.Duration
	DetailInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListInterval:   5 * time.Second,
		DetailInterval: 2 * time.Second,
	}
}

// Controller owns the two poll streams: the global auction list and the
// focused auction's detail+bids. Each stream holds one schedule handle
// at a time and never has more than one request outstanding; a tick
// that fires while a fetch is in flight is dropped, not queued.
type Controller struct {
	api   AuctionAPI
	state *view.State
	sched *schedule.Scheduler
	cfg   Config

	mu           sync.Mutex
	listHandle   *schedule.Handle
	detailHandle *schedule.Handle
	focusedID    int64
	// focusGen increments on every focus change. Detail fetches carry
	// the generation they were dispatched under, and a response whose
	// generation is no longer current is discarded instead of applied.
	focusGen uint64

	listInFlight atomic.Bool

	// detailActive marks an outstanding detail fetch together with the
	// focus generation that dispatched it. A tick of the same
	// generation is dropped while the flag is held, but a focus change
	// starts a new stream whose first fetch does not wait on a
	// superseded fetch that is still hanging.
	inFlightMu      sync.Mutex
	detailActive    bool
	detailActiveGen uint64

	// detailGone is set when the focused auction 404s mid-stream so the
	// stream loop can end itself on its next tick.
	detailGone atomic.Bool
}

func NewController(api AuctionAPI, state *view.State, sched *schedule.Scheduler, cfg Config) *Controller {
	if cfg.ListInterval <= 0 {
		cfg.ListInterval = DefaultConfig().ListInterval
	}
	if cfg.DetailInterval <= 0 {
		cfg.DetailInterval = DefaultConfig().DetailInterval
	}
	return &Controller{
		api:   api,
		state: state,
		sched: sched,
		cfg:   cfg,
	}
}

// StartListPolling issues one list fetch immediately, then one per list
// interval. Safe to call once; a second call while running is an error.
func (c *Controller) StartListPolling(ctx context.Context) error {
	c.mu.Lock()
	if c.listHandle != nil {
		c.mu.Unlock()
		return fmt.Errorf("list polling already running")
	}
	handle := c.sched.Repeat(c.cfg.ListInterval, func() bool {
		c.dispatchListFetch(ctx)
		return true
	})
	c.listHandle = handle
	c.mu.Unlock()

	log.Debug().Dur("interval", c.cfg.ListInterval).Msg("list polling started")
	return nil
}

func (c *Controller) dispatchListFetch(ctx context.Context) {
	if !c.listInFlight.CompareAndSwap(false, true) {
		log.Debug().Msg("skipping list tick, previous fetch still in flight")
		return
	}

	fetchID := uuid.New()
	go func() {
		defer c.listInFlight.Store(false)

		auctions, err := c.api.ListAuctions(ctx)
		if err != nil {
			log.Error().Err(err).Str("fetch_id", fetchID.String()).Msg("list fetch failed")
			c.state.SetStatus("failed to refresh auctions: " + err.Error())
			return
		}
		c.state.SetAuctions(auctions)
		log.Debug().Str("fetch_id", fetchID.String()).Int("auctions", len(auctions)).Msg("list refreshed")
	}()
}

// FocusAuction switches the detail stream to auction id. The previous
// stream's timer is cancelled first; a zero id stops detail polling and
// clears the detail view. Refocusing the already-focused auction with a
// live stream is a no-op so repeated calls cannot stack timers.
//
// The first fetch happens synchronously. If the auction does not exist
// the interval stream is never started and ErrNotFound is returned.
func (c *Controller) FocusAuction(ctx context.Context, id int64) error {
	c.mu.Lock()
	if id != 0 && id == c.focusedID && c.detailHandle != nil {
		c.mu.Unlock()
		log.Debug().Int64("auction_id", id).Msg("skipping duplicate focus, stream already running")
		return nil
	}
	c.focusGen++
	gen := c.focusGen
	old := c.detailHandle
	c.detailHandle = nil
	c.focusedID = id
	c.mu.Unlock()

	c.detailGone.Store(false)
	c.state.SetFocusedID(id)
	if old != nil {
		old.Stop()
	}

	if id == 0 {
		c.state.ClearDetail()
		log.Debug().Msg("detail polling stopped, focus cleared")
		return nil
	}

	if err := c.runDetailFetch(ctx, id, gen); err != nil {
		if errors.Is(err, auction_api_client.ErrNotFound) {
			c.state.ClearDetail()
			c.state.SetStatus(fmt.Sprintf("auction %d not found", id))
			return err
		}
		// Transport failures are non-fatal: the stream starts anyway
		// and the next tick is the retry.
		c.state.SetStatus("failed to load auction: " + err.Error())
	}

	handle := c.sched.Every(c.cfg.DetailInterval, func() bool {
		if c.detailGone.Load() {
			return false
		}
		c.dispatchDetailFetch(ctx, id, gen)
		return true
	})

	c.mu.Lock()
	if c.focusGen == gen {
		c.detailHandle = handle
		c.mu.Unlock()
		log.Debug().Int64("auction_id", id).Dur("interval", c.cfg.DetailInterval).Msg("detail polling started")
	} else {
		// Focus moved again while we were fetching; this stream is
		// already superseded.
		c.mu.Unlock()
		handle.Stop()
	}
	return nil
}

// RefreshFocusedNow re-fetches the focused auction out of band, without
// touching the running interval's phase. Used right after an accepted
// bid so the new price shows up before the next scheduled tick.
func (c *Controller) RefreshFocusedNow(ctx context.Context) {
	c.mu.Lock()
	id := c.focusedID
	gen := c.focusGen
	c.mu.Unlock()

	if id == 0 {
		return
	}
	c.dispatchDetailFetch(ctx, id, gen)
}

func (c *Controller) tryBeginDetailFetch(gen uint64) bool {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	if c.detailActive && c.detailActiveGen == gen {
		return false
	}
	c.detailActive = true
	c.detailActiveGen = gen
	return true
}

func (c *Controller) endDetailFetch(gen uint64) {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	// A superseded fetch finishing late must not release the flag the
	// current stream is holding.
	if c.detailActiveGen == gen {
		c.detailActive = false
	}
}

func (c *Controller) dispatchDetailFetch(ctx context.Context, id int64, gen uint64) {
	if !c.tryBeginDetailFetch(gen) {
		log.Debug().Int64("auction_id", id).Msg("skipping detail tick, previous fetch still in flight")
		return
	}

	go func() {
		defer c.endDetailFetch(gen)
		if err := c.fetchDetail(ctx, id, gen); err != nil {
			if errors.Is(err, auction_api_client.ErrNotFound) {
				if c.generationCurrent(gen) {
					c.detailGone.Store(true)
					c.state.ClearDetail()
					c.state.SetStatus(fmt.Sprintf("auction %d not found", id))
				}
				return
			}
			c.state.SetStatus("failed to load auction: " + err.Error())
		}
	}()
}

// runDetailFetch is the synchronous form used for the initial fetch on
// focus; it observes the same single-in-flight rule as the stream.
func (c *Controller) runDetailFetch(ctx context.Context, id int64, gen uint64) error {
	if !c.tryBeginDetailFetch(gen) {
		return nil
	}
	defer c.endDetailFetch(gen)
	return c.fetchDetail(ctx, id, gen)
}

func (c *Controller) fetchDetail(ctx context.Context, id int64, gen uint64) error {
	fetchID := uuid.New()

	detail, err := c.api.GetAuctionDetail(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("fetch_id", fetchID.String()).Int64("auction_id", id).Msg("detail fetch failed")
		return err
	}
	bids, err := c.api.GetBids(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("fetch_id", fetchID.String()).Int64("auction_id", id).Msg("bids fetch failed")
		return err
	}

	if !c.generationCurrent(gen) {
		log.Debug().Str("fetch_id", fetchID.String()).Int64("auction_id", id).Msg("discarding stale detail response, focus changed")
		return nil
	}
	if !c.state.SetFocusedDetail(id, detail, bids) {
		log.Debug().Str("fetch_id", fetchID.String()).Int64("auction_id", id).Msg("discarding stale detail response, view focus changed")
		return nil
	}

	log.Debug().Str("fetch_id", fetchID.String()).Int64("auction_id", id).Float64("price", detail.CurrentPrice).Msg("detail refreshed")
	return nil
}

// Now exposes the controller's clock so display code derives
// Active/Closed from the same time source the poll streams use.
func (c *Controller) Now() time.Time {
	return c.sched.Clock().Now()
}

func (c *Controller) generationCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusGen == gen
}

// Stop cancels both streams. After Stop returns no further ticks fire,
// though a fetch already in flight may still land and be discarded by
// the generation check.
func (c *Controller) Stop() {
	c.mu.Lock()
	listHandle := c.listHandle
	detailHandle := c.detailHandle
	c.listHandle = nil
	c.detailHandle = nil
	c.focusGen++
	c.mu.Unlock()

	if listHandle != nil {
		listHandle.Stop()
	}
	if detailHandle != nil {
		detailHandle.Stop()
	}
	log.Debug().Msg("polling stopped")
}
