package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

func TestSetFocusedDetailDiscardsStaleResponses(t *testing.T) {
	state := NewState()
	state.SetFocusedID(2)

	// A response for a previously focused auction arrives late.
	applied := state.SetFocusedDetail(1, &models.AuctionDetail{ID: 1}, nil)
	assert.False(t, applied)
	assert.Nil(t, state.Detail())

	applied = state.SetFocusedDetail(2, &models.AuctionDetail{ID: 2}, []models.Bid{{ID: 7}})
	assert.True(t, applied)
	require.NotNil(t, state.Detail())
	assert.Equal(t, int64(2), state.Detail().ID)
	assert.Len(t, state.Bids(), 1)
}

func TestClearDetail(t *testing.T) {
	state := NewState()
	state.SetFocusedID(1)
	state.SetFocusedDetail(1, &models.AuctionDetail{ID: 1}, []models.Bid{{ID: 1}})

	state.ClearDetail()
	assert.Nil(t, state.Detail())
	assert.Nil(t, state.Bids())
}

func TestBidInFlightFlag(t *testing.T) {
	state := NewState()

	assert.True(t, state.TryBeginBid())
	assert.True(t, state.BidInFlight())
	// Second submission attempt while one is outstanding.
	assert.False(t, state.TryBeginBid())

	state.EndBid()
	assert.False(t, state.BidInFlight())
	assert.True(t, state.TryBeginBid())
}

func TestSubscribeReceivesChanges(t *testing.T) {
	state := NewState()

	var changes []Change
	state.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	state.SetUsers([]models.User{{ID: 1, Name: "ana"}})
	state.SetAuctions(nil)
	state.SetStatus("hello")
	state.SetCountdown("1m 2s")
	state.SetCountdown("1m 2s") // unchanged, no notification

	assert.Equal(t, []Change{ChangeUsers, ChangeAuctions, ChangeStatus, ChangeCountdown}, changes)
}
