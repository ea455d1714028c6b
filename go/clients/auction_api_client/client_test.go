package auction_api_client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidwatch/go/clients"
)

func newTestClient(t *testing.T, handler http.Handler) *AuctionAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAuctionAPIClient(srv.URL)
}

func jsonHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func TestListAuctions(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK,
		`[{"id":3,"item_name":"lamp","current_price":40,"current_winner":2,"active":true,"end_time":1700000000}]`))

	auctions, err := client.ListAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	assert.Equal(t, int64(3), auctions[0].ID)
	assert.Equal(t, "lamp", auctions[0].ItemName)
	require.NotNil(t, auctions[0].CurrentWinner)
	assert.Equal(t, int64(2), *auctions[0].CurrentWinner)
	assert.True(t, auctions[0].Active)
}

func TestGetAuctionDetailNullWinner(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK,
		`{"id":1,"item_name":"vase","current_price":10,"current_winner":null,"min_increment":1,"active":true,"end_time":1700000000}`))

	detail, err := client.GetAuctionDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, detail.CurrentWinner)
	assert.Equal(t, 1.0, detail.MinIncrement)
}

func TestGetAuctionDetailNotFound(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusNotFound, `{"error":"auction not found"}`))

	_, err := client.GetAuctionDetail(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlaceBidAmountTooLow(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusBadRequest,
		`{"success":false,"reason":"amount_too_low","current_price":100,"required_minimum":101}`))

	_, err := client.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: 1, UserID: 2, Amount: 100.5})
	var rejected *BidRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, ReasonAmountTooLow, rejected.Reason)
	assert.Equal(t, 100.0, rejected.CurrentPrice)
	assert.Equal(t, 101.0, rejected.RequiredMinimum)
}

func TestPlaceBidClosedAuction(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusBadRequest, `{"error":"auction closed"}`))

	_, err := client.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: 1, UserID: 2, Amount: 50})
	require.ErrorIs(t, err, ErrAuctionClosed)
}

func TestPlaceBidRejectsNonPositiveAmountLocally(t *testing.T) {
	var requests atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	_, err := client.PlaceBid(context.Background(), PlaceBidRequest{AuctionID: 1, UserID: 2, Amount: 0})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, int64(0), requests.Load())
}

func TestCreateUserEmptyNameRejectedLocally(t *testing.T) {
	var requests atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	_, err := client.CreateUser(context.Background(), "")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, int64(0), requests.Load())
}

func TestCreateAuctionFieldValidation(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusCreated, `{"auction_id":1,"item_name":"x","end_time":1}`))

	tests := []struct {
		name string
		req  CreateAuctionRequest
	}{
		{"empty item name", CreateAuctionRequest{StartPrice: 1, MinIncrement: 1, DurationSeconds: 60}},
		{"negative start price", CreateAuctionRequest{ItemName: "x", StartPrice: -1, MinIncrement: 1, DurationSeconds: 60}},
		{"zero min increment", CreateAuctionRequest{ItemName: "x", DurationSeconds: 60}},
		{"zero duration", CreateAuctionRequest{ItemName: "x", MinIncrement: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateAuction(context.Background(), tt.req)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}

func TestMalformedErrorBodyFallsBackToRawResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>gateway exploded</html>"))
	}))

	_, err := client.ListAuctions(context.Background())
	var httpErr *clients.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Contains(t, string(httpErr.Body), "gateway exploded")
}

func TestValidationErrorFromServer(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusBadRequest, `{"error":"name required"}`))

	_, err := client.CreateUser(context.Background(), "ana")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "name required", validation.Message)
	assert.False(t, errors.Is(err, ErrNotFound))
}
