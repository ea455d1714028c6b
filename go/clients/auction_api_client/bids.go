package auction_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

// PlaceBidRequest is the body of a bid submission.
type PlaceBidRequest struct {
	AuctionID int64   `json:"auction_id"`
	UserID    int64   `json:"user_id"`
	Amount    float64 `json:"amount"`
}

// PlaceBidResponse is the server's acknowledgement of an accepted bid.
type PlaceBidResponse struct {
	Success      bool    `json:"success"`
	AuctionID    int64   `json:"auction_id"`
	UserID       int64   `json:"user_id"`
	Amount       float64 `json:"amount"`
	CurrentPrice float64 `json:"current_price"`
}

// GetBids fetches the full bid history of one auction, oldest first.
func (c *AuctionAPIClient) GetBids(ctx context.Context, auctionID int64) ([]models.Bid, error) {
	body, err := c.Get(ctx, fmt.Sprintf("%s/%d", BidsEndpoint, auctionID))
	if err != nil {
		return nil, classifyError(err)
	}

	var bids []models.Bid
	if err := json.Unmarshal(body, &bids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bids: %w, raw response: %s", err, string(body))
	}
	return bids, nil
}

// PlaceBid submits a bid. The server is authoritative: a rejection for
// a too-low amount comes back as *BidRejectedError carrying the current
// price and the required minimum, which callers should surface verbatim.
func (c *AuctionAPIClient) PlaceBid(ctx context.Context, req PlaceBidRequest) (*PlaceBidResponse, error) {
	if req.Amount <= 0 {
		return nil, &ValidationError{Message: "amount must be > 0"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bid payload: %w", err)
	}

	body, err := c.Post(ctx, BidEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, classifyError(err)
	}

	var resp PlaceBidResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bid response: %w, raw response: %s", err, string(body))
	}
	return &resp, nil
}
