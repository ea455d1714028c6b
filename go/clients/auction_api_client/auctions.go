package auction_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

// CreateAuctionRequest holds the fields needed to open a new auction.
type CreateAuctionRequest struct {
	ItemName        string  `json:"item_name"`
	StartPrice      float64 `json:"start_price"`
	MinIncrement    float64 `json:"min_increment"`
	DurationSeconds int64   `json:"duration_seconds"`
}

// CreateAuctionResponse is the server's acknowledgement of a new auction.
type CreateAuctionResponse struct {
	AuctionID int64  `json:"auction_id"`
	ItemName  string `json:"item_name"`
	EndTime   int64  `json:"end_time"`
}

// ListAuctions fetches the auctions the server still considers active.
func (c *AuctionAPIClient) ListAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	return c.listAuctions(ctx, AuctionsEndpoint)
}

// ListAllAuctions fetches every auction, closed ones included.
func (c *AuctionAPIClient) ListAllAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	return c.listAuctions(ctx, AuctionsEndpoint+ListAllAuctionsQuery)
}

func (c *AuctionAPIClient) listAuctions(ctx context.Context, endpoint string) ([]models.AuctionSummary, error) {
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, classifyError(err)
	}

	var auctions []models.AuctionSummary
	if err := json.Unmarshal(body, &auctions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auctions: %w, raw response: %s", err, string(body))
	}
	return auctions, nil
}

// GetAuctionDetail fetches the authoritative state of one auction.
// Returns ErrNotFound if the id is unknown.
func (c *AuctionAPIClient) GetAuctionDetail(ctx context.Context, auctionID int64) (*models.AuctionDetail, error) {
	body, err := c.Get(ctx, fmt.Sprintf("%s/%d", AuctionEndpoint, auctionID))
	if err != nil {
		return nil, classifyError(err)
	}

	var detail models.AuctionDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auction detail: %w, raw response: %s", err, string(body))
	}
	return &detail, nil
}

// CreateAuction opens a new auction. Field constraints are validated
// locally first so obviously bad input never leaves the client.
func (c *AuctionAPIClient) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*CreateAuctionResponse, error) {
	switch {
	case req.ItemName == "":
		return nil, &ValidationError{Message: "item_name required"}
	case req.StartPrice < 0:
		return nil, &ValidationError{Message: "start_price must be >= 0"}
	case req.MinIncrement <= 0:
		return nil, &ValidationError{Message: "min_increment must be > 0"}
	case req.DurationSeconds <= 0:
		return nil, &ValidationError{Message: "duration_seconds must be > 0"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auction payload: %w", err)
	}

	body, err := c.Post(ctx, AuctionEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, classifyError(err)
	}

	var resp CreateAuctionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal create auction response: %w, raw response: %s", err, string(body))
	}
	return &resp, nil
}

// CloseAuction force-closes an auction regardless of its end time.
func (c *AuctionAPIClient) CloseAuction(ctx context.Context, auctionID int64) error {
	endpoint := fmt.Sprintf("%s/%d%s", AuctionEndpoint, auctionID, CloseAuctionSuffix)
	if _, err := c.Post(ctx, endpoint, nil); err != nil {
		return classifyError(err)
	}
	return nil
}
