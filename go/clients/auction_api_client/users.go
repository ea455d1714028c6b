package auction_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

// CreateUserResponse is the server's acknowledgement of a new user.
type CreateUserResponse struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// ListUsers fetches every registered user.
func (c *AuctionAPIClient) ListUsers(ctx context.Context) ([]models.User, error) {
	body, err := c.Get(ctx, UsersEndpoint)
	if err != nil {
		return nil, classifyError(err)
	}

	var users []models.User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users: %w, raw response: %s", err, string(body))
	}
	return users, nil
}

// CreateUser registers a new bidder. The name must be non-empty; an
// empty name is rejected locally before any network round-trip.
func (c *AuctionAPIClient) CreateUser(ctx context.Context, name string) (*CreateUserResponse, error) {
	if name == "" {
		return nil, &ValidationError{Message: "name required"}
	}

	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user payload: %w", err)
	}

	body, err := c.Post(ctx, UserEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, classifyError(err)
	}

	var resp CreateUserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal create user response: %w, raw response: %s", err, string(body))
	}
	return &resp, nil
}
