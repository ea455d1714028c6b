package auction_api_client

import (
	"github.com/mcdev12/bidwatch/go/clients"
)

// AuctionAPIClient is a stateless wrapper around the auction server's
// REST surface. It owns no view state; every call returns fresh data or
// a typed failure from errors.go.
type AuctionAPIClient struct {
	*clients.BaseClient
}

func NewAuctionAPIClient(baseURL string) *AuctionAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AuctionAPIClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
}
