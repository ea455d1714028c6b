package auction_api_client

const (
	// Base URL
	DefaultBaseURL = "http://127.0.0.1:5000"

	// API Endpoints
	UsersEndpoint        = "/users"
	UserEndpoint         = "/user"
	AuctionsEndpoint     = "/auctions"
	AuctionEndpoint      = "/auction"
	BidEndpoint          = "/bid"
	BidsEndpoint         = "/bids"
	CloseAuctionSuffix   = "/close"
	ListAllAuctionsQuery = "?all=1"
)
