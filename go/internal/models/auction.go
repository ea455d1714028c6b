package models

import "time"

// AuctionSummary is one row of the auction list. The list poll replaces
// summaries wholesale; nothing merges into them.
type AuctionSummary struct {
	ID            int64   `json:"id"`
	ItemName      string  `json:"item_name"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentWinner *int64  `json:"current_winner"`
	Active        bool    `json:"active"`
	EndTime       int64   `json:"end_time"` // epoch seconds
}

// AuctionDetail is the full state of the focused auction, replaced
// wholesale on every detail poll.
type AuctionDetail struct {
	ID            int64   `json:"id"`
	ItemName      string  `json:"item_name"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentWinner *int64  `json:"current_winner"`
	MinIncrement  float64 `json:"min_increment"`
	Active        bool    `json:"active"`
	EndTime       int64   `json:"end_time"` // epoch seconds
}

// DisplayActive reconciles the server's active flag with the wallclock
// deadline. The server may not have noticed expiry yet, so an auction
// past its end_time is closed regardless of the flag.
func DisplayActive(serverActive bool, endTime int64, now time.Time) bool {
	return serverActive && now.Unix() < endTime
}

// DisplayActive reports whether the summary should render as active at now.
func (a AuctionSummary) DisplayActive(now time.Time) bool {
	return DisplayActive(a.Active, a.EndTime, now)
}

// DisplayActive reports whether the detail should render as active at now.
func (a AuctionDetail) DisplayActive(now time.Time) bool {
	return DisplayActive(a.Active, a.EndTime, now)
}
