package models

// Bid is one entry in an auction's bid history, ordered by timestamp.
// The client never mutates bid history; each poll replaces it.
type Bid struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"user_id"`
	Amount float64 `json:"amount"`
	TS     int64   `json:"ts"` // epoch seconds
}
