package auction_api_client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/bidwatch/go/clients"
)

var (
	// ErrNotFound means the requested auction or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuctionClosed means the server refused a bid because the
	// auction is no longer active.
	ErrAuctionClosed = errors.New("auction closed")
)

// ValidationError is a user-correctable rejection (empty name, bad
// field values). No retry is implied; the input has to change.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// BidRejectedError is a structured bid rejection. For reason
// "amount_too_low" the server includes the authoritative current price
// and the minimum the next bid must reach.
type BidRejectedError struct {
	Reason          string  `json:"reason"`
	CurrentPrice    float64 `json:"current_price"`
	RequiredMinimum float64 `json:"required_minimum"`
	Message         string  `json:"error"`
}

const ReasonAmountTooLow = "amount_too_low"

func (e *BidRejectedError) Error() string {
	if e.Reason == ReasonAmountTooLow {
		return fmt.Sprintf("bid too low: current price %v, required minimum %v", e.CurrentPrice, e.RequiredMinimum)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("bid rejected: %s", e.Reason)
}

// errorBody is the server's error envelope. Fields beyond "error" are
// only present on structured bid rejections.
type errorBody struct {
	Error           string   `json:"error"`
	Success         *bool    `json:"success"`
	Reason          string   `json:"reason"`
	CurrentPrice    *float64 `json:"current_price"`
	RequiredMinimum *float64 `json:"required_minimum"`
}

// classifyError converts a transport-level failure into the client's
// error taxonomy. Non-JSON or unrecognized bodies fall back to the raw
// HTTPError so nothing is swallowed.
func classifyError(err error) error {
	var httpErr *clients.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	var body errorBody
	if jsonErr := json.Unmarshal(httpErr.Body, &body); jsonErr != nil {
		return httpErr
	}

	if body.Reason != "" {
		rej := &BidRejectedError{Reason: body.Reason, Message: body.Error}
		if body.CurrentPrice != nil {
			rej.CurrentPrice = *body.CurrentPrice
		}
		if body.RequiredMinimum != nil {
			rej.RequiredMinimum = *body.RequiredMinimum
		}
		return rej
	}

	switch {
	case httpErr.StatusCode == 404:
		return fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	case strings.Contains(body.Error, "closed"):
		return fmt.Errorf("%w: %s", ErrAuctionClosed, body.Error)
	case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return &ValidationError{Message: body.Error}
	default:
		return httpErr
	}
}
