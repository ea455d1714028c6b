package countdown

import (
	"fmt"
	"time"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

const (
	// UnknownDisplay renders while no auction detail is loaded.
	UnknownDisplay = "--"
	// FinishedDisplay is the terminal countdown state.
	FinishedDisplay = "Finished"
)

// Remaining derives the countdown string for a detail snapshot at now.
// It works purely from the last-known end_time, so it stays
// self-consistent between detail polls and never extrapolates past
// them. An auction past its deadline is Finished regardless of the
// server's active flag.
func Remaining(detail *models.AuctionDetail, now time.Time) string {
	if detail == nil {
		return UnknownDisplay
	}

	end := time.Unix(detail.EndTime, 0)
	if !detail.Active || !end.After(now) {
		return FinishedDisplay
	}

	totalSec := int64(end.Sub(now) / time.Second)
	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	seconds := totalSec % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
