package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/bidwatch/go/internal/models"
)

func TestRemaining(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name   string
		detail *models.AuctionDetail
		want   string
	}{
		{
			name:   "no detail loaded",
			detail: nil,
			want:   UnknownDisplay,
		},
		{
			name:   "inactive auction",
			detail: &models.AuctionDetail{Active: false, EndTime: now.Unix() + 500},
			want:   FinishedDisplay,
		},
		{
			name:   "past deadline despite active flag",
			detail: &models.AuctionDetail{Active: true, EndTime: now.Unix() - 10},
			want:   FinishedDisplay,
		},
		{
			name:   "deadline exactly now",
			detail: &models.AuctionDetail{Active: true, EndTime: now.Unix()},
			want:   FinishedDisplay,
		},
		{
			name:   "seconds only",
			detail: &models.AuctionDetail{Active: true, EndTime: now.Unix() + 42},
			want:   "0m 42s",
		},
		{
			name:   "minutes and seconds",
			detail: &models.AuctionDetail{Active: true, EndTime: now.Unix() + 90},
			want:   "1m 30s",
		},
		{
			name:   "hours included only when nonzero",
			detail: &models.AuctionDetail{Active: true, EndTime: now.Unix() + 3*3600 + 2*60 + 1},
			want:   "3h 2m 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(tt.detail, now))
		})
	}
}
