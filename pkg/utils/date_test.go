package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsKoreanSymbol(t *testing.T) {
	assert.True(t, IsKoreanSymbol("005930.KS"))
	assert.True(t, IsKoreanSymbol("035720.KQ"))
	assert.False(t, IsKoreanSymbol("AAPL"))
	assert.False(t, IsKoreanSymbol("KS.US"))
}

func TestIsMarketOpen(t *testing.T) {
	seoul, _ := time.LoadLocation("Asia/Seoul")
	newYork, _ := time.LoadLocation("America/New_York")

	tests := []struct {
		name   string
		symbol string
		at     time.Time
		want   bool
	}{
		{
			name:   "KRX mid session",
			symbol: "005930.KS",
			at:     time.Date(2026, 1, 5, 10, 0, 0, 0, seoul), // Monday
			want:   true,
		},
		{
			name:   "KRX before open",
			symbol: "005930.KS",
			at:     time.Date(2026, 1, 5, 8, 59, 0, 0, seoul),
			want:   false,
		},
		{
			name:   "KRX at close",
			symbol: "005930.KS",
			at:     time.Date(2026, 1, 5, 15, 30, 0, 0, seoul),
			want:   true,
		},
		{
			name:   "KRX after close",
			symbol: "005930.KS",
			at:     time.Date(2026, 1, 5, 15, 31, 0, 0, seoul),
			want:   false,
		},
		{
			name:   "KRX weekend",
			symbol: "005930.KS",
			at:     time.Date(2026, 1, 3, 10, 0, 0, 0, seoul), // Saturday
			want:   false,
		},
		{
			name:   "NYSE mid session",
			symbol: "AAPL",
			at:     time.Date(2026, 1, 5, 11, 0, 0, 0, newYork),
			want:   true,
		},
		{
			name:   "NYSE before open",
			symbol: "AAPL",
			at:     time.Date(2026, 1, 5, 9, 29, 0, 0, newYork),
			want:   false,
		},
		{
			name:   "NYSE after close",
			symbol: "AAPL",
			at:     time.Date(2026, 1, 5, 16, 1, 0, 0, newYork),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMarketOpen(tt.symbol, tt.at))
		})
	}
}

func TestTruncateToDay(t *testing.T) {
	seoul, _ := time.LoadLocation("Asia/Seoul")
	at := time.Date(2026, 3, 14, 15, 9, 26, 535, seoul)

	got := TruncateToDay(at)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, seoul), got)
	assert.Equal(t, seoul, got.Location())
}
