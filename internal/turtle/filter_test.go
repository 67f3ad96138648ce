package turtle

import (
	"testing"
	"time"

	"turtle-trading/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func row(high, low, close, n float64) dto.IndicatorRow {
	return dto.IndicatorRow{
		Bar: dto.Bar{
			Date:  time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
			Open:  close,
			High:  high,
			Low:   low,
			Close: close,
		},
		N: n,
	}
}

func channels(r dto.IndicatorRow, h55, l55, h20, l20, h10, l10 *float64) dto.IndicatorRow {
	r.DCHigh55, r.DCLow55 = h55, l55
	r.DCHigh20, r.DCLow20 = h20, l20
	r.DCHigh10, r.DCLow10 = h10, l10
	return r
}

func TestShouldAllowEntry(t *testing.T) {
	tests := []struct {
		name            string
		system          int
		isProfitable    bool
		is55DayBreakout bool
		want            bool
	}{
		{"system 1 after losing trade", 1, false, false, true},
		{"system 1 after winning trade", 1, true, false, false},
		{"system 1 after winning trade with 55-day failsafe", 1, true, true, true},
		{"system 2 always enters", 2, true, false, true},
		{"system 2 with failsafe irrelevant", 2, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldAllowEntry(tt.system, tt.isProfitable, tt.is55DayBreakout)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsShortRestricted(t *testing.T) {
	assert.True(t, IsShortRestricted("005930.KS"))
	assert.True(t, IsShortRestricted("035720.KQ"))
	assert.False(t, IsShortRestricted("AAPL"))
	assert.False(t, IsShortRestricted("BTC-KRW"))
}

func TestEntryExitFilter_CheckEntry_Boundaries(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(110), fp(90), fp(105), fp(95), nil, nil)

	tests := []struct {
		name    string
		today   dto.IndicatorRow
		system  int
		wantLen int
		wantDir dto.Direction
	}{
		{
			name:    "high exactly at channel is no breakout",
			today:   row(105, 100, 104, 2.0),
			system:  1,
			wantLen: 0,
		},
		{
			name:    "high one tick above channel enters long",
			today:   row(105.01, 100, 104, 2.0),
			system:  1,
			wantLen: 1,
			wantDir: dto.DirectionLong,
		},
		{
			name:    "low exactly at channel is no breakout",
			today:   row(100, 95, 96, 2.0),
			system:  1,
			wantLen: 0,
		},
		{
			name:    "low one tick below channel enters short",
			today:   row(100, 94.99, 96, 2.0),
			system:  1,
			wantLen: 1,
			wantDir: dto.DirectionShort,
		},
		{
			name:    "system 2 uses the 55-day channel",
			today:   row(110.5, 100, 108, 2.0),
			system:  2,
			wantLen: 1,
			wantDir: dto.DirectionLong,
		},
		{
			name:    "system 2 ignores a 20-day-only breakout",
			today:   row(106, 100, 105, 2.0),
			system:  2,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := f.CheckEntry(tt.today, yesterday, "AAPL", tt.system, false, true)
			require.Len(t, signals, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantDir, signals[0].Direction)
			}
		})
	}
}

func TestEntryExitFilter_CheckEntry_SignalFields(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(110), fp(90), fp(105), fp(95), nil, nil)
	today := row(106, 100, 105.5, 2.0)

	signals := f.CheckEntry(today, yesterday, "AAPL", 1, false, true)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, dto.SignalEntryLong, s.Type)
	assert.Equal(t, 1, s.System)
	// Signal price is the broken channel value, not the bar extreme.
	assert.Equal(t, 105.0, s.Price)
	assert.Equal(t, 105.5, s.CurrentClose)
	assert.InDelta(t, 101.0, s.StopLoss, 1e-9)
}

func TestEntryExitFilter_CheckEntry_WinFilter(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(110), fp(90), fp(105), fp(95), nil, nil)

	// 20-day breakout only, after a winning trade: skipped.
	today := row(106, 100, 105.5, 2.0)
	signals := f.CheckEntry(today, yesterday, "AAPL", 1, true, true)
	assert.Empty(t, signals)

	// Disabling the filter restores the entry.
	signals = f.CheckEntry(today, yesterday, "AAPL", 1, true, false)
	assert.Len(t, signals, 1)

	// A simultaneous 55-day breakout is the failsafe.
	today = row(110.5, 100, 109, 2.0)
	signals = f.CheckEntry(today, yesterday, "AAPL", 1, true, true)
	require.Len(t, signals, 1)
	assert.Equal(t, 105.0, signals[0].Price)
}

func TestEntryExitFilter_CheckEntry_FailsafeIsStrict(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(110), fp(90), fp(105), fp(95), nil, nil)

	// High exactly at the 55-day bound does not qualify as the failsafe.
	today := row(110, 100, 109, 2.0)
	signals := f.CheckEntry(today, yesterday, "AAPL", 1, true, true)
	assert.Empty(t, signals)
}

func TestEntryExitFilter_CheckEntry_Missing55DayChannel(t *testing.T) {
	f := NewEntryExitFilter()
	// 20-day channel filled, 55-day not yet. The failsafe cannot fire, so a
	// profitable prior trade still skips the entry.
	yesterday := channels(row(0, 0, 0, 0), nil, nil, fp(105), fp(95), nil, nil)
	today := row(106, 100, 105.5, 2.0)

	signals := f.CheckEntry(today, yesterday, "AAPL", 1, true, true)
	assert.Empty(t, signals)

	// After a loss the entry does not need the failsafe.
	signals = f.CheckEntry(today, yesterday, "AAPL", 1, false, true)
	assert.Len(t, signals, 1)
}

func TestEntryExitFilter_CheckEntry_NilChannels(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := row(0, 0, 0, 0)
	today := row(1_000, 900, 950, 2.0)

	assert.Empty(t, f.CheckEntry(today, yesterday, "AAPL", 1, false, true))
	assert.Empty(t, f.CheckEntry(today, yesterday, "AAPL", 2, false, true))
}

func TestEntryExitFilter_CheckEntry_ShortRestriction(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(110), fp(90), fp(105), fp(95), nil, nil)

	// A downside breakout in a Korean symbol produces no short signal.
	today := row(100, 94, 96, 2.0)
	signals := f.CheckEntry(today, yesterday, "005930.KS", 1, false, true)
	assert.Empty(t, signals)

	// The same bar in a US symbol does.
	signals = f.CheckEntry(today, yesterday, "AAPL", 1, false, true)
	require.Len(t, signals, 1)
	assert.Equal(t, dto.DirectionShort, signals[0].Direction)

	// Upside breakouts in Korean symbols are unaffected.
	today = row(106, 100, 105.5, 2.0)
	signals = f.CheckEntry(today, yesterday, "005930.KS", 1, false, true)
	require.Len(t, signals, 1)
	assert.Equal(t, dto.DirectionLong, signals[0].Direction)
}

func TestEntryExitFilter_CheckEntry_BothDirections(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(110), fp(90), fp(105), fp(95), nil, nil)

	// A wide bar that pierces both bounds yields long first, then short.
	today := row(106, 94, 100, 2.0)
	signals := f.CheckEntry(today, yesterday, "AAPL", 1, false, true)
	require.Len(t, signals, 2)
	assert.Equal(t, dto.DirectionLong, signals[0].Direction)
	assert.Equal(t, dto.DirectionShort, signals[1].Direction)
}

func TestEntryExitFilter_CheckExit(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := channels(row(0, 0, 0, 0), fp(120), fp(80), fp(110), fp(90), fp(105), fp(95))

	tests := []struct {
		name      string
		today     dto.IndicatorRow
		direction dto.Direction
		system    int
		wantExit  bool
		wantPrice float64
		wantType  dto.SignalType
	}{
		{
			name:      "long exit exactly at 10-day low holds",
			today:     row(100, 95, 96, 2.0),
			direction: dto.DirectionLong,
			system:    1,
			wantExit:  false,
		},
		{
			name:      "long exit below 10-day low fires",
			today:     row(100, 94.99, 96, 2.0),
			direction: dto.DirectionLong,
			system:    1,
			wantExit:  true,
			wantPrice: 95.0,
			wantType:  dto.SignalExitLong,
		},
		{
			name:      "system 2 long exit uses the 20-day low",
			today:     row(100, 89.5, 92, 2.0),
			direction: dto.DirectionLong,
			system:    2,
			wantExit:  true,
			wantPrice: 90.0,
			wantType:  dto.SignalExitLong,
		},
		{
			name:      "short exit exactly at 10-day high holds",
			today:     row(105, 100, 104, 2.0),
			direction: dto.DirectionShort,
			system:    1,
			wantExit:  false,
		},
		{
			name:      "short exit above 10-day high fires",
			today:     row(105.01, 100, 104, 2.0),
			direction: dto.DirectionShort,
			system:    1,
			wantExit:  true,
			wantPrice: 105.0,
			wantType:  dto.SignalExitShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := f.CheckExit(tt.today, yesterday, "AAPL", "pos-1", tt.direction, tt.system)
			if !tt.wantExit {
				assert.Nil(t, exit)
				return
			}
			require.NotNil(t, exit)
			assert.Equal(t, tt.wantPrice, exit.Price)
			assert.Equal(t, tt.wantType, exit.Type)
			assert.Equal(t, "pos-1", exit.PositionID)
		})
	}
}

func TestEntryExitFilter_CheckExit_NilChannelHolds(t *testing.T) {
	f := NewEntryExitFilter()
	yesterday := row(0, 0, 0, 0)
	today := row(50, 10, 20, 2.0)

	assert.Nil(t, f.CheckExit(today, yesterday, "AAPL", "pos-1", dto.DirectionLong, 1))
	assert.Nil(t, f.CheckExit(today, yesterday, "AAPL", "pos-1", dto.DirectionShort, 1))
}
