package turtle

import (
	"testing"

	"turtle-trading/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// breakoutSeries is 60 flat bars, a 15-day rally, then a crash through the
// stop. It produces exactly one long round trip under System 2.
func breakoutSeries() []dto.Bar {
	return makeBars(80, func(i int) (float64, float64, float64, float64) {
		var close float64
		switch {
		case i < 60:
			close = 100
		case i < 75:
			close = 100 + 3*float64(i-59)
		default:
			close = 95
		}
		return close, close + 1, close - 1, close
	})
}

func system2Config() dto.BacktestConfig {
	config := dto.DefaultBacktestConfig()
	config.System = 2
	config.UseFilter = false
	return config
}

func TestBacktester_BreakoutRoundTrip(t *testing.T) {
	data := map[string][]dto.Bar{"TEST": breakoutSeries()}
	result := NewBacktester(system2Config()).Run(data)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, "TEST", trade.Symbol)
	assert.Equal(t, dto.DirectionLong, trade.Direction)
	assert.Equal(t, string(dto.SignalStopLoss), trade.ExitReason)
	assert.Negative(t, trade.PnL)

	assert.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, 1, result.LosingTrades)
	assert.Equal(t, 0, result.WinningTrades)
	assert.Equal(t, 0.0, result.WinRate)
	assert.Less(t, result.FinalEquity, result.Config.InitialCapital)
	assert.Greater(t, result.MaxDrawdown, 0.0)
}

func TestBacktester_EntryMatchesFilterDecision(t *testing.T) {
	bars := breakoutSeries()
	data := map[string][]dto.Bar{"TEST": bars}
	result := NewBacktester(system2Config()).Run(data)
	require.Len(t, result.Trades, 1)

	// The run's entry date must be the first date on which the shared filter,
	// fed the same indicator rows, reports a signal.
	rows := ComputeIndicators(bars)
	filter := NewEntryExitFilter()
	var firstSignalDate = rows[0].Date
	found := false
	for i := 1; i < len(rows); i++ {
		signals := filter.CheckEntry(rows[i], rows[i-1], "TEST", 2, false, false)
		if len(signals) > 0 {
			firstSignalDate = rows[i].Date
			found = true
			break
		}
	}
	require.True(t, found)
	assert.Equal(t, firstSignalDate, result.Trades[0].EntryDate)
}

func TestBacktester_EquityMarksOpenPositionToMarket(t *testing.T) {
	data := map[string][]dto.Bar{"TEST": breakoutSeries()}
	result := NewBacktester(system2Config()).Run(data)
	require.NotEmpty(t, result.EquityCurve)

	// While the rally position is open, equity must carry its market value on
	// top of the remaining cash.
	divergence := 0
	var peakEquity float64
	for _, point := range result.EquityCurve {
		if point.Equity > point.Cash {
			divergence++
		}
		if point.Equity > peakEquity {
			peakEquity = point.Equity
		}
	}
	assert.Greater(t, divergence, 5)

	// The rally's unrealized gains must show up on the curve even though the
	// only closed trade is a loss.
	assert.Greater(t, peakEquity, result.Config.InitialCapital)
}

func TestBacktester_PyramidsDuringTrend(t *testing.T) {
	data := map[string][]dto.Bar{"TEST": breakoutSeries()}
	result := NewBacktester(system2Config()).Run(data)
	require.Len(t, result.Trades, 1)

	// The rally crosses the 0.5N add level and cash allows one more unit, so
	// the closed trade aggregates more shares than a single unit.
	trade := result.Trades[0]
	singleUnit := UnitSize(result.Config.InitialCapital, 2.1, result.Config.RiskPercent, 1.0)
	assert.Greater(t, trade.Quantity, singleUnit)
	assert.Greater(t, trade.EntryPrice, 103.0)
}

func TestBacktester_ZeroVolatilityNeverTrades(t *testing.T) {
	// high == low on every bar keeps N at zero, which makes every entry
	// unsizeable.
	data := map[string][]dto.Bar{"FLAT": flatBars(80, 100)}
	result := NewBacktester(system2Config()).Run(data)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.TotalTrades)
	require.NotEmpty(t, result.EquityCurve)
	assert.Equal(t, result.Config.InitialCapital, result.FinalEquity)
	assert.Equal(t, 0.0, result.TotalReturn)
	assert.Equal(t, 0.0, result.SharpeRatio)
}

func TestBacktester_TooLittleHistoryIsQuiet(t *testing.T) {
	data := map[string][]dto.Bar{"TEST": risingBars(30)}
	result := NewBacktester(system2Config()).Run(data)

	// 30 bars never fill the 55-day window, so System 2 has no channel to
	// break.
	assert.Empty(t, result.Trades)
	assert.Equal(t, result.Config.InitialCapital, result.FinalEquity)
}

func TestBacktester_System1WinFilterSkipsNextBreakout(t *testing.T) {
	// Rally, profitable channel exit, then a second 20-day breakout that stays
	// under the 55-day high. The filter must skip it because the prior trade
	// won and no failsafe accompanies it; the unfiltered run takes it and is
	// stopped out by the final drop.
	bars := makeBars(120, func(i int) (float64, float64, float64, float64) {
		var close float64
		switch {
		case i < 30:
			close = 100
		case i < 45:
			close = 100 + 2*float64(i-29) // rally to 130
		case i < 60:
			close = 130 - 1.5*float64(i-44) // pullback exits via 10-day low
		case i < 100:
			close = 108 // long consolidation resets the 20-day channel
		case i < 106:
			close = 108 + 2*float64(i-99) // second breakout, capped at 120
		default:
			close = 106 // drop through the second entry's stop
		}
		return close, close + 1, close - 1, close
	})

	config := dto.DefaultBacktestConfig()
	config.System = 1
	config.UseFilter = true
	withFilter := NewBacktester(config).Run(map[string][]dto.Bar{"TEST": bars})

	configOff := config
	configOff.UseFilter = false
	withoutFilter := NewBacktester(configOff).Run(map[string][]dto.Bar{"TEST": bars})

	// The unfiltered run takes at least one more trade than the filtered one.
	assert.Greater(t, withoutFilter.TotalTrades, withFilter.TotalTrades)
}

func TestBacktester_MultiSymbolSharesOneEquityCurve(t *testing.T) {
	data := map[string][]dto.Bar{
		"AAA": breakoutSeries(),
		"BBB": flatBars(80, 50),
	}
	result := NewBacktester(system2Config()).Run(data)

	// The flat symbol adds no trades; the curve still spans the union of all
	// trading dates.
	assert.Len(t, result.Trades, 1)
	assert.Equal(t, "AAA", result.Trades[0].Symbol)
	assert.Len(t, result.EquityCurve, 79)
}
