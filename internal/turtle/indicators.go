package turtle

import (
	"math"

	"turtle-trading/internal/dto"
)

// Donchian lookback windows. Entry uses 20 (System 1) or 55 (System 2),
// exit uses 10 or 20.
const (
	WindowLong  = 55
	WindowMid   = 20
	WindowShort = 10
)

// DefaultNPeriod is the smoothing period for Wilder's N.
const DefaultNPeriod = 20

// ComputeIndicators derives True Range, Wilder's N and the Donchian channels
// for an ordered bar series. Pure function; the input slice is not modified.
//
// Every Donchian bound at index i covers bars [i-w, i-1] only. Including bar
// i would leak the breakout bar into its own channel.
func ComputeIndicators(bars []dto.Bar) []dto.IndicatorRow {
	return ComputeIndicatorsWithPeriod(bars, DefaultNPeriod)
}

// ComputeIndicatorsWithPeriod is ComputeIndicators with a custom N period.
func ComputeIndicatorsWithPeriod(bars []dto.Bar, nPeriod int) []dto.IndicatorRow {
	rows := make([]dto.IndicatorRow, len(bars))
	if len(bars) == 0 {
		return rows
	}
	if nPeriod <= 0 {
		nPeriod = DefaultNPeriod
	}

	alpha := 1.0 / float64(nPeriod)
	for i, bar := range bars {
		row := dto.IndicatorRow{Bar: bar}

		if i == 0 {
			row.TrueRange = bar.High - bar.Low
			row.N = row.TrueRange
		} else {
			prevClose := bars[i-1].Close
			row.TrueRange = trueRange(bar.High, bar.Low, prevClose)
			// Wilder smoothing: N = prevN + (TR - prevN) / period
			row.N = rows[i-1].N + alpha*(row.TrueRange-rows[i-1].N)
		}

		row.DCHigh55, row.DCLow55 = donchian(bars, i, WindowLong)
		row.DCHigh20, row.DCLow20 = donchian(bars, i, WindowMid)
		row.DCHigh10, row.DCLow10 = donchian(bars, i, WindowShort)

		rows[i] = row
	}

	return rows
}

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if hc := math.Abs(high - prevClose); hc > tr {
		tr = hc
	}
	if cl := math.Abs(prevClose - low); cl > tr {
		tr = cl
	}
	return tr
}

// donchian returns the max high and min low over bars [i-window, i-1], or
// nils while the window is not yet filled.
func donchian(bars []dto.Bar, i, window int) (*float64, *float64) {
	if i < window {
		return nil, nil
	}

	high := bars[i-window].High
	low := bars[i-window].Low
	for j := i - window + 1; j < i; j++ {
		if bars[j].High > high {
			high = bars[j].High
		}
		if bars[j].Low < low {
			low = bars[j].Low
		}
	}
	return &high, &low
}
