package dto

import "time"

// Bar is a single OHLCV observation.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IndicatorRow is a Bar augmented with the turtle indicators. Donchian bounds
// are nil until the lookback window is filled; every bound is computed over
// prior bars only.
type IndicatorRow struct {
	Bar

	TrueRange float64 `json:"true_range"`
	N         float64 `json:"n"`

	DCHigh55 *float64 `json:"dc_high_55"`
	DCLow55  *float64 `json:"dc_low_55"`
	DCHigh20 *float64 `json:"dc_high_20"`
	DCLow20  *float64 `json:"dc_low_20"`
	DCHigh10 *float64 `json:"dc_high_10"`
	DCLow10  *float64 `json:"dc_low_10"`
}

type GetCandlesParam struct {
	Symbol   string `json:"symbol"`
	Range    string `json:"range"`
	Interval string `json:"interval"`
}

// YahooChartResponse mirrors the Yahoo Finance v8 chart API payload.
type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}
