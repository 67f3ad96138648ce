package dto

import "time"

// EntrySignal is emitted when a breakout passes the system filter. Price is
// the breached channel value, not the bar extreme: fills are modeled at the
// breakout level.
type EntrySignal struct {
	Symbol       string     `json:"symbol"`
	Type         SignalType `json:"type"`
	System       int        `json:"system"`
	Direction    Direction  `json:"direction"`
	Price        float64    `json:"price"`
	CurrentClose float64    `json:"current"`
	N            float64    `json:"n"`
	StopLoss     float64    `json:"stop_loss"`
	Date         time.Time  `json:"date"`
	Message      string     `json:"message"`
}

// ExitSignal is emitted when a bar breaches the exit channel of an open
// position.
type ExitSignal struct {
	Symbol       string     `json:"symbol"`
	Type         SignalType `json:"type"`
	System       int        `json:"system"`
	PositionID   string     `json:"position_id"`
	Price        float64    `json:"price"`
	CurrentClose float64    `json:"current"`
	N            float64    `json:"n"`
	Date         time.Time  `json:"date"`
	Message      string     `json:"message"`
}

// PyramidSignal is emitted when an open position may add a unit.
type PyramidSignal struct {
	Symbol       string     `json:"symbol"`
	Type         SignalType `json:"type"`
	PositionID   string     `json:"position_id"`
	CurrentClose float64    `json:"current"`
	N            float64    `json:"n"`
	Date         time.Time  `json:"date"`
	Message      string     `json:"message"`
}

// SignalCheckResult is the output of one live check pass.
type SignalCheckResult struct {
	CheckedAt time.Time       `json:"checked_at"`
	Entries   []EntrySignal   `json:"entries"`
	Exits     []ExitSignal    `json:"exits"`
	Pyramids  []PyramidSignal `json:"pyramids"`
	Skipped   []string        `json:"skipped,omitempty"`
}

// RiskSummary mirrors PortfolioRiskManager.GetRiskSummary.
type RiskSummary struct {
	LongUnits      int     `json:"long_units"`
	ShortUnits     int     `json:"short_units"`
	TotalNExposure float64 `json:"total_n_exposure"`
	PositionsCount int     `json:"positions_count"`
}
