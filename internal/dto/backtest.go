package dto

import "time"

// BacktestConfig are the immutable run parameters of one backtest.
type BacktestConfig struct {
	InitialCapital   float64 `json:"initial_capital"`
	RiskPercent      float64 `json:"risk_percent"`
	System           int     `json:"system"`
	MaxUnits         int     `json:"max_units"`
	PyramidIntervalN float64 `json:"pyramid_interval_n"`
	StopDistanceN    float64 `json:"stop_distance_n"`
	UseFilter        bool    `json:"use_filter"`
	CommissionPct    float64 `json:"commission_pct"`
}

// DefaultBacktestConfig returns the Curtis Faith defaults.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:   100000.0,
		RiskPercent:      0.01,
		System:           1,
		MaxUnits:         4,
		PyramidIntervalN: 0.5,
		StopDistanceN:    2.0,
		UseFilter:        true,
		CommissionPct:    0.001,
	}
}

type BacktestRequest struct {
	Symbols        []string `json:"symbols" validate:"required,min=1"`
	Range          string   `json:"range" validate:"required"`
	System         int      `json:"system" validate:"omitempty,oneof=1 2"`
	InitialCapital float64  `json:"initial_capital" validate:"omitempty,gt=0"`
	RiskPercent    float64  `json:"risk_percent" validate:"omitempty,gt=0,lte=0.1"`
	UseFilter      *bool    `json:"use_filter"`
	CommissionPct  *float64 `json:"commission_pct" validate:"omitempty,gte=0"`
}

// Trade is one closed round trip, immutable once recorded.
type Trade struct {
	Symbol     string    `json:"symbol"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	Direction  Direction `json:"direction"`
	Quantity   int       `json:"quantity"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	ExitReason string    `json:"exit_reason"`
}

// EquityPoint is one day on the equity curve. Equity marks open positions to
// that day's close; Cash is the uninvested balance.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
}

type BacktestResult struct {
	Config        BacktestConfig `json:"config"`
	Trades        []Trade        `json:"trades"`
	EquityCurve   []EquityPoint  `json:"equity_curve"`
	FinalEquity   float64        `json:"final_equity"`
	TotalReturn   float64        `json:"total_return"`
	CAGR          float64        `json:"cagr"`
	MaxDrawdown   float64        `json:"max_drawdown"`
	SharpeRatio   float64        `json:"sharpe_ratio"`
	WinRate       float64        `json:"win_rate"`
	ProfitFactor  float64        `json:"profit_factor"`
	TotalTrades   int            `json:"total_trades"`
	WinningTrades int            `json:"winning_trades"`
	LosingTrades  int            `json:"losing_trades"`
	AvgWin        float64        `json:"avg_win"`
	AvgLoss       float64        `json:"avg_loss"`
}
