package turtle

import (
	"math"

	"turtle-trading/internal/dto"
)

// UnitSize converts account equity and N into a unit share count:
// floor(equity * riskPercent / (N * dollarPerPoint)).
//
// This is the engine/backtest sizing: a result of 0 means "cannot size,
// skip the entry". The live order path uses PositionSizer.OrderQuantity,
// which floors at one share instead.
func UnitSize(accountEquity, n, riskPercent, dollarPerPoint float64) int {
	if n <= 0 || accountEquity <= 0 {
		return 0
	}
	if dollarPerPoint <= 0 {
		dollarPerPoint = 1.0
	}
	return int(math.Floor(accountEquity * riskPercent / (n * dollarPerPoint)))
}

// StopPrice places the initial stop stopDistanceN volatility units away from
// the entry, against the position.
func StopPrice(entryPrice, n float64, direction dto.Direction, stopDistanceN float64) float64 {
	distance := stopDistanceN * n
	if direction == dto.DirectionLong {
		return entryPrice - distance
	}
	return entryPrice + distance
}

// PositionSizer sizes live orders.
type PositionSizer struct {
	RiskPercent    float64
	MaxPositionPct float64
}

func NewPositionSizer(riskPercent float64) *PositionSizer {
	return &PositionSizer{RiskPercent: riskPercent, MaxPositionPct: 0.20}
}

// OrderQuantity returns the share count for a live order. Once the inputs are
// valid the result is at least 1, so a valid signal never produces an
// unenterable zero-share order.
func (s *PositionSizer) OrderQuantity(accountEquity, n, pointValue float64) int {
	if n <= 0 || accountEquity <= 0 {
		return 0
	}
	if pointValue <= 0 {
		pointValue = 1.0
	}
	qty := int(math.Floor(accountEquity * s.RiskPercent / (n * pointValue)))
	if qty < 1 {
		qty = 1
	}
	return qty
}
