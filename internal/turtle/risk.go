package turtle

import (
	"fmt"

	"turtle-trading/internal/dto"
)

// RiskLimits are the four nested portfolio admission limits.
type RiskLimits struct {
	MaxUnitsPerMarket  int
	MaxUnitsCorrelated int
	MaxUnitsDirection  int
	MaxTotalNExposure  float64
}

func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxUnitsPerMarket:  4,
		MaxUnitsCorrelated: 6,
		MaxUnitsDirection:  12,
		MaxTotalNExposure:  10.0,
	}
}

// PortfolioRiskState aggregates open exposure. Mutated only through
// AddPosition/RemovePosition; counters never go negative.
type PortfolioRiskState struct {
	UnitsBySymbol  map[string]int
	UnitsByGroup   map[dto.AssetGroup]int
	LongUnits      int
	ShortUnits     int
	TotalNExposure float64
}

func newPortfolioRiskState() PortfolioRiskState {
	return PortfolioRiskState{
		UnitsBySymbol: make(map[string]int),
		UnitsByGroup:  make(map[dto.AssetGroup]int),
	}
}

// PortfolioRiskManager enforces the admission limits across all open
// positions of one run. Not safe for concurrent use.
type PortfolioRiskManager struct {
	limits       RiskLimits
	symbolGroups map[string]dto.AssetGroup
	state        PortfolioRiskState
}

func NewPortfolioRiskManager(limits RiskLimits, symbolGroups map[string]dto.AssetGroup) *PortfolioRiskManager {
	if symbolGroups == nil {
		symbolGroups = make(map[string]dto.AssetGroup)
	}
	return &PortfolioRiskManager{
		limits:       limits,
		symbolGroups: symbolGroups,
		state:        newPortfolioRiskState(),
	}
}

// Group returns the correlation group for a symbol, defaulting unmapped
// symbols to the generic equity group.
func (m *PortfolioRiskManager) Group(symbol string) dto.AssetGroup {
	if g, ok := m.symbolGroups[symbol]; ok {
		return g
	}
	return dto.GroupUSEquity
}

// CanAddPosition checks the four limits in fixed order and returns the first
// failing reason: single symbol, correlated group, direction, total N
// exposure.
func (m *PortfolioRiskManager) CanAddPosition(symbol string, units int, n float64, direction dto.Direction) (bool, string) {
	if n < 0 {
		return false, fmt.Sprintf("negative N value: %v", n)
	}
	if units <= 0 {
		return false, fmt.Sprintf("units must be positive: %d", units)
	}

	group := m.Group(symbol)

	if m.state.UnitsBySymbol[symbol]+units > m.limits.MaxUnitsPerMarket {
		return false, fmt.Sprintf("single-symbol limit exceeded: %s", symbol)
	}

	if m.state.UnitsByGroup[group]+units > m.limits.MaxUnitsCorrelated {
		return false, fmt.Sprintf("correlated group limit exceeded: %s", group)
	}

	if direction == dto.DirectionLong {
		if m.state.LongUnits+units > m.limits.MaxUnitsDirection {
			return false, "long direction limit exceeded"
		}
	} else {
		if m.state.ShortUnits+units > m.limits.MaxUnitsDirection {
			return false, "short direction limit exceeded"
		}
	}

	if m.state.TotalNExposure+n*float64(units) > m.limits.MaxTotalNExposure {
		return false, "total N exposure limit exceeded"
	}

	return true, "OK"
}

// AddPosition records admitted units. It assumes a prior successful
// CanAddPosition and fails hard on invalid input.
func (m *PortfolioRiskManager) AddPosition(symbol string, units int, n float64, direction dto.Direction) error {
	if n < 0 {
		return fmt.Errorf("n must be non-negative, got %v", n)
	}
	if units <= 0 {
		return fmt.Errorf("units must be positive, got %d", units)
	}

	group := m.Group(symbol)

	m.state.UnitsBySymbol[symbol] += units
	m.state.UnitsByGroup[group] += units

	if direction == dto.DirectionLong {
		m.state.LongUnits += units
	} else {
		m.state.ShortUnits += units
	}

	m.state.TotalNExposure += n * float64(units)
	return nil
}

// RemovePosition releases units, clamping every counter at zero so a double
// removal cannot drive the state negative.
func (m *PortfolioRiskManager) RemovePosition(symbol string, units int, n float64, direction dto.Direction) {
	group := m.Group(symbol)

	m.state.UnitsBySymbol[symbol] = maxInt(0, m.state.UnitsBySymbol[symbol]-units)
	m.state.UnitsByGroup[group] = maxInt(0, m.state.UnitsByGroup[group]-units)

	if direction == dto.DirectionLong {
		m.state.LongUnits = maxInt(0, m.state.LongUnits-units)
	} else {
		m.state.ShortUnits = maxInt(0, m.state.ShortUnits-units)
	}

	m.state.TotalNExposure -= n * float64(units)
	if m.state.TotalNExposure < 0 {
		m.state.TotalNExposure = 0
	}
}

// GetRiskSummary reports current aggregate exposure.
func (m *PortfolioRiskManager) GetRiskSummary() dto.RiskSummary {
	count := 0
	for _, u := range m.state.UnitsBySymbol {
		if u > 0 {
			count++
		}
	}
	return dto.RiskSummary{
		LongUnits:      m.state.LongUnits,
		ShortUnits:     m.state.ShortUnits,
		TotalNExposure: m.state.TotalNExposure,
		PositionsCount: count,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
