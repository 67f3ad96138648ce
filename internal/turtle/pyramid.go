package turtle

import (
	"errors"
	"fmt"
	"time"

	"turtle-trading/internal/dto"
)

// ErrPositionFull is returned when a ladder already holds its maximum units.
var ErrPositionFull = errors.New("position already at maximum units")

// PyramidEntry is one rung of the scale-in ladder. Its stop may be tightened
// retroactively when later rungs are added.
type PyramidEntry struct {
	EntryNumber int
	EntryDate   time.Time
	EntryPrice  float64
	Shares      int
	NAtEntry    float64
	StopPrice   float64
}

// PyramidPosition tracks one open position's scale-in ladder and trailing
// stops. One AddEntry call is one unit.
type PyramidPosition struct {
	Symbol           string
	Direction        dto.Direction
	Entries          []PyramidEntry
	MaxUnits         int
	PyramidIntervalN float64
	StopDistanceN    float64
}

// TotalUnits is the number of rungs in the ladder.
func (p *PyramidPosition) TotalUnits() int {
	return len(p.Entries)
}

// TotalShares is the share count across all rungs.
func (p *PyramidPosition) TotalShares() int {
	total := 0
	for _, e := range p.Entries {
		total += e.Shares
	}
	return total
}

func (p *PyramidPosition) IsFull() bool {
	return p.TotalUnits() >= p.MaxUnits
}

// AverageEntryPrice is the share-weighted mean entry price.
func (p *PyramidPosition) AverageEntryPrice() float64 {
	shares := p.TotalShares()
	if shares == 0 {
		return 0
	}
	total := 0.0
	for _, e := range p.Entries {
		total += e.EntryPrice * float64(e.Shares)
	}
	return total / float64(shares)
}

// CurrentStop is the newest rung's (already trailed) stop.
func (p *PyramidPosition) CurrentStop() float64 {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[len(p.Entries)-1].StopPrice
}

// NextPyramidPrice is the price at which the next unit may be added:
// lastEntry ± pyramidIntervalN * currentN.
func (p *PyramidPosition) NextPyramidPrice(currentN float64) float64 {
	if len(p.Entries) == 0 {
		return 0
	}
	interval := currentN * p.PyramidIntervalN
	last := p.Entries[len(p.Entries)-1].EntryPrice
	if p.Direction == dto.DirectionLong {
		return last + interval
	}
	return last - interval
}

// CanPyramid reports whether another unit may be added at the current price.
// An empty ladder is always eligible; the entry decision itself is gated by
// the entry filter, not here.
func (p *PyramidPosition) CanPyramid(currentPrice, currentN float64) (bool, string) {
	if p.IsFull() {
		return false, fmt.Sprintf("max units reached: %d/%d", p.TotalUnits(), p.MaxUnits)
	}
	if len(p.Entries) == 0 {
		return true, "initial entry allowed"
	}

	pyramidPrice := p.NextPyramidPrice(currentN)
	if p.Direction == dto.DirectionLong {
		if currentPrice >= pyramidPrice {
			return true, fmt.Sprintf("pyramid price reached: %.2f >= %.2f", currentPrice, pyramidPrice)
		}
	} else {
		if currentPrice <= pyramidPrice {
			return true, fmt.Sprintf("pyramid price reached: %.2f <= %.2f", currentPrice, pyramidPrice)
		}
	}

	return false, "waiting for pyramid price"
}

// AddEntry appends a rung with a fresh 2N stop and trails every earlier
// rung's stop up (LONG) or down (SHORT) to the new one when more favorable.
func (p *PyramidPosition) AddEntry(date time.Time, price float64, shares int, n float64) (PyramidEntry, error) {
	if p.IsFull() {
		return PyramidEntry{}, ErrPositionFull
	}

	entry := PyramidEntry{
		EntryNumber: len(p.Entries) + 1,
		EntryDate:   date,
		EntryPrice:  price,
		Shares:      shares,
		NAtEntry:    n,
		StopPrice:   StopPrice(price, n, p.Direction, p.StopDistanceN),
	}
	p.Entries = append(p.Entries, entry)
	p.updateTrailingStops()
	return p.Entries[len(p.Entries)-1], nil
}

func (p *PyramidPosition) updateTrailingStops() {
	if len(p.Entries) <= 1 {
		return
	}
	latestStop := p.Entries[len(p.Entries)-1].StopPrice
	for i := range p.Entries[:len(p.Entries)-1] {
		if p.Direction == dto.DirectionLong {
			if latestStop > p.Entries[i].StopPrice {
				p.Entries[i].StopPrice = latestStop
			}
		} else {
			if latestStop < p.Entries[i].StopPrice {
				p.Entries[i].StopPrice = latestStop
			}
		}
	}
}

// CheckStopHit reports whether the current price has crossed the trailed stop.
func (p *PyramidPosition) CheckStopHit(currentPrice float64) bool {
	if len(p.Entries) == 0 {
		return false
	}
	if p.Direction == dto.DirectionLong {
		return currentPrice <= p.CurrentStop()
	}
	return currentPrice >= p.CurrentStop()
}

// PyramidManager holds at most one open position per symbol. Not safe for
// concurrent use; owned by a single run.
type PyramidManager struct {
	maxUnits         int
	pyramidIntervalN float64
	stopDistanceN    float64
	positions        map[string]*PyramidPosition
}

func NewPyramidManager(maxUnits int, pyramidIntervalN, stopDistanceN float64) *PyramidManager {
	return &PyramidManager{
		maxUnits:         maxUnits,
		pyramidIntervalN: pyramidIntervalN,
		stopDistanceN:    stopDistanceN,
		positions:        make(map[string]*PyramidPosition),
	}
}

// CreatePosition opens a ladder with its first rung. An existing position for
// the symbol is replaced; callers check GetPosition first.
func (m *PyramidManager) CreatePosition(symbol string, direction dto.Direction, date time.Time, price float64, shares int, n float64) *PyramidPosition {
	position := &PyramidPosition{
		Symbol:           symbol,
		Direction:        direction,
		MaxUnits:         m.maxUnits,
		PyramidIntervalN: m.pyramidIntervalN,
		StopDistanceN:    m.stopDistanceN,
	}
	_, _ = position.AddEntry(date, price, shares, n)
	m.positions[symbol] = position
	return position
}

func (m *PyramidManager) GetPosition(symbol string) *PyramidPosition {
	return m.positions[symbol]
}

// ClosePosition drops the in-memory ladder; history is the store's job.
func (m *PyramidManager) ClosePosition(symbol string) {
	delete(m.positions, symbol)
}

// Positions exposes the open ladders for mark-to-market iteration.
func (m *PyramidManager) Positions() map[string]*PyramidPosition {
	return m.positions
}
