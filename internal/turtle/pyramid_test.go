package turtle

import (
	"testing"
	"time"

	"turtle-trading/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func newLongLadder(t *testing.T) *PyramidPosition {
	t.Helper()
	m := NewPyramidManager(4, 0.5, 2.0)
	return m.CreatePosition("AAPL", dto.DirectionLong, day(0), 100, 400, 2.5)
}

func TestPyramidPosition_ScaleInLadder(t *testing.T) {
	p := newLongLadder(t)

	require.Equal(t, 1, p.TotalUnits())
	assert.Equal(t, 400, p.TotalShares())
	assert.InDelta(t, 95.0, p.CurrentStop(), 1e-9)

	// Next unit unlocks half an N above the last entry.
	assert.InDelta(t, 101.25, p.NextPyramidPrice(2.5), 1e-9)

	ok, reason := p.CanPyramid(101.0, 2.5)
	assert.False(t, ok)
	assert.Equal(t, "waiting for pyramid price", reason)

	ok, _ = p.CanPyramid(101.25, 2.5)
	assert.True(t, ok)

	// Adding the second rung trails the first rung's stop up to the new one.
	entry, err := p.AddEntry(day(1), 101.25, 400, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.EntryNumber)
	assert.InDelta(t, 96.25, entry.StopPrice, 1e-9)
	assert.InDelta(t, 96.25, p.Entries[0].StopPrice, 1e-9)
	assert.InDelta(t, 96.25, p.CurrentStop(), 1e-9)
}

func TestPyramidPosition_MaxUnits(t *testing.T) {
	p := newLongLadder(t)

	for i := 1; i < 4; i++ {
		_, err := p.AddEntry(day(i), 100+float64(i)*1.25, 400, 2.5)
		require.NoError(t, err)
	}
	require.True(t, p.IsFull())

	ok, reason := p.CanPyramid(110, 2.5)
	assert.False(t, ok)
	assert.Equal(t, "max units reached: 4/4", reason)

	_, err := p.AddEntry(day(5), 110, 400, 2.5)
	assert.ErrorIs(t, err, ErrPositionFull)
	assert.Equal(t, 4, p.TotalUnits())
}

func TestPyramidPosition_AverageEntryPrice(t *testing.T) {
	p := newLongLadder(t)
	_, err := p.AddEntry(day(1), 102, 200, 2.5)
	require.NoError(t, err)

	// (100*400 + 102*200) / 600
	assert.InDelta(t, 100.0+2.0/3.0, p.AverageEntryPrice(), 1e-9)
	assert.Equal(t, 600, p.TotalShares())
}

func TestPyramidPosition_ShortLadder(t *testing.T) {
	m := NewPyramidManager(4, 0.5, 2.0)
	p := m.CreatePosition("QQQ", dto.DirectionShort, day(0), 100, 300, 2.0)

	assert.InDelta(t, 104.0, p.CurrentStop(), 1e-9)
	assert.InDelta(t, 99.0, p.NextPyramidPrice(2.0), 1e-9)

	ok, _ := p.CanPyramid(99.5, 2.0)
	assert.False(t, ok)
	ok, _ = p.CanPyramid(99.0, 2.0)
	assert.True(t, ok)

	// The new rung's stop is lower; earlier rungs trail down to it.
	_, err := p.AddEntry(day(1), 99.0, 300, 2.0)
	require.NoError(t, err)
	assert.InDelta(t, 103.0, p.CurrentStop(), 1e-9)
	assert.InDelta(t, 103.0, p.Entries[0].StopPrice, 1e-9)
}

func TestPyramidPosition_StopNeverLoosens(t *testing.T) {
	p := newLongLadder(t)

	// A rung added with a much larger N would place its stop below the
	// ladder's current stop; earlier rungs must not be loosened.
	_, err := p.AddEntry(day(1), 101.25, 400, 10.0)
	require.NoError(t, err)

	assert.InDelta(t, 95.0, p.Entries[0].StopPrice, 1e-9)
	assert.InDelta(t, 81.25, p.Entries[1].StopPrice, 1e-9)
}

func TestPyramidPosition_CheckStopHit(t *testing.T) {
	tests := []struct {
		name      string
		direction dto.Direction
		price     float64
		want      bool
	}{
		{"long above stop", dto.DirectionLong, 95.01, false},
		{"long at stop", dto.DirectionLong, 95.0, true},
		{"long below stop", dto.DirectionLong, 90.0, true},
		{"short below stop", dto.DirectionShort, 104.9, false},
		{"short at stop", dto.DirectionShort, 105.0, true},
		{"short above stop", dto.DirectionShort, 110.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPyramidManager(4, 0.5, 2.0)
			p := m.CreatePosition("AAPL", tt.direction, day(0), 100, 400, 2.5)
			assert.Equal(t, tt.want, p.CheckStopHit(tt.price))
		})
	}
}

func TestPyramidManager_Lifecycle(t *testing.T) {
	m := NewPyramidManager(4, 0.5, 2.0)

	assert.Nil(t, m.GetPosition("AAPL"))

	p := m.CreatePosition("AAPL", dto.DirectionLong, day(0), 100, 400, 2.5)
	assert.Same(t, p, m.GetPosition("AAPL"))
	assert.Len(t, m.Positions(), 1)

	// Re-creating replaces the existing ladder.
	p2 := m.CreatePosition("AAPL", dto.DirectionShort, day(1), 90, 300, 2.0)
	assert.Same(t, p2, m.GetPosition("AAPL"))
	assert.Equal(t, dto.DirectionShort, m.GetPosition("AAPL").Direction)

	m.ClosePosition("AAPL")
	assert.Nil(t, m.GetPosition("AAPL"))
	assert.Empty(t, m.Positions())
}
