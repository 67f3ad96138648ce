package turtle

import (
	"fmt"
	"strings"

	"turtle-trading/internal/dto"
)

// EntryExitFilter decides breakout entries and exits per bar. It is the single
// implementation shared by the backtester and the live signal checker; both
// supply their own lastTradeProfitable verdict.
//
// All boundary comparisons are strict. Exact equality to a channel value
// never triggers an entry, an exit or the failsafe override.
type EntryExitFilter struct {
	StopDistanceN float64
}

func NewEntryExitFilter() *EntryExitFilter {
	return &EntryExitFilter{StopDistanceN: 2.0}
}

// IsShortRestricted reports whether short entries are disabled for the
// symbol's market. Korean equities cannot be sold short.
func IsShortRestricted(symbol string) bool {
	return strings.HasSuffix(symbol, ".KS") || strings.HasSuffix(symbol, ".KQ")
}

// ShouldAllowEntry applies the System-1 "skip after a win" filter. System 2
// has no filter. A simultaneous 55-day breakout is the failsafe that
// overrides the skip.
func ShouldAllowEntry(system int, isProfitable, is55DayBreakout bool) bool {
	if system != 1 {
		return true
	}
	if !isProfitable {
		return true
	}
	if is55DayBreakout {
		return true
	}
	return false
}

// entryChannels selects the entry Donchian bounds for a system: 20-day for
// System 1, 55-day for System 2.
func entryChannels(system int, row dto.IndicatorRow) (high, low *float64) {
	if system == 1 {
		return row.DCHigh20, row.DCLow20
	}
	return row.DCHigh55, row.DCLow55
}

// exitChannels selects the exit Donchian bounds: 10-day for System 1, 20-day
// for System 2.
func exitChannels(system int, row dto.IndicatorRow) (high, low *float64) {
	if system == 1 {
		return row.DCHigh10, row.DCLow10
	}
	return row.DCHigh20, row.DCLow20
}

// CheckEntry evaluates today's bar against yesterday's channels and returns
// the admitted entry signals (long, short or both). A missing channel is "no
// signal", never an error.
func (f *EntryExitFilter) CheckEntry(today, yesterday dto.IndicatorRow, symbol string, system int, lastTradeProfitable, useFilter bool) []dto.EntrySignal {
	var signals []dto.EntrySignal

	entryHigh, entryLow := entryChannels(system, yesterday)

	if entryHigh != nil && today.High > *entryHigh {
		is55Day := yesterday.DCHigh55 != nil && today.High > *yesterday.DCHigh55
		if !useFilter || ShouldAllowEntry(system, lastTradeProfitable, is55Day) {
			signals = append(signals, f.entrySignal(today, symbol, system, dto.DirectionLong, *entryHigh))
		}
	}

	if entryLow != nil && !IsShortRestricted(symbol) && today.Low < *entryLow {
		is55Day := yesterday.DCLow55 != nil && today.Low < *yesterday.DCLow55
		if !useFilter || ShouldAllowEntry(system, lastTradeProfitable, is55Day) {
			signals = append(signals, f.entrySignal(today, symbol, system, dto.DirectionShort, *entryLow))
		}
	}

	return signals
}

func (f *EntryExitFilter) entrySignal(today dto.IndicatorRow, symbol string, system int, direction dto.Direction, channelPrice float64) dto.EntrySignal {
	signalType := dto.SignalEntryLong
	verb := "broke above"
	if direction == dto.DirectionShort {
		signalType = dto.SignalEntryShort
		verb = "broke below"
	}

	return dto.EntrySignal{
		Symbol:       symbol,
		Type:         signalType,
		System:       system,
		Direction:    direction,
		Price:        channelPrice,
		CurrentClose: today.Close,
		N:            today.N,
		StopLoss:     StopPrice(channelPrice, today.N, direction, f.StopDistanceN),
		Date:         today.Date,
		Message:      fmt.Sprintf("System %d %s entry: %s %.2f", system, strings.ToLower(string(direction)), verb, channelPrice),
	}
}

// CheckExit evaluates today's bar against yesterday's exit channel for an
// open position. The stop-loss trigger is a separate, tighter check layered
// on top by the caller.
func (f *EntryExitFilter) CheckExit(today, yesterday dto.IndicatorRow, symbol, positionID string, direction dto.Direction, system int) *dto.ExitSignal {
	exitHigh, exitLow := exitChannels(system, yesterday)

	if direction == dto.DirectionLong {
		if exitLow == nil || today.Low >= *exitLow {
			return nil
		}
		return &dto.ExitSignal{
			Symbol:       symbol,
			Type:         dto.SignalExitLong,
			System:       system,
			PositionID:   positionID,
			Price:        *exitLow,
			CurrentClose: today.Close,
			N:            today.N,
			Date:         today.Date,
			Message:      fmt.Sprintf("System %d long exit: fell below %.2f", system, *exitLow),
		}
	}

	if exitHigh == nil || today.High <= *exitHigh {
		return nil
	}
	return &dto.ExitSignal{
		Symbol:       symbol,
		Type:         dto.SignalExitShort,
		System:       system,
		PositionID:   positionID,
		Price:        *exitHigh,
		CurrentClose: today.Close,
		N:            today.N,
		Date:         today.Date,
		Message:      fmt.Sprintf("System %d short exit: rose above %.2f", system, *exitHigh),
	}
}
