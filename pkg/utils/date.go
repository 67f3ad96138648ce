package utils

import (
	"strings"
	"time"
)

// Market session windows are approximations used as a pre-trade gate; the
// authoritative holiday calendar lives with the broker.

func seoulLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

func newYorkLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// IsKoreanSymbol reports whether a symbol trades on KRX (KOSPI/KOSDAQ).
func IsKoreanSymbol(symbol string) bool {
	return strings.HasSuffix(symbol, ".KS") || strings.HasSuffix(symbol, ".KQ")
}

// IsMarketOpen reports whether the symbol's home market is inside its regular
// session at the given instant. Weekends are closed; holidays are not modeled.
func IsMarketOpen(symbol string, at time.Time) bool {
	if IsKoreanSymbol(symbol) {
		local := at.In(seoulLocation())
		return isWeekday(local) && inSession(local, 9, 0, 15, 30)
	}
	local := at.In(newYorkLocation())
	return isWeekday(local) && inSession(local, 9, 30, 16, 0)
}

func isWeekday(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

func inSession(t time.Time, openH, openM, closeH, closeM int) bool {
	open := time.Date(t.Year(), t.Month(), t.Day(), openH, openM, 0, 0, t.Location())
	close := time.Date(t.Year(), t.Month(), t.Day(), closeH, closeM, 0, 0, t.Location())
	return !t.Before(open) && !t.After(close)
}

// TruncateToDay strips the time-of-day component in the value's location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
