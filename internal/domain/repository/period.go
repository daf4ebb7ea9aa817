package repository

import "time"

// Period is a history lookback window, named the way chart providers name ranges.
type Period string

const (
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	Period10y Period = "10y"
	PeriodMax Period = "max"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period1mo, Period3mo, Period6mo, Period1y, Period2y, Period5y, Period10y, PeriodMax:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default period.
func DefaultPeriod() Period { return Period1y }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// Since returns the first calendar day covered by p when looking back from now.
// PeriodMax returns the zero time.
func (p Period) Since(now time.Time) time.Time {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch p {
	case Period1mo:
		return day.AddDate(0, -1, 0)
	case Period3mo:
		return day.AddDate(0, -3, 0)
	case Period6mo:
		return day.AddDate(0, -6, 0)
	case Period2y:
		return day.AddDate(-2, 0, 0)
	case Period5y:
		return day.AddDate(-5, 0, 0)
	case Period10y:
		return day.AddDate(-10, 0, 0)
	case PeriodMax:
		return time.Time{}
	default:
		return day.AddDate(-1, 0, 0)
	}
}
