package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/util"
)

// Series is a gap-free business-day price series. It is never mutated after Normalize returns it.
type Series struct {
	Dates  []time.Time
	Prices []float64
	// Highs and Lows are nil unless every input record carried a positive range.
	Highs []float64
	Lows  []float64

	LastDate  time.Time
	LastPrice float64
}

// Len returns the number of business days in the series.
func (s *Series) Len() int { return len(s.Prices) }

// HasRange reports whether high/low data is available.
func (s *Series) HasRange() bool { return s.Highs != nil && s.Lows != nil }

type observation struct {
	date             time.Time
	close, high, low float64
}

// Normalize parses, sorts and deduplicates raw records (the later record wins on a
// duplicate date), then reindexes them onto the business-day range between the
// first and last observed dates, forward-filling days with no observation.
func Normalize(records []models.PriceRecord) (*Series, error) {
	const op = "normalize"

	obs := make([]observation, 0, len(records))
	withRange := len(records) > 0
	for i, r := range records {
		d, ok := util.ParseDate(r.Date)
		if !ok {
			return nil, newError(op, ErrData, fmt.Sprintf("record %d: unparseable date %q", i, r.Date), nil)
		}
		if !validPrice(r.Close) {
			return nil, newError(op, ErrData, fmt.Sprintf("record %d: invalid close %v", i, r.Close), nil)
		}
		if !validPrice(r.High) || !validPrice(r.Low) {
			withRange = false
		}
		obs = append(obs, observation{date: d, close: r.Close, high: r.High, low: r.Low})
	}

	sort.SliceStable(obs, func(i, j int) bool { return obs[i].date.Before(obs[j].date) })

	uniq := obs[:0]
	for _, o := range obs {
		if n := len(uniq); n > 0 && uniq[n-1].date.Equal(o.date) {
			uniq[n-1] = o
			continue
		}
		uniq = append(uniq, o)
	}

	businessDays := 0
	for _, o := range uniq {
		if util.IsBusinessDay(o.date) {
			businessDays++
		}
	}
	if businessDays < 2 {
		return nil, newError(op, ErrInsufficientData,
			fmt.Sprintf("%d distinct business days, need at least 2", businessDays), nil)
	}

	days := util.BusinessDayRange(uniq[0].date, uniq[len(uniq)-1].date)
	s := &Series{
		Dates:  days,
		Prices: make([]float64, len(days)),
	}
	if withRange {
		s.Highs = make([]float64, len(days))
		s.Lows = make([]float64, len(days))
	}

	// Weekend observations are not indexed but still seed the fill for the following Monday.
	var cur *observation
	j := 0
	for i, d := range days {
		for j < len(uniq) && !uniq[j].date.After(d) {
			cur = &uniq[j]
			j++
		}
		if cur == nil {
			return nil, newError(op, ErrData, "no price to fill from on "+util.FormatDate(d), nil)
		}
		s.Prices[i] = cur.close
		if withRange {
			s.Highs[i] = cur.high
			s.Lows[i] = cur.low
		}
	}

	s.LastDate = days[len(days)-1]
	s.LastPrice = s.Prices[len(s.Prices)-1]
	return s, nil
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
