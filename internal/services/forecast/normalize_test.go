package forecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/util"
)

func TestNormalizeFillsMissingBusinessDay(t *testing.T) {
	s, err := Normalize([]models.PriceRecord{
		{Date: "2024-01-03", Close: 102.0},
		{Date: "2024-01-01", Close: 100.0},
	})
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100.0, 100.0, 102.0}, s.Prices)
	assert.Equal(t, "2024-01-02", util.FormatDate(s.Dates[1]))
	assert.Equal(t, "2024-01-03", util.FormatDate(s.LastDate))
	assert.Equal(t, 102.0, s.LastPrice)
}

func TestNormalizeDuplicateKeepsLast(t *testing.T) {
	s, err := Normalize([]models.PriceRecord{
		{Date: "2024-01-01", Close: 100},
		{Date: "2024-01-02T09:30:00Z", Close: 101},
		{Date: "2024-01-02 16:00:00", Close: 105},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 105}, s.Prices)
}

func TestNormalizeSkipsWeekendsAndCarriesWeekendPrice(t *testing.T) {
	s, err := Normalize([]models.PriceRecord{
		{Date: "2024-01-05", Close: 100}, // Friday
		{Date: "2024-01-06", Close: 103}, // Saturday
		{Date: "2024-01-09", Close: 104}, // Tuesday
	})
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, "2024-01-08", util.FormatDate(s.Dates[1]))
	assert.Equal(t, []float64{100, 103, 104}, s.Prices)
}

func TestNormalizeInsufficientData(t *testing.T) {
	cases := map[string][]models.PriceRecord{
		"empty":    nil,
		"single":   {{Date: "2024-01-01", Close: 100}},
		"same day": {{Date: "2024-01-01", Close: 100}, {Date: "2024-01-01T12:00:00Z", Close: 101}},
		"weekend":  {{Date: "2024-01-06", Close: 100}, {Date: "2024-01-07", Close: 101}},
	}
	for name, recs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(recs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInsufficientData), "got %v", err)
		})
	}
}

func TestNormalizeRejectsBadRecords(t *testing.T) {
	cases := map[string]models.PriceRecord{
		"bad date": {Date: "yesterday", Close: 100},
		"zero":     {Date: "2024-01-02", Close: 0},
		"negative": {Date: "2024-01-02", Close: -3},
		"nan":      {Date: "2024-01-02", Close: math.NaN()},
		"infinite": {Date: "2024-01-02", Close: math.Inf(1)},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize([]models.PriceRecord{{Date: "2024-01-01", Close: 100}, bad})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrData), "got %v", err)

			var ferr *Error
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, "normalize", ferr.Op)
			assert.NotEmpty(t, ferr.Cause)
		})
	}
}

func TestNormalizeRangeOnlyWhenEveryRecordHasIt(t *testing.T) {
	full := []models.PriceRecord{
		{Date: "2024-01-01", Close: 100, High: 101, Low: 99},
		{Date: "2024-01-03", Close: 102, High: 103, Low: 100},
	}
	s, err := Normalize(full)
	require.NoError(t, err)
	require.True(t, s.HasRange())
	assert.Equal(t, []float64{101, 101, 103}, s.Highs)
	assert.Equal(t, []float64{99, 99, 100}, s.Lows)

	partial := []models.PriceRecord{full[0], {Date: "2024-01-03", Close: 102}}
	s, err = Normalize(partial)
	require.NoError(t, err)
	assert.False(t, s.HasRange())
}

func TestNormalizeOutputIsGapFreeAndIncreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		var recs []models.PriceRecord
		d := monday
		for i := 0; i < 40; i++ {
			d = d.AddDate(0, 0, 1+rng.Intn(4))
			recs = append(recs, models.PriceRecord{Date: util.FormatDate(d), Close: 50 + rng.Float64()*10})
		}
		rng.Shuffle(len(recs), func(i, j int) { recs[i], recs[j] = recs[j], recs[i] })

		s, err := Normalize(recs)
		require.NoError(t, err)
		for i := 1; i < s.Len(); i++ {
			require.True(t, s.Dates[i].After(s.Dates[i-1]))
			require.True(t, util.IsBusinessDay(s.Dates[i]))
			require.Equal(t, util.NextBusinessDay(s.Dates[i-1]), s.Dates[i], "gap before %s", s.Dates[i].Format(time.DateOnly))
		}
	}
}
