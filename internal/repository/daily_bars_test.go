package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	pkgch "PriceCast/pkg/clickhouse"
)

func newMockStore(t *testing.T) (*CHDailyBarStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewCHDailyBarStore(pkgch.NewFromDB(db), "pricecast.daily_bars")
	s.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestGetDailyHistory(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "volume"}).
		AddRow(time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), 10.0, 11.0, 9.0, 10.5, 1000.0).
		AddRow(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), 10.5, 12.0, 10.0, 11.5, 2000.0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pricecast.daily_bars FINAL")).
		WithArgs("AAPL", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(rows)

	got, err := s.GetDailyHistory(context.Background(), "AAPL", "3mo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-06-13", got[0].Date)
	assert.Equal(t, 11.5, got[1].Close)
	assert.Equal(t, 9.0, got[0].Low)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDailyHistoryQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))

	_, err := s.GetDailyHistory(context.Background(), "AAPL", "1y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get daily history")
}

func TestSaveDailyBarsSkipsInvalidRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pricecast.daily_bars")).
		WithArgs(
			"MSFT", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 1.0, 2.0, 0.5, 1.5, 10.0,
			"MSFT", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 1.5, 2.5, 1.0, 2.0, 20.0,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.SaveDailyBars(context.Background(), "MSFT", []models.PriceRecord{
		{Date: "2024-01-02", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: "not-a-date", Close: 3},
		{Date: "2024-01-03", Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
		{Date: "2024-01-04", Close: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyBarSchema(t *testing.T) {
	stmts := DailyBarSchema("pricecast", "daily_bars")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "pricecast.daily_bars")
	assert.Contains(t, stmts[1], "ORDER BY (symbol, date)")
}
