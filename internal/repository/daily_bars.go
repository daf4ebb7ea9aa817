package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgch "PriceCast/pkg/clickhouse"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// DailyBarSchema returns the DDL for the daily bar table. ReplacingMergeTree
// keeps the latest insert for a (symbol, date) pair.
func DailyBarSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            symbol LowCardinality(String),
            date Date,
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            volume Float64,
            inserted_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(inserted_at)
        ORDER BY (symbol, date)`, database, table),
	}
}

// CHDailyBarStore reads and writes daily bars in ClickHouse. It serves as a
// HistoryProvider when history.source is clickhouse.
type CHDailyBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

var (
	_ domrepo.HistoryProvider = (*CHDailyBarStore)(nil)
	_ domrepo.DailyBarWriter  = (*CHDailyBarStore)(nil)
)

// NewCHDailyBarStore creates the store for a fully qualified table name.
func NewCHDailyBarStore(ch *pkgch.Client, table string) *CHDailyBarStore {
	return &CHDailyBarStore{db: ch.DB(), table: table, now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHDailyBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHDailyBarStore) GetDailyHistory(ctx context.Context, symbol, period string) ([]models.PriceRecord, error) {
	start := time.Now()
	since := domrepo.NormalizePeriod(period).Since(s.now())
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, since)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse daily_history query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.String("period", period),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get daily history: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceRecord, 0, 256)
	for rows.Next() {
		var (
			d time.Time
			r models.PriceRecord
		)
		if err := rows.Scan(&d, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		r.Date = util.FormatDate(d)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse daily_history ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// SaveDailyBars inserts bars in multi-row chunks. Records with an unparseable
// date or a non-positive close are skipped.
func (s *CHDailyBarStore) SaveDailyBars(ctx context.Context, symbol string, records []models.PriceRecord) (int, error) {
	const chunkSize = 1000
	saved := 0
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, r := range records[start:end] {
			d, ok := util.ParseDate(r.Date)
			if !ok || r.Close <= 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, d, r.Open, r.High, r.Low, r.Close, r.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return saved, fmt.Errorf("insert daily bars: %w", err)
		}
		saved += len(values)
	}
	return saved, nil
}
