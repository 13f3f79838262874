package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	pkgch "SmcDesk/pkg/clickhouse"
	applogger "SmcDesk/pkg/logger"
)

// CandleSchema returns the idempotent DDL for the candle table.
func CandleSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles (
			symbol LowCardinality(String),
			tf     LowCardinality(String),
			t      DateTime64(3, 'UTC'),
			o      Float64,
			h      Float64,
			l      Float64,
			c      Float64,
			v      Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, tf, t)`, database),
	}
}

// CHCandleStore reads and writes closed candles in ClickHouse. Rows with the
// same (symbol, tf, t) collapse on merge and FINAL hides duplicates on read.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHCandleStore{
		db:    ch.DB(),
		table: database + ".candles",
		l:     l.With(applogger.String("component", "clickhouse_candles")),
	}
}

func (s *CHCandleStore) GetLatestCandles(ctx context.Context, q domrepo.CandleQuery) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT toUnixTimestamp64Milli(t), o, h, l, c, v
        FROM %s FINAL
        WHERE symbol = ? AND tf = ?
        ORDER BY t DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), q.Symbol, string(q.Timeframe), q.Limit)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			applogger.String("symbol", q.Symbol),
			applogger.String("tf", string(q.Timeframe)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, q.Limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.T, &c.O, &c.H, &c.L, &c.C, &c.V); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverseCandles(tmp)

	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("symbol", q.Symbol),
		applogger.String("tf", string(q.Timeframe)),
		applogger.Int("rows", len(tmp)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return tmp, nil
}

func (s *CHCandleStore) InsertCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, candles []models.Candle) error {
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := min(start+chunkSize, len(candles))

		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*8)
		for _, c := range candles[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, string(tf), time.UnixMilli(c.T).UTC(), c.O, c.H, c.L, c.C, c.V)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, tf, t, o, h, l, c, v) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert candles: %w", err)
		}
	}
	return nil
}

func reverseCandles(c []models.Candle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
