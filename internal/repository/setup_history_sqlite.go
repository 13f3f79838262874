package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
)

const setupHistorySchema = `
CREATE TABLE IF NOT EXISTS setup_history (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	applied_at     TEXT NOT NULL,
	preset_id      TEXT,
	params         TEXT NOT NULL,
	symbol         TEXT NOT NULL,
	timeframe      TEXT NOT NULL,
	source         TEXT NOT NULL,
	candle_time    INTEGER,
	setup_snapshot TEXT,
	status         TEXT NOT NULL,
	updated_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_setup_history_symbol ON setup_history(symbol, timeframe);
`

// SQLiteSetupHistory journals setup applications in a SQLite database.
type SQLiteSetupHistory struct {
	db *sql.DB
}

// NewSQLiteSetupHistory opens (or creates) the journal at path. ":memory:"
// is accepted for tests.
func NewSQLiteSetupHistory(path string) (*SQLiteSetupHistory, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal=WAL&_sync=NORMAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open setup history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(setupHistorySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup history schema: %w", err)
	}
	return &SQLiteSetupHistory{db: db}, nil
}

func (s *SQLiteSetupHistory) List(ctx context.Context) ([]models.SetupHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, applied_at, preset_id, params, symbol, timeframe, source,
		       candle_time, setup_snapshot, status, updated_at
		FROM setup_history ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list setup history: %w", err)
	}
	defer rows.Close()

	out := make([]models.SetupHistoryEntry, 0)
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSetupHistory) Add(ctx context.Context, e models.SetupHistoryEntry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	var snapshot sql.NullString
	if e.SetupSnapshot != nil {
		b, err := json.Marshal(e.SetupSnapshot)
		if err != nil {
			return fmt.Errorf("encode setup snapshot: %w", err)
		}
		snapshot = sql.NullString{String: string(b), Valid: true}
	}
	var candleTime sql.NullInt64
	if e.CandleTime != nil {
		candleTime = sql.NullInt64{Int64: *e.CandleTime, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO setup_history
			(id, applied_at, preset_id, params, symbol, timeframe, source, candle_time, setup_snapshot, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.AppliedAt.UTC().Format(time.RFC3339Nano),
		nullString(e.PresetID),
		string(params),
		e.Symbol,
		e.Timeframe,
		string(e.Source),
		candleTime,
		snapshot,
		string(e.Status),
		nullTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert setup history: %w", err)
	}
	return nil
}

func (s *SQLiteSetupHistory) UpdateStatus(ctx context.Context, id string, status models.HistoryStatus, at time.Time) (*models.SetupHistoryEntry, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE setup_history SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return nil, fmt.Errorf("update setup history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domrepo.ErrEntryNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, applied_at, preset_id, params, symbol, timeframe, source,
		       candle_time, setup_snapshot, status, updated_at
		FROM setup_history WHERE id = ?`, id)
	e, err := scanHistory(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteSetupHistory) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(r rowScanner) (models.SetupHistoryEntry, error) {
	var (
		e                  models.SetupHistoryEntry
		appliedAt, params  string
		source, status     string
		presetID, snapshot sql.NullString
		updatedAt          sql.NullString
		candleTime         sql.NullInt64
	)
	if err := r.Scan(&e.ID, &appliedAt, &presetID, &params, &e.Symbol, &e.Timeframe,
		&source, &candleTime, &snapshot, &status, &updatedAt); err != nil {
		return e, fmt.Errorf("scan setup history: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, appliedAt)
	if err != nil {
		return e, fmt.Errorf("parse applied_at: %w", err)
	}
	e.AppliedAt = t
	e.Source = models.HistorySource(source)
	e.Status = models.HistoryStatus(status)
	if presetID.Valid {
		e.PresetID = &presetID.String
	}
	if candleTime.Valid {
		e.CandleTime = &candleTime.Int64
	}
	if updatedAt.Valid {
		if u, err := time.Parse(time.RFC3339Nano, updatedAt.String); err == nil {
			e.UpdatedAt = &u
		}
	}
	if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
		return e, fmt.Errorf("decode params: %w", err)
	}
	if snapshot.Valid {
		var setup models.Setup
		if err := json.Unmarshal([]byte(snapshot.String), &setup); err != nil {
			return e, fmt.Errorf("decode setup snapshot: %w", err)
		}
		e.SetupSnapshot = &setup
	}
	return e, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.UTC().Format(time.RFC3339Nano), Valid: true}
}

var _ domrepo.SetupHistoryStore = (*SQLiteSetupHistory)(nil)
