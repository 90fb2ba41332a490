package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3"
	_ "modernc.org/sqlite"          // driver "sqlite"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/window"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	profile_id TEXT NOT NULL DEFAULT '',
	turn_number INTEGER NOT NULL,
	out_of_order INTEGER NOT NULL DEFAULT 0,
	recorded_at INTEGER NOT NULL,
	snapshot TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_session ON journal_entries(session_id, id);
CREATE INDEX IF NOT EXISTS idx_journal_recorded_at ON journal_entries(recorded_at);
`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	cfg       config.SQLiteConfig
	logger    *slog.Logger
	closeOnce sync.Once

	appendStmt *sql.Stmt
	pruneStmt  *sql.Stmt
}

// NewSQLiteStore opens or creates the database described by cfg.
func NewSQLiteStore(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = config.DefaultJournalSQLiteDriver
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = config.DefaultJournalSQLiteBusyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal.sqlite")

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStore{db: db, cfg: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("journal database opened",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.cfg.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.cfg.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	var err error
	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO journal_entries (session_id, profile_id, turn_number, out_of_order, recorded_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append statement: %w", err)
	}
	s.pruneStmt, err = s.db.Prepare(`DELETE FROM journal_entries WHERE recorded_at < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}
	return nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, e *Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	data, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	res, err := s.appendStmt.ExecContext(ctx,
		e.SessionID, e.ProfileID, e.TurnNumber, boolToInt(e.OutOfOrder), e.RecordedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read journal entry id: %w", err)
	}
	e.ID = id
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]*Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if !q.Since.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, q.Since.UnixNano())
	}

	query := "SELECT id, session_id, profile_id, turn_number, out_of_order, recorded_at, snapshot FROM journal_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// Newest first so LIMIT keeps the most recent; reversed below.
	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e          Entry
			outOfOrder int
			recordedAt int64
			data       string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ProfileID, &e.TurnNumber, &outOfOrder, &recordedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		var snap window.Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot for entry %d: %w", e.ID, err)
		}
		e.OutOfOrder = outOfOrder != 0
		e.RecordedAt = time.Unix(0, recordedAt)
		e.Snapshot = &snap
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Sessions implements Store.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT j.session_id, COUNT(*), MIN(j.recorded_at), MAX(j.recorded_at),
			(SELECT turn_number FROM journal_entries l
			 WHERE l.session_id = j.session_id ORDER BY l.id DESC LIMIT 1)
		FROM journal_entries j
		GROUP BY j.session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum         SessionSummary
			first, last int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Entries, &first, &last, &sum.LastTurn); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		sum.FirstAt = time.Unix(0, first)
		sum.LastAt = time.Unix(0, last)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	sortSummaries(out)
	return out, nil
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.pruneStmt.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.appendStmt, s.pruneStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
