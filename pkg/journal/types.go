package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/window"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("journal closed")

// Entry is one applied snapshot.
type Entry struct {
	// ID is assigned by the store on Append.
	ID int64 `json:"id"`

	SessionID  string           `json:"session_id"`
	ProfileID  string           `json:"profile_id,omitempty"`
	TurnNumber int              `json:"turn_number"`
	OutOfOrder bool             `json:"out_of_order,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
	Snapshot   *window.Snapshot `json:"snapshot"`
}

// Query filters List results. Zero values match everything.
type Query struct {
	SessionID string
	Since     time.Time

	// Limit keeps only the most recent entries when positive.
	Limit int
}

// SessionSummary describes one session's journal.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Entries   int       `json:"entries"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
	LastTurn  int       `json:"last_turn"`
}

// Store persists journal entries. Implementations are safe for concurrent use.
type Store interface {
	// Append records e and sets e.ID.
	Append(ctx context.Context, e *Entry) error

	// List returns matching entries in append order.
	List(ctx context.Context, q Query) ([]*Entry, error)

	// Sessions summarises every session with at least one entry,
	// most recently active first.
	Sessions(ctx context.Context) ([]SessionSummary, error)

	// Prune deletes entries recorded before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// Open creates the store selected by cfg.
func Open(cfg config.JournalConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}

func validateEntry(e *Entry) error {
	if e == nil {
		return errors.New("entry cannot be nil")
	}
	if e.SessionID == "" {
		return errors.New("entry session id cannot be empty")
	}
	if e.Snapshot == nil {
		return errors.New("entry snapshot cannot be nil")
	}
	return nil
}
