package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps entries in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	nextID  int64
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append implements Store.
func (m *MemoryStore) Append(ctx context.Context, e *Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	e.ID = m.nextID
	m.nextID++
	stored := *e
	m.entries = append(m.entries, &stored)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, q Query) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var out []*Entry
	for _, e := range m.entries {
		if q.SessionID != "" && e.SessionID != q.SessionID {
			continue
		}
		if !q.Since.IsZero() && e.RecordedAt.Before(q.Since) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

// Sessions implements Store.
func (m *MemoryStore) Sessions(ctx context.Context) ([]SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	byID := make(map[string]*SessionSummary)
	for _, e := range m.entries {
		s, ok := byID[e.SessionID]
		if !ok {
			s = &SessionSummary{SessionID: e.SessionID, FirstAt: e.RecordedAt}
			byID[e.SessionID] = s
		}
		s.Entries++
		s.LastAt = e.RecordedAt
		s.LastTurn = e.TurnNumber
	}

	out := make([]SessionSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sortSummaries(out)
	return out, nil
}

// Prune implements Store.
func (m *MemoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.RecordedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = nil
	}
	m.entries = kept
	return removed, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

func sortSummaries(s []SessionSummary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].LastAt.Equal(s[j].LastAt) {
			return s[i].LastAt.After(s[j].LastAt)
		}
		return s[i].SessionID < s[j].SessionID
	})
}
