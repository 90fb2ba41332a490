package session

import (
	"errors"
	"sync"
	"time"

	"mercator-hq/cwlens/pkg/window"
)

// ErrNotConfigured is returned by ApplySnapshot before LoadConfig.
var ErrNotConfigured = errors.New("session: configuration not loaded")

// State is the cache's lifecycle state.
type State int

const (
	// StateEmpty has no configuration, profile, or snapshot.
	StateEmpty State = iota
	// StateConfigured has configuration and profile but no snapshot.
	StateConfigured
	// StateReconciled has a snapshot.
	StateReconciled
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateConfigured:
		return "configured"
	case StateReconciled:
		return "reconciled"
	default:
		return "unknown"
	}
}

// Tag identifies the context an in-flight request was issued for.
type Tag struct {
	SessionID  string
	ProfileID  string
	Generation uint64
}

// Entry is a copy of the cached reconciliation inputs.
type Entry struct {
	SessionID       string
	State           State
	Profile         *window.Profile
	Window          *window.Type
	ModelLimit      int
	SessionOverride *int
	Snapshot        *window.Snapshot
	UpdatedAt       time.Time
}

// Cache holds the reconciliation inputs of the active session.
// It is safe for concurrent use.
type Cache struct {
	mu sync.RWMutex

	sessionID  string
	profileID  string
	generation uint64
	state      State

	profile         *window.Profile
	window          *window.Type
	modelLimit      int
	sessionOverride *int
	snapshot        *window.Snapshot
	updatedAt       time.Time

	now func() time.Time
}

// NewCache creates an empty cache with no active session.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// ResetSession clears everything and makes sessionID the active session.
// Outstanding tags become stale. It returns the new session's tag.
func (c *Cache) ResetSession(sessionID string) Tag {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionID = sessionID
	c.profileID = ""
	c.generation++
	c.state = StateEmpty
	c.profile = nil
	c.window = nil
	c.modelLimit = 0
	c.sessionOverride = nil
	c.snapshot = nil
	c.updatedAt = c.now()

	return c.tagLocked()
}

// BeginProfile records a pending switch to profileID and invalidates
// outstanding tags. The cached data is untouched until LoadConfig.
func (c *Cache) BeginProfile(profileID string) Tag {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profileID = profileID
	c.generation++
	return c.tagLocked()
}

// Tag returns the tag for the current context.
func (c *Cache) Tag() Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tagLocked()
}

// IsCurrent reports whether a response issued under tag may be applied.
func (c *Cache) IsCurrent(tag Tag) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return tag == c.tagLocked()
}

func (c *Cache) tagLocked() Tag {
	return Tag{SessionID: c.sessionID, ProfileID: c.profileID, Generation: c.generation}
}

// LoadConfig stores the profile and its window type and moves to
// configured from any state. A previously applied snapshot is dropped since
// it was produced under the old configuration.
func (c *Cache) LoadConfig(profile *window.Profile, wt *window.Type, modelLimit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profile = profile
	if profile != nil {
		c.profileID = profile.ID
	}
	c.window = wt
	c.modelLimit = modelLimit
	c.snapshot = nil
	c.state = StateConfigured
	c.updatedAt = c.now()
}

// ApplySnapshot stores snap, replacing any earlier one unconditionally
// (last write wins). It reports whether snap's turn number went backwards.
// It returns ErrNotConfigured in the empty state and leaves the cache as is.
func (c *Cache) ApplySnapshot(snap *window.Snapshot) (outOfOrder bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateEmpty {
		return false, ErrNotConfigured
	}

	if c.snapshot != nil && snap != nil && snap.TurnNumber < c.snapshot.TurnNumber {
		outOfOrder = true
	}

	c.snapshot = snap
	c.state = StateReconciled
	c.updatedAt = c.now()
	return outOfOrder, nil
}

// SetSessionOverride records the session's context limit override.
// It does not change state.
func (c *Cache) SetSessionOverride(tokens *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tokens == nil {
		c.sessionOverride = nil
		return
	}
	v := *tokens
	c.sessionOverride = &v
}

// State returns the current lifecycle state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID returns the active session id.
func (c *Cache) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Entry returns a copy of the cached inputs.
func (c *Cache) Entry() Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Entry{
		SessionID:       c.sessionID,
		State:           c.state,
		Profile:         c.profile,
		Window:          c.window,
		ModelLimit:      c.modelLimit,
		SessionOverride: c.sessionOverride,
		Snapshot:        c.snapshot,
		UpdatedAt:       c.updatedAt,
	}
}
