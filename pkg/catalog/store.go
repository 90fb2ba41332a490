package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"mercator-hq/cwlens/pkg/window"
)

// ProfilesFile is the file holding the profile list.
const ProfilesFile = "profiles.yaml"

// ErrNotFound is returned for an unknown window type id.
var ErrNotFound = errors.New("window type not found")

// LoadError reports a catalog file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type contents struct {
	profiles []window.Profile
	types    map[string]*window.Type
}

// Store is a file-backed configuration store. It is safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	current  contents
	version  uint64
	onReload []func()
}

// Open loads the catalog at dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		dir:    dir,
		logger: logger.With("component", "catalog"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the catalog directory.
func (s *Store) Dir() string { return s.dir }

// Version increments on every successful reload.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// OnReload registers fn to run after each successful reload.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Profiles returns the catalog's profiles.
func (s *Store) Profiles(ctx context.Context) ([]window.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]window.Profile, len(s.current.profiles))
	copy(out, s.current.profiles)
	return out, nil
}

// WindowType returns a copy of the window type with the given id.
func (s *Store) WindowType(ctx context.Context, id string) (*window.Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	wt, ok := s.current.types[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return clone(wt), nil
}

// WindowTypeIDs returns the loaded window type ids in sorted order.
func (s *Store) WindowTypeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.current.types))
	for id := range s.current.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reload re-reads the catalog directory. On error the previous contents
// are kept.
func (s *Store) Reload() error {
	next, err := load(s.dir, s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.version++
	version := s.version
	hooks := append([]func(){}, s.onReload...)
	s.mu.Unlock()

	s.logger.Info("catalog loaded",
		"dir", s.dir,
		"profiles", len(next.profiles),
		"window_types", len(next.types),
		"version", version,
	)
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func load(dir string, logger *slog.Logger) (contents, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return contents{}, &LoadError{Path: dir, Err: err}
	}

	next := contents{types: make(map[string]*window.Type)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !isYAML(name) {
			continue
		}
		path := filepath.Join(dir, name)

		if name == ProfilesFile {
			profiles, err := loadProfiles(path)
			if err != nil {
				return contents{}, err
			}
			next.profiles = profiles
			continue
		}

		wt, err := loadWindowType(path)
		if err != nil {
			return contents{}, err
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if _, dup := next.types[id]; dup {
			return contents{}, &LoadError{Path: path, Err: fmt.Errorf("duplicate window type id %q", id)}
		}
		for _, issue := range wt.Validate() {
			logger.Warn("window type issue", "window_type", id, "issue", issue.String())
		}
		next.types[id] = wt
	}

	for _, p := range next.profiles {
		if p.WindowTypeID == "" {
			continue
		}
		if _, ok := next.types[p.WindowTypeID]; !ok {
			logger.Warn("profile references unknown window type",
				"profile", p.ID,
				"window_type", p.WindowTypeID,
			)
		}
	}
	return next, nil
}

func loadProfiles(path string) ([]window.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	var doc struct {
		Profiles []window.Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	seen := make(map[string]bool, len(doc.Profiles))
	for _, p := range doc.Profiles {
		if p.ID == "" {
			return nil, &LoadError{Path: path, Err: errors.New("profile without id")}
		}
		if seen[p.ID] {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("duplicate profile id %q", p.ID)}
		}
		seen[p.ID] = true
	}
	return doc.Profiles, nil
}

// LoadWindowType reads a single window type file with defaults applied.
func LoadWindowType(path string) (*window.Type, error) {
	return loadWindowType(path)
}

func loadWindowType(path string) (*window.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	var wt window.Type
	if err := yaml.Unmarshal(data, &wt); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	wt.ApplyDefaults()
	return &wt, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func clone(wt *window.Type) *window.Type {
	out := *wt
	out.Modules = make(map[window.ModuleID]window.Module, len(wt.Modules))
	for id, m := range wt.Modules {
		out.Modules[id] = m
	}
	out.Rules = append([]window.Rule(nil), wt.Rules...)
	return &out
}
