package results

import (
	"errors"
	"fmt"
	"sync"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
)

// Source selects which list a group lives in
type Source string

const (
	SourceCurrent Source = "current"
	SourceHistory Source = "history"
)

// ParseSource returns the Source named by s
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceCurrent, SourceHistory:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown result source %q (use current or history)", s)
	}
}

// ErrNoSuchSlot is returned when a group or image index is out of range
var ErrNoSuchSlot = errors.New("no such image slot")

// Store holds the current run and the history. Accessors return copies so
// callers can never mutate stored groups.
type Store struct {
	mu      sync.RWMutex
	current []*Group
	history []*Group
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// StartRun moves all current groups to the front of the history
func (s *Store) StartRun() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.current) > 0 {
		s.history = append(append(make([]*Group, 0, len(s.current)+len(s.history)), s.current...), s.history...)
	}
	s.current = nil
}

// Append records one finished group in the current run
func (s *Store) Append(g *Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = append(s.current, g.Clone())
}

// Current returns a copy of the current run's groups
func (s *Store) Current() []*Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGroups(s.current)
}

// History returns a copy of the history, newest first
func (s *Store) History() []*Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGroups(s.history)
}

// Groups returns a copy of the groups of source
func (s *Store) Groups(source Source) []*Group {
	if source == SourceHistory {
		return s.History()
	}
	return s.Current()
}

// Len returns the number of groups in source
func (s *Store) Len(source Source) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(*s.list(source))
}

// Group returns a copy of one group
func (s *Store) Group(source Source, groupIndex int) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := *s.list(source)
	if groupIndex < 0 || groupIndex >= len(list) {
		return nil, fmt.Errorf("%w: %s group %d", ErrNoSuchSlot, source, groupIndex+1)
	}
	return list[groupIndex].Clone(), nil
}

// ApplyRewrite replaces exactly one image slot in place. The group's
// error is cleared only when no absent slots remain afterwards.
func (s *Store) ApplyRewrite(source Source, groupIndex, imageIndex int, img imagen.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := *s.list(source)
	if groupIndex < 0 || groupIndex >= len(list) {
		return fmt.Errorf("%w: %s group %d", ErrNoSuchSlot, source, groupIndex+1)
	}
	g := list[groupIndex]
	if imageIndex < 0 || imageIndex >= len(g.Images) {
		return fmt.Errorf("%w: image %d of %s group %d", ErrNoSuchSlot, imageIndex+1, source, groupIndex+1)
	}

	g.Images[imageIndex] = img.Clone()
	if g.Error != "" && g.Missing() == 0 {
		g.Error = ""
	}
	return nil
}

// ClearHistory drops every history group
func (s *Store) ClearHistory() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	s.history = nil
	return n
}

func (s *Store) list(source Source) *[]*Group {
	if source == SourceHistory {
		return &s.history
	}
	return &s.current
}
