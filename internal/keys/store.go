// Package keys holds the pool of user-supplied API keys for a session.
package keys

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Store is an ordered, de-duplicated list of API keys
type Store struct {
	mu   sync.RWMutex
	keys []string
}

// NewStore creates a store holding the given keys
func NewStore(keys ...string) *Store {
	s := &Store{}
	s.Add(keys...)
	return s
}

// Add appends keys that are non-empty and not already present.
// It returns the number of keys actually added.
func (s *Store) Add(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || s.contains(k) {
			continue
		}
		s.keys = append(s.keys, k)
		added++
	}
	return added
}

// AddText adds one key per line of text
func (s *Store) AddText(text string) int {
	return s.Add(strings.Split(text, "\n")...)
}

// AddFile adds the keys of a file holding one key per line
func (s *Store) AddFile(filename string) (int, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read keys file: %w", err)
	}
	return s.AddText(string(content)), nil
}

// Remove deletes a key by exact value and reports whether it was present
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i:i], s.keys[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAt deletes the key at a zero-based position
func (s *Store) RemoveAt(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.keys) {
		return "", false
	}
	key := s.keys[index]
	s.keys = append(s.keys[:index:index], s.keys[index+1:]...)
	return key, true
}

// List returns a copy of the keys in insertion order
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Masked returns every key in display form
func (s *Store) Masked() []string {
	keys := s.List()
	for i, k := range keys {
		keys[i] = Mask(k)
	}
	return keys
}

func (s *Store) contains(key string) bool {
	for _, k := range s.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Mask hides all but the first and last four characters of a key
func Mask(key string) string {
	if len(key) < 8 {
		return "..."
	}
	return key[:4] + "..." + key[len(key)-4:]
}
