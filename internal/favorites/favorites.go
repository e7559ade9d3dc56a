// Package favorites persists the user's favorite station ids as one JSON
// document at a well-known path.
package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// storageKey is the top-level JSON key the id set lives under.
const storageKey = "favorites"

// Store is a file-backed set of station ids. All operations are safe for
// concurrent use within one process.
type Store struct {
	mu   sync.Mutex
	path string
	ids  map[string]struct{}
}

// NewStore loads (or lazily creates) the favorites file at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, ids: make(map[string]struct{})}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading favorites: %w", err)
	}

	var doc map[string][]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error decoding favorites: %w", err)
	}
	for _, id := range doc[storageKey] {
		s.ids[id] = struct{}{}
	}
	return nil
}

func (s *Store) saveLocked() error {
	doc := map[string][]string{storageKey: s.listLocked()}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding favorites: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("error writing favorites: %w", err)
	}
	return nil
}

func (s *Store) listLocked() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Add marks a station id as favorite. Adding an existing id is a no-op.
func (s *Store) Add(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return nil
	}
	s.ids[id] = struct{}{}
	return s.saveLocked()
}

// Remove unmarks a station id. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return nil
	}
	delete(s.ids, id)
	return s.saveLocked()
}

// Contains reports whether a station id is a favorite.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// List returns the favorite ids sorted lexically.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}
