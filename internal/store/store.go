/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package store holds the authoritative in-memory bird table.

Locking Discipline:
===================

The table is a single map guarded by one sync.RWMutex.

  - Mutations (AddBird, AddSighting, Remove, Load) take the write lock
    for their whole check-then-act sequence.
  - Reads (ListBirds, ListSightings, Snapshot, Len) take the read lock
    and return deep copies, so callers never hold references into the map.

A reader therefore observes either the state before or after any
mutation, never a half-applied one. Remove takes the write lock as well;
Go maps are not safe for concurrent single-key deletes.

Removing a bird drops its sightings with it; sightings are owned by
their bird and are not addressable on their own.
*/
package store

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"aviary/internal/errors"
	"aviary/internal/model"
)

// Store is the concurrent bird table.
type Store struct {
	mu    sync.RWMutex
	birds map[string]*model.Bird
}

// New creates an empty store.
func New() *Store {
	return &Store{birds: make(map[string]*model.Bird)}
}

// AddBird inserts a new bird with no sightings.
func (s *Store) AddBird(name, color string, weight, height float64) error {
	if name == "" {
		return errors.EmptyName()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.birds[name]; ok {
		return errors.BirdExists(name)
	}
	s.birds[name] = model.NewBird(name, color, weight, height)
	return nil
}

// AddSighting appends a sighting to the named bird. A nil timestamp is
// stored as-is.
func (s *Store) AddSighting(name, location string, ts *time.Time) error {
	if name == "" {
		return errors.EmptyName()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.birds[name]
	if !ok {
		return errors.BirdNotFound(name)
	}
	b.AddSighting(location, ts)
	return nil
}

// Remove deletes the named bird together with its sightings.
func (s *Store) Remove(name string) error {
	if name == "" {
		return errors.EmptyName()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.birds[name]; !ok {
		return errors.RemoveNotFound(name)
	}
	delete(s.birds, name)
	return nil
}

// ListBirds returns a copy of every bird ordered by name.
func (s *Store) ListBirds() []*model.Bird {
	return s.Snapshot()
}

// ListSightings returns the sightings of every bird whose whole name
// matches pattern and whose timestamp lies strictly between start and
// end. An empty pattern or a start not before end yields no results.
// Results are ordered by bird name, then by insertion order.
func (s *Store) ListSightings(pattern string, start, end time.Time) ([]model.Sighting, error) {
	if pattern == "" {
		return []model.Sighting{}, nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, errors.InvalidPattern(pattern, err)
	}
	if !start.Before(end) {
		return []model.Sighting{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Sighting{}
	for _, name := range s.sortedNamesLocked() {
		if !re.MatchString(name) {
			continue
		}
		for _, sg := range s.birds[name].Sightings {
			if sg.Within(start, end) {
				result = append(result, sg.Clone())
			}
		}
	}
	return result, nil
}

// Snapshot returns a deep copy of the whole table ordered by name.
func (s *Store) Snapshot() []*model.Bird {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Bird, 0, len(s.birds))
	for _, name := range s.sortedNamesLocked() {
		out = append(out, s.birds[name].Clone())
	}
	return out
}

// Load replaces the table with birds. Birds with an empty name and
// repeated names after the first are skipped. It returns the number of
// birds kept.
func (s *Store) Load(birds []*model.Bird) int {
	table := make(map[string]*model.Bird, len(birds))
	for _, b := range birds {
		if b == nil || b.Name == "" {
			continue
		}
		if _, ok := table[b.Name]; ok {
			continue
		}
		c := b.Clone()
		for i := range c.Sightings {
			c.Sightings[i].Name = c.Name
		}
		table[b.Name] = c
	}

	s.mu.Lock()
	s.birds = table
	s.mu.Unlock()

	return len(table)
}

// Len returns the number of birds in the table.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.birds)
}

// sortedNamesLocked returns the map keys in order. Caller holds mu.
func (s *Store) sortedNamesLocked() []string {
	names := make([]string, 0, len(s.birds))
	for name := range s.birds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
