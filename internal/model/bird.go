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

// Package model defines the records held by the Aviary server.
package model

import "time"

// Bird is a named record with its attributes and the sightings logged
// against it. Name is the primary key.
type Bird struct {
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Weight    float64    `json:"weight"`
	Height    float64    `json:"height"`
	Sightings []Sighting `json:"sightings,omitempty"`
}

// Sighting is an observation of a bird. Name is copied from the owning
// bird when the sighting is created. Timestamp may be nil.
type Sighting struct {
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// NewBird returns a bird with no sightings.
func NewBird(name, color string, weight, height float64) *Bird {
	return &Bird{
		Name:   name,
		Color:  color,
		Weight: weight,
		Height: height,
	}
}

// AddSighting appends a sighting carrying the bird's name.
func (b *Bird) AddSighting(location string, ts *time.Time) Sighting {
	s := Sighting{
		Name:      b.Name,
		Location:  location,
		Timestamp: cloneTime(ts),
	}
	b.Sightings = append(b.Sightings, s)
	return s
}

// Clone returns a deep copy of the bird.
func (b *Bird) Clone() *Bird {
	c := *b
	if b.Sightings != nil {
		c.Sightings = make([]Sighting, len(b.Sightings))
		for i, s := range b.Sightings {
			c.Sightings[i] = s.Clone()
		}
	}
	return &c
}

// Clone returns a copy that shares no memory with s.
func (s Sighting) Clone() Sighting {
	s.Timestamp = cloneTime(s.Timestamp)
	return s
}

// HasTimestamp reports whether the sighting carries a time.
func (s Sighting) HasTimestamp() bool {
	return s.Timestamp != nil
}

// Within reports whether the sighting's timestamp lies strictly between
// start and end. Sightings without a timestamp are never within.
func (s Sighting) Within(start, end time.Time) bool {
	if s.Timestamp == nil {
		return false
	}
	return s.Timestamp.After(start) && s.Timestamp.Before(end)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
