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

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddSightingCopiesName(t *testing.T) {
	b := NewBird("Robin", "red", 20, 15)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s := b.AddSighting("Park", &ts)

	assert.Equal(t, "Robin", s.Name)
	assert.Len(t, b.Sightings, 1)

	// The stored timestamp is independent of the caller's variable.
	ts = ts.Add(time.Hour)
	assert.Equal(t, 10, b.Sightings[0].Timestamp.Hour())
}

func TestCloneIsDeep(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := NewBird("Robin", "red", 20, 15)
	b.AddSighting("Park", &ts)
	b.AddSighting("Garden", nil)

	c := b.Clone()
	c.Sightings[0].Location = "Moor"
	*c.Sightings[0].Timestamp = ts.Add(48 * time.Hour)
	c.Color = "blue"

	assert.Equal(t, "Park", b.Sightings[0].Location)
	assert.True(t, b.Sightings[0].Timestamp.Equal(ts))
	assert.Equal(t, "red", b.Color)
	assert.Nil(t, c.Sightings[1].Timestamp)
}

func TestWithinIsOpenInterval(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	mid := start.Add(time.Hour)

	assert.True(t, Sighting{Timestamp: &mid}.Within(start, end))
	assert.False(t, Sighting{Timestamp: &start}.Within(start, end))
	assert.False(t, Sighting{Timestamp: &end}.Within(start, end))
	assert.False(t, Sighting{}.Within(start, end))
	assert.False(t, Sighting{Timestamp: &mid}.Within(end, start))
}
