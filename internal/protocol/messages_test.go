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

package protocol

import (
	"fmt"
	"testing"
	"time"

	"aviary/internal/errors"
	"aviary/internal/model"
)

func TestAddSightingOptionalTimestamp(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	withTime := &AddSightingMessage{Name: "Robin", Location: "Park", Timestamp: &ts}
	encoded, err := withTime.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := DecodeAddSightingMessage(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Timestamp == nil || !decoded.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, decoded.Timestamp)
	}

	without := &AddSightingMessage{Name: "Robin", Location: "Park"}
	encoded, err = without.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err = DecodeAddSightingMessage(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Timestamp != nil {
		t.Errorf("Expected absent timestamp to stay absent, got %v", decoded.Timestamp)
	}
}

func TestSightingListKeepsAbsentTimestamps(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	original := &SightingListMessage{Sightings: []model.Sighting{
		{Name: "Robin", Location: "Park", Timestamp: &ts},
		{Name: "Robin", Location: "Garden"},
	}}

	encoded, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := DecodeSightingListMessage(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(decoded.Sightings) != 2 {
		t.Fatalf("Expected 2 sightings, got %d", len(decoded.Sightings))
	}
	if decoded.Sightings[0].Timestamp == nil || !decoded.Sightings[0].Timestamp.Equal(ts) {
		t.Errorf("First sighting timestamp mismatch: %v", decoded.Sightings[0].Timestamp)
	}
	if decoded.Sightings[1].Timestamp != nil {
		t.Errorf("Second sighting should have no timestamp, got %v", decoded.Sightings[1].Timestamp)
	}
}

func TestBirdListEmptyEncodesAsArray(t *testing.T) {
	encoded, err := (&BirdListMessage{Birds: []*model.Bird{}}).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(encoded) != `{"birds":[]}` {
		t.Errorf("Expected empty array, got %s", encoded)
	}
}

func TestNewStatus(t *testing.T) {
	ok := NewStatus(nil, "Record has been added successfully.")
	if !ok.OK() || ok.Err() != nil {
		t.Errorf("Expected ok status, got %+v", ok)
	}

	dup := NewStatus(fmt.Errorf("wrapped: %w", errors.BirdExists("Robin")), "")
	if dup.Kind != errors.KindDuplicate {
		t.Errorf("Expected duplicate kind, got %s", dup.Kind)
	}
	if dup.Message != "Bird 'Robin' is already present." {
		t.Errorf("Expected bare message, got '%s'", dup.Message)
	}

	encoded, err := dup.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := DecodeStatusMessage(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !errors.IsDuplicate(decoded.Err()) {
		t.Errorf("Expected decoded status to yield a duplicate error, got %v", decoded.Err())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddBirdMessage([]byte("{not json")); err == nil {
		t.Error("Expected error decoding garbage")
	}
	if _, err := DecodeListSightingsMessage([]byte(`{"start":"yesterday"}`)); err == nil {
		t.Error("Expected error decoding bad time")
	}
}
