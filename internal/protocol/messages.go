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
	"encoding/json"
	stderrors "errors"
	"time"

	"aviary/internal/errors"
	"aviary/internal/model"
)

// AddBirdMessage asks the server to create a bird.
type AddBirdMessage struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Weight float64 `json:"weight"`
	Height float64 `json:"height"`
}

// Encode encodes the message to bytes.
func (m *AddBirdMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeAddBirdMessage decodes an add-bird request.
func DecodeAddBirdMessage(data []byte) (*AddBirdMessage, error) {
	var m AddBirdMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// AddSightingMessage asks the server to log a sighting. Timestamp is
// optional.
type AddSightingMessage struct {
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Encode encodes the message to bytes.
func (m *AddSightingMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeAddSightingMessage decodes an add-sighting request.
func DecodeAddSightingMessage(data []byte) (*AddSightingMessage, error) {
	var m AddSightingMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListSightingsMessage selects sightings by bird name pattern and an
// exclusive time window.
type ListSightingsMessage struct {
	Pattern string    `json:"pattern"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Encode encodes the message to bytes.
func (m *ListSightingsMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeListSightingsMessage decodes a list-sightings request.
func DecodeListSightingsMessage(data []byte) (*ListSightingsMessage, error) {
	var m ListSightingsMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMessage asks the server to delete a bird.
type RemoveMessage struct {
	Name string `json:"name"`
}

// Encode encodes the message to bytes.
func (m *RemoveMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeRemoveMessage decodes a remove request.
func DecodeRemoveMessage(data []byte) (*RemoveMessage, error) {
	var m RemoveMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// StatusMessage is the response to every request that does not return
// records.
type StatusMessage struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
}

// NewStatus builds a status response from an operation result. A nil
// error produces an ok status carrying okMessage.
func NewStatus(err error, okMessage string) *StatusMessage {
	if err == nil {
		return &StatusMessage{Kind: errors.KindOK, Message: okMessage}
	}
	msg := err.Error()
	var e *errors.AviaryError
	if stderrors.As(err, &e) {
		msg = e.Message
	}
	return &StatusMessage{Kind: errors.KindOf(err), Message: msg}
}

// OK reports whether the status is a success.
func (m *StatusMessage) OK() bool {
	return m.Kind == errors.KindOK
}

// Err converts a non-ok status back into a typed error.
func (m *StatusMessage) Err() error {
	return errors.FromKind(m.Kind, m.Message)
}

// Encode encodes the message to bytes.
func (m *StatusMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeStatusMessage decodes a status response.
func DecodeStatusMessage(data []byte) (*StatusMessage, error) {
	var m StatusMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// BirdListMessage carries a snapshot of birds.
type BirdListMessage struct {
	Birds []*model.Bird `json:"birds"`
}

// Encode encodes the message to bytes.
func (m *BirdListMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeBirdListMessage decodes a bird list response.
func DecodeBirdListMessage(data []byte) (*BirdListMessage, error) {
	var m BirdListMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SightingListMessage carries filtered sightings.
type SightingListMessage struct {
	Sightings []model.Sighting `json:"sightings"`
}

// Encode encodes the message to bytes.
func (m *SightingListMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeSightingListMessage decodes a sighting list response.
func DecodeSightingListMessage(data []byte) (*SightingListMessage, error) {
	var m SightingListMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
