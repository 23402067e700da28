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

// Package client talks to an Aviary server. Every call opens a fresh
// connection, sends one request, reads one response and closes it.
package client

import (
	"fmt"
	"net"
	"time"

	"aviary/internal/errors"
	"aviary/internal/model"
	"aviary/internal/protocol"
)

// DefaultTimeout bounds a single request when none is given.
const DefaultTimeout = 10 * time.Second

// Client sends requests to one server address.
type Client struct {
	addr    string
	timeout time.Duration
}

// New returns a client for addr (host:port). A timeout of zero uses
// DefaultTimeout.
func New(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{addr: addr, timeout: timeout}
}

// Addr returns the server address.
func (c *Client) Addr() string { return c.addr }

// AddBird creates a bird and returns the server's confirmation.
func (c *Client) AddBird(name, color string, weight, height float64) (string, error) {
	return c.status(protocol.MsgAddBird, &protocol.AddBirdMessage{
		Name: name, Color: color, Weight: weight, Height: height,
	})
}

// AddSighting logs a sighting. ts may be nil.
func (c *Client) AddSighting(name, location string, ts *time.Time) (string, error) {
	return c.status(protocol.MsgAddSighting, &protocol.AddSightingMessage{
		Name: name, Location: location, Timestamp: ts,
	})
}

// ListBirds returns every bird, ordered by name.
func (c *Client) ListBirds() ([]*model.Bird, error) {
	resp, err := c.roundTrip(protocol.MsgListBirds, nil)
	if err != nil {
		return nil, err
	}
	if resp.Header.Type == protocol.MsgStatus {
		return nil, statusError(resp)
	}
	if resp.Header.Type != protocol.MsgBirdList {
		return nil, unexpected(resp.Header.Type)
	}
	list, err := protocol.DecodeBirdListMessage(resp.Payload)
	if err != nil {
		return nil, errors.IOFailure("decode response", err)
	}
	return list.Birds, nil
}

// ListSightings returns the sightings of birds whose whole name matches
// pattern, strictly between start and end.
func (c *Client) ListSightings(pattern string, start, end time.Time) ([]model.Sighting, error) {
	resp, err := c.roundTrip(protocol.MsgListSightings, &protocol.ListSightingsMessage{
		Pattern: pattern, Start: start, End: end,
	})
	if err != nil {
		return nil, err
	}
	if resp.Header.Type == protocol.MsgStatus {
		return nil, statusError(resp)
	}
	if resp.Header.Type != protocol.MsgSightingList {
		return nil, unexpected(resp.Header.Type)
	}
	list, err := protocol.DecodeSightingListMessage(resp.Payload)
	if err != nil {
		return nil, errors.IOFailure("decode response", err)
	}
	return list.Sightings, nil
}

// Remove deletes a bird and its sightings.
func (c *Client) Remove(name string) (string, error) {
	return c.status(protocol.MsgRemove, &protocol.RemoveMessage{Name: name})
}

// Quit asks the server to shut down.
func (c *Client) Quit() (string, error) {
	return c.status(protocol.MsgQuit, nil)
}

func (c *Client) status(t protocol.MessageType, req protocol.Encoder) (string, error) {
	resp, err := c.roundTrip(t, req)
	if err != nil {
		return "", err
	}
	if resp.Header.Type != protocol.MsgStatus {
		return "", unexpected(resp.Header.Type)
	}
	st, err := protocol.DecodeStatusMessage(resp.Payload)
	if err != nil {
		return "", errors.IOFailure("decode response", err)
	}
	if !st.OK() {
		return "", st.Err()
	}
	return st.Message, nil
}

func (c *Client) roundTrip(t protocol.MessageType, req protocol.Encoder) (*protocol.Message, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, errors.IOFailure("connect to "+c.addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, errors.IOFailure("set deadline", err)
	}
	if err := protocol.Send(conn, t, req); err != nil {
		return nil, errors.IOFailure("send request", err)
	}
	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		return nil, errors.IOFailure("read response", err)
	}
	return resp, nil
}

func statusError(resp *protocol.Message) error {
	st, err := protocol.DecodeStatusMessage(resp.Payload)
	if err != nil {
		return errors.IOFailure("decode response", err)
	}
	if st.OK() {
		return unexpected(resp.Header.Type)
	}
	return st.Err()
}

func unexpected(t protocol.MessageType) error {
	return errors.ProtocolError(fmt.Sprintf("unexpected response type %s", t))
}
