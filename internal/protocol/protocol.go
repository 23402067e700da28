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
Package protocol implements the Aviary wire protocol.

Protocol Overview:
==================

A client opens a TCP connection, writes exactly one request frame, reads
exactly one response frame, and the server closes the connection.

Message Format:
===============

	+--------+--------+--------+--------+--------+--------+...
	| Magic  | Version| MsgType| Flags  |    Length (4B)   | Payload...
	+--------+--------+--------+--------+--------+--------+...

	- Magic (1 byte): 0xB1
	- Version (1 byte): currently 0x01
	- MsgType (1 byte): message type identifier
	- Flags (1 byte): reserved, always zero
	- Length (4 bytes): payload length in big-endian
	- Payload: JSON document for the message type

Request payloads are capped at MaxRequestSize and response payloads at
MaxResponseSize.

Message Types:
==============

Requests:

	- 0x01: AddBird
	- 0x02: AddSighting
	- 0x03: ListBirds
	- 0x04: ListSightings
	- 0x05: Remove
	- 0x06: Quit

Responses:

	- 0x10: Status (kind + human-readable message)
	- 0x11: BirdList
	- 0x12: SightingList
*/
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Protocol constants.
const (
	MagicByte       byte = 0xB1
	ProtocolVersion byte = 0x01

	// Maximum request payload (4 MB). Requests carry a handful of fields.
	MaxRequestSize = 4 * 1024 * 1024

	// Maximum response payload (1 GB). List responses carry the whole
	// table.
	MaxResponseSize = 1024 * 1024 * 1024

	// Header size in bytes
	HeaderSize = 8
)

// MessageType represents the type of protocol message.
type MessageType byte

// Message type constants.
const (
	// Requests (0x01-0x0F)
	MsgAddBird       MessageType = 0x01
	MsgAddSighting   MessageType = 0x02
	MsgListBirds     MessageType = 0x03
	MsgListSightings MessageType = 0x04
	MsgRemove        MessageType = 0x05
	MsgQuit          MessageType = 0x06

	// Responses (0x10-0x1F)
	MsgStatus       MessageType = 0x10
	MsgBirdList     MessageType = 0x11
	MsgSightingList MessageType = 0x12
)

var messageTypeNames = map[MessageType]string{
	MsgAddBird:       "ADD_BIRD",
	MsgAddSighting:   "ADD_SIGHTING",
	MsgListBirds:     "LIST_BIRDS",
	MsgListSightings: "LIST_SIGHTINGS",
	MsgRemove:        "REMOVE",
	MsgQuit:          "QUIT",
	MsgStatus:        "STATUS",
	MsgBirdList:      "BIRD_LIST",
	MsgSightingList:  "SIGHTING_LIST",
}

// String returns the message type name used in logs and metrics labels.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(t))
}

// IsRequest reports whether t is one of the request types.
func (t MessageType) IsRequest() bool {
	return t >= MsgAddBird && t <= MsgQuit
}

// Header represents a protocol message header.
type Header struct {
	Magic   byte
	Version byte
	Type    MessageType
	Flags   byte
	Length  uint32
}

// Message represents a complete protocol message.
type Message struct {
	Header  Header
	Payload []byte
}

// Common errors.
var (
	ErrInvalidMagic    = errors.New("invalid protocol magic byte")
	ErrInvalidVersion  = errors.New("unsupported protocol version")
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
	ErrUnexpectedType  = errors.New("unexpected message type")
)

// WriteHeader writes a message header to the writer.
func WriteHeader(w io.Writer, h Header) error {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Magic
	buf[1] = h.Version
	buf[2] = byte(h.Type)
	buf[3] = h.Flags
	binary.BigEndian.PutUint32(buf[4:], h.Length)
	_, err := w.Write(buf)
	return err
}

// MaxPayload returns the payload limit for messages of type t.
func MaxPayload(t MessageType) int {
	if t.IsRequest() {
		return MaxRequestSize
	}
	return MaxResponseSize
}

// ReadHeader reads a request header. Frames longer than MaxRequestSize
// are rejected before any payload is read.
func ReadHeader(r io.Reader) (Header, error) {
	return readHeader(r, MaxRequestSize)
}

func readHeader(r io.Reader, limit int) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, err
	}

	h := Header{
		Magic:   buf[0],
		Version: buf[1],
		Type:    MessageType(buf[2]),
		Flags:   buf[3],
		Length:  binary.BigEndian.Uint32(buf[4:]),
	}

	if h.Magic != MagicByte {
		return Header{}, ErrInvalidMagic
	}
	if h.Version != ProtocolVersion {
		return Header{}, ErrInvalidVersion
	}
	if int64(h.Length) > int64(limit) {
		return Header{}, ErrMessageTooLarge
	}

	return h, nil
}

// WriteMessage writes a complete message to the writer. The header and
// payload go out in a single Write.
func WriteMessage(w io.Writer, msgType MessageType, payload []byte) error {
	if len(payload) > MaxPayload(msgType) {
		return ErrMessageTooLarge
	}

	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = MagicByte
	buf[1] = ProtocolVersion
	buf[2] = byte(msgType)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadMessage reads a complete request from the reader.
func ReadMessage(r io.Reader) (*Message, error) {
	return readMessage(r, MaxRequestSize)
}

// ReadResponse reads a complete response, allowing payloads up to
// MaxResponseSize.
func ReadResponse(r io.Reader) (*Message, error) {
	return readMessage(r, MaxResponseSize)
}

func readMessage(r io.Reader, limit int) (*Message, error) {
	h, err := readHeader(r, limit)
	if err != nil {
		return nil, err
	}

	msg := &Message{Header: h}
	if h.Length > 0 {
		msg.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, msg.Payload); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// Encoder is implemented by every payload type.
type Encoder interface {
	Encode() ([]byte, error)
}

// Send encodes m and writes it as a message of type t.
func Send(w io.Writer, t MessageType, m Encoder) error {
	var payload []byte
	if m != nil {
		var err error
		if payload, err = m.Encode(); err != nil {
			return err
		}
	}
	return WriteMessage(w, t, payload)
}
