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

package server

import (
	"fmt"

	"aviary/internal/errors"
	"aviary/internal/protocol"
)

// Success messages returned in status responses.
const (
	MsgRecordAdded  = "Record has been added successfully."
	MsgShuttingDown = "Server is shutting down."
	msgRemovedFmt   = "Successfully removed bird '%s'."
)

// Result is the outcome of one dispatched request: the response to send
// and the error, if any, that produced it.
type Result struct {
	Type protocol.MessageType
	Body protocol.Encoder
	Err  error
}

// Kind classifies the result for logs and metrics.
func (r Result) Kind() errors.Kind {
	return errors.KindOf(r.Err)
}

func status(err error, okMessage string) Result {
	return Result{Type: protocol.MsgStatus, Body: protocol.NewStatus(err, okMessage), Err: err}
}

// Dispatch executes one request against the store. Every outcome,
// including a malformed payload or an unknown type, yields a response.
func (s *Server) Dispatch(msg *protocol.Message) Result {
	switch msg.Header.Type {
	case protocol.MsgAddBird:
		req, err := protocol.DecodeAddBirdMessage(msg.Payload)
		if err != nil {
			return status(errors.InvalidRequest(err.Error()), "")
		}
		return status(s.store.AddBird(req.Name, req.Color, req.Weight, req.Height), MsgRecordAdded)

	case protocol.MsgAddSighting:
		req, err := protocol.DecodeAddSightingMessage(msg.Payload)
		if err != nil {
			return status(errors.InvalidRequest(err.Error()), "")
		}
		return status(s.store.AddSighting(req.Name, req.Location, req.Timestamp), MsgRecordAdded)

	case protocol.MsgListBirds:
		return Result{
			Type: protocol.MsgBirdList,
			Body: &protocol.BirdListMessage{Birds: s.store.ListBirds()},
		}

	case protocol.MsgListSightings:
		req, err := protocol.DecodeListSightingsMessage(msg.Payload)
		if err != nil {
			return status(errors.InvalidRequest(err.Error()), "")
		}
		sightings, err := s.store.ListSightings(req.Pattern, req.Start, req.End)
		if err != nil {
			return status(err, "")
		}
		return Result{
			Type: protocol.MsgSightingList,
			Body: &protocol.SightingListMessage{Sightings: sightings},
		}

	case protocol.MsgRemove:
		req, err := protocol.DecodeRemoveMessage(msg.Payload)
		if err != nil {
			return status(errors.InvalidRequest(err.Error()), "")
		}
		return status(s.store.Remove(req.Name), fmt.Sprintf(msgRemovedFmt, req.Name))

	case protocol.MsgQuit:
		s.Quit()
		return status(nil, MsgShuttingDown)

	default:
		return status(errors.InvalidRequest("unknown request type "+msg.Header.Type.String()), "")
	}
}
