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
	"net"
	"runtime/debug"
	"time"

	"aviary/internal/errors"
	"aviary/internal/logging"
	"aviary/internal/protocol"
)

// worker serves queued connections until the queue is closed and empty.
func (s *Server) worker(id int) {
	log.Debug("Worker started", "worker", id)
	for {
		conn, ok := s.queue.Pop()
		if !ok {
			log.Debug("Worker stopped", "worker", id)
			return
		}
		s.metrics.SetQueueDepth(s.queue.Len())
		s.serve(id, conn)
	}
}

// serve handles exactly one request on conn and always closes it.
func (s *Server) serve(id int, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	connLog := log.With("remote_addr", remoteAddr, "worker", id)

	s.metrics.ConnectionOpened()
	defer func() {
		if r := recover(); r != nil {
			connLog.Error("Panic while serving connection", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		conn.Close()
		s.metrics.ConnectionClosed()
	}()

	if s.opts.ConnTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.opts.ConnTimeout)); err != nil {
			connLog.Warn("Failed to set deadline", "error", err)
		}
	}

	msg, err := protocol.ReadMessage(conn)
	if err != nil {
		// A broken frame gets no response; the connection just closes.
		connLog.Warn("Failed to read request", "error", errors.IOFailure("read request", err))
		s.metrics.RecordRequest("invalid", string(errors.KindIOFailure), 0)
		return
	}

	reqCtx := logging.NewRequestContext(remoteAddr, msg.Header.Type.String())
	result := s.Dispatch(msg)

	if err := protocol.Send(conn, result.Type, result.Body); err != nil {
		reqCtx.LogError(log, "failed to write response", "error", err, "worker", id)
		s.metrics.RecordRequest(msg.Header.Type.String(), string(errors.KindIOFailure), reqCtx.Duration())
		return
	}

	kind := result.Kind()
	if result.Err != nil {
		reqCtx.LogError(log, result.Err.Error(), "kind", string(kind), "worker", id)
	} else {
		reqCtx.LogComplete(log, string(kind), "worker", id)
	}
	s.metrics.RecordRequest(msg.Header.Type.String(), string(kind), reqCtx.Duration())
}
