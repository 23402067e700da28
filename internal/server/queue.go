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
	"net"
	"sync"
)

// connQueue is an unbounded FIFO hand-off between the accept loop and
// the workers. Push never blocks. Pop blocks until a connection is
// available or the queue is closed and empty.
type connQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []net.Conn
	closed bool
}

func newConnQueue() *connQueue {
	q := &connQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends c and wakes one waiting worker. It returns false once the
// queue is closed; the caller still owns c.
func (q *connQueue) Push(c net.Conn) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, c)
	q.cond.Signal()
	return true
}

// Pop removes the oldest connection. ok is false only when the queue is
// closed and drained.
func (q *connQueue) Pop() (c net.Conn, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	c = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return c, true
}

// Close stops accepting new connections and wakes every waiting worker.
// Connections already queued are still handed out.
func (q *connQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of waiting connections.
func (q *connQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
