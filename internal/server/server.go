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
Package server implements the Aviary TCP server.

Server Architecture Overview:
=============================

One accept loop feeds a fixed pool of workers through an unbounded
hand-off queue. Idle workers block on the queue; nothing polls.

	             ┌────────────┐    ┌─────────┐    ┌──────────┐
	client ────► │ accept loop│──► │  queue  │──► │ worker 1 │──► store
	             └────────────┘    └─────────┘    │ worker 2 │
	                                              │   ...    │
	                                              └──────────┘

Connection Lifecycle:
=====================

 1. The accept loop accepts a connection and pushes it onto the queue
 2. A worker pops it and applies the per-connection deadline
 3. The worker reads exactly one request frame
 4. The request is dispatched against the record store
 5. The worker writes exactly one response frame
 6. The connection is closed, whatever happened above

A broken frame closes the connection without a response. A panic while
serving is recovered and logged; it never takes down the worker.

Shutdown:
=========

Quit (a request, a signal, or the Run context ending) moves the server
through a fixed sequence of states:

	Running ──► Draining ──► WorkersStopped ──► FinalSave ──► Stopped

  - Draining: the listener is closed and the accept loop exits; queued
    connections are still served
  - WorkersStopped: the queue is closed and every worker has returned
  - FinalSave: the snapshot scheduler is stopped and saves once more
  - Stopped: Done is closed and Run returns

Each transition waits on a join (errgroup, channel) rather than polling.
*/
package server

import (
	"context"
	stderrors "errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"aviary/internal/config"
	"aviary/internal/errors"
	"aviary/internal/logging"
	"aviary/internal/metrics"
	"aviary/internal/store"
)

// Package-level logger for the server component.
var log = logging.NewLogger("server")

// Finalizer performs the last snapshot at shutdown.
type Finalizer interface {
	Stop(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	// Addr is the TCP address to listen on (e.g., ":3000").
	Addr string

	// Workers is the size of the worker pool. Values below 1 mean 1.
	Workers int

	// ConnTimeout bounds the read and write of one connection. Zero
	// disables the deadline.
	ConnTimeout time.Duration

	// MaxConnections caps concurrently open connections at the listener.
	// Zero means unlimited.
	MaxConnections int
}

// OptionsFromConfig maps the server section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:           cfg.ListenAddr(),
		Workers:        cfg.Workers,
		ConnTimeout:    cfg.ConnTimeout,
		MaxConnections: cfg.MaxConnections,
	}
}

// Server represents the Aviary TCP server.
type Server struct {
	opts      Options
	store     *store.Store
	snapshots Finalizer
	metrics   *metrics.Metrics

	// lnMu guards ln between Listen and the Draining transition.
	lnMu sync.Mutex
	ln   net.Listener

	queue *connQueue
	state atomic.Int32

	quitOnce sync.Once
	quitCh   chan struct{} // closed on entering Draining
	doneCh   chan struct{} // closed on entering Stopped
	runOnce  sync.Once
	runErr   error
}

// New creates a server over st. snapshots may be nil when nothing needs
// saving at shutdown.
func New(st *store.Store, snapshots Finalizer, opts Options) *Server {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Server{
		opts:      opts,
		store:     st,
		snapshots: snapshots,
		queue:     newConnQueue(),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// SetMetrics attaches a metrics sink. It must be called before Run.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Listen binds the listening socket. Failure is a startup failure.
func (s *Server) Listen() error {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()

	if s.ln != nil {
		return nil
	}
	select {
	case <-s.quitCh:
		// Quit before Run; nothing to serve.
		return nil
	default:
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		log.Error("Failed to start listener", "address", s.opts.Addr, "error", err)
		return errors.BindFailed(s.opts.Addr, err)
	}
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}
	s.ln = ln
	log.Info("Listening", "address", ln.Addr().String(), "workers", s.opts.Workers)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	log.Info("Server state changed", "from", prev.String(), "to", st.String())
}

// Done is closed once the server reaches Stopped.
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}

// Quit moves a running server to Draining and closes the listener so the
// accept loop exits. Later calls do nothing.
func (s *Server) Quit() {
	s.quitOnce.Do(func() {
		s.setState(StateDraining)
		close(s.quitCh)

		s.lnMu.Lock()
		if s.ln != nil {
			if err := s.ln.Close(); err != nil {
				log.Warn("Error closing listener", "error", err)
			}
		}
		s.lnMu.Unlock()
	})
}

// Run serves until Quit is called or ctx ends, then completes the
// shutdown sequence. It returns the final save's error, if any. Calling
// Run a second time returns the first result.
func (s *Server) Run(ctx context.Context) error {
	s.runOnce.Do(func() {
		s.runErr = s.run(ctx)
	})
	return s.runErr
}

func (s *Server) run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	var workers errgroup.Group
	for i := 0; i < s.opts.Workers; i++ {
		id := i + 1
		workers.Go(func() error {
			s.worker(id)
			return nil
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			log.Info("Context done, shutting down", "reason", ctx.Err())
			s.Quit()
		case <-s.quitCh:
		}
	}()

	s.acceptLoop()

	// Draining: no new connections. Let the workers empty the queue.
	s.queue.Close()
	_ = workers.Wait()
	s.setState(StateWorkersStopped)

	s.setState(StateFinalSave)
	var err error
	if s.snapshots != nil {
		// The scheduler bounds the save with its own timeout.
		err = s.snapshots.Stop(context.Background())
	}

	s.setState(StateStopped)
	close(s.doneCh)
	return err
}

// acceptLoop hands accepted connections to the queue until the listener
// is closed by Quit.
func (s *Server) acceptLoop() {
	s.lnMu.Lock()
	ln := s.ln
	s.lnMu.Unlock()
	if ln == nil {
		return
	}

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quitCh:
				log.Info("Listener closed, exiting accept loop")
				return
			default:
			}
			if stderrors.Is(err, net.ErrClosed) {
				// Closed from outside Quit; treat it as one.
				s.Quit()
				return
			}
			// Usually transient (e.g., too many open files).
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			log.Warn("Accept error", "error", err, "retry_in", backoff.String())
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		log.Debug("Connection accepted", "remote_addr", conn.RemoteAddr().String())
		if !s.queue.Push(conn) {
			conn.Close()
			continue
		}
		s.metrics.ConnectionAccepted()
		s.metrics.SetQueueDepth(s.queue.Len())
	}
}
