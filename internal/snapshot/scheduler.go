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
Package snapshot runs the periodic persistence of the bird table.

Schedule:
=========

The scheduler wakes every Interval and writes a full snapshot through
the configured Saver. Stop wakes it early, waits for the background loop
to exit, and then performs exactly one final save:

	Start ──► tick ──► save ──► tick ──► save ──► ... ──► Stop
	                                                       │
	                                          loop exits ◄─┘
	                                                       │
	                                          final save ◄─┘

A failed periodic save is logged and counted; the previous snapshot
stays the durable copy until the next successful one. Only the final
save reports its error to the caller.

Saves never overlap. The snapshot itself is taken by the Source, which
holds the store's read lock for the whole enumeration.
*/
package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aviary/internal/logging"
	"aviary/internal/model"
)

var log = logging.NewLogger("snapshot")

// Source produces a consistent copy of the table.
type Source interface {
	Snapshot() []*model.Bird
}

// Saver writes a copy of the table to durable storage.
type Saver interface {
	Save(ctx context.Context, birds []*model.Bird) error
}

// Observer is told about every save attempt.
type Observer func(err error, took time.Duration)

// Config contains configuration for the scheduler.
type Config struct {
	Interval    time.Duration // Interval between saves (0 = final save only)
	SaveTimeout time.Duration // Upper bound for a single save (0 = none)
	Observer    Observer
}

// Scheduler saves snapshots on a fixed interval and once at Stop.
type Scheduler struct {
	source   Source
	saver    Saver
	interval time.Duration
	timeout  time.Duration
	observer Observer

	mu        sync.Mutex // serializes saves
	lastSave  atomic.Int64
	saveCount atomic.Int64
	failCount atomic.Int64
	failing   atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopErr   error
}

// New creates a scheduler. It does nothing until Start.
func New(source Source, saver Saver, cfg Config) *Scheduler {
	return &Scheduler{
		source:   source,
		saver:    saver,
		interval: cfg.Interval,
		timeout:  cfg.SaveTimeout,
		observer: cfg.Observer,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. Calling it more than once has no
// effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		if s.interval <= 0 {
			log.Info("Periodic snapshots disabled, saving at shutdown only")
			close(s.doneCh)
			return
		}
		log.Info("Snapshot scheduler started", "interval", s.interval.String())
		go s.loop()
	})
}

// Stop wakes the loop, waits for it to exit and performs the final save.
// Later calls return the first call's result without saving again.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.started.Load() {
			<-s.doneCh
		}
		log.Info("Performing final snapshot")
		s.stopErr = s.SaveNow(ctx)
		if s.stopErr != nil {
			log.Error("Final snapshot failed", "error", s.stopErr)
		}
	})
	return s.stopErr
}

// Done is closed once the background loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SaveNow(context.Background()); err != nil {
				log.Warn("Periodic snapshot failed, keeping previous copy", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// SaveNow takes a snapshot and writes it immediately.
func (s *Scheduler) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	birds := s.source.Snapshot()
	err := s.saver.Save(ctx, birds)
	took := time.Since(start)

	if s.observer != nil {
		s.observer(err, took)
	}
	if err != nil {
		s.failCount.Add(1)
		s.failing.Store(true)
		return err
	}
	s.failing.Store(false)

	s.lastSave.Store(time.Now().UnixNano())
	s.saveCount.Add(1)
	log.Debug("Snapshot saved", "birds", len(birds), "duration_ms", float64(took.Microseconds())/1000.0)
	return nil
}

// LastSave returns the time of the last successful save, or the zero
// time if none has happened.
func (s *Scheduler) LastSave() time.Time {
	ns := s.lastSave.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// SaveCount returns the number of successful saves.
func (s *Scheduler) SaveCount() int64 {
	return s.saveCount.Load()
}

// FailureCount returns the number of failed saves.
func (s *Scheduler) FailureCount() int64 {
	return s.failCount.Load()
}

// LastFailed reports whether the most recent save attempt failed.
func (s *Scheduler) LastFailed() bool {
	return s.failing.Load()
}

// Interval returns the configured interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
