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
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviary/internal/client"
	"aviary/internal/errors"
	"aviary/internal/metrics"
	"aviary/internal/model"
	"aviary/internal/protocol"
	"aviary/internal/snapshot"
	"aviary/internal/store"
)

// countingSaver records every snapshot it is asked to save.
type countingSaver struct {
	mu    sync.Mutex
	saves [][]*model.Bird
}

func (c *countingSaver) Save(ctx context.Context, birds []*model.Bird) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, birds)
	return nil
}

func (c *countingSaver) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saves)
}

type testServer struct {
	srv    *Server
	store  *store.Store
	saver  *countingSaver
	client *client.Client
	errCh  chan error
}

func startTestServer(t *testing.T, workers int) *testServer {
	t.Helper()

	st := store.New()
	saver := &countingSaver{}
	sched := snapshot.New(st, saver, snapshot.Config{Interval: time.Hour})
	sched.Start()

	srv := New(st, sched, Options{Addr: "127.0.0.1:0", Workers: workers, ConnTimeout: 5 * time.Second})
	require.NoError(t, srv.Listen())

	ts := &testServer{
		srv:    srv,
		store:  st,
		saver:  saver,
		client: client.New(srv.Addr().String(), 5*time.Second),
		errCh:  make(chan error, 1),
	}
	go func() { ts.errCh <- srv.Run(context.Background()) }()
	return ts
}

func (ts *testServer) quit(t *testing.T) {
	t.Helper()
	msg, err := ts.client.Quit()
	require.NoError(t, err)
	assert.Equal(t, MsgShuttingDown, msg)
	ts.wait(t)
}

func (ts *testServer) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-ts.errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, StateStopped, ts.srv.State())
}

func TestAddListRemoveScenario(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 2)
	c := ts.client

	msg, err := c.AddBird("Robin", "red", 20.0, 15.0)
	require.NoError(t, err)
	assert.Equal(t, MsgRecordAdded, msg)

	_, err = c.AddBird("Robin", "red", 20.0, 15.0)
	require.Error(t, err)
	assert.True(t, errors.IsDuplicate(err))
	assert.Equal(t, "Bird 'Robin' is already present.", err.Error())

	birds, err := c.ListBirds()
	require.NoError(t, err)
	require.Len(t, birds, 1)
	assert.Equal(t, "Robin", birds[0].Name)
	assert.Equal(t, 20.0, birds[0].Weight)

	msg, err = c.Remove("Robin")
	require.NoError(t, err)
	assert.Equal(t, "Successfully removed bird 'Robin'.", msg)

	_, err = c.Remove("Robin")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, "Unable to remove. Robin is not present.", err.Error())

	ts.quit(t)
}

func TestSightingScenario(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 2)
	c := ts.client

	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	_, err := c.AddSighting("Robin", "Park", &t1)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = c.AddBird("Robin", "red", 20.0, 15.0)
	require.NoError(t, err)

	msg, err := c.AddSighting("Robin", "Park", &t1)
	require.NoError(t, err)
	assert.Equal(t, MsgRecordAdded, msg)

	// Absent timestamps are stored but never match a window.
	_, err = c.AddSighting("Robin", "Garden", nil)
	require.NoError(t, err)

	sightings, err := c.ListSightings("Robin", t0, t2)
	require.NoError(t, err)
	require.Len(t, sightings, 1)
	assert.Equal(t, "Robin", sightings[0].Name)
	assert.Equal(t, "Park", sightings[0].Location)
	require.NotNil(t, sightings[0].Timestamp)
	assert.True(t, sightings[0].Timestamp.Equal(t1))

	sightings, err = c.ListSightings("", t0, t2)
	require.NoError(t, err)
	assert.Empty(t, sightings)

	_, err = c.ListSightings("Rob(in", t0, t2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	ts.quit(t)
}

func TestEmptyNameIsInvalidInput(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 1)

	_, err := ts.client.AddBird("", "red", 1, 1)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	assert.Equal(t, "Bird name can not be empty.", err.Error())

	ts.quit(t)
}

func TestConcurrentClientsDistinctNames(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 4)

	const n = 50
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := ts.client.AddBird(fmt.Sprintf("bird-%02d", i), "grey", 1, 1); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())
	birds, err := ts.client.ListBirds()
	require.NoError(t, err)
	assert.Len(t, birds, n)

	ts.quit(t)
}

func TestQuitDrainsAndSavesOnce(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 2)

	_, err := ts.client.AddBird("Robin", "red", 1, 1)
	require.NoError(t, err)
	_, err = ts.client.AddBird("Wren", "brown", 1, 1)
	require.NoError(t, err)

	ts.quit(t)

	require.Equal(t, 1, ts.saver.count(), "exactly one final save")
	final := ts.saver.saves[0]
	require.Len(t, final, 2)
	assert.Equal(t, "Robin", final[0].Name)
	assert.Equal(t, "Wren", final[1].Name)

	// The listener is released.
	_, err = net.DialTimeout("tcp", ts.srv.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)

	select {
	case <-ts.srv.Done():
	default:
		t.Fatal("Done should be closed after Run returns")
	}
}

func TestContextCancelIsQuit(t *testing.T) {
	defer leaktest.Check(t)()

	st := store.New()
	saver := &countingSaver{}
	sched := snapshot.New(st, saver, snapshot.Config{Interval: time.Hour})
	sched.Start()
	srv := New(st, sched, Options{Addr: "127.0.0.1:0", Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, StateStopped, srv.State())
	assert.Equal(t, 1, saver.count())
}

func gaugeValue(m *metrics.Metrics, name string) float64 {
	mfs, err := m.Registry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func TestQueuedConnectionsAreServedWhileDraining(t *testing.T) {
	defer leaktest.Check(t)()

	st := store.New()
	m := metrics.New()
	srv := New(st, nil, Options{Addr: "127.0.0.1:0", Workers: 1})
	srv.SetMetrics(m)
	require.NoError(t, srv.Listen())
	addr := srv.Addr().String()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(context.Background()) }()

	// Hold the only worker on a connection that has not sent anything yet.
	blocker, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return gaugeValue(m, "aviary_connections_active") == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Queue an add behind it, then a quit behind that.
	addDone := make(chan error, 1)
	go func() {
		_, err := client.New(addr, 5*time.Second).AddBird("Robin", "red", 1, 1)
		addDone <- err
	}()
	require.Eventually(t, func() bool { return srv.queue.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	quitDone := make(chan error, 1)
	go func() {
		_, err := client.New(addr, 5*time.Second).Quit()
		quitDone <- err
	}()
	require.Eventually(t, func() bool { return srv.queue.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Release the worker with a valid request.
	require.NoError(t, protocol.Send(blocker, protocol.MsgListBirds, nil))
	_, err = protocol.ReadResponse(blocker)
	require.NoError(t, err)
	blocker.Close()

	require.NoError(t, <-addDone)
	require.NoError(t, <-quitDone)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 1, st.Len())
}

func TestMalformedFrameClosesWithoutResponse(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 1)

	conn, err := net.Dial("tcp", ts.srv.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err, "connection should close with no response")
	conn.Close()

	// The worker survives.
	_, err = ts.client.AddBird("Robin", "red", 1, 1)
	require.NoError(t, err)

	ts.quit(t)
}

func TestListenFailureIsStartupFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New(store.New(), nil, Options{Addr: ln.Addr().String()})
	err = srv.Listen()
	require.Error(t, err)
	assert.True(t, errors.IsStartupFailure(err))
}

func TestQuitBeforeRun(t *testing.T) {
	defer leaktest.Check(t)()

	saver := &countingSaver{}
	st := store.New()
	srv := New(st, snapshot.New(st, saver, snapshot.Config{}), Options{Addr: "127.0.0.1:0"})
	srv.Quit()

	require.NoError(t, srv.Run(context.Background()))
	assert.Equal(t, StateStopped, srv.State())
	assert.Equal(t, 1, saver.count())
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "final_save", StateFinalSave.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestListLargerThanRequestLimit(t *testing.T) {
	defer leaktest.Check(t)()
	ts := startTestServer(t, 2)

	const birds, perBird = 400, 20
	location := strings.Repeat("l", 600)
	when := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < birds; i++ {
		name := fmt.Sprintf("bird-%04d", i)
		require.NoError(t, ts.store.AddBird(name, "grey", 1, 1))
		for j := 0; j < perBird; j++ {
			at := when.Add(time.Duration(j) * time.Minute)
			require.NoError(t, ts.store.AddSighting(name, location, &at))
		}
	}
	require.Greater(t, birds*perBird*len(location), protocol.MaxRequestSize)

	list, err := ts.client.ListBirds()
	require.NoError(t, err)
	require.Len(t, list, birds)
	assert.Equal(t, "bird-0000", list[0].Name)
	assert.Len(t, list[birds-1].Sightings, perBird)

	sightings, err := ts.client.ListSightings(".*", when.Add(-time.Hour), when.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, sightings, birds*perBird)

	ts.quit(t)
}
