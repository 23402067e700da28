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

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviary/internal/client"
	"aviary/internal/model"
	"aviary/internal/server"
	"aviary/internal/store"
	"aviary/pkg/cli"
)

func TestParseDate(t *testing.T) {
	got, err := parseDate("01/06/24 10:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 30, 0, 0, time.Local), got)

	for _, bad := range []string{"", "32/12/24 10:00", "30/02/24 10:00", "1/6/24 10:30", "01/06/2024 10:30", "01/06/24"} {
		_, err := parseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestSortSightings(t *testing.T) {
	day := func(d int) *time.Time {
		ts := time.Date(2024, 6, d, 12, 0, 0, 0, time.UTC)
		return &ts
	}
	s := []model.Sighting{
		{Name: "crow", Timestamp: day(1)},
		{Name: "Robin", Timestamp: nil},
		{Name: "robin", Timestamp: day(2)},
		{Name: "Crow", Timestamp: day(3)},
		{Name: "wren", Timestamp: day(1)},
	}
	sortSightings(s)

	var order []string
	for _, x := range s {
		order = append(order, x.Name)
	}
	assert.Equal(t, []string{"wren", "robin", "Robin", "Crow", "crow"}, order)
}

func TestPrintTables(t *testing.T) {
	var buf bytes.Buffer
	printBirds(&buf, nil)
	assert.Equal(t, "No record to show\n", buf.String())

	buf.Reset()
	printBirds(&buf, []*model.Bird{model.NewBird("Robin", "red", 0.5, 12)})
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "Robin                          red                  0.5             12", strings.TrimRight(lines[1], " "))
	assert.Contains(t, buf.String(), "Total number of records: 1")

	buf.Reset()
	printSightings(&buf, nil)
	assert.Equal(t, "No record to show\n", buf.String())
}

func TestChooseAction(t *testing.T) {
	yes, no := true, false
	sel := map[action]*bool{}
	for _, a := range allActions {
		sel[a] = &no
	}
	_, err := chooseAction(sel)
	require.NotNil(t, err)
	assert.Equal(t, cli.ErrMissingArgument, err.Code)

	sel[actQuit] = &yes
	act, err := chooseAction(sel)
	require.Nil(t, err)
	assert.Equal(t, actQuit, act)

	sel[actRemove] = &yes
	_, err = chooseAction(sel)
	require.NotNil(t, err)
	assert.Equal(t, cli.ErrInvalidCommand, err.Code)
}

func startServer(t *testing.T) *client.Client {
	t.Helper()
	srv := server.New(store.New(), nil, server.Options{Addr: "127.0.0.1:0", Workers: 2})
	require.NoError(t, srv.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-srv.Done()
	})
	return client.New(srv.Addr().String(), 2*time.Second)
}

func answers(lines ...string) prompter {
	return newLinePrompter(strings.NewReader(strings.Join(lines, "\n")+"\n"), &bytes.Buffer{})
}

func TestExecuteAgainstServer(t *testing.T) {
	c := startServer(t)
	var out bytes.Buffer

	code := execute(c, actAddBird, answers("Robin", "red", "0.5", "12"), &out)
	assert.Equal(t, 0, code)
	assert.Equal(t, server.MsgRecordAdded+"\n", out.String())

	out.Reset()
	code = execute(c, actAddBird, answers("Robin", "blue", "1", "1"), &out)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Bird 'Robin' is already present.\n", out.String())

	out.Reset()
	code = execute(c, actAddSighting, answers("Robin", "Park", "01/06/24 10:30"), &out)
	assert.Equal(t, 0, code)

	out.Reset()
	code = execute(c, actListSightings, answers("Rob.*", "01/06/24 10:00", "01/06/24 11:00"), &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "01/06/24 10:30")
	assert.Contains(t, out.String(), "Total number of records: 1")

	out.Reset()
	code = execute(c, actRemove, answers(""), &out)
	assert.Equal(t, 0, code, "empty name does nothing")
	assert.Empty(t, out.String())

	out.Reset()
	code = execute(c, actRemove, answers("Robin"), &out)
	assert.Equal(t, 0, code)

	out.Reset()
	code = execute(c, actListBirds, nil, &out)
	assert.Equal(t, 0, code)
	assert.Equal(t, "No record to show\n", out.String())
}

func TestExecuteRejectsBadInputLocally(t *testing.T) {
	c := client.New("127.0.0.1:1", 100*time.Millisecond)
	var out bytes.Buffer

	assert.Equal(t, 1, execute(c, actAddBird, answers("Robin", "red", "heavy"), &out))
	assert.Equal(t, 1, execute(c, actAddSighting, answers("Robin", "Park", "32/01/24 10:00"), &out))
	assert.Equal(t, 1, execute(c, actListSightings, answers("(", "01/06/24 10:00", "01/06/24 11:00"), &out))
	assert.Equal(t, 1, execute(c, actListSightings, answers(".*", "02/06/24 10:00", "01/06/24 11:00"), &out))
	assert.Empty(t, out.String())
}
