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

package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviary/internal/config"
	"aviary/internal/errors"
	"aviary/internal/model"
)

func sampleTable() []*model.Bird {
	ts := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	later := ts.Add(90 * time.Minute)

	robin := model.NewBird("Robin", "Red", 0.08, 0.25)
	robin.AddSighting("Park", &ts)
	robin.AddSighting("Garden", nil)
	robin.AddSighting("Park", &later)

	wren := model.NewBird("Wren", "Brown", 0.01, 0.1)

	return []*model.Bird{robin, wren}
}

// assertSameTable compares two tables field by field, treating
// timestamps by instant rather than location.
func assertSameTable(t *testing.T, want, got []*model.Bird) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Color, g.Color)
		assert.Equal(t, w.Weight, g.Weight)
		assert.Equal(t, w.Height, g.Height)
		require.Len(t, g.Sightings, len(w.Sightings), "sightings of %s", w.Name)
		for j := range w.Sightings {
			ws, gs := w.Sightings[j], g.Sightings[j]
			assert.Equal(t, w.Name, gs.Name)
			assert.Equal(t, ws.Location, gs.Location)
			if ws.Timestamp == nil {
				assert.Nil(t, gs.Timestamp)
				continue
			}
			require.NotNil(t, gs.Timestamp)
			assert.True(t, ws.Timestamp.Equal(*gs.Timestamp), "timestamp %v != %v", ws.Timestamp, gs.Timestamp)
		}
	}
}

func roundTrip(t *testing.T, g Gateway) {
	t.Helper()
	ctx := context.Background()

	want := sampleTable()
	require.NoError(t, g.Save(ctx, want))

	got, err := g.Load(ctx)
	require.NoError(t, err)
	assertSameTable(t, want, got)

	// A second save replaces the first completely.
	require.NoError(t, g.Save(ctx, want[1:]))
	got, err = g.Load(ctx)
	require.NoError(t, err)
	assertSameTable(t, want[1:], got)

	require.NoError(t, g.Save(ctx, nil))
	got, err = g.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestXMLRoundTrip(t *testing.T) {
	roundTrip(t, NewXMLGateway(t.TempDir()))
}

func TestXMLFailedSaveKeepsPreviousPair(t *testing.T) {
	dir := t.TempDir()
	g := NewXMLGateway(dir)
	ctx := context.Background()
	want := sampleTable()
	require.NoError(t, g.Save(ctx, want))

	orig := createTemp
	defer func() { createTemp = orig }()
	createTemp = func(d, pattern string) (*os.File, error) {
		if strings.Contains(pattern, SightingsFile) {
			return nil, os.ErrPermission
		}
		return orig(d, pattern)
	}

	// Robin removed and re-added without sightings.
	next := []*model.Bird{model.NewBird("Robin", "Blue", 1, 1), model.NewBird("Kite", "Red", 1, 1)}
	err := g.Save(ctx, next)
	require.Error(t, err)
	assert.True(t, errors.IsIOFailure(err))

	createTemp = orig
	got, err := g.Load(ctx)
	require.NoError(t, err)
	assertSameTable(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files are left behind")
}

func TestXMLMissingBirdsFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, SightingsFile)
	require.NoError(t, os.WriteFile(stale, []byte(`<sightings><bird name="Ghost"><sighting location="Attic"/></bird></sightings>`), 0644))

	g := NewXMLGateway(dir)
	birds, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, birds)

	// Both documents now exist and the stale sighting is gone.
	_, err = os.Stat(filepath.Join(dir, BirdsFile))
	assert.NoError(t, err)
	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Ghost")
}

func TestXMLLoadRules(t *testing.T) {
	dir := t.TempDir()
	birdsDoc := `<?xml version="1.0" encoding="UTF-8"?>
<birds>
  <bird name="Robin" color="Red" weight="heavy" height="0.25"/>
  <bird name="" color="Grey" weight="1" height="1"/>
  <bird name="Robin" color="Blue" weight="2" height="2"/>
  <bird name="Wren" color="Brown" weight="0.01" height="0.1"/>
</birds>`
	sightingsDoc := `<?xml version="1.0" encoding="UTF-8"?>
<sightings>
  <bird name="Robin">
    <sighting location="Park" date="not a date"/>
    <sighting location="Field" date="2024-06-01T10:30:00Z"/>
  </bird>
  <bird name="Ghost">
    <sighting location="Attic"/>
  </bird>
</sightings>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, BirdsFile), []byte(birdsDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SightingsFile), []byte(sightingsDoc), 0644))

	birds, err := NewXMLGateway(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, birds, 2)

	robin := birds[0]
	assert.Equal(t, "Robin", robin.Name)
	assert.Equal(t, "Red", robin.Color, "first occurrence wins")
	assert.Equal(t, 0.0, robin.Weight, "bad weight falls back to 0")
	assert.Equal(t, 0.25, robin.Height)
	require.Len(t, robin.Sightings, 2)
	assert.Nil(t, robin.Sightings[0].Timestamp, "bad date becomes absent")
	require.NotNil(t, robin.Sightings[1].Timestamp)
	assert.Equal(t, "Wren", birds[1].Name)
	assert.Empty(t, birds[1].Sightings)
}

func TestXMLMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BirdsFile), []byte("<birds><bird"), 0644))

	_, err := NewXMLGateway(dir).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsIOFailure(err))
}

func TestXMLPing(t *testing.T) {
	dir := t.TempDir()
	g := NewXMLGateway(dir)
	assert.NoError(t, g.Ping(context.Background()))

	missing := NewXMLGateway(filepath.Join(dir, "nope"))
	assert.Error(t, missing.Ping(context.Background()))
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	g, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "aviary.db"))
	require.NoError(t, err)
	defer g.Close()

	require.NoError(t, g.Ping(ctx))
	roundTrip(t, g)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aviary.db")

	g, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, g.Save(ctx, sampleTable()))
	require.NoError(t, g.Close())

	g, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer g.Close()
	got, err := g.Load(ctx)
	require.NoError(t, err)
	assertSameTable(t, sampleTable(), got)
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("AVIARY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AVIARY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	g, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer g.Close()
	roundTrip(t, g)
}

func TestPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsStartupFailure(err))
}

func TestLevelDBRoundTrip(t *testing.T) {
	g, err := OpenLevelDB(filepath.Join(t.TempDir(), "aviary.ldb"))
	require.NoError(t, err)
	defer g.Close()

	require.NoError(t, g.Ping(context.Background()))
	roundTrip(t, g)
}

func TestLevelDBKeepsSightingOrder(t *testing.T) {
	g, err := OpenLevelDB(filepath.Join(t.TempDir(), "aviary.ldb"))
	require.NoError(t, err)
	defer g.Close()

	b := model.NewBird("Robin", "Red", 1, 1)
	for i := 0; i < 12; i++ {
		b.AddSighting(string(rune('A'+i)), nil)
	}
	ctx := context.Background()
	require.NoError(t, g.Save(ctx, []*model.Bird{b}))

	got, err := g.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Sightings, 12)
	for i, s := range got[0].Sightings {
		assert.Equal(t, string(rune('A'+i)), s.Location)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")
	g, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "xml", g.Name())
	assert.NoError(t, g.Close())
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err, "data directory is created")

	cfg.Storage.Backend = config.BackendSQLite
	g, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", g.Name())
	assert.NoError(t, g.Close())

	cfg.Storage.Backend = config.BackendLevelDB
	g, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "leveldb", g.Name())
	assert.NoError(t, g.Close())

	cfg.Storage.Backend = "tape"
	_, err = Open(ctx, cfg)
	require.Error(t, err)
	assert.True(t, errors.IsStartupFailure(err))
}

func TestEnsureDataDirFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	err := EnsureDataDir(filepath.Join(file, "sub"))
	require.Error(t, err)
	assert.True(t, errors.IsStartupFailure(err))
}
