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
Package persistence loads and saves full snapshots of the bird table.

Backends:
=========

	xml       birds.xml + sightings.xml in the data directory (default)
	sqlite    birds and sightings tables in a local database file
	postgres  the same tables in a PostgreSQL database
	leveldb   one key per bird and per sighting, written in a single batch
	s3        the two XML documents stored as objects in a bucket

Every backend stores birds and their sightings separately, keyed by bird
name, and reassembles them on load with the same rules:

  - birds with an empty name are skipped
  - repeated bird names keep the first occurrence
  - sightings for unknown birds are skipped
  - an unparsable sighting date becomes an absent timestamp
  - an unparsable weight or height becomes 0

A Save always replaces the whole previous snapshot.
*/
package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aviary/internal/config"
	"aviary/internal/errors"
	"aviary/internal/logging"
	"aviary/internal/model"
)

var log = logging.NewLogger("persistence")

// Gateway loads and saves complete snapshots.
type Gateway interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Load(ctx context.Context) ([]*model.Bird, error)
	Save(ctx context.Context, birds []*model.Bird) error
	Close() error
}

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open returns the gateway selected by cfg.Storage.Backend. Local
// backends create their directory first; failing that is a startup
// failure.
func Open(ctx context.Context, cfg *config.Config) (Gateway, error) {
	switch cfg.Storage.Backend {
	case config.BackendXML, "":
		if err := EnsureDataDir(cfg.DataDir); err != nil {
			return nil, err
		}
		return NewXMLGateway(cfg.DataDir), nil

	case config.BackendSQLite:
		path := cfg.SQLitePath()
		if err := EnsureDataDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path)

	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.Storage.PostgresDSN)

	case config.BackendLevelDB:
		path := cfg.LevelDBPath()
		if err := EnsureDataDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return OpenLevelDB(path)

	case config.BackendS3:
		return OpenS3(ctx, S3Options{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			Prefix:    cfg.Storage.S3.Prefix,
			PathStyle: cfg.Storage.S3.PathStyle,
		})

	default:
		return nil, errors.ConfigInvalid(nil).WithDetail("unknown storage backend " + cfg.Storage.Backend)
	}
}

// EnsureDataDir creates dir (and parents) if needed.
func EnsureDataDir(dir string) error {
	if dir == "" {
		return errors.DataDirFailed(dir, nil).WithDetail("empty path")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.DataDirFailed(dir, err)
	}
	return nil
}

// tableBuilder applies the shared load rules while a backend streams
// birds and sightings out of storage.
type tableBuilder struct {
	backend string
	birds   []*model.Bird
	index   map[string]*model.Bird
	skipped int
}

func newTableBuilder(backend string) *tableBuilder {
	return &tableBuilder{
		backend: backend,
		index:   make(map[string]*model.Bird),
	}
}

func (t *tableBuilder) addBird(name, color string, weight, height float64) {
	if name == "" {
		log.Warn("Skipping bird with empty name", "backend", t.backend)
		t.skipped++
		return
	}
	if _, ok := t.index[name]; ok {
		log.Warn("Skipping duplicate bird", "backend", t.backend, "name", name)
		t.skipped++
		return
	}
	b := model.NewBird(name, color, weight, height)
	t.index[name] = b
	t.birds = append(t.birds, b)
}

func (t *tableBuilder) addSighting(name, location string, ts *time.Time) {
	b, ok := t.index[name]
	if !ok {
		log.Warn("Skipping sighting for unknown bird", "backend", t.backend, "name", name)
		t.skipped++
		return
	}
	b.AddSighting(location, ts)
}

func (t *tableBuilder) result() []*model.Bird {
	if t.skipped > 0 {
		log.Info("Snapshot loaded with skipped records", "backend", t.backend, "birds", len(t.birds), "skipped", t.skipped)
	}
	if t.birds == nil {
		return []*model.Bird{}
	}
	return t.birds
}

// parseMeasure parses a weight or height, falling back to 0.
func parseMeasure(backend, bird, field, value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn("Invalid measurement, using 0", "backend", backend, "name", bird, "field", field, "value", value)
		return 0
	}
	return f
}

// formatMeasure renders a weight or height with the fewest digits that
// round-trip.
func formatMeasure(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseTimestamp parses a stored sighting date. Empty or invalid values
// yield nil.
func parseTimestamp(backend, bird, value string) *time.Time {
	if value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		log.Warn("Invalid sighting date, storing without timestamp", "backend", backend, "name", bird, "value", value)
		return nil
	}
	return &ts
}

// formatTimestamp renders a sighting date for storage. nil yields "".
func formatTimestamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
