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
	"database/sql"
	"fmt"

	"aviary/internal/errors"
	"aviary/internal/model"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS birds (
		name   TEXT PRIMARY KEY,
		color  TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		height DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sightings (
		bird_name   TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		location    TEXT NOT NULL,
		observed_at TEXT,
		PRIMARY KEY (bird_name, seq)
	)`,
}

// sqlGateway is shared by the SQLite and PostgreSQL backends. The two
// differ only in driver and placeholder syntax.
type sqlGateway struct {
	name        string
	db          *sql.DB
	placeholder func(n int) string
}

func newSQLGateway(ctx context.Context, name string, db *sql.DB, placeholder func(int) string) (*sqlGateway, error) {
	g := &sqlGateway{name: name, db: db, placeholder: placeholder}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.StorageFailure(name, fmt.Errorf("create schema: %w", err))
		}
	}
	return g, nil
}

func questionPlaceholder(int) string { return "?" }

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Name implements Gateway.
func (g *sqlGateway) Name() string { return g.name }

// Load implements Gateway.
func (g *sqlGateway) Load(ctx context.Context) ([]*model.Bird, error) {
	tb := newTableBuilder(g.name)

	rows, err := g.db.QueryContext(ctx, `SELECT name, color, weight, height FROM birds ORDER BY name`)
	if err != nil {
		return nil, errors.StorageFailure(g.name, fmt.Errorf("select birds: %w", err))
	}
	for rows.Next() {
		var (
			name, color    string
			weight, height float64
		)
		if err := rows.Scan(&name, &color, &weight, &height); err != nil {
			_ = rows.Close()
			return nil, errors.StorageFailure(g.name, fmt.Errorf("scan bird: %w", err))
		}
		tb.addBird(name, color, weight, height)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, errors.StorageFailure(g.name, err)
	}
	_ = rows.Close()

	rows, err = g.db.QueryContext(ctx, `SELECT bird_name, location, observed_at FROM sightings ORDER BY bird_name, seq`)
	if err != nil {
		return nil, errors.StorageFailure(g.name, fmt.Errorf("select sightings: %w", err))
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			name, location string
			observed       sql.NullString
		)
		if err := rows.Scan(&name, &location, &observed); err != nil {
			return nil, errors.StorageFailure(g.name, fmt.Errorf("scan sighting: %w", err))
		}
		tb.addSighting(name, location, parseTimestamp(g.name, name, observed.String))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageFailure(g.name, err)
	}

	return tb.result(), nil
}

// Save replaces both tables inside one transaction.
func (g *sqlGateway) Save(ctx context.Context, birds []*model.Bird) (retErr error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StorageFailure(g.name, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sightings`); err != nil {
		return errors.StorageFailure(g.name, fmt.Errorf("clear sightings: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM birds`); err != nil {
		return errors.StorageFailure(g.name, fmt.Errorf("clear birds: %w", err))
	}

	p := g.placeholder
	insertBird := fmt.Sprintf(`INSERT INTO birds (name, color, weight, height) VALUES (%s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4))
	insertSighting := fmt.Sprintf(`INSERT INTO sightings (bird_name, seq, location, observed_at) VALUES (%s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4))

	for _, b := range birds {
		if b == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertBird, b.Name, b.Color, b.Weight, b.Height); err != nil {
			return errors.StorageFailure(g.name, fmt.Errorf("insert bird %q: %w", b.Name, err))
		}
		for i, s := range b.Sightings {
			var observed sql.NullString
			if s.Timestamp != nil {
				observed = sql.NullString{String: formatTimestamp(s.Timestamp), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, insertSighting, b.Name, i, s.Location, observed); err != nil {
				return errors.StorageFailure(g.name, fmt.Errorf("insert sighting for %q: %w", b.Name, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageFailure(g.name, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Ping implements Pinger.
func (g *sqlGateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Close implements Gateway.
func (g *sqlGateway) Close() error {
	return g.db.Close()
}
