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

	"aviary/internal/errors"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteGateway stores the table in a local SQLite file.
type SQLiteGateway struct {
	*sqlGateway
	path string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.StorageFailure("sqlite", err)
	}
	db.SetMaxOpenConns(1)

	g, err := newSQLGateway(ctx, "sqlite", db, questionPlaceholder)
	if err != nil {
		return nil, err
	}
	log.Info("SQLite storage opened", "path", path)
	return &SQLiteGateway{sqlGateway: g, path: path}, nil
}

// Path returns the database file path.
func (g *SQLiteGateway) Path() string { return g.path }
