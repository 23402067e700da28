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

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const postgresDriver = "pgx"

// PostgresGateway stores the table in PostgreSQL.
type PostgresGateway struct {
	*sqlGateway
}

// OpenPostgres connects using dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresGateway, error) {
	if dsn == "" {
		return nil, errors.ConfigInvalid(nil).WithDetail("postgres backend requires a DSN")
	}
	db, err := sql.Open(postgresDriver, dsn)
	if err != nil {
		return nil, errors.StorageFailure("postgres", fmt.Errorf("open: %w", err))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.StorageFailure("postgres", fmt.Errorf("ping: %w", err))
	}

	g, err := newSQLGateway(ctx, "postgres", db, dollarPlaceholder)
	if err != nil {
		return nil, err
	}
	log.Info("PostgreSQL storage connected")
	return &PostgresGateway{sqlGateway: g}, nil
}
