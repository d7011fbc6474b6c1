// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	_ "github.com/lib/pq"              // registers "postgres"

	_ "github.com/teradata-labs/cocode/internal/sqlitedriver" // registers "sqlite3"
)

// sqlBackend stores records in a single key-value table, an opt-in
// enrichment over the JSON default for hosts that already run Postgres or
// MySQL alongside cocode (see SPEC_FULL.md §6).
type sqlBackend struct {
	db     *sql.DB
	driver string
}

const createTableSQLite = `CREATE TABLE IF NOT EXISTS cocode_records (
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (kind, id)
)`

const createTablePostgres = `CREATE TABLE IF NOT EXISTS cocode_records (
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (kind, id)
)`

const createTableMySQL = `CREATE TABLE IF NOT EXISTS cocode_records (
	kind VARCHAR(32) NOT NULL,
	id VARCHAR(255) NOT NULL,
	data LONGTEXT NOT NULL,
	PRIMARY KEY (kind, id)
)`

func newSQLBackend(typ, dsn string) (*sqlBackend, error) {
	driverName := map[string]string{"postgres": "postgres", "mysql": "mysql", "sqlite": "sqlite3"}[typ]

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", typ, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: connecting to %s: %w", typ, err)
	}

	createTable := createTableSQLite
	switch typ {
	case "postgres":
		createTable = createTablePostgres
	case "mysql":
		createTable = createTableMySQL
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: creating schema: %w", err)
	}

	return &sqlBackend{db: db, driver: driverName}, nil
}

// placeholder returns the Nth bind-parameter placeholder for the active
// driver: Postgres uses "$N", MySQL and SQLite use "?".
func (b *sqlBackend) placeholder(n int) string {
	if b.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (b *sqlBackend) Save(ctx context.Context, kind Kind, id string, data []byte) error {
	var q string
	switch b.driver {
	case "postgres":
		q = fmt.Sprintf(`INSERT INTO cocode_records (kind, id, data) VALUES (%s, %s, %s)
			ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data`,
			b.placeholder(1), b.placeholder(2), b.placeholder(3))
	case "mysql":
		q = `INSERT INTO cocode_records (kind, id, data) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE data = VALUES(data)`
	default:
		q = `INSERT INTO cocode_records (kind, id, data) VALUES (?, ?, ?)
			ON CONFLICT (kind, id) DO UPDATE SET data = excluded.data`
	}
	if _, err := b.db.ExecContext(ctx, q, string(kind), id, string(data)); err != nil {
		return fmt.Errorf("storage: saving %s/%s: %w", kind, id, err)
	}
	return nil
}

func (b *sqlBackend) Load(ctx context.Context, kind Kind, id string) ([]byte, error) {
	q := fmt.Sprintf(`SELECT data FROM cocode_records WHERE kind = %s AND id = %s`, b.placeholder(1), b.placeholder(2))
	var data string
	err := b.db.QueryRowContext(ctx, q, string(kind), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: %s/%s: %w", kind, id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: loading %s/%s: %w", kind, id, err)
	}
	return []byte(data), nil
}

func (b *sqlBackend) List(ctx context.Context, kind Kind) ([]string, error) {
	q := fmt.Sprintf(`SELECT id FROM cocode_records WHERE kind = %s ORDER BY id`, b.placeholder(1))
	rows, err := b.db.QueryContext(ctx, q, string(kind))
	if err != nil {
		return nil, fmt.Errorf("storage: listing %s: %w", kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scanning %s row: %w", kind, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (b *sqlBackend) Close() error { return b.db.Close() }
