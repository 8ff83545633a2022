// Package duckdb adapts an embedded DuckDB database to the engine contract
// used by the gateway.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/fanvanzh/postduck/engine"
)

// DB wraps the process-wide DuckDB handle. Sessions draw dedicated
// connections from it; the handle must outlive all of them.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens an embedded DuckDB database. An empty dsn opens an in-memory
// catalog; sessions attach their on-disk database files themselves.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded database: %w", err)
	}

	return &DB{db: db, logger: logger}, nil
}

// Connect pins a dedicated connection for a session. The connection holds the
// session's catalog context (ATTACH/USE) until it is closed.
func (d *DB) Connect(ctx context.Context) (engine.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return &Conn{conn: conn, logger: d.logger}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Conn is a dedicated engine connection owned by a single session.
type Conn struct {
	conn   *sql.Conn
	logger *slog.Logger
}

// Query executes the given SQL text and materializes its metadata. Row data
// is fetched lazily in chunks through the returned result.
func (c *Conn) Query(ctx context.Context, query string) (engine.Result, error) {
	kind := engine.Classify(query)
	c.logger.Debug("executing statement", slog.String("kind", kind.String()))

	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, err
	}

	columns := make([]engine.Column, len(types))
	for i, t := range types {
		columns[i] = engine.Column{
			Name: t.Name(),
			Type: t.DatabaseTypeName(),
		}
	}

	return &result{kind: kind, columns: columns, rows: rows}, nil
}

// Close releases the connection back to the database.
func (c *Conn) Close() error {
	return c.conn.Close()
}
