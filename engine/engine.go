// Package engine defines the contract between the wire protocol gateway and
// the embedded analytic SQL engine. The gateway only ever sees these types;
// the concrete DuckDB adapter lives in the duckdb subpackage.
package engine

import "context"

// Database represents the process-wide embedded database handle. It is
// created before the acceptor starts and outlives every session.
type Database interface {
	// Connect returns a dedicated engine connection. Each session owns its
	// connection exclusively for its entire lifetime so that statements like
	// ATTACH and USE establish per-session database context without
	// cross-talk.
	Connect(ctx context.Context) (Conn, error)

	// Close releases the database handle.
	Close() error
}

// Conn represents a dedicated engine connection owned by a single session.
type Conn interface {
	// Query executes the given SQL text and returns its result. The call
	// blocks until the statement has been executed; callers are expected to
	// confine it to a bounded worker budget.
	Query(ctx context.Context, query string) (Result, error)

	// Close releases the connection back to the database.
	Close() error
}

// Result represents the outcome of a single Query call. Rows may be produced
// lazily, one chunk per Fetch call.
type Result interface {
	// Kind reports the engine's classification of the executed statement.
	Kind() Kind

	// Columns describes the result set columns. Empty for statements that
	// produce no rows.
	Columns() []Column

	// Fetch returns the next batch of rows, or (nil, nil) once the result is
	// exhausted.
	Fetch() (*Chunk, error)

	// Close releases the resources held by the result. Safe to call after
	// exhaustion.
	Close() error
}

// Column describes a single result column: its name and the engine's type
// name (e.g. "INTEGER", "VARCHAR", "DECIMAL(18,3)").
type Column struct {
	Name string
	Type string
}

// Chunk is a batch of fetched rows. A nil cell represents SQL NULL; all other
// cells hold normalized Go values (string, int64, float64, bool, time.Time,
// []byte).
type Chunk struct {
	Rows [][]any
}

// Size returns the number of rows inside the chunk.
func (c *Chunk) Size() int { return len(c.Rows) }
