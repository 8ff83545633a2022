package duckdb

import (
	"database/sql"
	"fmt"
	"math/big"

	goduckdb "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"

	"github.com/fanvanzh/postduck/engine"
)

// chunkSize is the number of rows fetched per batch, matching the engine's
// internal vector size.
const chunkSize = 2048

type result struct {
	kind    engine.Kind
	columns []engine.Column
	rows    *sql.Rows
	done    bool
}

func (r *result) Kind() engine.Kind        { return r.kind }
func (r *result) Columns() []engine.Column { return r.columns }

// Fetch scans up to chunkSize rows into a new chunk. Once the underlying
// cursor is exhausted (nil, nil) is returned and the cursor is closed.
func (r *result) Fetch() (*engine.Chunk, error) {
	if r.done {
		return nil, nil
	}

	chunk := &engine.Chunk{}
	for len(chunk.Rows) < chunkSize {
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Err(); err != nil {
				r.rows.Close()
				return nil, err
			}

			r.rows.Close()
			break
		}

		values := make([]any, len(r.columns))
		scan := make([]any, len(r.columns))
		for i := range values {
			scan[i] = &values[i]
		}

		if err := r.rows.Scan(scan...); err != nil {
			r.done = true
			r.rows.Close()
			return nil, err
		}

		for i, v := range values {
			values[i] = normalize(v)
		}

		chunk.Rows = append(chunk.Rows, values)
	}

	if len(chunk.Rows) == 0 {
		return nil, nil
	}

	return chunk, nil
}

func (r *result) Close() error {
	r.done = true
	return r.rows.Close()
}

// normalize converts driver-specific values into the small set of Go types
// the translator knows how to encode. NULL stays nil.
func normalize(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case goduckdb.Decimal:
		return decimal.NewFromBigInt(value.Value, -int32(value.Scale)).String()
	case *big.Int:
		return value.String()
	case goduckdb.Interval:
		return fmt.Sprintf("%d months %d days %d microseconds", value.Months, value.Days, value.Micros)
	case []byte:
		// the driver may reuse the backing array between scans
		buf := make([]byte, len(value))
		copy(buf, value)
		return buf
	case int8:
		return int64(value)
	case int16:
		return int64(value)
	case int32:
		return int64(value)
	case uint8:
		return int64(value)
	case uint16:
		return int64(value)
	case uint32:
		return int64(value)
	case uint64:
		return new(big.Int).SetUint64(value).String()
	case float32:
		return float64(value)
	case map[string]any, []any:
		return fmt.Sprintf("%v", value)
	default:
		return value
	}
}
