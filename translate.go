package postduck

import (
	"fmt"
	"strconv"

	"github.com/lib/pq/oid"

	"github.com/fanvanzh/postduck/engine"
	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// compatibilityProbe is the exact query text some clients issue to detect a
// compatibility mode. It is answered without consulting the engine.
const compatibilityProbe = "SELECT reset_val FROM pg_settings WHERE name='polar_compatibility_mode';"

// respond translates an engine result into the wire messages completing a
// command cycle: an optional RowDescription, the data rows and a
// CommandComplete tag derived from the statement kind. ReadyForQuery is
// written by the caller.
func (srv *Server) respond(result engine.Result, writer *buffer.Writer) error {
	switch result.Kind() {
	case engine.KindSelect:
		return srv.respondSelect(result, writer)
	case engine.KindInsert, engine.KindUpdate, engine.KindDelete:
		return srv.respondRowsAffected(result, writer)
	case engine.KindExplain:
		return srv.respondExplain(result, writer)
	default:
		return commandComplete(writer, "COMMAND COMPLETE")
	}
}

// respondSelect emits a RowDescription describing the result columns followed
// by one DataRow per fetched row and a "SELECT <rowcount>" tag.
func (srv *Server) respondSelect(result engine.Result, writer *buffer.Writer) error {
	columns := describeColumns(result.Columns())
	err := columns.Define(writer)
	if err != nil {
		return err
	}

	rows := 0
	for {
		chunk, err := result.Fetch()
		if err != nil {
			return err
		}
		if chunk == nil {
			break
		}

		for _, row := range chunk.Rows {
			err = columns.Write(srv.types, writer, row)
			if err != nil {
				return err
			}
			rows++
		}
	}

	return commandComplete(writer, fmt.Sprintf("SELECT %d", rows))
}

// respondRowsAffected emits the DML command tag. The affected row count is
// taken from the first value of the first fetched chunk, per the engine's
// changes-result convention; without rows the tag carries no count.
func (srv *Server) respondRowsAffected(result engine.Result, writer *buffer.Writer) error {
	var tag string
	switch result.Kind() {
	case engine.KindInsert:
		tag = "INSERT 0 "
	case engine.KindUpdate:
		tag = "UPDATE "
	case engine.KindDelete:
		tag = "DELETE "
	}

	chunk, err := result.Fetch()
	if err != nil {
		return err
	}

	if chunk != nil && chunk.Size() > 0 && len(chunk.Rows[0]) > 0 {
		tag += formatValue(chunk.Rows[0][0])
	}

	return commandComplete(writer, tag)
}

// respondExplain emits the plan as a single "QUERY PLAN" column. The engine
// returns the plan text in column index 1; column 0 carries a label.
func (srv *Server) respondExplain(result engine.Result, writer *buffer.Writer) error {
	columns := Columns{{Name: "QUERY PLAN", AttrNo: 1, Oid: oid.T_varchar, Width: -1}}
	err := columns.Define(writer)
	if err != nil {
		return err
	}

	for {
		chunk, err := result.Fetch()
		if err != nil {
			return err
		}
		if chunk == nil {
			break
		}

		for _, row := range chunk.Rows {
			var plan any
			if len(row) > 1 {
				plan = row[1]
			} else if len(row) > 0 {
				plan = row[0]
			}

			err = columns.Write(srv.types, writer, []any{plan})
			if err != nil {
				return err
			}
		}
	}

	return commandComplete(writer, "EXPLAIN")
}

// respondCompatibilityProbe answers the compatibility probe with a single
// reset_val row holding "pg".
func (srv *Server) respondCompatibilityProbe(writer *buffer.Writer) error {
	columns := Columns{{Name: "reset_val", AttrNo: 1, Oid: oid.T_varchar, Width: -1}}
	err := columns.Define(writer)
	if err != nil {
		return err
	}

	err = columns.Write(srv.types, writer, []any{"pg"})
	if err != nil {
		return err
	}

	return commandComplete(writer, "SELECT")
}

// commandComplete announces that the requested command has been executed. The
// tag summarizes the command for the client.
func commandComplete(writer *buffer.Writer, tag string) error {
	writer.Start(types.ServerCommandComplete)
	writer.AddString(tag)
	writer.AddNullTerminate()
	return writer.End()
}

// formatValue renders a single engine value as command tag text.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
