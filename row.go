package postduck

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"

	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// Columns represent a collection of result set columns.
type Columns []Column

// Define writes the RowDescription message for the given columns. The
// description has to be written before any data rows are sent to the client.
func (columns Columns) Define(writer *buffer.Writer) error {
	writer.Start(types.ServerRowDescription)
	writer.AddInt16(int16(len(columns)))

	for _, column := range columns {
		column.Define(writer)
	}

	return writer.End()
}

// Write writes the given values as a single DataRow message. The number of
// values needs to match the number of defined columns.
func (columns Columns) Write(typeMap *pgtype.Map, writer *buffer.Writer, values []any) error {
	if len(values) != len(columns) {
		return fmt.Errorf("unexpected row width, %d columns are defined but %d values were given", len(columns), len(values))
	}

	writer.Start(types.ServerDataRow)
	writer.AddInt16(int16(len(columns)))

	for index, column := range columns {
		err := column.Write(typeMap, writer, values[index])
		if err != nil {
			return err
		}
	}

	return writer.End()
}

// Column represents a result set column and its attributes such as name,
// type OID and width.
// https://www.postgresql.org/docs/current/catalog-pg-attribute.html
type Column struct {
	Table  int32  // table oid, zero for computed results
	Name   string // column name
	AttrNo int16  // column attribute number, 1-based
	Oid    oid.Oid
	Width  int16 // type length, -1 for variable width
}

// Define writes the column header values inside a RowDescription message.
// All columns are announced in the text format.
func (column Column) Define(writer *buffer.Writer) {
	writer.AddString(column.Name)
	writer.AddNullTerminate()
	writer.AddInt32(column.Table)
	writer.AddInt16(column.AttrNo)
	writer.AddInt32(int32(column.Oid))
	writer.AddInt16(column.Width)
	writer.AddInt32(-1) // type modifier, undefined
	writer.AddInt16(0)  // text format
}

// Write encodes the given value as a text-format DataRow field. NULL is
// encoded as the special field length -1 so clients can distinguish it from
// an empty string. String values pass through untouched; other values are
// encoded through the type map using the column's advertised OID.
func (column Column) Write(typeMap *pgtype.Map, writer *buffer.Writer, src any) error {
	if src == nil {
		writer.AddInt32(-1)
		return nil
	}

	if text, ok := src.(string); ok {
		writer.AddInt32(int32(len(text)))
		writer.AddString(text)
		return nil
	}

	encoded, err := typeMap.Encode(uint32(column.Oid), pgtype.TextFormatCode, src, nil)
	if err != nil {
		text := fmt.Sprint(src)
		writer.AddInt32(int32(len(text)))
		writer.AddString(text)
		return nil
	}

	if encoded == nil {
		writer.AddInt32(-1)
		return nil
	}

	writer.AddInt32(int32(len(encoded)))
	writer.AddBytes(encoded)
	return nil
}
