package postduck

import (
	"strings"

	"github.com/lib/pq/oid"

	"github.com/fanvanzh/postduck/engine"
)

// engineTypeOids maps the engine's type names onto PostgreSQL type OIDs.
// Immutable process-wide state.
var engineTypeOids = map[string]oid.Oid{
	"BOOLEAN":   oid.T_bool,
	"TINYINT":   oid.T_int2,
	"SMALLINT":  oid.T_int2,
	"INTEGER":   oid.T_int4,
	"BIGINT":    oid.T_int8,
	"FLOAT":     oid.T_float4,
	"DOUBLE":    oid.T_float8,
	"VARCHAR":   oid.T_varchar,
	"CHAR":      oid.T_bpchar,
	"DATE":      oid.T_date,
	"TIME":      oid.T_time,
	"TIMESTAMP": oid.T_timestamp,
	"BLOB":      oid.T_bytea,
	"DECIMAL":   oid.T_numeric,
}

// typeOid resolves the PostgreSQL type OID advertised for the given engine
// type name. Parameterized type names such as DECIMAL(18,3) resolve through
// their base name. Unknown types are advertised as varchar, which every
// client can at least render.
func typeOid(engineType string) oid.Oid {
	name := strings.ToUpper(engineType)
	if paren := strings.IndexByte(name, '('); paren != -1 {
		name = name[:paren]
	}

	if resolved, has := engineTypeOids[name]; has {
		return resolved
	}

	return oid.T_varchar
}

// describeColumns builds the wire column descriptions for the given engine
// result columns.
func describeColumns(columns []engine.Column) Columns {
	described := make(Columns, len(columns))
	for i, column := range columns {
		described[i] = Column{
			Table:  0,
			Name:   column.Name,
			AttrNo: int16(i + 1),
			Oid:    typeOid(column.Type),
			Width:  -1,
		}
	}

	return described
}
