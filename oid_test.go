package postduck

import (
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"

	"github.com/fanvanzh/postduck/engine"
)

func TestTypeOid(t *testing.T) {
	tests := map[string]oid.Oid{
		"BOOLEAN":       oid.T_bool,
		"TINYINT":       oid.T_int2,
		"SMALLINT":      oid.T_int2,
		"INTEGER":       oid.T_int4,
		"BIGINT":        oid.T_int8,
		"FLOAT":         oid.T_float4,
		"DOUBLE":        oid.T_float8,
		"VARCHAR":       oid.T_varchar,
		"CHAR":          oid.T_bpchar,
		"DATE":          oid.T_date,
		"TIME":          oid.T_time,
		"TIMESTAMP":     oid.T_timestamp,
		"BLOB":          oid.T_bytea,
		"DECIMAL":       oid.T_numeric,
		"DECIMAL(18,3)": oid.T_numeric,
		"varchar":       oid.T_varchar,
		"STRUCT":        oid.T_varchar, // unknown types fall back to varchar
	}

	for input, expected := range tests {
		assert.Equal(t, expected, typeOid(input), input)
	}
}

func TestDescribeColumns(t *testing.T) {
	columns := describeColumns([]engine.Column{
		{Name: "id", Type: "BIGINT"},
		{Name: "name", Type: "VARCHAR"},
	})

	assert.Equal(t, int16(1), columns[0].AttrNo)
	assert.Equal(t, int16(2), columns[1].AttrNo)
	assert.Equal(t, oid.T_int8, columns[0].Oid)
	assert.Equal(t, oid.T_varchar, columns[1].Oid)
	assert.Equal(t, int16(-1), columns[0].Width)
}
