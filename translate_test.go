package postduck

import (
	"bytes"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanvanzh/postduck/engine"
	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/mock"
)

// respond translates the given result into a readable message stream.
func respond(t *testing.T, result engine.Result) *mock.Reader {
	srv := TServer(t, nil)

	frame := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), frame)

	err := srv.respond(result, writer)
	require.NoError(t, err)

	return mock.NewReader(t, frame)
}

func TestRespondSelectCountsRows(t *testing.T) {
	result := &fakeResult{
		kind:    engine.KindSelect,
		columns: []engine.Column{{Name: "x", Type: "INTEGER"}},
		chunks: []*engine.Chunk{
			{Rows: [][]any{{int64(1)}, {int64(2)}}},
			{Rows: [][]any{{int64(3)}}},
		},
	}

	reader := respond(t, result)

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, "RowDescription", typed.String())

	for i := 0; i < 3; i++ {
		typed, _, err = reader.ReadTypedMsg()
		require.NoError(t, err)
		assert.Equal(t, "DataRow", typed.String())
	}

	typed, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, "CommandComplete", typed.String())

	tag, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 3", tag)
}

func TestRespondRowsAffectedWithoutRows(t *testing.T) {
	// an engine result without a changes row yields a tag without a count
	result := &fakeResult{kind: engine.KindInsert}
	reader := respond(t, result)

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, "CommandComplete", typed.String())

	tag, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "INSERT 0 ", tag)
}

func TestRespondUpdateAndDeleteTags(t *testing.T) {
	tests := map[engine.Kind]string{
		engine.KindUpdate: "UPDATE 7",
		engine.KindDelete: "DELETE 7",
	}

	for kind, expected := range tests {
		result := &fakeResult{
			kind:   kind,
			chunks: []*engine.Chunk{{Rows: [][]any{{int64(7)}}}},
		}

		reader := respond(t, result)

		_, _, err := reader.ReadTypedMsg()
		require.NoError(t, err)

		tag, err := reader.GetString()
		require.NoError(t, err)
		assert.Equal(t, expected, tag)
	}
}

func TestRespondExplainUsesPlanColumn(t *testing.T) {
	result := &fakeResult{
		kind:    engine.KindExplain,
		columns: []engine.Column{{Name: "explain_key", Type: "VARCHAR"}, {Name: "explain_value", Type: "VARCHAR"}},
		chunks:  []*engine.Chunk{{Rows: [][]any{{"physical_plan", "SEQ_SCAN t"}}}},
	}

	reader := respond(t, result)

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, "RowDescription", typed.String())

	fields, err := reader.GetUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(1), fields)

	name, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "QUERY PLAN", name)

	typed, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, "DataRow", typed.String())

	_, err = reader.GetUint16()
	require.NoError(t, err)

	length, err := reader.GetInt32()
	require.NoError(t, err)

	value, err := reader.GetBytes(int(length))
	require.NoError(t, err)
	assert.Equal(t, "SEQ_SCAN t", string(value))

	typed, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, "CommandComplete", typed.String())

	tag, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "EXPLAIN", tag)
}

func TestRespondOther(t *testing.T) {
	reader := respond(t, &fakeResult{kind: engine.KindOther})

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, "CommandComplete", typed.String())

	tag, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "COMMAND COMPLETE", tag)
}

func TestColumnWriteEncodesTypedValues(t *testing.T) {
	srv := TServer(t, nil)

	columns := describeColumns([]engine.Column{
		{Name: "b", Type: "BOOLEAN"},
		{Name: "d", Type: "DATE"},
		{Name: "f", Type: "DOUBLE"},
	})

	frame := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), frame)

	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	err := columns.Write(srv.types, writer, []any{true, date, float64(2.5)})
	require.NoError(t, err)

	reader := mock.NewReader(t, frame)

	_, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)

	fields, err := reader.GetUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(3), fields)

	expected := []string{"t", "2024-03-01", "2.5"}
	for _, want := range expected {
		length, err := reader.GetInt32()
		require.NoError(t, err)

		value, err := reader.GetBytes(int(length))
		require.NoError(t, err)
		assert.Equal(t, want, string(value))
	}
}

func TestColumnWriteRowWidthMismatch(t *testing.T) {
	srv := TServer(t, nil)

	columns := describeColumns([]engine.Column{{Name: "x", Type: "INTEGER"}})

	frame := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), frame)

	err := columns.Write(srv.types, writer, []any{int64(1), int64(2)})
	assert.Error(t, err)
}
