package postduck

import (
	psqlerr "github.com/fanvanzh/postduck/errors"
	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// errFieldType represents the error response field identifiers.
type errFieldType byte

// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
const (
	errFieldSeverity   errFieldType = 'S'
	errFieldSQLState   errFieldType = 'C'
	errFieldMsgPrimary errFieldType = 'M'
	errFieldDetail     errFieldType = 'D'
	errFieldHint       errFieldType = 'H'
)

// ErrorCode writes an error response for the given error carrying its
// severity, SQLSTATE and message. A ReadyForQuery message completes the
// command cycle unless the error is fatal, in which case the connection is
// about to be closed.
func ErrorCode(writer *buffer.Writer, err error) error {
	desc := psqlerr.Flatten(err)

	writer.Start(types.ServerErrorResponse)

	writer.AddByte(byte(errFieldSeverity))
	writer.AddString(string(desc.Severity))
	writer.AddNullTerminate()
	writer.AddByte(byte(errFieldSQLState))
	writer.AddString(string(desc.Code))
	writer.AddNullTerminate()
	writer.AddByte(byte(errFieldMsgPrimary))
	writer.AddString(desc.Message)
	writer.AddNullTerminate()

	if desc.Hint != "" {
		writer.AddByte(byte(errFieldHint))
		writer.AddString(desc.Hint)
		writer.AddNullTerminate()
	}

	if desc.Detail != "" {
		writer.AddByte(byte(errFieldDetail))
		writer.AddString(desc.Detail)
		writer.AddNullTerminate()
	}

	writer.AddNullTerminate()
	err = writer.End()
	if err != nil {
		return err
	}

	if desc.Severity == psqlerr.LevelFatal || desc.Severity == psqlerr.LevelPanic {
		return nil
	}

	return readyForQuery(writer, types.ServerIdle)
}
