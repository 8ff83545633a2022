package mock

import (
	"io"
	"testing"

	"github.com/neilotoole/slogt"

	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// NewWriter constructs a new PostgreSQL wire protocol writer writing client
// messages. This implementation is mainly used for testing purposes.
func NewWriter(t *testing.T, writer io.Writer) *Writer {
	return &Writer{buffer.NewWriter(slogt.New(t), writer)}
}

// Writer represents a low level PostgreSQL client writer allowing a test to
// write messages using the PostgreSQL wire protocol.
type Writer struct {
	*buffer.Writer
}

// Start resets the buffer writer and starts a new message with the given
// client message type.
func (writer *Writer) Start(t types.ClientMessage) {
	writer.Writer.Start(types.ServerMessage(t))
}

// NewReader constructs a new PostgreSQL wire protocol reader reading server
// messages using the default buffer size.
func NewReader(t *testing.T, reader io.Reader) *Reader {
	return &Reader{buffer.NewReader(slogt.New(t), reader, buffer.DefaultBufferSize)}
}

// Reader represents a low level PostgreSQL client reader allowing a test to
// read server messages through the PostgreSQL wire protocol.
type Reader struct {
	*buffer.Reader
}

// ReadTypedMsg reads a server message, returning its type code and the number
// of bytes read after the type byte (the length word plus the body).
func (reader *Reader) ReadTypedMsg() (types.ServerMessage, int, error) {
	t, l, err := reader.Reader.ReadTypedMsg()
	return types.ServerMessage(t), l, err
}
