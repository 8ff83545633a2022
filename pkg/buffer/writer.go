package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/fanvanzh/postduck/pkg/types"
)

// Writer provides a convenient way to write pgwire protocol messages. A
// message is assembled inside an internal frame buffer and its length word is
// fixed up once the payload is complete; callers never deal with lengths.
type Writer struct {
	io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	putbuf [64]byte
	err    error
}

// NewWriter constructs a new Postgres buffered message writer for the given
// io.Writer.
func NewWriter(logger *slog.Logger, writer io.Writer) *Writer {
	return &Writer{
		logger: logger,
		Writer: writer,
	}
}

// Start resets the frame buffer and starts a new message of the given type.
// The type byte and the reserved length word are written to the frame; the
// length is filled in by End.
func (writer *Writer) Start(t types.ServerMessage) {
	writer.Reset()
	writer.putbuf[0] = byte(t)
	writer.frame.Write(writer.putbuf[:5]) // message type + message length
}

// AddByte appends a single byte to the current frame. Errors raised while
// assembling a frame are surfaced through writer.Error().
func (writer *Writer) AddByte(b byte) {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 appends the given int16 in big-endian order to the current frame.
func (writer *Writer) AddInt16(i int16) {
	if writer.err != nil {
		return
	}

	binary.BigEndian.PutUint16(writer.putbuf[:2], uint16(i))
	_, writer.err = writer.frame.Write(writer.putbuf[:2])
}

// AddInt32 appends the given int32 in big-endian order to the current frame.
func (writer *Writer) AddInt32(i int32) {
	if writer.err != nil {
		return
	}

	binary.BigEndian.PutUint32(writer.putbuf[:4], uint32(i))
	_, writer.err = writer.frame.Write(writer.putbuf[:4])
}

// AddBytes appends the given bytes to the current frame.
func (writer *Writer) AddBytes(b []byte) {
	if writer.err != nil {
		return
	}

	_, writer.err = writer.frame.Write(b)
}

// AddString appends the given string to the current frame. The string is not
// NUL-terminated; call AddNullTerminate where the protocol requires it.
func (writer *Writer) AddString(s string) {
	if writer.err != nil {
		return
	}

	_, writer.err = writer.frame.WriteString(s)
}

// AddNullTerminate appends a NUL byte to the current frame.
func (writer *Writer) AddNullTerminate() {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(0)
}

// Error returns the first error raised while assembling the current frame.
func (writer *Writer) Error() error {
	return writer.err
}

// Bytes returns the bytes written to the active frame.
func (writer *Writer) Bytes() []byte {
	return writer.frame.Bytes()
}

// Reset resets the frame buffer to be empty.
func (writer *Writer) Reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End fixes up the length word of the assembled message, writes the frame to
// the underlying writer and resets the buffer. The length includes itself but
// not the type byte.
func (writer *Writer) End() error {
	defer writer.Reset()
	if writer.Error() != nil {
		return writer.Error()
	}

	frame := writer.frame.Bytes()
	length := uint32(writer.frame.Len() - 1)
	binary.BigEndian.PutUint32(frame[1:5], length)
	_, err := writer.Write(frame)

	writer.logger.Debug("-> writing message", slog.String("type", types.ServerMessage(frame[0]).String()))
	return err
}
