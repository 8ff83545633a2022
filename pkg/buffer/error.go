package buffer

import (
	"errors"
	"fmt"
)

// ErrMessageSizeExceeded is returned (wrapped) when a client declares a
// message larger than the configured maximum.
var ErrMessageSizeExceeded = errors.New("maximum message size exceeded")

// ErrMissingNulTerminator is returned when a string field is not terminated.
var ErrMissingNulTerminator = errors.New("NUL terminator not found")

// ErrInsufficientData is returned when a fixed-width field is read beyond the
// end of the message body.
var ErrInsufficientData = errors.New("insufficient data")

// MessageSizeExceeded carries the declared size of the rejected message so a
// caller can consume and discard the body to recover framing.
type MessageSizeExceeded struct {
	Max  int
	Size int
}

func (err *MessageSizeExceeded) Error() string {
	return fmt.Sprintf("message size %d exceeds maximum message size %d", err.Size, err.Max)
}

func (err *MessageSizeExceeded) Unwrap() error {
	return ErrMessageSizeExceeded
}

// NewMessageSizeExceeded constructs a new error for a message of the given
// declared size read against the given maximum.
func NewMessageSizeExceeded(max, size int) error {
	return &MessageSizeExceeded{Max: max, Size: size}
}

// UnwrapMessageSizeExceeded returns the typed size error contained in the
// given error, if any.
func UnwrapMessageSizeExceeded(err error) (*MessageSizeExceeded, bool) {
	target := &MessageSizeExceeded{}
	if errors.As(err, &target) {
		return target, true
	}

	return nil, false
}

// NewMissingNulTerminator constructs a new unterminated string error.
func NewMissingNulTerminator() error {
	return ErrMissingNulTerminator
}

// NewInsufficientData constructs a new error reporting the number of bytes
// remaining inside the message body.
func NewInsufficientData(length int) error {
	return fmt.Errorf("%w: %d bytes remaining", ErrInsufficientData, length)
}
