package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
)

var (
	ErrUnknownCommand   = errors.New("protocol: unknown command")
	ErrUnknownParameter = errors.New("protocol: unknown parameter")
	ErrNotWritable      = errors.New("protocol: parameter is not writable")
	ErrNotImplemented   = errors.New("protocol: command not implemented")
	ErrMissingPayload   = errors.New("protocol: missing payload value")
	ErrValueKind        = errors.New("protocol: value kind mismatch")
)

// DecodeError reports a field that could not be interpreted.
type DecodeError struct {
	Parameter string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decode %s: %v", e.Parameter, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValueError reports a value that does not fit a write placement.
type ValueError struct {
	Parameter string
	Value     string
	Reason    string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("protocol: parameter=%s value=%q: %s", e.Parameter, e.Value, e.Reason)
}

// IsProtocolError reports whether err came from malformed frame content
// rather than from the connection.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var de *DecodeError
	var uce *schema.UnknownCodeError
	return errors.As(err, &de) ||
		errors.As(err, &uce) ||
		errors.Is(err, frame.ErrShortFrame) ||
		errors.Is(err, frame.ErrFrameLength) ||
		errors.Is(err, frame.ErrMarkerOverflow) ||
		errors.Is(err, frame.ErrChecksumRegion)
}
