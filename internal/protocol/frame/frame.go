package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Size is the fixed length of every frame in both directions.
const Size = 192

var (
	ErrShortFrame     = errors.New("frame: short frame")
	ErrFrameLength    = errors.New("frame: invalid frame length")
	ErrChecksumRegion = errors.New("frame: checksum region out of bounds")
	ErrPeerClosed     = errors.New("frame: peer closed connection")
	ErrShortWrite     = errors.New("frame: short write")
	ErrMarkerOverflow = errors.New("frame: marker on byte that already has its high bit set")
)

// Frame is one complete wire message.
type Frame [Size]byte

// FromBytes copies b into a Frame. b must be exactly Size bytes.
func FromBytes(b []byte) (Frame, error) {
	var f Frame
	if len(b) < Size {
		return f, fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(b))
	}
	if len(b) != Size {
		return f, fmt.Errorf("%w: got %d bytes", ErrFrameLength, len(b))
	}
	copy(f[:], b)
	return f, nil
}

// ParseHex decodes a hex dump, ignoring whitespace.
func ParseHex(s string) (Frame, error) {
	clean := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return Frame{}, fmt.Errorf("frame: parse hex: %w", err)
	}
	return FromBytes(b)
}

func (f Frame) Hex() string {
	return hex.EncodeToString(f[:])
}

// ReadFrame reads exactly one frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var f Frame
	n, err := io.ReadFull(r, f[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, ErrPeerClosed
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: got %d bytes", ErrShortFrame, n)
		}
		return Frame{}, err
	}
	return f, nil
}

// WriteFrame writes f to w in a single call.
func WriteFrame(w io.Writer, f Frame) error {
	n, err := w.Write(f[:])
	if err != nil {
		return err
	}
	if n != Size {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, Size)
	}
	return nil
}
