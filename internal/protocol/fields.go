package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
)

// signBoundary and signFill recover negative 16-bit temperatures.
const (
	signBoundary = 32767
	signFill     = -65536
)

func readUint(b []byte, order schema.ByteOrder) uint64 {
	var n uint64
	if order == schema.LittleEndian {
		for i := len(b) - 1; i >= 0; i-- {
			n = n<<8 | uint64(b[i])
		}
		return n
	}
	for _, x := range b {
		n = n<<8 | uint64(x)
	}
	return n
}

func putUint(b []byte, n uint64, order schema.ByteOrder) {
	if order == schema.LittleEndian {
		for i := range b {
			b[i] = byte(n)
			n >>= 8
		}
		return
	}
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
}

// ReadField interprets d's read placement in f. Inbound recovery must
// already have been applied.
func ReadField(f *frame.Frame, d schema.Descriptor) (Value, error) {
	p := d.Read
	if p == nil {
		return Value{}, &DecodeError{Parameter: d.Name, Err: fmt.Errorf("no read placement")}
	}
	raw := f[p.Start : p.Finish+1]

	switch d.Type {
	case schema.TypeString:
		return StringValue(strings.TrimRight(string(raw), "\x00")), nil
	case schema.TypeInt:
		n := readUint(raw, p.Order)
		return resolveCode(d, n)
	case schema.TypeDecimal:
		n := int64(readUint(raw, p.Order))
		if d.SignRecover && n > signBoundary {
			n |= signFill
		}
		return DecimalValue(p.Scale.Apply(n)), nil
	default:
		return Value{}, &DecodeError{Parameter: d.Name, Err: fmt.Errorf("unsupported type %s", d.Type)}
	}
}

func resolveCode(d schema.Descriptor, n uint64) (Value, error) {
	switch {
	case d.Enum != nil:
		e, err := d.Enum.Lookup(int(n))
		if err != nil {
			return Value{}, &DecodeError{Parameter: d.Name, Err: err}
		}
		return EnumValue(e.Name, int64(n)), nil
	case d.Switch != nil:
		return EnumValue(d.Switch.Name(n), int64(n)), nil
	default:
		return IntValue(int64(n)), nil
	}
}

// WriteField stores v at d's write placement, applying the write scale
// before narrowing to the placement width.
func WriteField(f *frame.Frame, d schema.Descriptor, v Value) error {
	p := d.Write
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotWritable, d.Name)
	}
	dst := f[p.Start : p.Finish+1]

	if d.Type == schema.TypeString {
		if v.Kind != KindString && v.Kind != KindEnum {
			return fmt.Errorf("%w: %s wants string, got %s", ErrValueKind, d.Name, v.Kind)
		}
		if len(v.Text) > len(dst) {
			return &ValueError{Parameter: d.Name, Value: v.Text, Reason: fmt.Sprintf("longer than %d bytes", len(dst))}
		}
		for i := range dst {
			dst[i] = 0
		}
		copy(dst, v.Text)
		return nil
	}

	n, err := wireInt(d, *p, v)
	if err != nil {
		return err
	}
	if n < 0 || (len(dst) < 8 && uint64(n) >= 1<<(8*uint(len(dst)))) {
		return &ValueError{
			Parameter: d.Name,
			Value:     v.String(),
			Reason:    fmt.Sprintf("wire value %d does not fit %d byte(s)", n, len(dst)),
		}
	}
	putUint(dst, uint64(n), p.Order)
	return nil
}

func wireInt(d schema.Descriptor, p schema.Placement, v Value) (int64, error) {
	if d.Enum != nil {
		return enumCode(d, v)
	}
	switch v.Kind {
	case KindInt:
		if p.Scale == schema.ScaleIdentity {
			return v.Int, nil
		}
		return p.Scale.ToWire(float64(v.Int)), nil
	case KindDecimal:
		return p.Scale.ToWire(v.Decimal), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, &ValueError{Parameter: d.Name, Value: v.Text, Reason: "not a number"}
		}
		return p.Scale.ToWire(f), nil
	default:
		return 0, fmt.Errorf("%w: %s wants number, got %s", ErrValueKind, d.Name, v.Kind)
	}
}

func enumCode(d schema.Descriptor, v Value) (int64, error) {
	switch v.Kind {
	case KindEnum, KindString:
		code, err := d.Enum.CodeOf(v.Text)
		if err != nil {
			return 0, &ValueError{Parameter: d.Name, Value: v.Text, Reason: err.Error()}
		}
		return int64(code), nil
	case KindInt:
		if _, err := d.Enum.Lookup(int(v.Int)); err != nil {
			return 0, &ValueError{Parameter: d.Name, Value: v.String(), Reason: err.Error()}
		}
		return v.Int, nil
	default:
		return 0, fmt.Errorf("%w: %s wants enum, got %s", ErrValueKind, d.Name, v.Kind)
	}
}
