package protocol

import (
	"fmt"

	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// ReservedByte is always zero in outgoing frames. The vendor app clears it
// and its meaning is unknown.
const ReservedByte = 66

// NextCounter returns the command counter following last, wrapping 255 to 0.
func NextCounter(last uint8) uint8 {
	return last + 1
}

// NewFrame returns a zeroed frame carrying only the preamble.
func (c *Codec) NewFrame() (frame.Frame, error) {
	var f frame.Frame
	d, ok := c.reg.Lookup(schema.ParamMsgPreamble)
	if !ok {
		return f, fmt.Errorf("%w: %s", ErrUnknownParameter, schema.ParamMsgPreamble)
	}
	if err := WriteField(&f, d, StringValue(d.Default)); err != nil {
		return f, err
	}
	f[ReservedByte] = 0
	return f, nil
}

// Encode builds the outgoing frame for command: preamble, opcode, the
// counter following lastCount, then payload fields. Outbound bias and the
// checksum are applied last.
func (c *Codec) Encode(command string, lastCount uint8, payload Values) (frame.Frame, error) {
	cmd, ok := c.reg.Command(command)
	if !ok {
		return frame.Frame{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if cmd.Stub {
		return frame.Frame{}, fmt.Errorf("%w: %s", ErrNotImplemented, cmd.Name)
	}

	f, err := c.NewFrame()
	if err != nil {
		return frame.Frame{}, err
	}
	if err := c.write(&f, schema.ParamCmdCode, IntValue(int64(cmd.Opcode))); err != nil {
		return frame.Frame{}, err
	}
	count := NextCounter(lastCount)
	if err := c.write(&f, schema.ParamCmdCount, IntValue(int64(count))); err != nil {
		return frame.Frame{}, err
	}
	for _, name := range cmd.Payload {
		v, ok := payload[name]
		if !ok {
			return frame.Frame{}, fmt.Errorf("%w: %s needs %s", ErrMissingPayload, cmd.Name, name)
		}
		if err := c.write(&f, name, v); err != nil {
			return frame.Frame{}, err
		}
	}

	frame.BiasOutbound(&f)
	sum := frame.Stamp(&f)
	log.Debug().Msgf("protocol.Encode command=%s opcode=%d count=%d checksum=%d", cmd.Name, cmd.Opcode, count, sum)
	return f, nil
}

func (c *Codec) write(f *frame.Frame, name string, v Value) error {
	d, ok := c.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return WriteField(f, d, v)
}

func Encode(command string, lastCount uint8, payload Values) (frame.Frame, error) {
	return defaultCodec.Encode(command, lastCount, payload)
}
