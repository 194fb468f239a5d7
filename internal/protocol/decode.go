package protocol

import (
	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// Codec decodes and encodes frames against one schema registry.
type Codec struct {
	reg *schema.Registry
}

func NewCodec(reg *schema.Registry) *Codec {
	return &Codec{reg: reg}
}

var defaultCodec = NewCodec(schema.Default())

// DefaultCodec returns the codec over the built-in heater schema.
func DefaultCodec() *Codec {
	return defaultCodec
}

func (c *Codec) Registry() *schema.Registry {
	return c.reg
}

// Decode applies inbound recovery to a copy of f and reads every
// readable parameter. f itself is left untouched.
func (c *Codec) Decode(f frame.Frame) (Values, error) {
	if err := frame.RecoverInbound(&f); err != nil {
		log.Error().Msgf("protocol.Decode recover err=%v", err)
		return nil, err
	}
	params := c.reg.Parameters()
	out := make(Values, len(params))
	for _, d := range params {
		if !d.Readable() {
			continue
		}
		v, err := ReadField(&f, d)
		if err != nil {
			log.Error().Msgf("protocol.Decode parameter=%s err=%v", d.Name, err)
			return nil, err
		}
		out[d.Name] = v
	}
	log.Trace().Msgf("protocol.Decode ok parameters=%d", len(out))
	return out, nil
}

// DecodeBytes validates the length of b and decodes it.
func (c *Codec) DecodeBytes(b []byte) (Values, error) {
	f, err := frame.FromBytes(b)
	if err != nil {
		return nil, err
	}
	return c.Decode(f)
}

func Decode(f frame.Frame) (Values, error) {
	return defaultCodec.Decode(f)
}

func DecodeBytes(b []byte) (Values, error) {
	return defaultCodec.DecodeBytes(b)
}
