package schema

import (
	"fmt"
	"sort"
	"sync"
)

// FrameSize bounds every placement in the table.
const FrameSize = 192

// ByteOrder selects how multi-byte integers are laid out on the wire.
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

// ValueType is the interpretation of a field's raw bytes.
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeInt
	TypeDecimal
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeDecimal:
		return "decimal"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Placement locates a field inside a frame. Finish is inclusive.
type Placement struct {
	Start  int
	Finish int
	Order  ByteOrder
	Scale  Scale
}

func (p Placement) Width() int {
	return p.Finish - p.Start + 1
}

// Switch maps one raw code to "on" and everything else to "off".
type Switch struct {
	OnCode uint64
}

func (s Switch) Name(raw uint64) string {
	if raw == s.OnCode {
		return SwitchOn
	}
	return SwitchOff
}

const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

// Descriptor describes one named field. A nil Write placement marks a
// device-reported field that cannot be set.
type Descriptor struct {
	Name        string
	Read        *Placement
	Write       *Placement
	Type        ValueType
	Enum        *EnumTable
	Switch      *Switch
	SignRecover bool
	Default     string
	Description string
}

func (d Descriptor) Readable() bool {
	return d.Read != nil
}

func (d Descriptor) Writable() bool {
	return d.Write != nil
}

// ValidationError reports a descriptor whose layout does not fit a frame.
type ValidationError struct {
	Parameter string
	Reason    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: parameter=%s: %s", e.Parameter, e.Reason)
}

// Registry is the immutable lookup over parameters and commands.
type Registry struct {
	params   map[string]Descriptor
	order    []string
	commands map[string]Command
	opcodes  map[uint8]Command
}

// NewRegistry builds a registry and validates every placement.
func NewRegistry(params []Descriptor, commands []Command) (*Registry, error) {
	r := &Registry{
		params:   make(map[string]Descriptor, len(params)),
		order:    make([]string, 0, len(params)),
		commands: make(map[string]Command, len(commands)),
		opcodes:  make(map[uint8]Command, len(commands)),
	}
	for _, d := range params {
		if _, dup := r.params[d.Name]; dup {
			return nil, ValidationError{Parameter: d.Name, Reason: "duplicate parameter"}
		}
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		r.params[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	for _, c := range commands {
		if _, dup := r.commands[c.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate command %q", c.Name)
		}
		if _, dup := r.opcodes[c.Opcode]; dup {
			return nil, fmt.Errorf("schema: duplicate opcode %d", c.Opcode)
		}
		for _, name := range c.Payload {
			d, ok := r.params[name]
			if !ok || !d.Writable() {
				return nil, fmt.Errorf("schema: command %q payload %q is not a writable parameter", c.Name, name)
			}
		}
		r.commands[c.Name] = c
		r.opcodes[c.Opcode] = c
	}
	return r, nil
}

func validateDescriptor(d Descriptor) error {
	if d.Read == nil && d.Write == nil {
		return ValidationError{Parameter: d.Name, Reason: "no placement"}
	}
	for _, p := range []*Placement{d.Read, d.Write} {
		if p == nil {
			continue
		}
		if p.Start < 0 || p.Finish >= FrameSize || p.Finish < p.Start {
			return ValidationError{
				Parameter: d.Name,
				Reason:    fmt.Sprintf("range [%d,%d] outside frame", p.Start, p.Finish),
			}
		}
		if d.Type != TypeString && p.Width() > 8 {
			return ValidationError{Parameter: d.Name, Reason: "numeric field wider than 8 bytes"}
		}
	}
	if d.Enum != nil && d.Switch != nil {
		return ValidationError{Parameter: d.Name, Reason: "enum and switch are exclusive"}
	}
	return nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.params[name]
	return d, ok
}

// Parameters returns descriptors in declaration order.
func (r *Registry) Parameters() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.params[name])
	}
	return out
}

func (r *Registry) Command(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

func (r *Registry) CommandByOpcode(op uint8) (Command, bool) {
	c, ok := r.opcodes[op]
	return c, ok
}

// Commands returns the command table ordered by opcode.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Opcode < out[j].Opcode
	})
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the Savitr heater registry. It is built once and shared.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(savitrParameters(), savitrCommands())
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
