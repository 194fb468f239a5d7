package heater

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/schema"
)

const (
	maxSSIDLength  = 15
	passwordLength = 8
)

var (
	ErrUnknownCommand = protocol.ErrUnknownCommand
	ErrNotImplemented = protocol.ErrNotImplemented
	ErrMissingState   = errors.New("heater: required device state not read yet")
)

// ValidationError rejects a host value before any frame is built.
type ValidationError struct {
	Parameter string
	Value     string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("heater: invalid %s=%q: %s", e.Parameter, e.Value, e.Reason)
}

// Request is a resolved command ready for the codec.
type Request struct {
	Command string
	Payload protocol.Values
}

// Dispatcher turns symbolic host changes into command requests. It never
// touches the link.
type Dispatcher struct {
	reg *schema.Registry
}

func NewDispatcher(reg *schema.Registry) *Dispatcher {
	if reg == nil {
		reg = schema.Default()
	}
	return &Dispatcher{reg: reg}
}

// settable lists the parameters a host may change, in display order.
var settable = []string{
	schema.ParamHeatingMode,
	schema.ParamHeatingPower,
	schema.ParamAirIndoorTempControl,
	schema.ParamCoolantTempSetpoint,
	schema.ParamAirIndoorTempSetpoint,
	schema.ParamCoolantTempMin,
	schema.ParamCoolantTempMax,
	schema.ParamAirIndoorTempMin,
	schema.ParamAirIndoorTempMax,
}

// Settable returns the parameters Resolve can route.
func Settable() []string {
	return append([]string(nil), settable...)
}

func IsSettable(parameter string) bool {
	for _, name := range settable {
		if name == parameter {
			return true
		}
	}
	return false
}

// Resolve routes a change of parameter to its set_<parameter> command.
func (d *Dispatcher) Resolve(parameter, value string, snapshot protocol.Values) (Request, error) {
	return d.Command("set_"+strings.TrimSpace(parameter), value, snapshot)
}

// Command validates value for command. snapshot supplies the context some
// commands re-send, such as the other bound of a min/max pair.
func (d *Dispatcher) Command(command, value string, snapshot protocol.Values) (Request, error) {
	value = strings.TrimSpace(value)
	switch command {
	case schema.CmdSetHeatingMode:
		return d.heatingMode(value)
	case schema.CmdSetHeatingPower:
		return heatingPower(value)

	case "set_" + schema.ParamAirIndoorTempMin:
		return minMax(schema.CmdSetAirIndoorTempMinMax, schema.ParamAirIndoorTempMin, schema.ParamAirIndoorTempMax, value, "", snapshot)
	case "set_" + schema.ParamAirIndoorTempMax:
		return minMax(schema.CmdSetAirIndoorTempMinMax, schema.ParamAirIndoorTempMin, schema.ParamAirIndoorTempMax, "", value, snapshot)
	case "set_" + schema.ParamCoolantTempMin:
		return minMax(schema.CmdSetCoolantTempMinMax, schema.ParamCoolantTempMin, schema.ParamCoolantTempMax, value, "", snapshot)
	case "set_" + schema.ParamCoolantTempMax:
		return minMax(schema.CmdSetCoolantTempMinMax, schema.ParamCoolantTempMin, schema.ParamCoolantTempMax, "", value, snapshot)

	case schema.CmdSetAirIndoorTempSetpoint:
		return setpoint(command, schema.ParamAirIndoorTempSetpoint, value)
	case schema.CmdSetCoolantTempSetpoint:
		return setpoint(command, schema.ParamCoolantTempSetpoint, value)
	case schema.CmdSetAirIndoorTempControl:
		return tempControl(value, snapshot)

	case schema.CmdSetWifi:
		if err := validateWifi(value); err != nil {
			return Request{}, err
		}
		return Request{}, fmt.Errorf("%w: %s", ErrNotImplemented, command)
	}

	cmd, ok := d.reg.Command(command)
	if !ok {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if cmd.Stub {
		return Request{}, fmt.Errorf("%w: %s", ErrNotImplemented, cmd.Name)
	}
	return Request{}, fmt.Errorf("%w: %q has no host mapping", ErrUnknownCommand, command)
}

func (d *Dispatcher) heatingMode(value string) (Request, error) {
	desc, ok := d.reg.Lookup(schema.ParamHeatingMode)
	if !ok || desc.Enum == nil {
		return Request{}, fmt.Errorf("%w: %s", protocol.ErrUnknownParameter, schema.ParamHeatingMode)
	}
	if _, err := desc.Enum.CodeOf(value); err != nil {
		return Request{}, &ValidationError{Parameter: schema.ParamHeatingMode, Value: value, Reason: err.Error()}
	}
	return Request{
		Command: schema.CmdSetHeatingMode,
		Payload: protocol.Values{schema.ParamHeatingMode: protocol.StringValue(value)},
	}, nil
}

func heatingPower(value string) (Request, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Request{}, &ValidationError{Parameter: schema.ParamHeatingPower, Value: value, Reason: "not a number"}
	}
	n := int64(f)
	switch n {
	case 33, 66, 100:
	default:
		return Request{}, &ValidationError{Parameter: schema.ParamHeatingPower, Value: value, Reason: "must be 33, 66 or 100"}
	}
	return Request{
		Command: schema.CmdSetHeatingPower,
		Payload: protocol.Values{schema.ParamHeatingPower: protocol.IntValue(n)},
	}, nil
}

// minMax builds a pair command. An empty side is taken from snapshot since
// the module only accepts both bounds together.
func minMax(command, minName, maxName, minRaw, maxRaw string, snapshot protocol.Values) (Request, error) {
	lo, err := boundValue(minName, minRaw, snapshot)
	if err != nil {
		return Request{}, err
	}
	hi, err := boundValue(maxName, maxRaw, snapshot)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Command: command,
		Payload: protocol.Values{minName: lo, maxName: hi},
	}, nil
}

func boundValue(name, raw string, snapshot protocol.Values) (protocol.Value, error) {
	if raw != "" {
		f, err := parseDecimal(name, raw)
		if err != nil {
			return protocol.Value{}, err
		}
		return protocol.DecimalValue(f), nil
	}
	v, ok := snapshot[name]
	if !ok {
		return protocol.Value{}, fmt.Errorf("%w: %s", ErrMissingState, name)
	}
	return v, nil
}

func setpoint(command, name, value string) (Request, error) {
	f, err := parseDecimal(name, value)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Command: command,
		Payload: protocol.Values{name: protocol.DecimalValue(f)},
	}, nil
}

// tempControl has no "on" signal on the wire. Turning control on re-sends
// the current indoor setpoint.
func tempControl(value string, snapshot protocol.Values) (Request, error) {
	switch strings.ToLower(value) {
	case schema.SwitchOff:
		return Request{Command: schema.CmdSetAirIndoorTempControl}, nil
	case schema.SwitchOn:
		v, ok := snapshot[schema.ParamAirIndoorTempSetpoint]
		if !ok {
			return Request{}, fmt.Errorf("%w: %s", ErrMissingState, schema.ParamAirIndoorTempSetpoint)
		}
		return Request{
			Command: schema.CmdSetAirIndoorTempSetpoint,
			Payload: protocol.Values{schema.ParamAirIndoorTempSetpoint: v},
		}, nil
	default:
		return Request{}, &ValidationError{Parameter: schema.ParamAirIndoorTempControl, Value: value, Reason: "must be on or off"}
	}
}

// validateWifi accepts "ssid:password", splitting at the last colon.
func validateWifi(value string) error {
	i := strings.LastIndex(value, ":")
	if i < 0 {
		return &ValidationError{Parameter: schema.ParamWifiSSID, Value: value, Reason: "want ssid:password"}
	}
	ssid, password := value[:i], value[i+1:]
	if ssid == "" || len(ssid) > maxSSIDLength {
		return &ValidationError{Parameter: schema.ParamWifiSSID, Value: ssid, Reason: fmt.Sprintf("length must be 1..%d", maxSSIDLength)}
	}
	if len(password) != passwordLength {
		return &ValidationError{Parameter: schema.ParamWifiPassword, Value: strings.Repeat("*", len(password)), Reason: fmt.Sprintf("length must be exactly %d", passwordLength)}
	}
	return nil
}

func parseDecimal(name, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Parameter: name, Value: raw, Reason: "not a number"}
	}
	return f, nil
}
