package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/danmuck/savitr/internal/testutil/testlog"
)

// deviceFrame returns a frame as the device would report it: every enum
// field holds a valid code and high bits in [64,128) are biased.
func deviceFrame(t *testing.T, raw map[string]uint64) frame.Frame {
	t.Helper()
	var f frame.Frame
	copy(f[0:4], "EZAP")
	copy(f[60:64], "STAT")
	base := map[string]uint64{
		schema.ParamHeatingMode:  1,
		schema.ParamHeaterStatus: 0,
		schema.ParamClockWeekday: 3,
	}
	for k, v := range raw {
		base[k] = v
	}
	for name, v := range base {
		d, ok := schema.Default().Lookup(name)
		if !ok {
			t.Fatalf("unknown parameter %s", name)
		}
		putUint(f[d.Read.Start:d.Read.Finish+1], v, d.Read.Order)
	}
	frame.BiasOutbound(&f)
	return f
}

func TestDecodeNegativeTemperature(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, map[string]uint64{schema.ParamCoolantTemp: 65500})
	vals, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := vals[schema.ParamCoolantTemp]
	if got.Kind != KindDecimal || got.Decimal != -3.6 {
		t.Fatalf("unexpected coolant temp: %+v", got)
	}
}

func TestDecodeSignRecoveryOnlyForTemperatures(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, map[string]uint64{
		schema.ParamAirOutdoorTemp:      0xFFF6,
		schema.ParamAirIndoorTemp:       215,
		schema.ParamCoolantTempSetpoint: 40000,
	})
	vals, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vals[schema.ParamAirOutdoorTemp].Decimal != -1 {
		t.Fatalf("outdoor temp: %+v", vals[schema.ParamAirOutdoorTemp])
	}
	if vals[schema.ParamAirIndoorTemp].Decimal != 21.5 {
		t.Fatalf("indoor temp: %+v", vals[schema.ParamAirIndoorTemp])
	}
	if vals[schema.ParamCoolantTempSetpoint].Decimal != 4000 {
		t.Fatalf("setpoint must stay unsigned: %+v", vals[schema.ParamCoolantTempSetpoint])
	}
}

func TestDecodeEnumsAndSwitches(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, map[string]uint64{
		schema.ParamHeatingMode:          5,
		schema.ParamHeaterStatus:         2,
		schema.ParamPowerSupplyState:     85,
		schema.ParamAirIndoorTempControl: 257,
		schema.ParamClockWeekday:         7,
		schema.ParamHeatingPower:         66,
		schema.ParamCmdCount:             200,
	})
	vals, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	cases := map[string]string{
		schema.ParamHeatingMode:          "remote",
		schema.ParamHeaterStatus:         "off_alarm_overheat",
		schema.ParamPowerSupplyState:     "on",
		schema.ParamAirIndoorTempControl: "on",
		schema.ParamClockWeekday:         "sunday",
		schema.ParamHeatingPower:         "66",
		schema.ParamCmdCount:             "200",
		schema.ParamMsgPreamble:          "EZAP",
		schema.ParamStatPreamble:         "STAT",
	}
	for name, want := range cases {
		if got := vals[name].String(); got != want {
			t.Fatalf("%s: got %q want %q", name, got, want)
		}
	}
	if vals[schema.ParamHeatingMode].Int != 5 {
		t.Fatalf("enum code not kept: %+v", vals[schema.ParamHeatingMode])
	}

	f = deviceFrame(t, map[string]uint64{
		schema.ParamPowerSupplyState:     84,
		schema.ParamAirIndoorTempControl: 0,
	})
	vals, err = Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vals[schema.ParamPowerSupplyState].Text != "off" || vals[schema.ParamAirIndoorTempControl].Text != "off" {
		t.Fatalf("switches should be off: %+v", vals)
	}
}

func TestDecodeUnknownEnumCodeIsTypedError(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, map[string]uint64{schema.ParamHeaterStatus: 99})
	_, err := Decode(f)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Parameter != schema.ParamHeaterStatus {
		t.Fatalf("unexpected parameter: %s", de.Parameter)
	}
	var uce *schema.UnknownCodeError
	if !errors.As(err, &uce) || uce.Code != 99 {
		t.Fatalf("expected wrapped UnknownCodeError, got %v", err)
	}
	if !IsProtocolError(err) {
		t.Fatalf("expected protocol error classification")
	}
}

func TestDecodeRecoversBiasedBytesWithoutMutatingInput(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, map[string]uint64{schema.ParamCoolantTempMax: 900})
	before := f
	vals, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vals[schema.ParamCoolantTempMax].Decimal != 90 {
		t.Fatalf("coolant max: %+v", vals[schema.ParamCoolantTempMax])
	}
	if f != before {
		t.Fatalf("decode mutated its input")
	}
}

func TestDecodeBytesShortFrame(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeBytes(make([]byte, 100))
	if !errors.Is(err, frame.ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	if !IsProtocolError(err) {
		t.Fatalf("short frame must classify as protocol error")
	}
}

func TestEncodeSetHeatingModeEndToEnd(t *testing.T) {
	testlog.Start(t)
	f, err := Encode(schema.CmdSetHeatingMode, 41, Values{
		schema.ParamHeatingMode: StringValue("coolant_temp_constant"),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(f[0:4]) != "EZAP" {
		t.Fatalf("preamble: %q", f[0:4])
	}
	if f[68] != 20 {
		t.Fatalf("opcode: %d", f[68])
	}
	if f[67] != 42 {
		t.Fatalf("counter: %d", f[67])
	}
	if f[70] != 1 {
		t.Fatalf("heating mode: %d", f[70])
	}
	if f[ReservedByte] != 0 {
		t.Fatalf("reserved byte: %d", f[ReservedByte])
	}

	var want uint32
	for i := 1; i <= 123; i++ {
		want += uint32(f[i]) * uint32(i)
	}
	if got := frame.Stamped(f); got != want {
		t.Fatalf("checksum got %d want %d", got, want)
	}
}

func TestEncodeCounterWraps(t *testing.T) {
	testlog.Start(t)
	if NextCounter(255) != 0 {
		t.Fatalf("counter must wrap to 0")
	}
	if NextCounter(0) != 1 || NextCounter(254) != 255 {
		t.Fatalf("counter must increment")
	}
	f, err := Encode(schema.CmdSetAirIndoorTempControl, 255, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if f[67] != 0 {
		t.Fatalf("counter byte: %d", f[67])
	}
}

func TestEncodeMinMaxPairWithBias(t *testing.T) {
	testlog.Start(t)
	f, err := Encode(schema.CmdSetCoolantTempMinMax, 0, Values{
		schema.ParamCoolantTempMin: DecimalValue(5),
		schema.ParamCoolantTempMax: DecimalValue(90),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if f[68] != 23 {
		t.Fatalf("opcode: %d", f[68])
	}
	// 900 = 0x0384: low byte 0x84 travels as 0x04 with a marker.
	if f[76] != 50 || f[77] != 0 || f[78] != 0x04 || f[79] != 0x03 {
		t.Fatalf("payload bytes: % x", f[76:80])
	}
	if f[78+64] != 127 || f[76+64] != 0 {
		t.Fatalf("bias markers: %d %d", f[78+64], f[76+64])
	}
	recovered := f
	if err := frame.RecoverInbound(&recovered); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered[78] != 0x84 {
		t.Fatalf("recovery failed: %x", recovered[78])
	}
}

func TestEncodeSetpointsAsWholeDegrees(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		command string
		param   string
		value   Value
		offset  int
		want    byte
	}{
		{name: "coolant default", command: schema.CmdSetCoolantTempSetpoint, param: schema.ParamCoolantTempSetpoint, value: DecimalValue(60), offset: 69, want: 60},
		{name: "coolant top of range", command: schema.CmdSetCoolantTempSetpoint, param: schema.ParamCoolantTempSetpoint, value: DecimalValue(84), offset: 69, want: 84},
		{name: "coolant bottom of range", command: schema.CmdSetCoolantTempSetpoint, param: schema.ParamCoolantTempSetpoint, value: StringValue("1.0"), offset: 69, want: 1},
		{name: "indoor fraction truncated", command: schema.CmdSetAirIndoorTempSetpoint, param: schema.ParamAirIndoorTempSetpoint, value: StringValue("21.5"), offset: 80, want: 21},
		{name: "indoor top of range", command: schema.CmdSetAirIndoorTempSetpoint, param: schema.ParamAirIndoorTempSetpoint, value: DecimalValue(35), offset: 80, want: 35},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Encode(tc.command, 0, Values{tc.param: tc.value})
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			recovered := f
			if err := frame.RecoverInbound(&recovered); err != nil {
				t.Fatalf("recover: %v", err)
			}
			if recovered[tc.offset] != tc.want {
				t.Fatalf("setpoint byte %d: got %d want %d", tc.offset, recovered[tc.offset], tc.want)
			}
			if f[tc.offset+64] != 0 {
				t.Fatalf("values below 128 need no marker, got %d", f[tc.offset+64])
			}
		})
	}

	_, err := Encode(schema.CmdSetCoolantTempSetpoint, 0, Values{
		schema.ParamCoolantTempSetpoint: DecimalValue(300),
	})
	var ve *ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError for 300 in one byte, got %v", err)
	}
}

func TestDecodeRejectsMarkerOverflow(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, nil)
	// 72 already carries the high bit, so its marker at 136 cannot apply.
	f[72] = 0x81
	f[72+64] = 127
	_, err := Decode(f)
	if !errors.Is(err, frame.ErrMarkerOverflow) {
		t.Fatalf("expected ErrMarkerOverflow, got %v", err)
	}
	if !IsProtocolError(err) {
		t.Fatalf("marker overflow must classify as a protocol error")
	}
}

func TestEncodeRejections(t *testing.T) {
	testlog.Start(t)
	if _, err := Encode("set_sauna", 0, nil); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	for _, name := range []string{schema.CmdSetWifi, schema.CmdSetMail, schema.CmdResetToDefaults, schema.CmdUnimplemented32} {
		if _, err := Encode(name, 0, nil); !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("%s: expected ErrNotImplemented, got %v", name, err)
		}
	}
	if _, err := Encode(schema.CmdSetHeatingMode, 0, nil); !errors.Is(err, ErrMissingPayload) {
		t.Fatalf("expected ErrMissingPayload, got %v", err)
	}
	_, err := Encode(schema.CmdSetHeatingMode, 0, Values{schema.ParamHeatingMode: StringValue("sauna")})
	var ve *ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError, got %v", err)
	}
	_, err = Encode(schema.CmdSetCoolantTempMinMax, 0, Values{
		schema.ParamCoolantTempMin: DecimalValue(-5),
		schema.ParamCoolantTempMax: DecimalValue(90),
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError for negative bound, got %v", err)
	}
}

func TestSymmetricFieldsRoundTrip(t *testing.T) {
	testlog.Start(t)
	var src frame.Frame
	copy(src[0:4], "EZAP")
	copy(src[35:51], "HOME_NETWORK")
	src[51] = 12
	copy(src[52:60], "abcdefgh")

	reg := schema.Default()
	var dst frame.Frame
	for _, d := range reg.Parameters() {
		if d.Read == nil || d.Write == nil || *d.Read != *d.Write {
			continue
		}
		v, err := ReadField(&src, d)
		if err != nil {
			t.Fatalf("read %s: %v", d.Name, err)
		}
		if err := WriteField(&dst, d, v); err != nil {
			t.Fatalf("write %s: %v", d.Name, err)
		}
	}
	if src != dst {
		t.Fatalf("symmetric round trip mismatch:\nsrc=%x\ndst=%x", src[:64], dst[:64])
	}
}

func TestScaledFieldsRoundTripThroughWritePlacement(t *testing.T) {
	testlog.Start(t)
	f := deviceFrame(t, map[string]uint64{
		schema.ParamAirIndoorTempMin: 55,
		schema.ParamAirIndoorTempMax: 305,
	})
	vals, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := Encode(schema.CmdSetAirIndoorTempMinMax, 0, vals)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := frame.RecoverInbound(&out); err != nil {
		t.Fatalf("recover: %v", err)
	}
	minD, _ := schema.Default().Lookup(schema.ParamAirIndoorTempMin)
	maxD, _ := schema.Default().Lookup(schema.ParamAirIndoorTempMax)
	if got := readUint(out[minD.Write.Start:minD.Write.Finish+1], minD.Write.Order); got != 55 {
		t.Fatalf("min wire value: %d", got)
	}
	if got := readUint(out[maxD.Write.Start:maxD.Write.Finish+1], maxD.Write.Order); got != 305 {
		t.Fatalf("max wire value: %d", got)
	}
}

func TestWriteFieldRejectsReadOnly(t *testing.T) {
	testlog.Start(t)
	d, _ := schema.Default().Lookup(schema.ParamHeaterStatus)
	var f frame.Frame
	if err := WriteField(&f, d, IntValue(1)); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
}

func TestValueFormatting(t *testing.T) {
	testlog.Start(t)
	if DecimalValue(21.5).String() != "21.5" || IntValue(7).String() != "7" || EnumValue("on", 85).String() != "on" {
		t.Fatalf("unexpected formatting")
	}
	b, err := DecimalValue(-3.6).MarshalJSON()
	if err != nil || string(b) != "-3.6" {
		t.Fatalf("json: %s %v", b, err)
	}
}
