package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/testutil/testlog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	flagJSON = false
	return out.String(), err
}

func TestEncodeThenDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "encode", "set_heating_mode", "heating_mode=remote", "--last-count", "41")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	hex := strings.TrimSpace(out)
	f, err := frame.ParseHex(hex)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f[67] != 42 || f[68] != 20 || f[70] != 5 {
		t.Fatalf("unexpected frame bytes: count=%d opcode=%d mode=%d", f[67], f[68], f[70])
	}
	if frame.Stamped(f) == 0 {
		t.Fatalf("checksum not stamped")
	}
}

func TestEncodeRejectsStubCommand(t *testing.T) {
	testlog.Start(t)
	_, err := run(t, "encode", "reset_to_defaults")
	if err == nil || !strings.Contains(err.Error(), protocol.ErrNotImplemented.Error()) {
		t.Fatalf("expected not implemented, got %v", err)
	}
	encodeCounter = 0
}

func TestDecodeCommandPrintsValues(t *testing.T) {
	testlog.Start(t)
	var f frame.Frame
	copy(f[0:4], "EZAP")
	f[72] = 1
	f[90] = 3
	out, err := run(t, "decode", f.Hex())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, "coolant_temp_constant") || !strings.Contains(out, "wednesday") {
		t.Fatalf("decode output missing values:\n%s", out)
	}
}

func TestSchemaJSON(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "schema", "--json")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(out, "set_coolant_temp_setpoint") {
		t.Fatalf("schema output missing commands")
	}
}
