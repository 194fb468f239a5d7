package session

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/danmuck/savitr/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

// fakeHeater accepts connections and greets each one with a probe frame.
type fakeHeater struct {
	ln    net.Listener
	conns chan net.Conn
	greet bool
}

func newFakeHeater(t *testing.T, greet bool) *fakeHeater {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	h := &fakeHeater{ln: ln, conns: make(chan net.Conn, 8), greet: greet}
	go h.accept()
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case c := <-h.conns:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return h
}

func (h *fakeHeater) accept() {
	for {
		c, err := h.ln.Accept()
		if err != nil {
			return
		}
		if h.greet {
			probe := statusFrame(0, 0)
			_, _ = c.Write(probe[:])
		}
		h.conns <- c
	}
}

func (h *fakeHeater) addr() string {
	return h.ln.Addr().String()
}

func (h *fakeHeater) next(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-h.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("fake heater: no connection accepted")
		return nil
	}
}

// statusFrame is a minimal decodable device frame.
func statusFrame(count, mode byte) frame.Frame {
	var f frame.Frame
	copy(f[0:4], "EZAP")
	copy(f[60:64], "STAT")
	f[64] = count
	f[72] = mode
	f[90] = 1
	return f
}

func testConfig(addr string) Config {
	return Config{
		Address:        addr,
		ConnectTimeout: time.Second,
		ProbeTimeout:   500 * time.Millisecond,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		DrainWindow:    20 * time.Millisecond,
		Reconnect: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   1.0,
		},
	}
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaultConfigMatchesVendorModule(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	if cfg.ConnectTimeout != 10*time.Second || cfg.Reconnect.InitialDelay != 10*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
	if cfg.Reconnect.Multiplier != 1.0 || cfg.Reconnect.Jitter || cfg.MaxConnectAttempts != 0 {
		t.Fatalf("reconnect must be a constant unbounded delay: %+v", cfg.Reconnect)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	testlog.Start(t)
	cfg := Config{Address: " 10.0.0.5:8888 ", ConnectTimeout: 3 * time.Second}.WithDefaults()
	if cfg.Address != "10.0.0.5:8888" {
		t.Fatalf("address not trimmed: %q", cfg.Address)
	}
	if cfg.ProbeTimeout != 3*time.Second || cfg.Reconnect.InitialDelay != 3*time.Second {
		t.Fatalf("probe and reconnect delay must follow connect timeout: %+v", cfg)
	}
	if cfg.ReadTimeout != 0 || cfg.WriteTimeout != 0 {
		t.Fatalf("read/write deadlines must stay disabled when unset: %+v", cfg)
	}
	if cfg.DrainWindow != DefaultConfig().DrainWindow {
		t.Fatalf("drain window: %v", cfg.DrainWindow)
	}
}

func TestNextBackoffDelay(t *testing.T) {
	testlog.Start(t)
	constant := BackoffConfig{InitialDelay: 10 * time.Second, Multiplier: 1.0}
	for attempt := 1; attempt <= 5; attempt++ {
		if got := NextBackoffDelay(constant, attempt, nil); got != 10*time.Second {
			t.Fatalf("attempt %d: expected constant delay, got %s", attempt, got)
		}
	}

	growing := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2.0, MaxDelay: time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second},
	}
	for _, tc := range cases {
		if got := NextBackoffDelay(growing, tc.attempt, nil); got != tc.want {
			t.Fatalf("attempt %d: got %s want %s", tc.attempt, got, tc.want)
		}
	}

	jitter := BackoffConfig{InitialDelay: time.Second, Multiplier: 2.0, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		got := NextBackoffDelay(jitter, 2, rng)
		if got < time.Second || got > 3*time.Second {
			t.Fatalf("jittered delay out of range: %s", got)
		}
	}
}

func TestConnectProbesAndAssignsConnID(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))

	if s.State() != StateDisconnected {
		t.Fatalf("initial state: %s", s.State())
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = h.next(t)
	if s.State() != StateConnected {
		t.Fatalf("state after connect: %s", s.State())
	}
	if s.ConnID() == "" {
		t.Fatalf("expected connection id")
	}
	log.Debug().Msgf("session.test connected conn=%s", s.ConnID())
}

func TestConnectEmptyProbeIsBrokenLink(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	cfg := testConfig(ln.Addr().String())
	cfg.MaxConnectAttempts = 3
	s := newTestSession(t, cfg)

	err = s.Connect(context.Background())
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
	if !errors.Is(err, ErrBrokenLink) {
		t.Fatalf("expected broken link cause, got %v", err)
	}
	if !IsConnectionError(err) {
		t.Fatalf("expected connection error classification")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state: %s", s.State())
	}
}

func TestConnectHonorsContextCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	cfg := testConfig(addr)
	cfg.Reconnect.InitialDelay = time.Hour
	s := newTestSession(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReadDecodesAndDrainsQueuedDuplicate(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)

	first := statusFrame(41, 1)
	stale := statusFrame(41, 5)
	burst := append(first[:], stale[:]...)
	if _, err := dev.Write(burst); err != nil {
		t.Fatalf("device write: %v", err)
	}

	values, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := values[schema.ParamHeatingMode].Text; got != "coolant_temp_constant" {
		t.Fatalf("heating_mode: got %q", got)
	}
	if s.LastCount() != 41 {
		t.Fatalf("last count: got %d", s.LastCount())
	}

	fresh := statusFrame(42, 2)
	if _, err := dev.Write(fresh[:]); err != nil {
		t.Fatalf("device write: %v", err)
	}
	values, err = s.Read(ctx)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if got := values[schema.ParamHeatingMode].Text; got != "coolant_temp_daily_cycle" {
		t.Fatalf("duplicate frame was not drained, heating_mode=%q", got)
	}
	if snap := s.Snapshot(); snap[schema.ParamCmdCount].Int != 42 {
		t.Fatalf("snapshot not replaced: %v", snap[schema.ParamCmdCount])
	}
}

func TestCommandWritesEncodedFrameAndAdvancesCounter(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)

	status := statusFrame(255, 0)
	if _, err := dev.Write(status[:]); err != nil {
		t.Fatalf("device write: %v", err)
	}
	if _, err := s.Read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}

	payload := protocol.Values{schema.ParamHeatingMode: protocol.StringValue("remote")}
	sent, err := s.Command(ctx, schema.CmdSetHeatingMode, payload)
	if err != nil {
		t.Fatalf("command: %v", err)
	}

	_ = dev.SetReadDeadline(time.Now().Add(time.Second))
	got, err := frame.ReadFrame(dev)
	if err != nil {
		t.Fatalf("device read: %v", err)
	}
	if got != sent {
		t.Fatalf("device received a different frame than encoded")
	}
	if got[67] != 0 {
		t.Fatalf("counter must wrap 255 to 0, got %d", got[67])
	}
	if got[68] != 20 || got[70] != 5 {
		t.Fatalf("opcode/payload: opcode=%d mode=%d", got[68], got[70])
	}
	if s.LastCount() != 0 {
		t.Fatalf("last count after command: %d", s.LastCount())
	}
}

func TestCommandEncodeErrorSendsNothing(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)

	_, err := s.Command(ctx, schema.CmdResetToDefaults, nil)
	if !errors.Is(err, protocol.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	_ = dev.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 1)
	if n, _ := dev.Read(buf); n != 0 {
		t.Fatalf("no bytes may reach the device for a rejected command")
	}
	if s.LastCount() != 0 {
		t.Fatalf("counter must not advance on rejected command")
	}
}

func TestExchangeReadsFreshStateAfterCommand(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)

	go func() {
		_ = dev.SetReadDeadline(time.Now().Add(2 * time.Second))
		cmd, err := frame.ReadFrame(dev)
		if err != nil {
			return
		}
		time.Sleep(60 * time.Millisecond)
		reply := statusFrame(cmd[67], cmd[70])
		_, _ = dev.Write(reply[:])
	}()

	payload := protocol.Values{schema.ParamHeatingMode: protocol.StringValue("coolant_temp_weekly_cycle")}
	values, err := s.Exchange(ctx, schema.CmdSetHeatingMode, payload)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if got := values[schema.ParamHeatingMode].Text; got != "coolant_temp_weekly_cycle" {
		t.Fatalf("fresh state not read back: %q", got)
	}
	if values[schema.ParamCmdCount].Int != 1 {
		t.Fatalf("cmd_count echo: %v", values[schema.ParamCmdCount])
	}
}

func TestReadFailureReconnects(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)
	firstID := s.ConnID()

	half := statusFrame(1, 1)
	_, _ = dev.Write(half[:100])
	_ = dev.Close()

	_, err := s.Read(ctx)
	var ce *ConnError
	if !errors.As(err, &ce) || ce.Op != "read" {
		t.Fatalf("expected read ConnError, got %v", err)
	}
	if !errors.Is(err, frame.ErrShortFrame) && !errors.Is(err, frame.ErrPeerClosed) {
		t.Fatalf("unexpected cause: %v", err)
	}

	_ = h.next(t)
	if s.State() != StateConnected {
		t.Fatalf("expected reconnected session, state=%s", s.State())
	}
	if s.ConnID() == firstID || s.ConnID() == "" {
		t.Fatalf("expected a new connection id")
	}
}

func TestDecodeErrorKeepsLinkAndSnapshot(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)
	id := s.ConnID()

	good := statusFrame(7, 3)
	_, _ = dev.Write(good[:])
	if _, err := s.Read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}

	bad := statusFrame(8, 3)
	bad[75] = 99
	_, _ = dev.Write(bad[:])
	_, err := s.Read(ctx)
	var unknown *schema.UnknownCodeError
	if !errors.As(err, &unknown) || unknown.Code != 99 {
		t.Fatalf("expected unknown heater status code, got %v", err)
	}
	if !protocol.IsProtocolError(err) || IsConnectionError(err) {
		t.Fatalf("decode failure misclassified: %v", err)
	}
	if s.ConnID() != id || s.State() != StateConnected {
		t.Fatalf("decode failure must not cycle the link")
	}
	if snap := s.Snapshot(); snap[schema.ParamCmdCount].Int != 7 {
		t.Fatalf("snapshot must keep last good state, got %v", snap[schema.ParamCmdCount])
	}
}

func TestCloseStopsFurtherExchanges(t *testing.T) {
	testlog.Start(t)
	h := newFakeHeater(t, true)
	s := newTestSession(t, testConfig(h.addr()))
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	dev := h.next(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Read(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	_ = dev.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := dev.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("peer should observe graceful shutdown, got %v", err)
	}
}

func TestStateCacheReplaceIsolatesCallers(t *testing.T) {
	testlog.Start(t)
	c := NewStateCache()
	in := protocol.Values{schema.ParamHeatingPower: protocol.IntValue(66)}
	at := time.Unix(1700000000, 0)
	c.Replace(in, at)
	in[schema.ParamHeatingPower] = protocol.IntValue(100)

	v, ok := c.Get(schema.ParamHeatingPower)
	if !ok || v.Int != 66 {
		t.Fatalf("cache aliased caller map: %v", v)
	}
	snap := c.Snapshot()
	snap[schema.ParamHeatingPower] = protocol.IntValue(33)
	if v, _ := c.Get(schema.ParamHeatingPower); v.Int != 66 {
		t.Fatalf("snapshot aliased cache")
	}
	if !c.UpdatedAt().Equal(at) || c.Len() != 1 {
		t.Fatalf("metadata: %v %d", c.UpdatedAt(), c.Len())
	}
}
