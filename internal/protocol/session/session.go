package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/savitr/internal/observability"
	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// drainLimit bounds one drain pass so a chatty peer cannot pin the caller.
const drainLimit = 64

var (
	ErrBrokenLink        = errors.New("session: broken link")
	ErrClosed            = errors.New("session: closed")
	ErrAttemptsExhausted = errors.New("session: connect attempts exhausted")
)

// State is the link state. Reading and Writing always return to Connected.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReading
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReading:
		return "reading"
	case StateWriting:
		return "writing"
	default:
		return "unknown"
	}
}

// ConnError reports a transport failure. The link has already been cycled
// by the time the caller sees it.
type ConnError struct {
	Op  string
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

func IsConnectionError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce) ||
		errors.Is(err, ErrBrokenLink) ||
		errors.Is(err, ErrAttemptsExhausted)
}

// Dialer opens the TCP link. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Session is the single owner of the heater connection. Every exchange
// holds mu, so frames never interleave.
type Session struct {
	cfg    Config
	codec  *protocol.Codec
	dialer Dialer
	rng    *rand.Rand
	cache  *StateCache
	state  atomic.Int32

	mu        sync.Mutex
	conn      net.Conn
	connID    string
	lastCount uint8
	closed    bool
}

func New(cfg Config, codec *protocol.Codec) (*Session, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		codec = protocol.DefaultCodec()
	}
	return &Session{
		cfg:    cfg,
		codec:  codec,
		dialer: &net.Dialer{},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  NewStateCache(),
	}, nil
}

// SetDialer replaces the dialer used for subsequent connects.
func (s *Session) SetDialer(d Dialer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialer = d
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) Codec() *protocol.Codec {
	return s.codec
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Cache() *StateCache {
	return s.cache
}

func (s *Session) Snapshot() protocol.Values {
	return s.cache.Snapshot()
}

// ConnID identifies the current link; empty while disconnected.
func (s *Session) ConnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connID
}

func (s *Session) LastCount() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCount
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Connect dials and probes until a live link is up, ctx ends, or
// MaxConnectAttempts is reached.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.conn != nil {
		return nil
	}
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := s.dialLocked(ctx)
		if err == nil {
			return nil
		}
		log.Error().Msgf("session.Connect addr=%s attempt=%d err=%v", s.cfg.Address, attempt, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if s.cfg.MaxConnectAttempts > 0 && attempt >= s.cfg.MaxConnectAttempts {
			return &ConnError{Op: "connect", Err: fmt.Errorf("%w after %d: %w", ErrAttemptsExhausted, attempt, err)}
		}
		if err := sleepCtx(ctx, NextBackoffDelay(s.cfg.Reconnect, attempt, s.rng)); err != nil {
			return err
		}
	}
}

func (s *Session) dialLocked(ctx context.Context) error {
	s.setState(StateConnecting)
	dctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	conn, err := s.dialer.DialContext(dctx, "tcp", s.cfg.Address)
	cancel()
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}
	if err := s.probe(conn); err != nil {
		_ = conn.Close()
		s.setState(StateDisconnected)
		return err
	}
	s.conn = conn
	s.connID = uuid.NewString()
	s.setState(StateConnected)
	n, err := s.drainLocked()
	if err != nil {
		s.closeLocked()
		return fmt.Errorf("drain after probe: %w", err)
	}
	log.Info().Msgf("session.Connect addr=%s conn=%s drained=%d", s.cfg.Address, s.connID, n)
	return nil
}

// probe performs one small receive. Nothing received means the module
// accepted the socket but is not talking.
func (s *Session) probe(conn net.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ProbeTimeout))
	defer conn.SetReadDeadline(time.Time{})
	buf := make([]byte, frame.Size)
	n, err := conn.Read(buf)
	if n > 0 {
		log.Trace().Msgf("session.probe bytes=%d", n)
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return ErrBrokenLink
	}
	return fmt.Errorf("%w: %w", ErrBrokenLink, err)
}

// Reconnect closes the link, waits the reconnect delay, and connects again.
func (s *Session) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.reconnectLocked(ctx, "manual")
}

func (s *Session) reconnectLocked(ctx context.Context, reason string) error {
	observability.RecordReconnect(reason)
	log.Warn().Msgf("session.Reconnect reason=%s conn=%s delay=%s", reason, s.connID, s.cfg.Reconnect.InitialDelay)
	s.closeLocked()
	if err := sleepCtx(ctx, NextBackoffDelay(s.cfg.Reconnect, 1, s.rng)); err != nil {
		return err
	}
	return s.connectLocked(ctx)
}

// Read receives one frame, drains the socket, and decodes. On success the
// cache is replaced and the command counter follows the device. A decode
// failure leaves the link and the cache untouched.
func (s *Session) Read(ctx context.Context) (protocol.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(ctx)
}

func (s *Session) readLocked(ctx context.Context) (protocol.Values, error) {
	if err := s.ensureLocked(ctx); err != nil {
		return nil, err
	}
	s.setState(StateReading)
	f, err := s.receiveLocked(ctx)
	if err != nil {
		return nil, s.failLocked(ctx, "read", err)
	}
	observability.RecordFrameRead()
	log.Trace().Msgf("session.Read conn=%s frame=%s", s.connID, f.Hex())

	if _, err := s.drainLocked(); err != nil {
		log.Warn().Msgf("session.Read drain conn=%s err=%v", s.connID, err)
		s.closeLocked()
	} else {
		s.setState(StateConnected)
	}

	values, err := s.codec.Decode(f)
	if err != nil {
		observability.RecordDecodeError()
		return nil, err
	}
	s.cache.Replace(values, time.Now())
	if v, ok := values[schema.ParamCmdCount]; ok {
		s.lastCount = uint8(v.Int)
	}
	log.Debug().Msgf("session.Read conn=%s parameters=%d count=%d", s.connID, len(values), s.lastCount)
	return values, nil
}

func (s *Session) receiveLocked(ctx context.Context) (frame.Frame, error) {
	conn := s.conn
	if d := s.cfg.ReadTimeout; d > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(d))
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()
	f, err := frame.ReadFrame(conn)
	if err != nil && ctx.Err() != nil {
		return f, fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return f, err
}

// Write transmits one prepared frame.
func (s *Session) Write(ctx context.Context, f frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, f)
}

func (s *Session) writeLocked(ctx context.Context, f frame.Frame) error {
	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	s.setState(StateWriting)
	conn := s.conn
	if d := s.cfg.WriteTimeout; d > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(d))
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now())
	})
	err := frame.WriteFrame(conn, f)
	stop()
	if err != nil {
		return s.failLocked(ctx, "write", err)
	}
	observability.RecordFrameWritten()
	log.Trace().Msgf("session.Write conn=%s frame=%s", s.connID, f.Hex())
	s.setState(StateConnected)
	return nil
}

// Command encodes command against the last observed counter, sends it and
// drains whatever the module queued meanwhile.
func (s *Session) Command(ctx context.Context, command string, payload protocol.Values) (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandLocked(ctx, command, payload)
}

func (s *Session) commandLocked(ctx context.Context, command string, payload protocol.Values) (frame.Frame, error) {
	f, err := s.codec.Encode(command, s.lastCount, payload)
	if err != nil {
		return frame.Frame{}, err
	}
	if err := s.writeLocked(ctx, f); err != nil {
		return frame.Frame{}, err
	}
	s.lastCount = protocol.NextCounter(s.lastCount)
	log.Info().Msgf("session.Command conn=%s command=%s count=%d", s.connID, command, s.lastCount)
	if _, err := s.drainLocked(); err != nil {
		log.Warn().Msgf("session.Command drain conn=%s err=%v", s.connID, err)
		s.closeLocked()
	}
	return f, nil
}

// Exchange sends a command and immediately reads back fresh state under a
// single hold of the link.
func (s *Session) Exchange(ctx context.Context, command string, payload protocol.Values) (protocol.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.commandLocked(ctx, command, payload); err != nil {
		return nil, err
	}
	return s.readLocked(ctx)
}

// Drain discards bytes already queued on the link.
func (s *Session) Drain() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, nil
	}
	return s.drainLocked()
}

func (s *Session) drainLocked() (int, error) {
	conn := s.conn
	if conn == nil {
		return 0, nil
	}
	defer conn.SetReadDeadline(time.Time{})
	buf := make([]byte, frame.Size)
	total := 0
	for i := 0; i < drainLimit; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.DrainWindow))
		n, err := conn.Read(buf)
		total += n
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			break
		}
		if errors.Is(err, io.EOF) {
			err = ErrBrokenLink
		}
		observability.RecordDrained(total)
		return total, err
	}
	observability.RecordDrained(total)
	if total > 0 {
		log.Debug().Msgf("session.Drain conn=%s bytes=%d", s.connID, total)
	}
	return total, nil
}

func (s *Session) ensureLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.conn != nil {
		return nil
	}
	return s.connectLocked(ctx)
}

// failLocked cycles the link after a transport failure. The failed
// operation is reported, never retried.
func (s *Session) failLocked(ctx context.Context, op string, err error) error {
	log.Error().Msgf("session.%s conn=%s err=%v", op, s.connID, err)
	ce := &ConnError{Op: op, Err: err}
	if ctx.Err() != nil {
		s.closeLocked()
		return ce
	}
	if rerr := s.reconnectLocked(ctx, op); rerr != nil {
		log.Error().Msgf("session.%s reconnect err=%v", op, rerr)
	}
	return ce
}

func (s *Session) closeLocked() {
	if s.conn == nil {
		s.setState(StateDisconnected)
		return
	}
	if tcp, ok := s.conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	_ = s.conn.Close()
	log.Debug().Msgf("session.Close conn=%s", s.connID)
	s.conn = nil
	s.connID = ""
	s.setState(StateDisconnected)
}

// Close shuts the link down for good.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeLocked()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
