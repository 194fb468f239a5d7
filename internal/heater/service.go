package heater

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/savitr/internal/observability"
	"github.com/danmuck/savitr/internal/protocol"
	"github.com/rs/zerolog/log"
)

// MinUpdateInterval is the shortest poll period the module tolerates.
const MinUpdateInterval = 5 * time.Second

var (
	ErrUpdateInterval = errors.New("heater: update interval below minimum")
	ErrNotRunning     = errors.New("heater: service not running")
)

// Device is the link the service drives. *session.Session satisfies it.
type Device interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (protocol.Values, error)
	Exchange(ctx context.Context, command string, payload protocol.Values) (protocol.Values, error)
	Snapshot() protocol.Values
	Close() error
}

type ServiceConfig struct {
	Name           string
	UpdateInterval time.Duration
}

func (c ServiceConfig) Validate() error {
	if c.UpdateInterval < MinUpdateInterval {
		return fmt.Errorf("%w: %s < %s", ErrUpdateInterval, c.UpdateInterval, MinUpdateInterval)
	}
	return nil
}

type job struct {
	run   func(ctx context.Context) (protocol.Values, error)
	ctx   context.Context
	reply chan result
}

type result struct {
	values protocol.Values
	err    error
}

// Service is the single execution path to the heater. The poll timer and
// host changes both enter through Run's loop, so exchanges never overlap.
type Service struct {
	cfg        ServiceConfig
	dev        Device
	dispatcher *Dispatcher
	jobs       chan job
	ready      chan struct{}
	done       chan struct{}
}

func NewService(cfg ServiceConfig, dev Device, dispatcher *Dispatcher) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, errors.New("heater: device required")
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher(nil)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "savitr"
	}
	return &Service{
		cfg:        cfg,
		dev:        dev,
		dispatcher: dispatcher,
		jobs:       make(chan job),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

func (s *Service) Name() string {
	return s.cfg.Name
}

// Ready is closed once Run accepts work.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Run connects, polls immediately and then every UpdateInterval, and
// serves queued jobs until ctx ends. It closes the device on return.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.dev.Close()

	log.Info().Msgf("heater.Run name=%s interval=%s", s.cfg.Name, s.cfg.UpdateInterval)
	if err := s.dev.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Msgf("heater.Run connect err=%v", err)
	}
	close(s.ready)

	s.poll(ctx)
	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("heater.Run name=%s stopped", s.cfg.Name)
			return ctx.Err()
		case <-ticker.C:
			s.poll(ctx)
		case j := <-s.jobs:
			values, err := j.run(j.ctx)
			j.reply <- result{values: values, err: err}
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	values, err := s.dev.Read(ctx)
	if err != nil {
		log.Error().Msgf("heater.poll name=%s err=%v", s.cfg.Name, err)
		return
	}
	publish(values)
}

// ApplyExternalChange sets parameter to value on the device and returns the
// state read back right after the command.
func (s *Service) ApplyExternalChange(ctx context.Context, parameter, value string) (protocol.Values, error) {
	return s.submit(ctx, func(ctx context.Context) (protocol.Values, error) {
		req, err := s.dispatcher.Resolve(parameter, value, s.dev.Snapshot())
		if err != nil {
			log.Warn().Msgf("heater.ApplyExternalChange parameter=%s value=%q err=%v", parameter, value, err)
			return nil, err
		}
		return s.exchange(ctx, req)
	})
}

// Execute runs a named command with a raw value, bypassing parameter
// routing. Used by operator tooling.
func (s *Service) Execute(ctx context.Context, command, value string) (protocol.Values, error) {
	return s.submit(ctx, func(ctx context.Context) (protocol.Values, error) {
		req, err := s.dispatcher.Command(command, value, s.dev.Snapshot())
		if err != nil {
			return nil, err
		}
		return s.exchange(ctx, req)
	})
}

// Refresh forces an immediate read outside the poll schedule.
func (s *Service) Refresh(ctx context.Context) (protocol.Values, error) {
	return s.submit(ctx, func(ctx context.Context) (protocol.Values, error) {
		values, err := s.dev.Read(ctx)
		if err != nil {
			return nil, err
		}
		publish(values)
		return values, nil
	})
}

func (s *Service) Snapshot() protocol.Values {
	return s.dev.Snapshot()
}

func (s *Service) exchange(ctx context.Context, req Request) (protocol.Values, error) {
	values, err := s.dev.Exchange(ctx, req.Command, req.Payload)
	observability.RecordCommand(req.Command, err)
	if err != nil {
		log.Error().Msgf("heater.exchange command=%s err=%v", req.Command, err)
		return nil, err
	}
	log.Info().Msgf("heater.exchange command=%s ok", req.Command)
	publish(values)
	return values, nil
}

func (s *Service) submit(ctx context.Context, run func(context.Context) (protocol.Values, error)) (protocol.Values, error) {
	select {
	case <-s.ready:
	default:
		return nil, ErrNotRunning
	}
	j := job{run: run, ctx: ctx, reply: make(chan result, 1)}
	select {
	case s.jobs <- j:
	case <-s.done:
		return nil, ErrNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-j.reply:
		return r.values, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// publish exports numeric and enum values as gauges.
func publish(values protocol.Values) {
	numeric := make(map[string]float64, len(values))
	for name, v := range values {
		switch v.Kind {
		case protocol.KindEnum:
			numeric[name] = float64(v.Int)
		default:
			if f, ok := v.Float(); ok {
				numeric[name] = f
			}
		}
	}
	observability.RecordParameters(numeric, time.Now())
}
