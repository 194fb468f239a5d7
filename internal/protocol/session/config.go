package session

import (
	"errors"
	"strings"
	"time"
)

var ErrAddressRequired = errors.New("session: device address required")

// BackoffConfig defines the delay between reconnect attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines transport/session reliability defaults.
type Config struct {
	Address            string
	ConnectTimeout     time.Duration
	ProbeTimeout       time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	DrainWindow        time.Duration
	MaxConnectAttempts int
	Reconnect          BackoffConfig
}

// DefaultConfig returns defaults matching the vendor module: a constant
// reconnect delay equal to the connect timeout and unbounded attempts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		ProbeTimeout:   10 * time.Second,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		DrainWindow:    50 * time.Millisecond,
		Reconnect: BackoffConfig{
			InitialDelay: 10 * time.Second,
			Multiplier:   1.0,
		},
	}
}

// WithDefaults fills zero durations from DefaultConfig. Read and write
// timeouts stay zero when unset, which disables those deadlines.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	c.Address = strings.TrimSpace(c.Address)
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = c.ConnectTimeout
	}
	if c.DrainWindow <= 0 {
		c.DrainWindow = def.DrainWindow
	}
	if c.Reconnect.InitialDelay <= 0 {
		c.Reconnect.InitialDelay = c.ConnectTimeout
	}
	if c.Reconnect.Multiplier <= 0 {
		c.Reconnect.Multiplier = 1.0
	}
	if c.MaxConnectAttempts < 0 {
		c.MaxConnectAttempts = 0
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrAddressRequired
	}
	return nil
}
