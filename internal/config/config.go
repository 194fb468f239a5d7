// Package config loads the daemon configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/savitr/internal/heater"
	"github.com/danmuck/savitr/internal/logging"
	"github.com/danmuck/savitr/internal/protocol/session"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	DeviceName         string
	Host               string
	Port               int
	Timeout            time.Duration
	UpdateInterval     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	DrainWindow        time.Duration
	MaxConnectAttempts int
	HTTP               HTTPConfig
	Log                LogConfig
}

type HTTPConfig struct {
	Listen      string
	Token       string
	CorsOrigins []string
}

type LogConfig struct {
	Level      string
	JSON       bool
	NoColor    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Default mirrors the vendor module defaults: port 8888, a 10 second
// timeout and a 10 second poll.
func Default() Config {
	return Config{
		DeviceName:     "savitr",
		Host:           "192.168.1.50",
		Port:           8888,
		Timeout:        10 * time.Second,
		UpdateInterval: 10 * time.Second,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		DrainWindow:    50 * time.Millisecond,
		HTTP: HTTPConfig{
			Listen:      "127.0.0.1:8090",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path and overlays every defined key onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load savitr config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("device_name") {
		cfg.DeviceName = strings.TrimSpace(raw.DeviceName)
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("timeout") {
		cfg.Timeout = time.Duration(raw.Timeout) * time.Second
	}
	if meta.IsDefined("update_interval") {
		cfg.UpdateInterval = time.Duration(raw.UpdateInterval) * time.Second
	}
	if meta.IsDefined("read_timeout") {
		if cfg.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("drain_window") {
		if cfg.DrainWindow, err = parseDuration("drain_window", raw.DrainWindow); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.MaxConnectAttempts
	}

	if meta.IsDefined("http", "listen") {
		cfg.HTTP.Listen = strings.TrimSpace(raw.HTTP.Listen)
	}
	if meta.IsDefined("http", "token") {
		cfg.HTTP.Token = strings.TrimSpace(raw.HTTP.Token)
	}
	if meta.IsDefined("http", "cors_origins") {
		cfg.HTTP.CorsOrigins = normalizeList(raw.HTTP.CorsOrigins)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.Log.MaxAgeDays = raw.Log.MaxAgeDays
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon must not start with. A poll
// interval under five seconds is one of them.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.DeviceName) == "" {
		return fmt.Errorf("%w: device_name is required", ErrInvalid)
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalid)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, cfg.Port)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if err := cfg.ServiceConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.DrainWindow < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalid)
	}
	if cfg.MaxConnectAttempts < 0 {
		return fmt.Errorf("%w: max_connect_attempts must be >= 0", ErrInvalid)
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok && strings.TrimSpace(cfg.Log.Level) != "" {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, cfg.Log.Level)
	}
	return nil
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SessionConfig uses Timeout both for connecting and as the constant
// reconnect delay.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		Address:            c.Address(),
		ConnectTimeout:     c.Timeout,
		ProbeTimeout:       c.Timeout,
		ReadTimeout:        c.ReadTimeout,
		WriteTimeout:       c.WriteTimeout,
		DrainWindow:        c.DrainWindow,
		MaxConnectAttempts: c.MaxConnectAttempts,
		Reconnect: session.BackoffConfig{
			InitialDelay: c.Timeout,
			Multiplier:   1.0,
		},
	}
}

func (c Config) ServiceConfig() heater.ServiceConfig {
	return heater.ServiceConfig{
		Name:           c.DeviceName,
		UpdateInterval: c.UpdateInterval,
	}
}

// LoggingConfig starts from the runtime profile. Env overrides still win.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		cfg.Level = lvl
	}
	cfg.JSON = c.Log.JSON
	cfg.NoColor = c.Log.NoColor
	cfg.File = logging.FileConfig{
		Path:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
	logging.ApplyEnvOverrides(&cfg)
	return cfg
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", ErrInvalid, key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
