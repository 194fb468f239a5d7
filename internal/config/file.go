package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk shape shared by Load and the template writer.
type fileConfig struct {
	DeviceName         string   `toml:"device_name" comment:"Name used in logs and metrics."`
	Host               string   `toml:"host" comment:"Heater WiFi module address."`
	Port               int      `toml:"port"`
	Timeout            int      `toml:"timeout" comment:"Seconds. Connect timeout and delay before each reconnect."`
	UpdateInterval     int      `toml:"update_interval" comment:"Seconds between polls. Must be at least 5."`
	ReadTimeout        string   `toml:"read_timeout" comment:"Socket deadlines. 0s disables."`
	WriteTimeout       string   `toml:"write_timeout"`
	DrainWindow        string   `toml:"drain_window"`
	MaxConnectAttempts int      `toml:"max_connect_attempts" comment:"0 keeps reconnecting forever."`
	HTTP               fileHTTP `toml:"http"`
	Log                fileLog  `toml:"log"`
}

type fileHTTP struct {
	Listen      string   `toml:"listen"`
	Token       string   `toml:"token" comment:"Bearer token for the host API. Empty disables auth."`
	CorsOrigins []string `toml:"cors_origins"`
}

type fileLog struct {
	Level      string `toml:"level"`
	JSON       bool   `toml:"json"`
	NoColor    bool   `toml:"no_color"`
	File       string `toml:"file" comment:"Optional rotating log file."`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		DeviceName:         cfg.DeviceName,
		Host:               cfg.Host,
		Port:               cfg.Port,
		Timeout:            int(cfg.Timeout.Seconds()),
		UpdateInterval:     int(cfg.UpdateInterval.Seconds()),
		ReadTimeout:        cfg.ReadTimeout.String(),
		WriteTimeout:       cfg.WriteTimeout.String(),
		DrainWindow:        cfg.DrainWindow.String(),
		MaxConnectAttempts: cfg.MaxConnectAttempts,
		HTTP: fileHTTP{
			Listen:      cfg.HTTP.Listen,
			Token:       cfg.HTTP.Token,
			CorsOrigins: cfg.HTTP.CorsOrigins,
		},
		Log: fileLog{
			Level:      cfg.Log.Level,
			JSON:       cfg.Log.JSON,
			NoColor:    cfg.Log.NoColor,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		},
	}
}

// Render encodes cfg in the on-disk format.
func Render(cfg Config) ([]byte, error) {
	out, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return nil, fmt.Errorf("render savitr config: %w", err)
	}
	return out, nil
}

// Template is the default configuration rendered as TOML.
func Template() (string, error) {
	out, err := Render(Default())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
