package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/danmuck/savitr/internal/config"
	"github.com/danmuck/savitr/internal/heater"
	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/session"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Connect once and print the decoded device state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *session.Session) error {
			values, err := s.Read(ctx)
			if err != nil {
				return err
			}
			return printValues(cmd.OutOrStdout(), values)
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <parameter> <value>",
	Short: "Change one parameter and print the state read back",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, func(d *heater.Dispatcher, snapshot protocol.Values) (heater.Request, error) {
			return d.Resolve(args[0], args[1], snapshot)
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <command> [value]",
	Short: "Run a named command, e.g. set_air_indoor_temp_control off",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		return dispatch(cmd, func(d *heater.Dispatcher, snapshot protocol.Values) (heater.Request, error) {
			return d.Command(args[0], value, snapshot)
		})
	},
}

// dispatch reads first so the counter and snapshot are current, then sends
// the resolved command and reads back.
func dispatch(cmd *cobra.Command, resolve func(*heater.Dispatcher, protocol.Values) (heater.Request, error)) error {
	return withSession(cmd.Context(), func(ctx context.Context, s *session.Session) error {
		snapshot, err := s.Read(ctx)
		if err != nil {
			return err
		}
		req, err := resolve(heater.NewDispatcher(s.Codec().Registry()), snapshot)
		if err != nil {
			return err
		}
		values, err := s.Exchange(ctx, req.Command, req.Payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "sent %s\n", req.Command)
		return printValues(cmd.OutOrStdout(), values)
	})
}

func withSession(parent context.Context, fn func(context.Context, *session.Session) error) error {
	cfg, err := deviceConfig()
	if err != nil {
		return err
	}
	sc := cfg.SessionConfig()
	sc.MaxConnectAttempts = 1
	s, err := session.New(sc, protocol.DefaultCodec())
	if err != nil {
		return err
	}
	defer s.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 3*cfg.Timeout+cfg.ReadTimeout)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

func deviceConfig() (config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagTimeout != 0 {
		cfg.Timeout = time.Duration(flagTimeout) * time.Second
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
