package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/savitr/internal/config"
	"github.com/danmuck/savitr/internal/heater"
	"github.com/danmuck/savitr/internal/hostapi"
	"github.com/danmuck/savitr/internal/logging"
	"github.com/danmuck/savitr/internal/observability"
	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/savitrd/config.toml", "path to savitrd config")
	flag.Parse()

	logging.ConfigureRuntime()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load savitr config")
	}
	logger := observability.InitLogger("savitrd", cfg.LoggingConfig())
	observability.RegisterMetrics()
	log.Info().Str("path", *configPath).Str("device", cfg.DeviceName).Str("addr", cfg.Address()).Msg("loaded savitr config")

	codec := protocol.DefaultCodec()
	sess, err := session.New(cfg.SessionConfig(), codec)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session config")
	}
	svc, err := heater.NewService(cfg.ServiceConfig(), sess, heater.NewDispatcher(codec.Registry()))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid service config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		gin.SetMode(gin.ReleaseMode)
		api := hostapi.New(hostapi.Config{
			Name:        cfg.DeviceName,
			Token:       cfg.HTTP.Token,
			CorsOrigins: cfg.HTTP.CorsOrigins,
		}, svc, codec.Registry(), logger)
		go func() { apiErr <- api.Run(ctx, cfg.HTTP.Listen) }()
	}

	svcErr := make(chan error, 1)
	go func() { svcErr <- svc.Run(ctx) }()

	select {
	case err := <-apiErr:
		if err != nil {
			log.Error().Err(err).Msg("host api stopped")
		}
		stop()
		<-svcErr
	case <-svcErr:
	}
	log.Info().Str("device", cfg.DeviceName).Msg("savitrd stopped")
}
