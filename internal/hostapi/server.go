// Package hostapi exposes the heater service to an automation host over
// HTTP. It only calls Snapshot, Refresh and ApplyExternalChange.
package hostapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/savitr/internal/auth"
	"github.com/danmuck/savitr/internal/observability"
	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Host is the service boundary the API drives. *heater.Service satisfies it.
type Host interface {
	ApplyExternalChange(ctx context.Context, parameter, value string) (protocol.Values, error)
	Refresh(ctx context.Context) (protocol.Values, error)
	Snapshot() protocol.Values
}

type Config struct {
	Name           string
	Token          string
	CorsOrigins    []string
	RequestTimeout time.Duration
}

type Server struct {
	cfg       Config
	host      Host
	reg       *schema.Registry
	router    *gin.Engine
	startedAt time.Time
}

func New(cfg Config, host Host, reg *schema.Registry, logger zerolog.Logger) *Server {
	if reg == nil {
		reg = schema.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger, cfg.Name))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	if len(cfg.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "PUT", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{
		cfg:       cfg,
		host:      host,
		reg:       reg,
		router:    r,
		startedAt: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("hostapi.Run listen=%s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("hostapi shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/")
	if s.cfg.Token != "" {
		api.Use(requireToken(auth.StaticToken{Token: s.cfg.Token}))
	}
	api.GET("/state", s.state)
	api.GET("/parameters", s.parameters)
	api.PUT("/parameters/:name", s.setParameter)
	api.POST("/refresh", s.refresh)
}

func requireToken(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok || v.Validate(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startedAt).String(),
		"service":    s.cfg.Name,
		"version":    version,
		"parameters": len(s.host.Snapshot()),
	})
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"device": s.cfg.Name,
		"values": s.host.Snapshot(),
	})
}

type setRequest struct {
	Value any `json:"value"`
}

func (s *Server) setParameter(c *gin.Context) {
	name := c.Param("name")
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, ok := formatValue(req.Value)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a string, number or bool"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()
	values, err := s.host.ApplyExternalChange(ctx, name, value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"parameter": name,
		"value":     value,
		"values":    values,
	})
}

func (s *Server) refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()
	values, err := s.host.Refresh(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// formatValue renders a JSON scalar the way the dispatcher parses it.
func formatValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		if t {
			return schema.SwitchOn, true
		}
		return schema.SwitchOff, true
	default:
		return "", false
	}
}
