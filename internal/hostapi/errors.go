package hostapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/danmuck/savitr/internal/heater"
	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/session"
	"github.com/gin-gonic/gin"
)

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	var ve *heater.ValidationError
	var pe *protocol.ValueError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe),
		errors.Is(err, protocol.ErrValueKind),
		errors.Is(err, protocol.ErrMissingPayload):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrUnknownCommand), errors.Is(err, protocol.ErrUnknownParameter):
		return http.StatusNotFound
	case errors.Is(err, heater.ErrMissingState):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, heater.ErrNotRunning), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case session.IsConnectionError(err), protocol.IsProtocolError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}
