package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/savitr/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRequestMiddlewareLabelsDevice(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	RegisterMetrics()

	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop(), "boiler-room"))
	r.Use(RequestMetricsMiddleware("boiler-room"))
	r.PUT("/parameters/:name", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("boiler-room", "PUT", "/parameters/:name", "204"))
	for _, name := range []string{"heating_power", "heating_mode"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/parameters/"+name, nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("status: %d", w.Code)
		}
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("boiler-room", "PUT", "/parameters/:name", "204"))
	if after-before != 2 {
		t.Fatalf("expected both requests on one templated series, got %v", after-before)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("boiler-room", "GET", "unmatched", "404")); got < 1 {
		t.Fatalf("unmatched route not recorded: %v", got)
	}
}
