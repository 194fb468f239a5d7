package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "savitr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"device", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "savitr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"device", "method", "path", "status"},
	)
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "savitr",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Frames exchanged with the heater, by direction.",
		},
		[]string{"direction"},
	)
	drainedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "savitr",
			Subsystem: "session",
			Name:      "drained_bytes_total",
			Help:      "Queued bytes discarded between exchanges.",
		},
	)
	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "savitr",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Reconnect cycles, by trigger.",
		},
		[]string{"reason"},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "savitr",
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Frames that failed to decode.",
		},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "savitr",
			Subsystem: "heater",
			Name:      "commands_total",
			Help:      "Commands dispatched to the heater, by result.",
		},
		[]string{"command", "result"},
	)
	parameterValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "savitr",
			Subsystem: "heater",
			Name:      "parameter_value",
			Help:      "Last decoded numeric value of a heater parameter.",
		},
		[]string{"parameter"},
	)
	lastUpdate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "savitr",
			Subsystem: "heater",
			Name:      "last_update_timestamp_seconds",
			Help:      "Unix time of the last successful state refresh.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			framesTotal,
			drainedBytes,
			reconnects,
			decodeErrors,
			commands,
			parameterValue,
			lastUpdate,
		)
	})
}

func RecordHTTPRequest(device, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(device, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(device, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameRead() {
	RegisterMetrics()
	framesTotal.WithLabelValues("in").Inc()
}

func RecordFrameWritten() {
	RegisterMetrics()
	framesTotal.WithLabelValues("out").Inc()
}

func RecordDrained(n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	drainedBytes.Add(float64(n))
}

func RecordReconnect(reason string) {
	RegisterMetrics()
	reconnects.WithLabelValues(reason).Inc()
}

func RecordDecodeError() {
	RegisterMetrics()
	decodeErrors.Inc()
}

func RecordCommand(command string, err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	commands.WithLabelValues(command, result).Inc()
}

// RecordParameters publishes numeric parameters as gauges. Non-numeric
// values are skipped.
func RecordParameters(values map[string]float64, at time.Time) {
	RegisterMetrics()
	for name, v := range values {
		parameterValue.WithLabelValues(name).Set(v)
	}
	lastUpdate.Set(float64(at.Unix()))
}
