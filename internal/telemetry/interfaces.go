package telemetry

import (
	"log"

	"kosmos-worm/server/logging"
)

// Logger is the printf-style sink used for operator-facing lines.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function to Logger. A nil LoggerFunc discards.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

// WrapLogger adapts a standard library logger. A nil logger discards.
func WrapLogger(logger *log.Logger) Logger {
	if logger == nil {
		return LoggerFunc(nil)
	}
	return LoggerFunc(logger.Printf)
}

// Metrics is the counter surface shared by the hub, the tick loop and the
// command buffer.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics exposes the router's counter registry as Metrics, so tick
// counters and event counters land in one snapshot.
func WrapMetrics(registry *logging.Metrics) Metrics {
	return registryMetrics{registry: registry}
}

type registryMetrics struct {
	registry *logging.Metrics
}

func (m registryMetrics) Add(key string, delta uint64) {
	m.registry.TelemetryAdd(key, delta)
}

func (m registryMetrics) Store(key string, value uint64) {
	m.registry.TelemetryStore(key, value)
}
