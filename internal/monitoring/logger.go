package monitoring

import (
	"log/slog"
	"os"
	"time"
)

var startTime = time.Now()

// Logger provides structured logging with domain-specific helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new JSON logger
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// SimulationLogger logs a completed simulation run
func (l *Logger) SimulationLogger(kind string, iterations, entities int, duration time.Duration, cacheHit bool) {
	l.Info("Simulation Completed",
		"kind", kind,
		"iterations", iterations,
		"entities", entities,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// JobLogger logs projection job lifecycle events
func (l *Logger) JobLogger(event, jobID, status string, progress float64) {
	l.Info("Job Event",
		"event", event,
		"job_id", jobID,
		"status", status,
		"progress", progress,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}
