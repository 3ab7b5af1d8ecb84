package remote

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnvLog turns logging on for runs where flags cannot be changed (CI jobs).
// "debug" selects the debug level, any other non-empty value info.
const EnvLog = "GHSECRET_LOG"

// Logger provides structured logging for remote operations
type Logger struct {
	log     zerolog.Logger
	enabled bool
}

// NewLogger creates a logger writing to w. It stays silent unless verbose,
// debug or GHSECRET_LOG asks for output.
func NewLogger(w io.Writer, verbose, debug bool) *Logger {
	env := os.Getenv(EnvLog)
	enabled := verbose || debug || env != ""
	debug = debug || env == "debug"

	level := zerolog.Disabled
	switch {
	case debug:
		level = zerolog.DebugLevel
	case enabled:
		level = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}

	return &Logger{
		log:     zerolog.New(out).Level(level).With().Timestamp().Str("run_id", uuid.NewString()).Logger(),
		enabled: enabled,
	}
}

// NopLogger returns a logger that discards everything
func NopLogger() *Logger {
	return &Logger{log: zerolog.Nop()}
}

// Enabled reports whether any output is produced
func (l *Logger) Enabled() bool {
	return l.enabled
}

// LogOperation logs a remote operation with timing
func (l *Logger) LogOperation(operation string, fn func() error) error {
	if !l.enabled {
		return fn()
	}

	start := time.Now()
	l.Infof("Starting: %s", operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.log.Error().Err(err).Dur("took", duration).Msgf("Failed: %s", operation)
	} else {
		l.log.Info().Dur("took", duration).Msgf("Completed: %s", operation)
	}

	return err
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.log.Info().Msg(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.log.Error().Msg(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

// Debug logs a debug message (only with --debug or GHSECRET_LOG=debug)
func (l *Logger) Debug(msg string) {
	l.log.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

// LogAPICall logs platform API calls for observability
func (l *Logger) LogAPICall(method, endpoint string, statusCode int, duration time.Duration) {
	if !l.enabled {
		return
	}

	var event *zerolog.Event
	switch {
	case statusCode >= 200 && statusCode < 300:
		event = l.log.Info()
	case statusCode >= 400 || statusCode == 0:
		event = l.log.Error()
	default:
		event = l.log.Warn()
	}
	event.Str("method", method).
		Str("endpoint", endpoint).
		Int("status", statusCode).
		Dur("took", duration).
		Msg("API call")
}

// LogTokenResolution logs where the access token was found, never the token
func (l *Logger) LogTokenResolution(source string) {
	l.log.Info().Str("source", source).Msg("Access token resolved")
}

// MetricsCollector collects metrics about API usage
type MetricsCollector struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	RateLimitHits   int
	TotalDuration   time.Duration
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordCall records an API call
func (m *MetricsCollector) RecordCall(statusCode int, duration time.Duration) {
	m.TotalCalls++
	m.TotalDuration += duration

	if statusCode >= 200 && statusCode < 300 {
		m.SuccessfulCalls++
	} else {
		m.FailedCalls++
	}

	if statusCode == 429 {
		m.RateLimitHits++
	}
}

// Report returns a metrics report
func (m *MetricsCollector) Report() string {
	if m.TotalCalls == 0 {
		return "No API calls made"
	}

	avgDuration := m.TotalDuration / time.Duration(m.TotalCalls)
	successRate := float64(m.SuccessfulCalls) / float64(m.TotalCalls) * 100

	return fmt.Sprintf(
		"API Metrics:\n"+
			"  Total calls: %d\n"+
			"  Successful: %d (%.1f%%)\n"+
			"  Failed: %d\n"+
			"  Rate limit hits: %d\n"+
			"  Avg duration: %v",
		m.TotalCalls,
		m.SuccessfulCalls,
		successRate,
		m.FailedCalls,
		m.RateLimitHits,
		avgDuration,
	)
}
