// Package infra provides shared infrastructure components used across
// the application: the structured logger and the outbound HTTP client.
package infra

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"
)

// --- Logger ---

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewLogger builds a slog logger writing to w. format is "json" or "text".
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// --- HTTP client ---

// HTTPOptions configures NewHTTPClient.
type HTTPOptions struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// NewHTTPClient creates the resty client every provider call goes through.
// The client keeps a cookie jar so session cookies survive between calls.
func NewHTTPClient(opts HTTPOptions) *resty.Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger}).
		AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
			logger.Debug("http response",
				"method", r.Request.Method,
				"url", r.Request.URL,
				"status_code", r.StatusCode(),
				"duration", r.Duration())
			return nil
		})

	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return client
}

// restyLogger routes resty's internal messages into slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }
