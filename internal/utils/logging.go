package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	MaxSize    = 100
	MaxBackups = 3
	MaxAge     = 28

	JobName = "hcm_gateway"
)

// CustomHandler writes JSON records to a file writer and a coloured
// one-line rendition of the same record to the console writer.
type CustomHandler struct {
	handler slog.Handler
	console io.Writer
	attrs   []slog.Attr
}

func NewCustomHandler(console io.Writer, fileWriter io.Writer, level slog.Level) *CustomHandler {
	handler := slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: slog.StringValue(a.Value.Time().Format(time.RFC3339))}
			}
			return a
		},
	}).WithAttrs([]slog.Attr{slog.String("job", JobName)})

	return &CustomHandler{handler: handler, console: console}
}

func (h *CustomHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.handler.Handle(ctx, r); err != nil {
		return err
	}

	var colorFn func(format string, args ...interface{}) string
	switch r.Level {
	case slog.LevelDebug:
		colorFn = color.New(color.FgCyan).Sprintf
	case slog.LevelInfo:
		colorFn = color.New(color.FgGreen).Sprintf
	case slog.LevelWarn:
		colorFn = color.New(color.FgYellow).Sprintf
	case slog.LevelError:
		colorFn = color.New(color.FgRed).Sprintf
	default:
		colorFn = color.New(color.FgWhite).Sprintf
	}

	attrs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs = append(attrs, fmt.Sprintf("%s=%v", a.Key, a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, fmt.Sprintf("%s=%v", a.Key, a.Value))
		return true
	})
	attrStr := strings.Join(attrs, " ")

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	message := r.Message
	if attrStr != "" {
		message = fmt.Sprintf("%s %s", message, attrStr)
	}

	if _, err := fmt.Fprintf(h.console, "%s %s %s\n",
		color.New(color.FgBlue).Sprintf("%s", timeStr),
		colorFn("%-6s", r.Level.String()),
		message,
	); err != nil {
		return err
	}

	return nil
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	return &CustomHandler{handler: h.handler.WithAttrs(attrs), console: h.console, attrs: merged}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	return &CustomHandler{handler: h.handler.WithGroup(name), console: h.console, attrs: h.attrs}
}

func SetupLogger(logFilePath string, console io.Writer, level slog.Level) *slog.Logger {
	logFile := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    MaxSize,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAge,
		Compress:   true,
	}
	handler := NewCustomHandler(console, logFile, level)
	return slog.New(handler)
}

func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			requestID := middleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = "unknown"
			}

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)
		})
	}
}
