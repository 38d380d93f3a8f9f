// Package logger builds the process-wide slog logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/PlanForge/internal/config"
)

const (
	bufferCapacity = 4096
	bufferWriters  = 2
)

// New returns a JSON logger writing to stdout. See NewWithWriter.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter returns a JSON logger writing to w. Every record carries a
// "service" attribute and, when the context has one, a "request_id". With
// cfg.Async set, output is buffered and the returned Closer must be closed
// before exit.
func NewWithWriter(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var h slog.Handler = requestIDHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}),
	}

	var closer Closer = syncCloser{}
	if cfg.Async {
		bh := newBufferedHandler(h, bufferCapacity, bufferWriters)
		h, closer = bh, bh
	}
	return slog.New(h).With("service", cfg.Service), closer
}

// parseLevel accepts slog's level names case-insensitively plus "warning".
// Anything unrecognised logs at info.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type requestIDHandler struct {
	slog.Handler
}

func (h requestIDHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, rec)
}

func (h requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestIDHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h requestIDHandler) WithGroup(name string) slog.Handler {
	return requestIDHandler{Handler: h.Handler.WithGroup(name)}
}
