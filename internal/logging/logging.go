// Package logging wires up the structured logger every store instance
// carries: a console handler plus an optional Seq sink, fanned out through
// a single slog.Handler so callers log once and both sinks receive it.
//
// Grounded on the teacher's internal/logging/logging.go multiHandler
// fan-out pattern, adapted to attach a per-store session id (see
// github.com/google/uuid) to every record instead of wiring a fixed Seq
// endpoint.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	slogseq "github.com/sokkalf/slog-seq"
)

// Options configures Setup.
type Options struct {
	// SeqURL, if non-empty, enables a Seq sink alongside the console
	// handler. A Seq connection failure falls back to console-only.
	SeqURL string
	Level  slog.Level
	Writer *os.File // defaults to os.Stdout
}

// multiHandler forwards every record to each of its handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Setup builds a *slog.Logger tagged with a fresh per-store session id and
// returns it alongside a cleanup function that must run when the store
// closes (it flushes and closes the Seq sink, if one was opened).
func Setup(opts Options) (*slog.Logger, func()) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	console := slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: true,
	})

	var base slog.Handler = console
	closeFn := func() {}

	if opts.SeqURL != "" {
		_, seqHandler := slogseq.NewLogger(
			opts.SeqURL,
			slogseq.WithBatchSize(1),
			slogseq.WithFlushInterval(500*time.Millisecond),
			slogseq.WithHandlerOptions(&slog.HandlerOptions{
				Level:     opts.Level,
				AddSource: true,
			}),
		)
		if seqHandler != nil {
			base = &multiHandler{handlers: []slog.Handler{console, seqHandler}}
			closeFn = seqHandler.Close
		}
	}

	sessionID := uuid.New().String()
	logger := slog.New(base).With("session_id", sessionID)
	return logger, closeFn
}
