// Package logging wraps log/slog with a handler that timestamps every
// record and fans it out to an optional log file and to stderr,
// mirroring the way guest-visible console output and host diagnostic
// logging are kept on separate channels.
//
// Grounded on rcornwell-S370's util/logger.LogHandler: same
// Enabled/WithAttrs/WithGroup/Handle shape, same mutex-guarded dual
// writer, generalized from S370's fixed debug-to-stderr policy to a
// configurable minimum level per writer.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler formats records as "<time> <LEVEL>: <message> <attrs...>" and
// writes them to an optional file, plus stderr whenever the record's
// level meets stderrFrom.
type Handler struct {
	mu         *sync.Mutex
	file       io.Writer
	inner      slog.Handler
	stderrFrom slog.Level
}

// NewHandler returns a Handler that always writes to file (if non-nil)
// at opts' level, and additionally echoes to stderr for any record at
// or above stderrFrom.
func NewHandler(file io.Writer, opts *slog.HandlerOptions, stderrFrom slog.Level) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &Handler{
		mu:         &sync.Mutex{},
		file:       file,
		inner:      slog.NewTextHandler(io.Discard, opts),
		stderrFrom: stderrFrom,
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{mu: h.mu, file: h.file, inner: h.inner.WithAttrs(attrs), stderrFrom: h.stderrFrom}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{mu: h.mu, file: h.file, inner: h.inner.WithGroup(name), stderrFrom: h.stderrFrom}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})
	line := []byte(strings.Join(parts, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.file != nil {
		_, err = h.file.Write(line)
	}
	if r.Level >= h.stderrFrom {
		if _, werr := os.Stderr.Write(line); err == nil {
			err = werr
		}
	}
	return err
}

// New builds a ready-to-use *slog.Logger writing to file (may be nil)
// at minLevel, echoing warnings and above to stderr.
func New(file io.Writer, minLevel slog.Level) *slog.Logger {
	return slog.New(NewHandler(file, &slog.HandlerOptions{Level: minLevel}, slog.LevelWarn))
}
