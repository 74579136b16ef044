package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Printf adapts a structured logger to the printf-style logging interface
// used by embedded libraries such as badger.
type Printf struct {
	l *slog.Logger
}

// New returns a printf adapter with a component attribute.
func New(base *slog.Logger, component string) *Printf {
	if base == nil {
		base = slog.Default()
	}
	return &Printf{l: base.With("component", component)}
}

func (p *Printf) Errorf(format string, args ...any)   { p.log(slog.LevelError, format, args...) }
func (p *Printf) Warningf(format string, args ...any) { p.log(slog.LevelWarn, format, args...) }
func (p *Printf) Infof(format string, args ...any)    { p.log(slog.LevelInfo, format, args...) }
func (p *Printf) Debugf(format string, args ...any)   { p.log(slog.LevelDebug, format, args...) }

func (p *Printf) log(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !p.l.Enabled(ctx, level) {
		return
	}
	p.l.Log(ctx, level, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
