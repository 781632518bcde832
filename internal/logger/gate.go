// Package logger provides the payment log channel: a zap logger whose output
// can be switched on and off at runtime without rebuilding its users.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Toggle is the runtime "logging enabled" switch. The zero value is disabled.
type Toggle struct {
	enabled atomic.Bool
}

// NewToggle returns a toggle set to enabled.
func NewToggle(enabled bool) *Toggle {
	t := &Toggle{}
	t.enabled.Store(enabled)
	return t
}

// Enabled reports the current state. A nil toggle is always enabled.
func (t *Toggle) Enabled() bool {
	if t == nil {
		return true
	}
	return t.enabled.Load()
}

// Set changes the state, typically from a config reload.
func (t *Toggle) Set(enabled bool) {
	t.enabled.Store(enabled)
}

type gatedCore struct {
	zapcore.Core
	toggle *Toggle
}

func (c *gatedCore) Enabled(lvl zapcore.Level) bool {
	// Errors always reach the sink.
	if lvl >= zapcore.ErrorLevel {
		return c.Core.Enabled(lvl)
	}
	return c.toggle.Enabled() && c.Core.Enabled(lvl)
}

func (c *gatedCore) With(fields []zapcore.Field) zapcore.Core {
	return &gatedCore{Core: c.Core.With(fields), toggle: c.toggle}
}

func (c *gatedCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < zapcore.ErrorLevel && !c.toggle.Enabled() {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// Gated wraps base so that entries below Error are dropped while toggle is off.
func Gated(base *zap.Logger, toggle *Toggle) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &gatedCore{Core: core, toggle: toggle}
	}))
}
