package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGated_FollowsToggle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	toggle := NewToggle(true)
	log := Gated(zap.New(core), toggle)

	log.Info("first")
	toggle.Set(false)
	log.Info("dropped")
	log.Warn("dropped too")
	toggle.Set(true)
	log.Info("second")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}

func TestGated_ErrorsBypassToggle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Gated(zap.New(core), NewToggle(false))

	log.Info("quiet")
	log.Error("loud")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "loud", logs.All()[0].Message)
}

func TestGated_WithKeepsGate(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	toggle := NewToggle(false)
	log := Gated(zap.New(core), toggle).With(zap.String("component", "webhook"))

	log.Info("quiet")
	toggle.Set(true)
	log.Info("heard")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "webhook", entries[0].ContextMap()["component"])
}

func TestGated_KeepsWrappedSampling(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sampled := zapcore.NewSamplerWithOptions(core, time.Minute, 1, 0)
	log := Gated(zap.New(sampled), NewToggle(true))

	for i := 0; i < 3; i++ {
		log.Info("repeated")
	}

	assert.Equal(t, 1, logs.Len())
}

func TestToggle_NilIsEnabled(t *testing.T) {
	var toggle *Toggle
	assert.True(t, toggle.Enabled())
}
