package zaplog

import (
	"testing"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ relay.Logger = (*Logger)(nil)

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debugf("debug %d", 1)
	l.Infof("info %s", "x")
	l.Warnf("warn")
	l.Errorf("error %v", "boom")
	l.Info("plain")

	entries := logs.All()
	require.Len(t, entries, 5)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "info x", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "error boom", entries[3].Message)
	assert.Equal(t, "plain", entries[4].Message)
}

func TestLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core)).With("component", "relay")

	l.Infof("started")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "relay", logs.All()[0].ContextMap()["component"])
}

func TestNew_NilIsNoop(t *testing.T) {
	l := New(nil)
	assert.NotPanics(t, func() { l.Infof("ignored") })
}

func TestNewProduction(t *testing.T) {
	l, err := NewProduction("debug")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewProduction("loud")
	assert.Error(t, err)
}
