package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFields(t *testing.T) {
	fields := Fields("claim_id", "CLM-1", "error", errors.New("boom"), 42, "answer", "dangling")
	require.Len(t, fields, 4)

	assert.Equal(t, "claim_id", fields[0].Key)
	assert.Equal(t, "CLM-1", fields[0].String)
	assert.Equal(t, "error", fields[1].Key)
	assert.Equal(t, zapcore.ErrorType, fields[1].Type)
	assert.Equal(t, "42", fields[2].Key)
	assert.Equal(t, "dangling", fields[3].Key)
	assert.Equal(t, "(missing)", fields[3].String)
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewKVLogger(zap.New(core))

	logger.Info("claim routed", "claim_id", "CLM-1", "route", "escalate")
	logger.Error("notification failed", "error", errors.New("timeout"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "claim routed", entries[0].Message)
	assert.Equal(t, "escalate", entries[0].ContextMap()["route"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "timeout", entries[1].ContextMap()["error"])
}

func TestNewKVLogger_NilIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewKVLogger(nil).Info("ignored", "k", "v")
	})
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "verbose", OutputPath: "stderr", Format: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}
