package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	// Absent logger falls back to a no-op, never nil
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	logger.Info("must not panic")
}

func TestWithSupplier(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithSupplier(context.Background(), base, "proaudio")
	enriched.Info("sync started")

	assert.Equal(t, "proaudio", GetSupplier(ctx))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "proaudio", entries[0].ContextMap()["supplier"])
}

func TestWithSessionID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithSessionID(context.Background(), base, "abc-123")
	enriched.Info("finalized")

	assert.Equal(t, "abc-123", GetSessionID(ctx))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc-123", entries[0].ContextMap()["session_id"])
}

func TestGetSupplier_Missing(t *testing.T) {
	assert.Empty(t, GetSupplier(context.Background()))
	assert.Empty(t, GetSessionID(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}
