package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l, err := newLogger(Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Debug("planned", zap.Int("splits", 3))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"planned"`)
	assert.Contains(t, string(data), `"splits":3`)
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	ctx := ContextWithSplit(ContextWithJobID(context.Background(), "job-1"), 4)
	assert.Equal(t, "job-1", ctx.Value(JobIDKey))
	assert.Equal(t, 4, ctx.Value(SplitKey))
	assert.NotNil(t, WithContext(ctx))
	assert.NotNil(t, Get())
}
