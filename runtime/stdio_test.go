package runtime

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-surface/config"
)

func TestStdioLogMode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newStdio(config.StdioLog, zap.New(core))

	_, err := io.WriteString(s.stdout, "hello from guest\npartial")
	require.NoError(t, err)
	_, err = io.WriteString(s.stderr, "oops\n")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "hello from guest", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "stdout", entries[0].ContextMap()["stream"])

	assert.Equal(t, "oops", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	assert.Equal(t, "partial", entries[2].Message, "Close flushes the buffered tail")
}

func TestStdioModes(t *testing.T) {
	inherit := newStdio(config.StdioInherit, zap.NewNop())
	assert.Same(t, os.Stdout, inherit.stdout)
	assert.Same(t, os.Stderr, inherit.stderr)

	discard := newStdio(config.StdioDiscard, zap.NewNop())
	assert.Equal(t, io.Discard, discard.stdout)
	assert.NoError(t, discard.Close())
}
