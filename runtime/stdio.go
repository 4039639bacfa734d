package runtime

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/wippyai/wasm-surface/config"
)

// stdio holds the writers bound to a guest's stdout and stderr.
type stdio struct {
	stdout  io.Writer
	stderr  io.Writer
	closers []io.Closer
}

func newStdio(mode string, logger *zap.Logger) *stdio {
	switch mode {
	case config.StdioInherit:
		return &stdio{stdout: os.Stdout, stderr: os.Stderr}
	case config.StdioLog:
		out := &zapio.Writer{Log: logger.With(zap.String("stream", "stdout")), Level: zap.InfoLevel}
		errw := &zapio.Writer{Log: logger.With(zap.String("stream", "stderr")), Level: zap.WarnLevel}
		return &stdio{stdout: out, stderr: errw, closers: []io.Closer{out, errw}}
	default:
		return &stdio{stdout: io.Discard, stderr: io.Discard}
	}
}

// Close flushes any partial line still buffered.
func (s *stdio) Close() error {
	for _, c := range s.closers {
		_ = c.Close()
	}
	return nil
}
