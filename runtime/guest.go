package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/tracing"
)

// Guest is an instantiated guest module ready to run once.
type Guest struct {
	session *Session
	module  api.Module
	name    string
	called  atomic.Bool
}

// Session returns the owning session.
func (g *Guest) Session() *Session { return g.session }

// Name returns the module path or label given to Load.
func (g *Guest) Name() string { return g.name }

// EntryPoint returns the export Call will invoke, or "" if none exists.
func (g *Guest) EntryPoint() string {
	for _, name := range g.session.cfg.EntryPoints {
		if g.module.ExportedFunction(name) != nil {
			return name
		}
	}
	return ""
}

// Call runs the guest's entry point to completion and closes the session.
// It blocks for as long as the guest runs.
func (g *Guest) Call(ctx context.Context) (err error) {
	if !g.called.CompareAndSwap(false, true) {
		return sberrors.New(sberrors.PhaseLifecycle, sberrors.KindInvalidInput).
			Session(g.session.id).
			Detail("guest already called").
			Build()
	}
	defer func() { _ = g.session.Close(context.WithoutCancel(ctx)) }()

	entry := g.EntryPoint()
	if entry == "" {
		return sberrors.EntryPointFailure(strings.Join(g.session.cfg.EntryPoints, "|"), "no entry point exported", nil)
	}

	ctx, span := tracing.StartSpan(ctx, "session.call",
		tracing.Session(g.session.id),
		tracing.Module(g.name),
		attribute.String("sandbox.entry", entry))
	defer func() { tracing.End(span, err) }()

	g.session.logger.Info("guest started", zap.String("entry", entry))
	_, callErr := g.module.ExportedFunction(entry).Call(ctx)
	err = g.classify(ctx, entry, callErr)

	if err != nil {
		g.session.logger.Info("guest finished", zap.String("entry", entry), zap.Error(err))
	} else {
		g.session.logger.Info("guest finished", zap.String("entry", entry))
	}
	return err
}

func (g *Guest) classify(ctx context.Context, entry string, err error) error {
	if v := g.session.state.Violation(); v != nil {
		return v
	}
	if err == nil {
		return nil
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case 0:
			return nil
		case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
			return sberrors.Cancelled(err)
		default:
			return sberrors.EntryPointFailure(entry, fmt.Sprintf("exit code %d", exitErr.ExitCode()), err)
		}
	}
	if ctx.Err() != nil {
		return sberrors.Cancelled(err)
	}
	return sberrors.GuestTrap(entry, err)
}
