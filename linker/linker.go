package linker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

// Options configures linker behavior.
type Options struct {
	// External lists import modules provided outside the linker, such as
	// wasi_snapshot_preview1. Check does not report them as missing.
	External []string

	// SemverMatching lets "ns@X.Y.Z" imports resolve to compatible versions.
	SemverMatching bool
}

// DefaultOptions returns default linker configuration.
func DefaultOptions() Options {
	return Options{
		External:       []string{"wasi_snapshot_preview1"},
		SemverMatching: true,
	}
}

// Linker holds the validated capability functions of one session.
// Safe for concurrent use.
type Linker struct {
	manifest Manifest
	funcs    map[string]map[string]*HostFunc
	options  Options
	mu       sync.RWMutex
}

// New creates a linker that accepts hosts declared in manifest.
func New(manifest Manifest, opts Options) *Linker {
	return &Linker{
		manifest: manifest,
		funcs:    make(map[string]map[string]*HostFunc),
		options:  opts,
	}
}

// Options returns the configuration.
func (l *Linker) Options() Options {
	return l.options
}

// Register validates every exported method of h against the manifest and
// records it. Any mismatch is a configuration error and nothing is recorded.
func (l *Linker) Register(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return sberrors.Configuration("capability namespace cannot be empty", nil)
	}

	declared, ok := l.manifest[ns]
	if !ok {
		return sberrors.Configuration(fmt.Sprintf("namespace %q is not in the capability manifest", ns), nil)
	}

	methods := hostMethods(h)
	funcs := make(map[string]*HostFunc, len(methods))
	for name, m := range methods {
		sig, ok := declared[name]
		if !ok {
			return sberrors.Configuration("register capability host",
				sberrors.Registration(sberrors.PhaseConfig, ns, name, fmt.Errorf("not declared in manifest")))
		}
		if err := checkSignature(m.Type(), sig); err != nil {
			return sberrors.Configuration("register capability host",
				sberrors.Registration(sberrors.PhaseConfig, ns, name, err))
		}
		funcs[name] = &HostFunc{Handler: m.Interface(), Name: name, Signature: sig}
	}
	for name := range declared {
		if _, ok := funcs[name]; !ok {
			return sberrors.Configuration("register capability host",
				sberrors.Registration(sberrors.PhaseConfig, ns, name, fmt.Errorf("declared in manifest but not implemented")))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.funcs[ns]; exists {
		return sberrors.Configuration(fmt.Sprintf("namespace %q registered twice", ns), nil)
	}
	l.funcs[ns] = funcs

	Logger().Debug("capability registered", zap.String("namespace", ns), zap.Int("functions", len(funcs)))
	return nil
}

// RegisterAll registers hosts in order and stops at the first error.
func (l *Linker) RegisterAll(hosts ...Host) error {
	for _, h := range hosts {
		if err := l.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// Namespaces returns the registered namespaces, sorted.
func (l *Linker) Namespaces() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.funcs))
	for ns := range l.funcs {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Func returns the registered function ns#name.
func (l *Linker) Func(ns, name string) (*HostFunc, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.funcs[ns][name]
	return f, ok
}

// Resolve maps a guest import module name to a registered namespace.
func (l *Linker) Resolve(importModule string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolveLocked(importModule)
}

func (l *Linker) resolveLocked(importModule string) (string, bool) {
	if _, ok := l.funcs[importModule]; ok {
		return importModule, true
	}
	if !l.options.SemverMatching {
		return "", false
	}

	base, want, ok := splitVersion(importModule)
	if !ok {
		return "", false
	}
	if _, ok := l.funcs[base]; ok {
		return base, true
	}

	var (
		best    string
		bestVer Version
	)
	for ns := range l.funcs {
		nsBase, have, ok := splitVersion(ns)
		if !ok || nsBase != base || !have.Compatible(want) {
			continue
		}
		if best == "" || have.Newer(bestVer) {
			best, bestVer = ns, have
		}
	}
	return best, best != ""
}

func (l *Linker) isExternal(module string) bool {
	for _, ext := range l.options.External {
		if ext == module {
			return true
		}
	}
	return false
}

// Check reports the guest's imports that no registered capability provides.
func (l *Linker) Check(compiled wazero.CompiledModule) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var missing []string
	for _, fn := range compiled.ImportedFunctions() {
		module, name, _ := fn.Import()
		if l.isExternal(module) {
			continue
		}
		ns, ok := l.resolveLocked(module)
		if !ok {
			missing = append(missing, module+"#"+name)
			continue
		}
		if _, ok := l.funcs[ns][name]; !ok {
			missing = append(missing, module+"#"+name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	err := sberrors.NewMissingImportsError(missing)
	for i := range err.Imports {
		err.Imports[i].Ungranted = l.declared(err.Imports[i].Namespace)
	}
	return err
}

// declared reports whether module names a namespace in the manifest,
// ignoring any version suffix.
func (l *Linker) declared(module string) bool {
	want := unversioned(module)
	for ns := range l.manifest {
		if unversioned(ns) == want {
			return true
		}
	}
	return false
}

func unversioned(ns string) string {
	if base, _, ok := splitVersion(ns); ok {
		return base
	}
	return ns
}

// Instantiate checks the guest's imports and instantiates one host module
// per imported capability namespace into rt. Errors are instantiation errors.
func (l *Linker) Instantiate(ctx context.Context, rt wazero.Runtime, compiled wazero.CompiledModule) error {
	if err := l.Check(compiled); err != nil {
		return sberrors.Instantiation(err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	for _, fn := range compiled.ImportedFunctions() {
		module, _, _ := fn.Import()
		if seen[module] || l.isExternal(module) {
			continue
		}
		seen[module] = true
		if rt.Module(module) != nil {
			continue
		}

		ns, _ := l.resolveLocked(module)
		builder := rt.NewHostModuleBuilder(module)
		for name, hf := range l.funcs[ns] {
			builder.NewFunctionBuilder().
				WithFunc(hf.Handler).
				WithName(name).
				Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return sberrors.Instantiation(fmt.Errorf("bind %s: %w", module, err))
		}
		Logger().Debug("capability bound", zap.String("import", module), zap.String("namespace", ns))
	}
	return nil
}
