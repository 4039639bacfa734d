package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in the session lifecycle the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // capability registration, config validation
	PhaseLoad      Phase = "load"      // reading and compiling the guest module
	PhaseLinking   Phase = "linking"   // import resolution and instantiation
	PhaseRuntime   Phase = "runtime"   // guest entry point execution
	PhaseHost      Phase = "host"      // capability calls made by the guest
	PhaseHandoff   Phase = "handoff"   // surface deposit/take
	PhaseSignal    Phase = "signal"    // cross-goroutine notifications
	PhaseLifecycle Phase = "lifecycle" // coordinator state transitions
)

// Kind categorizes the error
type Kind string

const (
	KindConfiguration    Kind = "configuration"
	KindModuleNotFound   Kind = "module_not_found"
	KindInstantiation    Kind = "instantiation"
	KindGuestTrap        Kind = "guest_trap"
	KindEntryPoint       Kind = "entry_point"
	KindHandoffViolation Kind = "handoff_violation"
	KindChannelClosed    Kind = "channel_closed"
	KindCancelled        Kind = "cancelled"
	KindInvalidInput     Kind = "invalid_input"
	KindInvalidHandle    Kind = "invalid_handle"
	KindNotFound         Kind = "not_found"
	KindRegistration     Kind = "registration"
	KindMissingImport    Kind = "missing_import"
	KindUnsupported      Kind = "unsupported"
)

// Error is the structured error type used throughout the sandbox
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	Capability string
	Session    string
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Capability != "" {
		b.WriteString(" in ")
		b.WriteString(e.Capability)
	}

	if e.Session != "" {
		b.WriteString(" (session ")
		b.WriteString(e.Session)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Sentinels for errors.Is checks against the sandbox taxonomy.
var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrModuleNotFound   = &Error{Kind: KindModuleNotFound}
	ErrInstantiation    = &Error{Kind: KindInstantiation}
	ErrGuestTrap        = &Error{Kind: KindGuestTrap}
	ErrEntryPoint       = &Error{Kind: KindEntryPoint}
	ErrHandoffViolation = &Error{Kind: KindHandoffViolation}
	ErrChannelClosed    = &Error{Kind: KindChannelClosed}
	ErrCancelled        = &Error{Kind: KindCancelled}
)

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Capability sets the capability (namespace#function) involved
func (b *Builder) Capability(c string) *Builder {
	b.err.Capability = c
	return b
}

// Session sets the session identifier
func (b *Builder) Session(id string) *Builder {
	b.err.Session = id
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Configuration creates a capability registration or config error.
// These abort session creation before any goroutine starts.
func Configuration(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindConfiguration,
		Detail: detail,
		Cause:  cause,
	}
}

// ModuleNotFound creates an error for a guest module that is missing or not
// a valid WebAssembly binary.
func ModuleNotFound(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindModuleNotFound,
		Detail: fmt.Sprintf("guest module %q", path),
		Value:  path,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindInstantiation,
		Detail: "instantiate guest",
		Cause:  cause,
	}
}

// GuestTrap creates an error for a guest that crashed during execution
func GuestTrap(entry string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindGuestTrap,
		Detail: fmt.Sprintf("guest trapped in %s", entry),
		Cause:  cause,
	}
}

// EntryPointFailure creates an error for a missing entry point or a guest
// that returned a failure status.
func EntryPointFailure(entry, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindEntryPoint,
		Detail: fmt.Sprintf("%s: %s", entry, detail),
		Cause:  cause,
	}
}

// HandoffViolation creates an error for a surface handoff contract breach.
func HandoffViolation(detail string) *Error {
	return &Error{
		Phase:  PhaseHandoff,
		Kind:   KindHandoffViolation,
		Detail: detail,
	}
}

// ChannelClosed creates an error for a signal whose receiver already exited.
// Callers treat it as a benign no-op.
func ChannelClosed(what string) *Error {
	return &Error{
		Phase:  PhaseSignal,
		Kind:   KindChannelClosed,
		Detail: fmt.Sprintf("%s closed", what),
	}
}

// Cancelled creates an error for a guest abandoned by a stop request.
func Cancelled(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindCancelled,
		Detail: "session stopped",
		Cause:  cause,
	}
}

// InvalidHandle creates an error for an unknown or mistyped capability handle
func InvalidHandle(capability string, handle uint32) *Error {
	return &Error{
		Phase:      PhaseHost,
		Kind:       KindInvalidHandle,
		Capability: capability,
		Detail:     fmt.Sprintf("handle %d", handle),
		Value:      handle,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindRegistration,
		Capability: namespace + "#" + name,
		Detail:     "register capability",
		Cause:      cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Namespace string // e.g., "wasi:surface/surface"
	Function  string // e.g., "create-surface"

	// Ungranted is set when Namespace is a known capability the session was
	// not given, as opposed to an import no host provides at all.
	Ungranted bool
}

// MissingImportsError is returned when a guest imports capabilities the
// session does not grant.
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "namespace#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		ns, fn, found := strings.Cut(imp, "#")
		if !found {
			ns, fn = imp, ""
		}
		result.Imports = append(result.Imports, MissingImport{
			Namespace: ns,
			Function:  fn,
		})
	}
	return result
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[linking] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "guest imports %d unavailable capability function(s):\n", len(e.Imports))

	byNS := make(map[string][]string)
	ungranted := make(map[string]bool)
	var nsOrder []string
	for _, imp := range e.Imports {
		if _, exists := byNS[imp.Namespace]; !exists {
			nsOrder = append(nsOrder, imp.Namespace)
		}
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp.Function)
		if imp.Ungranted {
			ungranted[imp.Namespace] = true
		}
	}

	for _, ns := range nsOrder {
		b.WriteString("\n  ")
		b.WriteString(ns)
		if ungranted[ns] {
			b.WriteString(" (not granted)")
		}
		b.WriteString(":\n")
		for _, fn := range byNS[ns] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
