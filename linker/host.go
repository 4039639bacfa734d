package linker

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Host is the interface for struct-based capability hosts.
// All exported methods (except Namespace) are registered as host functions.
type Host interface {
	// Namespace returns the WIT interface name (e.g., "wasi:surface/surface").
	Namespace() string
}

// Signature is the WIT signature of one capability function.
type Signature struct {
	Params  []wit.Type
	Results []wit.Type
}

func (s Signature) String() string {
	return "func(" + witNames(s.Params) + ") -> (" + witNames(s.Results) + ")"
}

// Manifest declares every function a namespace exposes, keyed by namespace
// then kebab-case function name.
type Manifest map[string]map[string]Signature

// HostFunc is a validated host function ready for binding.
type HostFunc struct {
	Handler   any
	Name      string
	Signature Signature
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	moduleType  = reflect.TypeOf((*api.Module)(nil)).Elem()
)

// checkSignature verifies that fn, after an optional context.Context and
// api.Module, takes and returns exactly the core types of sig.
func checkSignature(fn reflect.Type, sig Signature) error {
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("handler is %s, not a function", fn)
	}

	in := 0
	if in < fn.NumIn() && fn.In(in) == contextType {
		in++
	}
	if in < fn.NumIn() && fn.In(in) == moduleType {
		in++
	}

	if fn.NumIn()-in != len(sig.Params) {
		return fmt.Errorf("have %d params, want %s", fn.NumIn()-in, sig)
	}
	for i, p := range sig.Params {
		want, ok := witKind(p)
		if !ok {
			return fmt.Errorf("param %d: unsupported WIT type %s", i, witName(p))
		}
		if got := fn.In(in + i).Kind(); got != want {
			return fmt.Errorf("param %d is %s, want %s", i, got, witName(p))
		}
	}

	if fn.NumOut() != len(sig.Results) {
		return fmt.Errorf("have %d results, want %s", fn.NumOut(), sig)
	}
	for i, r := range sig.Results {
		want, ok := witKind(r)
		if !ok {
			return fmt.Errorf("result %d: unsupported WIT type %s", i, witName(r))
		}
		if got := fn.Out(i).Kind(); got != want {
			return fmt.Errorf("result %d is %s, want %s", i, got, witName(r))
		}
	}
	return nil
}

// witKind maps the WIT primitives that lower to a single core value.
func witKind(t wit.Type) (reflect.Kind, bool) {
	switch t.(type) {
	case wit.U32:
		return reflect.Uint32, true
	case wit.S32:
		return reflect.Int32, true
	case wit.U64:
		return reflect.Uint64, true
	case wit.S64:
		return reflect.Int64, true
	case wit.F32:
		return reflect.Float32, true
	case wit.F64:
		return reflect.Float64, true
	}
	return reflect.Invalid, false
}

func witName(t wit.Type) string {
	switch t.(type) {
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	}
	return fmt.Sprintf("%T", t)
}

func witNames(ts []wit.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = witName(t)
	}
	return strings.Join(names, ", ")
}

// hostMethods returns the kebab-case name and bound handler of every
// exported method of h except Namespace.
func hostMethods(h Host) map[string]reflect.Value {
	rv := reflect.ValueOf(h)
	rt := rv.Type()

	methods := make(map[string]reflect.Value, rt.NumMethod())
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		methods[toKebabCase(method.Name)] = rv.Method(i)
	}
	return methods
}

// toKebabCase converts PascalCase to kebab-case, keeping acronyms together:
// GetGPU -> get-gpu, RequestAdapter -> request-adapter.
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}

		end := i + 1
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}
		// Last uppercase before lowercase starts the next word.
		if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
			end--
		}

		if i > 0 {
			result.WriteByte('-')
		}
		for j := i; j < end; j++ {
			result.WriteRune(unicode.ToLower(runes[j]))
		}
		i = end - 1
	}
	return result.String()
}
