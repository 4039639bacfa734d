package wasmbin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"u32 0", appendU32(nil, 0), []byte{0x00}},
		{"u32 127", appendU32(nil, 127), []byte{0x7f}},
		{"u32 128", appendU32(nil, 128), []byte{0x80, 0x01}},
		{"u32 624485", appendU32(nil, 624485), []byte{0xe5, 0x8e, 0x26}},
		{"s32 0", appendS32(nil, 0), []byte{0x00}},
		{"s32 -1", appendS32(nil, -1), []byte{0x7f}},
		{"s32 63", appendS32(nil, 63), []byte{0x3f}},
		{"s32 64", appendS32(nil, 64), []byte{0xc0, 0x00}},
		{"s32 -123456", appendS32(nil, -123456), []byte{0xc0, 0xbb, 0x78}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestEmptyModule(t *testing.T) {
	assert.Equal(t, header, (&Module{}).Encode())
}

func TestTypeDeduplication(t *testing.T) {
	m := &Module{}
	m.Import("a", "x", Sig(1, 1))
	m.Import("a", "y", Sig(1, 1))
	m.Func(Func{Type: Sig(1, 1), Body: NewCode().LocalGet(0)})

	b := m.Encode()
	// header, type section id, size, count 1
	require.Greater(t, len(b), 11)
	assert.Equal(t, sectionType, b[8])
	assert.Equal(t, byte(1), b[10])
}

func TestFunctionIndices(t *testing.T) {
	m := &Module{}
	assert.Equal(t, uint32(0), m.Import("a", "x", Sig(0, 0)))
	assert.Equal(t, uint32(1), m.Import("a", "y", Sig(0, 0)))
	assert.Equal(t, uint32(2), m.Func(Func{Type: Sig(0, 0)}))
	assert.Contains(t, m.String(), "2 imports")
}

func TestGuestsCompile(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	guests := map[string][]byte{
		"idle":       Idle(),
		"trap":       Trap(),
		"no-entry":   NoEntry(),
		"named":      Named("run"),
		"exit":       Exit(3),
		"importing":  Importing("env", "missing"),
		"grab":       SurfaceGrab(),
		"grab-twice": SurfaceGrabTwice(),
		"spin":       Spin(),
		"loop":       SurfaceLoop(),
		"trap-frame": SurfaceTrapAfterFrame(),
		"demo":       Demo(),
		"memory":     Memory(1, []byte("hello")),
	}
	for name, bin := range guests {
		t.Run(name, func(t *testing.T) {
			compiled, err := rt.CompileModule(ctx, bin)
			require.NoError(t, err)
			defer compiled.Close(ctx)
		})
	}
}

func TestDemoImports(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, Demo())
	require.NoError(t, err)

	imports := map[string]bool{}
	for _, fn := range compiled.ImportedFunctions() {
		module, name, _ := fn.Import()
		imports[module+"#"+name] = true
	}
	for _, want := range []string{
		"wasi:surface/surface#create-surface",
		"wasi:surface/surface#wait-frame",
		"wasi:graphics-context/graphics-context#present",
		"wasi:frame-buffer/frame-buffer#fill",
		"wasi:webgpu/webgpu#request-device",
	} {
		assert.True(t, imports[want], "missing import %s", want)
	}
	_, ok := compiled.ExportedFunctions()["_start"]
	assert.True(t, ok)
}

func TestRunIdleAndTrap(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	cfg := wazero.NewModuleConfig().WithStartFunctions()

	idle, err := rt.InstantiateWithConfig(ctx, Idle(), cfg.WithName("idle"))
	require.NoError(t, err)
	_, err = idle.ExportedFunction("_start").Call(ctx)
	assert.NoError(t, err)

	trap, err := rt.InstantiateWithConfig(ctx, Trap(), cfg.WithName("trap"))
	require.NoError(t, err)
	_, err = trap.ExportedFunction("_start").Call(ctx)
	assert.Error(t, err)

	mem, err := rt.InstantiateWithConfig(ctx, Memory(1, []byte("hi")), cfg.WithName("mem"))
	require.NoError(t, err)
	got, ok := mem.Memory().Read(0, 2)
	require.True(t, ok)
	assert.Equal(t, "hi", string(got))
}
