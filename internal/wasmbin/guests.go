package wasmbin

// Import module names of the sandbox capabilities and WASI.
const (
	surfaceNS  = "wasi:surface/surface"
	contextNS  = "wasi:graphics-context/graphics-context"
	bufferNS   = "wasi:frame-buffer/frame-buffer"
	webgpuNS   = "wasi:webgpu/webgpu"
	wasiModule = "wasi_snapshot_preview1"
)

func command(m *Module, body *Code, locals int) []byte {
	f := Func{Export: "_start", Type: Sig(0, 0), Body: body}
	for i := 0; i < locals; i++ {
		f.Locals = append(f.Locals, I32)
	}
	m.Func(f)
	if m.MemoryPages == 0 {
		m.MemoryPages = 1
	}
	m.ExportMemory = true
	return m.Encode()
}

// Idle returns a command whose _start returns immediately.
func Idle() []byte {
	return command(&Module{}, NewCode(), 0)
}

// Trap returns a command whose _start hits unreachable.
func Trap() []byte {
	return command(&Module{}, NewCode().Unreachable(), 0)
}

// NoEntry returns a module with memory and no entry point.
func NoEntry() []byte {
	m := &Module{MemoryPages: 1, ExportMemory: true}
	m.Func(Func{Export: "helper", Type: Sig(0, 0), Body: NewCode()})
	return m.Encode()
}

// Named returns a module whose only export is an empty function called name.
func Named(name string) []byte {
	m := &Module{MemoryPages: 1, ExportMemory: true}
	m.Func(Func{Export: name, Type: Sig(0, 0), Body: NewCode()})
	return m.Encode()
}

// Exit returns a command that calls WASI proc_exit(code).
func Exit(code int32) []byte {
	m := &Module{}
	procExit := m.Import(wasiModule, "proc_exit", Sig(1, 0))
	return command(m, NewCode().I32Const(code).Call(procExit), 0)
}

// Importing returns a command that calls module#name, a () -> i32 import.
func Importing(module, name string) []byte {
	m := &Module{}
	fn := m.Import(module, name, Sig(0, 1))
	return command(m, NewCode().Call(fn).Drop(), 0)
}

// SurfaceGrab returns a command that requests the surface and returns.
func SurfaceGrab() []byte {
	m := &Module{}
	create := m.Import(surfaceNS, "create-surface", Sig(2, 1))
	return command(m, NewCode().I32Const(0).I32Const(0).Call(create).Drop(), 0)
}

// SurfaceGrabTwice returns a command that requests the surface twice. The
// second request finds the handoff slot empty.
func SurfaceGrabTwice() []byte {
	m := &Module{}
	create := m.Import(surfaceNS, "create-surface", Sig(2, 1))
	body := NewCode().
		I32Const(0).I32Const(0).Call(create).Drop().
		I32Const(0).I32Const(0).Call(create).Drop()
	return command(m, body, 0)
}

// Spin returns a command that loops forever without calling the host.
func Spin() []byte {
	return command(&Module{}, NewCode().Loop().Br(0).End(), 0)
}

// SurfaceLoop returns a command that requests the surface and waits for
// frames until wait-frame reports the surface is gone.
func SurfaceLoop() []byte {
	m := &Module{}
	create := m.Import(surfaceNS, "create-surface", Sig(2, 1))
	wait := m.Import(surfaceNS, "wait-frame", Sig(1, 1))

	body := NewCode().
		I32Const(0).I32Const(0).Call(create).LocalSet(0).
		Block().
		Loop().
		LocalGet(0).Call(wait).I32Eqz().BrIf(1).
		Br(0).
		End().
		End()
	return command(m, body, 1)
}

// SurfaceTrapAfterFrame returns a command that waits for one frame and then
// traps.
func SurfaceTrapAfterFrame() []byte {
	m := &Module{}
	create := m.Import(surfaceNS, "create-surface", Sig(2, 1))
	wait := m.Import(surfaceNS, "wait-frame", Sig(1, 1))

	body := NewCode().
		I32Const(0).I32Const(0).Call(create).
		Call(wait).Drop().
		Unreachable()
	return command(m, body, 0)
}

// DemoColor is the first fill color of the demo guest, 0xRRGGBBAA.
const DemoColor uint32 = 0x203040ff

// DemoColorStep is added to the fill color after every frame.
const DemoColorStep uint32 = 0x00030500

// Demo returns the built-in demo guest. It takes the surface, connects a
// graphics context, opens a GPU device and then fills and presents one frame
// per tick, shifting the color each time, until the surface goes away.
func Demo() []byte {
	m := &Module{}
	create := m.Import(surfaceNS, "create-surface", Sig(2, 1))
	wait := m.Import(surfaceNS, "wait-frame", Sig(1, 1))
	createCtx := m.Import(contextNS, "create-context", Sig(0, 1))
	connect := m.Import(contextNS, "connect", Sig(2, 1))
	present := m.Import(contextNS, "present", Sig(1, 1))
	getBuffer := m.Import(bufferNS, "get-buffer", Sig(1, 1))
	fill := m.Import(bufferNS, "fill", Sig(2, 1))
	getGPU := m.Import(webgpuNS, "get-gpu", Sig(0, 1))
	adapter := m.Import(webgpuNS, "request-adapter", Sig(1, 1))
	device := m.Import(webgpuNS, "request-device", Sig(1, 1))

	const (
		surf = iota
		gctx
		buf
		color
	)

	body := NewCode().
		I32Const(0).I32Const(0).Call(create).LocalSet(surf).
		Call(createCtx).LocalSet(gctx).
		LocalGet(gctx).LocalGet(surf).Call(connect).Drop().
		Call(getGPU).Call(adapter).Call(device).Drop().
		I32Const(int32(DemoColor)).LocalSet(color).
		Block().
		Loop().
		LocalGet(surf).Call(wait).I32Eqz().BrIf(1).
		LocalGet(gctx).Call(getBuffer).LocalSet(buf).
		LocalGet(buf).LocalGet(color).Call(fill).Drop().
		LocalGet(gctx).Call(present).Drop().
		LocalGet(color).I32Const(int32(DemoColorStep)).I32Add().LocalSet(color).
		Br(0).
		End().
		End()
	return command(m, body, 4)
}

// Memory returns a module exporting pages of memory filled by data at 0.
func Memory(pages uint32, data []byte) []byte {
	m := &Module{MemoryPages: pages, ExportMemory: true}
	if len(data) > 0 {
		m.Data = append(m.Data, Data{Offset: 0, Bytes: data})
	}
	return m.Encode()
}
