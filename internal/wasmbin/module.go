package wasmbin

import (
	"fmt"
	"slices"
)

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionExport   byte = 7
	sectionCode     byte = 10
	sectionData     byte = 11

	kindFunc   byte = 0x00
	kindMemory byte = 0x02

	funcTypeByte byte = 0x60
)

var header = []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Sig builds an i32-only signature.
func Sig(params, results int) FuncType {
	ft := FuncType{}
	for i := 0; i < params; i++ {
		ft.Params = append(ft.Params, I32)
	}
	for i := 0; i < results; i++ {
		ft.Results = append(ft.Results, I32)
	}
	return ft
}

func (ft FuncType) equal(o FuncType) bool {
	return slices.Equal(ft.Params, o.Params) && slices.Equal(ft.Results, o.Results)
}

// Import is an imported function.
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// Func is a function defined by the module.
type Func struct {
	// Export is the export name; empty keeps the function private.
	Export string
	Type   FuncType
	Locals []ValType
	Body   *Code
}

// Data is an active data segment in memory 0.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module is a core module under construction.
type Module struct {
	Imports []Import
	Funcs   []Func
	Data    []Data

	// MemoryPages is the initial memory size. 0 means no memory.
	MemoryPages uint32

	// ExportMemory exports memory 0 as "memory".
	ExportMemory bool
}

// Import adds a function import and returns its function index. Imports
// must be added before any function index is used.
func (m *Module) Import(module, name string, ft FuncType) uint32 {
	m.Imports = append(m.Imports, Import{Module: module, Name: name, Type: ft})
	return uint32(len(m.Imports) - 1)
}

// Func adds a defined function and returns its function index.
func (m *Module) Func(f Func) uint32 {
	m.Funcs = append(m.Funcs, f)
	return uint32(len(m.Imports) + len(m.Funcs) - 1)
}

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	var types []FuncType
	typeIndex := func(ft FuncType) uint32 {
		for i, t := range types {
			if t.equal(ft) {
				return uint32(i)
			}
		}
		types = append(types, ft)
		return uint32(len(types) - 1)
	}

	importIdx := make([]uint32, len(m.Imports))
	for i, imp := range m.Imports {
		importIdx[i] = typeIndex(imp.Type)
	}
	funcIdx := make([]uint32, len(m.Funcs))
	for i, f := range m.Funcs {
		funcIdx[i] = typeIndex(f.Type)
	}

	out := slices.Clone(header)

	if len(types) > 0 {
		sec := appendU32(nil, uint32(len(types)))
		for _, ft := range types {
			sec = append(sec, funcTypeByte)
			sec = appendValTypes(sec, ft.Params)
			sec = appendValTypes(sec, ft.Results)
		}
		out = appendSection(out, sectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := appendU32(nil, uint32(len(m.Imports)))
		for i, imp := range m.Imports {
			sec = appendName(sec, imp.Module)
			sec = appendName(sec, imp.Name)
			sec = append(sec, kindFunc)
			sec = appendU32(sec, importIdx[i])
		}
		out = appendSection(out, sectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := appendU32(nil, uint32(len(m.Funcs)))
		for _, idx := range funcIdx {
			sec = appendU32(sec, idx)
		}
		out = appendSection(out, sectionFunction, sec)
	}

	if m.MemoryPages > 0 {
		sec := appendU32(nil, 1)
		sec = append(sec, 0x00) // min only
		sec = appendU32(sec, m.MemoryPages)
		out = appendSection(out, sectionMemory, sec)
	}

	var exports []byte
	nexports := uint32(0)
	for i, f := range m.Funcs {
		if f.Export == "" {
			continue
		}
		exports = appendName(exports, f.Export)
		exports = append(exports, kindFunc)
		exports = appendU32(exports, uint32(len(m.Imports)+i))
		nexports++
	}
	if m.ExportMemory && m.MemoryPages > 0 {
		exports = appendName(exports, "memory")
		exports = append(exports, kindMemory)
		exports = appendU32(exports, 0)
		nexports++
	}
	if nexports > 0 {
		out = appendSection(out, sectionExport, append(appendU32(nil, nexports), exports...))
	}

	if len(m.Funcs) > 0 {
		sec := appendU32(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			body := appendU32(nil, uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body = appendU32(body, 1)
				body = append(body, byte(l))
			}
			if f.Body != nil {
				body = append(body, f.Body.Bytes()...)
			}
			body = append(body, opEnd)
			sec = appendU32(sec, uint32(len(body)))
			sec = append(sec, body...)
		}
		out = appendSection(out, sectionCode, sec)
	}

	if len(m.Data) > 0 {
		sec := appendU32(nil, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec = append(sec, 0x00, opI32Const)
			sec = appendS32(sec, int32(d.Offset))
			sec = append(sec, opEnd)
			sec = appendU32(sec, uint32(len(d.Bytes)))
			sec = append(sec, d.Bytes...)
		}
		out = appendSection(out, sectionData, sec)
	}

	return out
}

func appendValTypes(b []byte, ts []ValType) []byte {
	b = appendU32(b, uint32(len(ts)))
	for _, t := range ts {
		b = append(b, byte(t))
	}
	return b
}

func appendSection(b []byte, id byte, payload []byte) []byte {
	b = append(b, id)
	b = appendU32(b, uint32(len(payload)))
	return append(b, payload...)
}

// String summarizes the module for test failure messages.
func (m *Module) String() string {
	return fmt.Sprintf("module(%d imports, %d funcs, %d pages)", len(m.Imports), len(m.Funcs), m.MemoryPages)
}
