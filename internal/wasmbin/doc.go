// Package wasmbin encodes small core WebAssembly modules in process.
//
// It covers what the sandbox needs to build guests without a toolchain:
// function imports, i32 functions, one linear memory, exports, active data
// segments and a structured-control-flow instruction subset.
package wasmbin
