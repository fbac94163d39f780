package wasm

import "fmt"

// Module holds the parts of a WebAssembly module the Lua backend consumes.
// Sections that do not affect control lowering are skipped by ParseModule.
type Module struct {
	Types   []FuncType
	Imports []Import
	Funcs   []uint32 // Type indices for declared functions
	Exports []Export
	Code    []FuncBody
}

// ValType is a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a single import entry. TypeIdx is only meaningful for KindFunc.
type Import struct {
	Module  string
	Name    string
	Kind    byte
	TypeIdx uint32
}

// Export is a single export entry.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody is the body of a defined function.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including the final end opcode
}

// LocalEntry is a run of locals sharing one type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// LocalCount returns the number of declared locals, excluding parameters.
func (b *FuncBody) LocalCount() int {
	n := 0
	for _, l := range b.Locals {
		n += int(l.Count)
	}
	return n
}

// ImportedFuncs returns the number of imported functions. Imported functions
// occupy the first indices of the function index space.
func (m *Module) ImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind == KindFunc {
			n++
		}
	}
	return n
}

// FuncTypeOf returns the signature of the function at funcIdx in the
// function index space.
func (m *Module) FuncTypeOf(funcIdx uint32) (*FuncType, bool) {
	var typeIdx uint32
	imported := uint32(m.ImportedFuncs())
	if funcIdx < imported {
		n := uint32(0)
		for _, imp := range m.Imports {
			if imp.Kind != KindFunc {
				continue
			}
			if n == funcIdx {
				typeIdx = imp.TypeIdx
				break
			}
			n++
		}
	} else {
		defined := funcIdx - imported
		if int(defined) >= len(m.Funcs) {
			return nil, false
		}
		typeIdx = m.Funcs[defined]
	}
	if int(typeIdx) >= len(m.Types) {
		return nil, false
	}
	return &m.Types[typeIdx], true
}

// ExportedFuncNames maps function indices to their export names, in export
// section order.
func (m *Module) ExportedFuncNames() map[uint32][]string {
	names := make(map[uint32][]string)
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc {
			names[exp.Idx] = append(names[exp.Idx], exp.Name)
		}
	}
	return names
}
