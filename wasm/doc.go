// Package wasm decodes the parts of a WebAssembly binary module that the Lua
// backend lowers: function types, imports, declarations, exports and code.
//
// # Parsing
//
//	m, err := wasm.ParseModule(data)
//	if err != nil {
//	    return err
//	}
//	for i, body := range m.Code {
//	    instrs, err := wasm.DecodeInstructions(body.Code)
//	    ...
//	}
//
// Table, memory, global, element and data sections are checked for order
// and skipped. Instruction families with no Lua lowering (SIMD, atomics,
// GC, exception handling, tail calls) fail with ErrUnsupportedOpcode.
//
// # Encoding
//
// Module.Encode and EncodeInstructions produce binaries from the same
// structures. They exist mainly to build fixtures for tests:
//
//	body := wasm.EncodeInstructions([]wasm.Instruction{
//	    {Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
//	    {Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
//	    {Opcode: wasm.OpEnd},
//	    {Opcode: wasm.OpEnd},
//	})
//
// # Errors
//
// Decoding failures are reported as *ParseError carrying the section name
// and byte position; errors.Is sees through it to sentinels such as
// ErrOverflow and ErrUnsupportedOpcode.
package wasm
