// Package wasmlua translates WebAssembly core modules into Lua source.
//
// The hard part of the translation is control flow: WebAssembly branches
// name enclosing constructs by relative depth, while Lua dialects offer
// either goto (LuaJIT) or only break and continue (Luau). Each dialect is an
// edition that lowers blocks, loops, ifs and branches its own way.
//
// # Architecture Overview
//
//	wasmlua/
//	├── compiler/        Validation, decoding and chunk assembly
//	├── lower/           Control tree walker and straight-line emitters
//	├── edition/         LuaJIT (goto labels) and Luau (sentinel unwinding)
//	├── wasm/            Core wasm binary decoding and encoding
//	├── internal/ir/     Structured control tree
//	├── errors/          Structured errors with phase and kind
//	└── cmd/wasm2lua/    Command-line front end
//
// # Quick Start
//
//	c, err := compiler.New(compiler.DefaultConfig().WithEdition("luau"))
//	if err != nil {
//	    return err
//	}
//	if err := c.Compile(ctx, wasmBytes, os.Stdout); err != nil {
//	    return err
//	}
//
// # Editions
//
// LuaJIT places a label per nesting level and compiles every branch to a
// single goto. Luau wraps each construct in a one-shot while loop; a branch
// crossing several constructs stores its target level in the desired
// variable and breaks, and each enclosing construct either consumes it or
// keeps unwinding.
package wasmlua
