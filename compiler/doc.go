// Package compiler translates WebAssembly binary modules into Lua chunks.
//
// A compilation validates the binary with wazero, decodes it, builds the
// control tree of every selected function and lowers it through the
// configured edition. The resulting chunk has this shape:
//
//	-- runtime: luajit
//	-- import 0: env.print
//	local FUNC_LIST = {}
//	FUNC_LIST[1] = function(loc_0)
//	...
//	end
//	return {
//	func_list = FUNC_LIST,
//	export = {
//	["run"] = FUNC_LIST[1],
//	},
//	}
//
// Imported functions take the first function indices and have no entry in
// FUNC_LIST; the host is expected to fill them in.
//
// # Usage
//
//	cfg, err := compiler.LoadConfig("wasm2lua.yaml")
//	if err != nil {
//	    return err
//	}
//	c, err := compiler.New(cfg.WithEdition("luau"))
//	if err != nil {
//	    return err
//	}
//	err = c.Compile(ctx, wasmBytes, os.Stdout)
package compiler
