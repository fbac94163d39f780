package compiler_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-lua/compiler"
	werrors "github.com/wippyai/wasm-lua/errors"
	"github.com/wippyai/wasm-lua/wasm"
)

var void = wasm.BlockImm{Type: wasm.BlockTypeVoid}

// testModule imports env.print and defines a loop polling its parameter and
// a function escaping a block.
func testModule(exports ...wasm.Export) []byte {
	loop := wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpLoop, Imm: void},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 0}},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpEnd},
	})
	escape := wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpBlock, Imm: void},
		{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpEnd},
	})
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}},
			{},
		},
		Imports: []wasm.Import{{Module: "env", Name: "print", Kind: wasm.KindFunc, TypeIdx: 0}},
		Funcs:   []uint32{0, 1},
		Exports: exports,
		Code: []wasm.FuncBody{
			{Code: loop},
			{Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}}, Code: escape},
		},
	}
	return m.Encode()
}

func compile(t *testing.T, cfg *compiler.Config, data []byte) (string, error) {
	t.Helper()
	c, err := compiler.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	err = c.Compile(context.Background(), data, &buf)
	return buf.String(), err
}

func TestCompile_LuaJIT(t *testing.T) {
	data := testModule(wasm.Export{Name: "run", Kind: wasm.KindFunc, Idx: 1})

	got, err := compile(t, compiler.DefaultConfig(), data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := strings.Join([]string{
		"-- runtime: luajit",
		"-- import 0: env.print",
		"local FUNC_LIST = {}",
		"FUNC_LIST[1] = function(loc_0)",
		"do",
		"do",
		"::continue_at_1::",
		"-- local.get 0",
		"if loc_0 ~= 0 then",
		"goto continue_at_1",
		"end",
		"end",
		"::continue_at_0::",
		"end",
		"end",
		"FUNC_LIST[2] = function()",
		"local loc_0 = 0",
		"do",
		"do",
		"goto continue_at_1",
		"::continue_at_1::",
		"end",
		"::continue_at_0::",
		"end",
		"end",
		"return {",
		"func_list = FUNC_LIST,",
		"export = {",
		`["run"] = FUNC_LIST[1],`,
		"},",
		"}",
	}, "\n") + "\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_Luau(t *testing.T) {
	data := testModule(wasm.Export{Name: "run", Kind: wasm.KindFunc, Idx: 1})

	got, err := compile(t, compiler.DefaultConfig().WithEdition("luau"), data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, want := range []string{
		"-- runtime: luau\n",
		"FUNC_LIST[1] = function(loc_0)\nlocal desired\nwhile true do\n",
		"if loc_0 ~= 0 then\ndo\ncontinue\nend\nend\n",
		`["run"] = FUNC_LIST[1],`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "goto") {
		t.Errorf("luau output must not use goto:\n%s", got)
	}
}

func TestCompile_WithoutComments(t *testing.T) {
	data := testModule()
	got, err := compile(t, compiler.DefaultConfig().WithComments(false), data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(got, "-- local.get") {
		t.Errorf("instruction comments should be omitted:\n%s", got)
	}
}

func TestCompile_FunctionFilter(t *testing.T) {
	data := testModule(
		wasm.Export{Name: "run", Kind: wasm.KindFunc, Idx: 1},
		wasm.Export{Name: `odd"name`, Kind: wasm.KindFunc, Idx: 2},
	)

	got, err := compile(t, compiler.DefaultConfig().WithFunctions(`odd"name`), data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(got, "FUNC_LIST[1] = function") {
		t.Errorf("filtered function 1 was emitted:\n%s", got)
	}
	if !strings.Contains(got, `["odd\"name"] = FUNC_LIST[2],`) {
		t.Errorf("missing quoted export:\n%s", got)
	}

	_, err = compile(t, compiler.DefaultConfig().WithFunctions("missing"), data)
	var e *werrors.Error
	if !errors.As(err, &e) || e.Kind != werrors.KindNotFound {
		t.Errorf("expected not_found error, got %v", err)
	}
}

func TestCompile_ValidationFailure(t *testing.T) {
	// () -> () leaving an i32 on the stack
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Funcs: []uint32{0},
		Code: []wasm.FuncBody{{Code: wasm.EncodeInstructions([]wasm.Instruction{
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
			{Opcode: wasm.OpEnd},
		})}},
	}
	data := m.Encode()

	_, err := compile(t, compiler.DefaultConfig(), data)
	var e *werrors.Error
	if !errors.As(err, &e) || e.Phase != werrors.PhaseValidate {
		t.Fatalf("expected validate error, got %v", err)
	}

	got, err := compile(t, compiler.DefaultConfig().WithSkipValidation(true), data)
	if err != nil {
		t.Fatalf("Compile without validation: %v", err)
	}
	if !strings.Contains(got, "-- i32.const 1") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestCompile_DecodeFailure(t *testing.T) {
	_, err := compile(t, compiler.DefaultConfig().WithSkipValidation(true), []byte("not wasm"))
	var e *werrors.Error
	if !errors.As(err, &e) || e.Phase != werrors.PhaseDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !errors.Is(err, wasm.ErrInvalidMagic) {
		t.Errorf("cause should be ErrInvalidMagic: %v", err)
	}
}

var errSink = errors.New("sink closed")

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errSink }

func TestCompile_WriteFailure(t *testing.T) {
	c, err := compiler.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.Compile(context.Background(), testModule(), failWriter{})
	if !errors.Is(err, errSink) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestDumpTrees(t *testing.T) {
	data := testModule(wasm.Export{Name: "run", Kind: wasm.KindFunc, Idx: 1})
	c, err := compiler.New(compiler.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var buf bytes.Buffer
	if err := c.DumpTrees(context.Background(), data, &buf); err != nil {
		t.Fatalf("DumpTrees: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"func 1 (run)", "func 2", "loop", "br_if 0", "block", "br 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestNew_UnknownEdition(t *testing.T) {
	_, err := compiler.New(compiler.DefaultConfig().WithEdition("lua54"))
	var e *werrors.Error
	if !errors.As(err, &e) || e.Phase != werrors.PhaseConfig || e.Kind != werrors.KindNotFound {
		t.Fatalf("expected config/not_found, got %v", err)
	}
}

func TestCompiler_Edition(t *testing.T) {
	c, err := compiler.New(compiler.DefaultConfig().WithEdition("luau"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Edition().Runtime(); got != "luau" {
		t.Errorf("Edition().Runtime() = %q", got)
	}
}

func localsModule(params, locals uint32) []byte {
	m := &wasm.Module{
		Types: []wasm.FuncType{{Params: make([]wasm.ValType, params)}},
		Funcs: []uint32{0},
		Code: []wasm.FuncBody{{
			Locals: []wasm.LocalEntry{{Count: locals, ValType: wasm.ValI32}},
			Code:   wasm.EncodeInstructions([]wasm.Instruction{{Opcode: wasm.OpEnd}}),
		}},
	}
	for i := range m.Types[0].Params {
		m.Types[0].Params[i] = wasm.ValI32
	}
	return m.Encode()
}

func TestCompile_LocalLimit(t *testing.T) {
	tests := []struct {
		name    string
		edition string
		params  uint32
		locals  uint32
		wantErr bool
	}{
		{"luajit at limit", "luajit", 0, 200, false},
		{"luajit params count", "luajit", 1, 200, true},
		{"luau leaves room for sentinel", "luau", 0, 199, false},
		{"luau at limit", "luau", 0, 200, true},
		{"luau params count", "luau", 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, compiler.DefaultConfig().WithEdition(tt.edition), localsModule(tt.params, tt.locals))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Compile: %v", err)
				}
				return
			}
			var e *werrors.Error
			if !errors.As(err, &e) || e.Kind != werrors.KindUnsupported {
				t.Fatalf("expected unsupported error, got %v", err)
			}
		})
	}
}
