package compiler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-lua/edition"
	"github.com/wippyai/wasm-lua/errors"
	"github.com/wippyai/wasm-lua/internal/ir"
	"github.com/wippyai/wasm-lua/lower"
	"github.com/wippyai/wasm-lua/wasm"
)

// Compiler translates WebAssembly modules to Lua for one edition. It is
// immutable after New and safe for concurrent use.
type Compiler struct {
	ed     edition.Edition
	filter map[string]bool
	cfg    Config
}

// New validates cfg and resolves its edition.
func New(cfg *Config) (*Compiler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ed, err := edition.ByName(cfg.Edition)
	if err != nil {
		return nil, err
	}

	c := &Compiler{ed: ed, cfg: *cfg}
	if len(cfg.Functions) > 0 {
		c.filter = make(map[string]bool, len(cfg.Functions))
		for _, name := range cfg.Functions {
			c.filter[name] = true
		}
	}
	return c, nil
}

// Edition returns the resolved target edition.
func (c *Compiler) Edition() edition.Edition {
	return c.ed
}

// function is one defined function selected for output.
type function struct {
	body  wasm.FuncBody
	names []string
	index uint32
	typ   *wasm.FuncType
}

// Compile writes a Lua chunk for wasmBytes to w. The chunk returns a table
// with the function list and the exported functions.
func (c *Compiler) Compile(ctx context.Context, wasmBytes []byte, w io.Writer) error {
	m, funcs, err := c.load(ctx, wasmBytes)
	if err != nil {
		return err
	}

	if err := c.header(w, m); err != nil {
		return err
	}

	for _, fn := range funcs {
		f, err := c.prepare(m, fn)
		if err != nil {
			return err
		}
		opts := lower.Options{Edition: c.ed, Body: lower.NewOutline(c.ed, c.cfg.Comments)}
		if err := lower.Function(w, f, opts); err != nil {
			return err
		}
		Logger().Debug("emitted function",
			zap.Uint32("index", fn.index),
			zap.Strings("exports", fn.names))
	}

	if err := c.footer(w, funcs); err != nil {
		return err
	}

	Logger().Info("compiled module",
		zap.String("runtime", c.ed.Runtime()),
		zap.Int("functions", len(funcs)),
		zap.Int("imports", m.ImportedFuncs()))
	return nil
}

// DumpTrees writes the control tree of every selected function to w.
func (c *Compiler) DumpTrees(ctx context.Context, wasmBytes []byte, w io.Writer) error {
	m, funcs, err := c.load(ctx, wasmBytes)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		tree, err := c.tree(m, fn)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("func %d", fn.index)
		if len(fn.names) > 0 {
			label += " (" + strings.Join(fn.names, ", ") + ")"
		}
		if err := ir.Dump(w, label, tree); err != nil {
			return errors.WriteFailed("tree of "+label, err)
		}
	}
	return nil
}

// load validates and parses the module and selects the functions to emit.
func (c *Compiler) load(ctx context.Context, wasmBytes []byte) (*wasm.Module, []function, error) {
	if !c.cfg.SkipValidation {
		if err := validate(ctx, wasmBytes); err != nil {
			return nil, nil, err
		}
	}

	m, err := wasm.ParseModule(wasmBytes)
	if err != nil {
		return nil, nil, errors.DecodeFailed("module", err)
	}

	funcs, err := c.selectFuncs(m)
	if err != nil {
		return nil, nil, err
	}
	return m, funcs, nil
}

// validate runs the binary through wazero's compiler, which performs full
// WebAssembly validation.
func validate(ctx context.Context, wasmBytes []byte) error {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer func() {
		if err := rt.Close(ctx); err != nil {
			Logger().Warn("failed to close validation runtime", zap.Error(err))
		}
	}()

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.ValidationFailed(err)
	}
	if err := compiled.Close(ctx); err != nil {
		Logger().Warn("failed to close compiled module", zap.Error(err))
	}
	return nil
}

func (c *Compiler) selectFuncs(m *wasm.Module) ([]function, error) {
	names := m.ExportedFuncNames()
	imported := uint32(m.ImportedFuncs())

	seen := make(map[string]bool)
	var funcs []function
	for i, body := range m.Code {
		idx := imported + uint32(i)
		fn := function{body: body, names: names[idx], index: idx}

		if c.filter != nil {
			keep := false
			for _, name := range fn.names {
				if c.filter[name] {
					keep = true
					seen[name] = true
				}
			}
			if !keep {
				Logger().Debug("skipping function", zap.Uint32("index", idx))
				continue
			}
		}

		typ, ok := m.FuncTypeOf(idx)
		if !ok {
			return nil, errors.InvalidData(errors.PhaseDecode,
				[]string{fmt.Sprintf("func %d", idx)}, "type index out of range")
		}
		fn.typ = typ
		funcs = append(funcs, fn)
	}

	for _, name := range c.cfg.Functions {
		if !seen[name] {
			return nil, errors.NotFound(errors.PhaseConfig, "exported function", name)
		}
	}
	return funcs, nil
}

func (c *Compiler) tree(m *wasm.Module, fn function) (*ir.SeqNode, error) {
	instrs, err := wasm.DecodeInstructions(fn.body.Code)
	if err != nil {
		return nil, errors.DecodeFailed(fmt.Sprintf("function %d", fn.index), err)
	}
	return ir.Parse(instrs, m)
}

func (c *Compiler) prepare(m *wasm.Module, fn function) (lower.Func, error) {
	tree, err := c.tree(m, fn)
	if err != nil {
		return lower.Func{}, err
	}

	limit := edition.MaxLocals - c.ed.Reserved()
	if n := len(fn.typ.Params) + fn.body.LocalCount(); n > limit {
		return lower.Func{}, errors.Unsupported(errors.PhaseLower,
			fmt.Sprintf("function %d needs %d locals (%s limit %d)", fn.index, n, c.ed.Runtime(), limit))
	}
	var locals []wasm.ValType
	for _, entry := range fn.body.Locals {
		for j := uint32(0); j < entry.Count; j++ {
			locals = append(locals, entry.ValType)
		}
	}

	return lower.Func{
		Body:   tree,
		Params: fn.typ.Params,
		Locals: locals,
		Index:  fn.index,
	}, nil
}

func (c *Compiler) header(w io.Writer, m *wasm.Module) error {
	var b strings.Builder
	fmt.Fprintf(&b, "-- runtime: %s\n", c.ed.Runtime())
	var n int
	for _, imp := range m.Imports {
		if imp.Kind != wasm.KindFunc {
			continue
		}
		fmt.Fprintf(&b, "-- import %d: %s.%s\n", n, imp.Module, imp.Name)
		n++
	}
	b.WriteString("local FUNC_LIST = {}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.WriteFailed("header", err)
	}
	return nil
}

func (c *Compiler) footer(w io.Writer, funcs []function) error {
	var b strings.Builder
	b.WriteString("return {\n")
	b.WriteString("func_list = FUNC_LIST,\n")
	b.WriteString("export = {\n")
	for _, fn := range funcs {
		for _, name := range fn.names {
			fmt.Fprintf(&b, "[%s] = FUNC_LIST[%d],\n", quote(name), fn.index)
		}
	}
	b.WriteString("},\n")
	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.WriteFailed("footer", err)
	}
	return nil
}

// quote renders s as a Lua string literal. Bytes outside printable ASCII
// use decimal escapes, which every Lua dialect accepts.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"' || ch == '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case ch < 0x20 || ch >= 0x7f:
			fmt.Fprintf(&b, "\\%03d", ch)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
