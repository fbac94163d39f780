package lower

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-lua/edition"
	"github.com/wippyai/wasm-lua/errors"
	"github.com/wippyai/wasm-lua/internal/ir"
	"github.com/wippyai/wasm-lua/wasm"
)

// Func is one defined function ready for lowering.
type Func struct {
	Body   *ir.SeqNode
	Params []wasm.ValType
	Locals []wasm.ValType
	Index  uint32
}

// Options selects the target dialect and the emitter for straight-line code.
type Options struct {
	Edition edition.Edition
	// Body emits non-control instructions. Nil means an Outline with
	// comments enabled.
	Body Body
}

// Body emits the straight-line instructions between control constructs.
type Body interface {
	// Operand returns the Lua expression holding the value a control
	// instruction consumes (if, br_if, br_table).
	Operand() string
	Instruction(instr wasm.Instruction, w io.Writer) error
}

type label struct {
	level  int
	isLoop bool
}

type walker struct {
	w        io.Writer
	ed       edition.Edition
	body     Body
	labels   []label
	loops    []bool
	index    uint32
	maxLevel int
	branches int
}

// Function writes fn as a Lua function assigned to FUNC_LIST[fn.Index].
//
// The body is a block at level 0, so a branch to the function label leaves
// the function. Write failures are returned as emit errors that still match
// the sink's error under errors.Is.
func Function(w io.Writer, fn Func, opts Options) error {
	if opts.Edition == nil {
		return errors.InvalidInput(errors.PhaseLower, "no edition selected")
	}
	if fn.Body == nil {
		return errors.InvalidInput(errors.PhaseLower, fmt.Sprintf("function %d has no body", fn.Index))
	}
	body := opts.Body
	if body == nil {
		body = NewOutline(opts.Edition, true)
	}

	lw := &walker{w: w, ed: opts.Edition, body: body, index: fn.Index}
	if err := lw.function(fn); err != nil {
		if _, ok := err.(*errors.Error); ok {
			return err
		}
		return errors.WriteFailed(fmt.Sprintf("function %d", fn.Index), err)
	}

	Logger().Debug("lowered function",
		zap.Uint32("index", fn.Index),
		zap.String("runtime", opts.Edition.Runtime()),
		zap.Int("max_level", lw.maxLevel),
		zap.Int("branches", lw.branches))
	return nil
}

func (lw *walker) function(fn Func) error {
	params := make([]string, len(fn.Params))
	for i := range fn.Params {
		params[i] = local(i)
	}
	if err := line(lw.w, "FUNC_LIST[%d] = function(%s)", fn.Index, strings.Join(params, ", ")); err != nil {
		return err
	}

	if len(fn.Locals) > 0 {
		names := make([]string, len(fn.Locals))
		zeros := make([]string, len(fn.Locals))
		for i, t := range fn.Locals {
			names[i] = local(len(fn.Params) + i)
			zeros[i] = lw.zero(t)
		}
		if err := line(lw.w, "local %s = %s", strings.Join(names, ", "), strings.Join(zeros, ", ")); err != nil {
			return err
		}
	}

	if err := lw.ed.Prologue(lw.w); err != nil {
		return err
	}

	level := lw.enter(false)
	if err := lw.ed.StartBlock(lw.w); err != nil {
		return err
	}
	if err := lw.seq(fn.Body); err != nil {
		return err
	}
	if err := lw.ed.EndBlock(level, lw.w); err != nil {
		return err
	}
	lw.leave()

	return line(lw.w, "end")
}

func (lw *walker) seq(s *ir.SeqNode) error {
	for _, child := range s.Children {
		var err error
		switch n := child.(type) {
		case *ir.InstrNode:
			err = lw.instr(n.Instr)
		case *ir.BlockNode:
			if err = lw.block(n); err == nil {
				err = lw.resume()
			}
		case *ir.IfNode:
			if err = lw.ifNode(n); err == nil {
				err = lw.resume()
			}
		default:
			err = errors.Unsupported(errors.PhaseLower, fmt.Sprintf("node %T", child))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// resume marks the point where a branch unwinding out of a just-closed
// construct lands in the enclosing one.
func (lw *walker) resume() error {
	level := lw.level()
	return lw.ed.BranchTarget(level, lw.loops[level], lw.w)
}

func (lw *walker) block(n *ir.BlockNode) error {
	isLoop := n.IsLoop()
	level := lw.enter(isLoop)

	var err error
	if isLoop {
		err = lw.ed.StartLoop(level, lw.w)
	} else {
		err = lw.ed.StartBlock(lw.w)
	}
	if err != nil {
		return err
	}
	if err := lw.seq(n.Body); err != nil {
		return err
	}
	if isLoop {
		err = lw.ed.EndLoop(lw.w)
	} else {
		err = lw.ed.EndBlock(level, lw.w)
	}
	lw.leave()
	return err
}

// ifNode lowers if without else to a single if construct. With an else arm,
// both arms live inside a block carrying the wasm label; the then arm is an
// if construct one level deeper that skips the else arm by branching to the
// block.
func (lw *walker) ifNode(n *ir.IfNode) error {
	cond := lw.body.Operand()

	if n.Else == nil {
		level := lw.enter(false)
		if err := lw.ed.StartIf(cond, lw.w); err != nil {
			return err
		}
		if err := lw.seq(n.Then); err != nil {
			return err
		}
		err := lw.ed.EndIf(level, lw.w)
		lw.leave()
		return err
	}

	level := lw.enter(false)
	if err := lw.ed.StartBlock(lw.w); err != nil {
		return err
	}

	inner := lw.push(false)
	if err := lw.ed.StartIf(cond, lw.w); err != nil {
		return err
	}
	if err := lw.seq(n.Then); err != nil {
		return err
	}
	lw.branches++
	if err := lw.ed.BranchToLevel(inner, 1, false, lw.w); err != nil {
		return err
	}
	if err := lw.ed.EndIf(inner, lw.w); err != nil {
		return err
	}
	lw.pop()

	if err := lw.resume(); err != nil {
		return err
	}
	if err := lw.seq(n.Else); err != nil {
		return err
	}
	err := lw.ed.EndBlock(level, lw.w)
	lw.leave()
	return err
}

func (lw *walker) instr(instr wasm.Instruction) error {
	switch instr.Opcode {
	case wasm.OpBr:
		imm, _ := instr.Imm.(wasm.BranchImm)
		return lw.branch(imm.LabelIdx)

	case wasm.OpBrIf:
		imm, _ := instr.Imm.(wasm.BranchImm)
		if err := line(lw.w, "if %s ~= 0 then", lw.body.Operand()); err != nil {
			return err
		}
		if err := lw.branch(imm.LabelIdx); err != nil {
			return err
		}
		return line(lw.w, "end")

	case wasm.OpBrTable:
		imm, _ := instr.Imm.(wasm.BrTableImm)
		return lw.table(imm)

	case wasm.OpReturn:
		return line(lw.w, "do return end")

	default:
		return lw.body.Instruction(instr, lw.w)
	}
}

func (lw *walker) table(imm wasm.BrTableImm) error {
	if len(imm.Labels) == 0 {
		return lw.branch(imm.Default)
	}

	cond := lw.body.Operand()
	for i, depth := range imm.Labels {
		kw := "elseif"
		if i == 0 {
			kw = "if"
		}
		if err := line(lw.w, "%s %s == %d then", kw, cond, i); err != nil {
			return err
		}
		if err := lw.branch(depth); err != nil {
			return err
		}
	}
	if err := line(lw.w, "else"); err != nil {
		return err
	}
	if err := lw.branch(imm.Default); err != nil {
		return err
	}
	return line(lw.w, "end")
}

func (lw *walker) branch(depth uint32) error {
	if int64(depth) >= int64(len(lw.labels)) {
		return errors.OutOfBounds(errors.PhaseLower,
			[]string{"func " + strconv.FormatUint(uint64(lw.index), 10), "br"},
			int(depth), len(lw.labels))
	}
	target := lw.labels[len(lw.labels)-1-int(depth)]
	level := lw.level()
	lw.branches++
	return lw.ed.BranchToLevel(level, level-target.level, target.isLoop, lw.w)
}

// enter opens a construct that carries a wasm label.
func (lw *walker) enter(isLoop bool) int {
	level := lw.push(isLoop)
	lw.labels = append(lw.labels, label{level: level, isLoop: isLoop})
	return level
}

func (lw *walker) leave() {
	lw.labels = lw.labels[:len(lw.labels)-1]
	lw.pop()
}

// push opens a construct level without a wasm label.
func (lw *walker) push(isLoop bool) int {
	lw.loops = append(lw.loops, isLoop)
	level := len(lw.loops) - 1
	if level > lw.maxLevel {
		lw.maxLevel = level
	}
	return level
}

func (lw *walker) pop() {
	lw.loops = lw.loops[:len(lw.loops)-1]
}

func (lw *walker) level() int {
	return len(lw.loops) - 1
}

func (lw *walker) zero(t wasm.ValType) string {
	switch t {
	case wasm.ValI32:
		return "0"
	case wasm.ValI64:
		return lw.ed.I64(0)
	case wasm.ValF32, wasm.ValF64:
		return "0.0"
	default:
		return "nil"
	}
}

func local(i int) string {
	return "loc_" + strconv.Itoa(i)
}

func line(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format+"\n", args...)
	return err
}
