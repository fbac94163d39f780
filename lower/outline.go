package lower

import (
	"io"
	"strconv"

	"github.com/wippyai/wasm-lua/edition"
	"github.com/wippyai/wasm-lua/wasm"
)

// Outline is a Body that keeps straight-line code as Lua comments. It
// tracks the most recent simple producer so control instructions test a
// readable operand.
type Outline struct {
	ed       edition.Edition
	operand  string
	comments bool
}

// NewOutline returns an Outline for ed. With comments disabled nothing is
// written for straight-line instructions.
func NewOutline(ed edition.Edition, comments bool) *Outline {
	return &Outline{ed: ed, comments: comments}
}

// Operand returns loc_N after local.get or local.tee, the literal after an
// integer constant, and reg otherwise.
func (o *Outline) Operand() string {
	if o.operand == "" {
		return "reg"
	}
	return o.operand
}

func (o *Outline) Instruction(instr wasm.Instruction, w io.Writer) error {
	text := instr.String()

	switch imm := instr.Imm.(type) {
	case wasm.LocalImm:
		if instr.Opcode == wasm.OpLocalSet {
			o.operand = ""
		} else {
			o.operand = local(int(imm.LocalIdx))
		}
	case wasm.I32Imm:
		o.operand = strconv.FormatInt(int64(imm.Value), 10)
	case wasm.I64Imm:
		o.operand = o.ed.I64(imm.Value)
		text = wasm.OpcodeName(instr.Opcode) + " " + o.operand
	default:
		o.operand = ""
	}

	if !o.comments {
		return nil
	}
	return line(w, "-- %s", text)
}
