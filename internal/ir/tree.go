package ir

import (
	"fmt"

	"github.com/wippyai/wasm-lua/errors"
	"github.com/wippyai/wasm-lua/wasm"
)

// Node represents a node in the instruction tree.
type Node interface {
	// Params returns the types a construct takes from the operand stack.
	Params() []wasm.ValType
	// Results returns the result types produced by this node, or nil for void.
	Results() []wasm.ValType
}

// SeqNode represents a sequence of nodes (instruction list).
type SeqNode struct {
	Children []Node
}

func (n *SeqNode) Params() []wasm.ValType  { return nil }
func (n *SeqNode) Results() []wasm.ValType { return nil }

// BlockNode represents block or loop constructs.
type BlockNode struct {
	Body        *SeqNode
	ParamTypes  []wasm.ValType
	ResultTypes []wasm.ValType
	Imm         wasm.BlockImm
	Opcode      byte
}

func (n *BlockNode) Params() []wasm.ValType  { return n.ParamTypes }
func (n *BlockNode) Results() []wasm.ValType { return n.ResultTypes }

// IsLoop reports whether branches to this node restart it.
func (n *BlockNode) IsLoop() bool { return n.Opcode == wasm.OpLoop }

// IfNode represents if/else constructs. Else is nil when the source has no
// else arm.
type IfNode struct {
	Then        *SeqNode
	Else        *SeqNode
	ParamTypes  []wasm.ValType
	ResultTypes []wasm.ValType
	Imm         wasm.BlockImm
}

func (n *IfNode) Params() []wasm.ValType  { return n.ParamTypes }
func (n *IfNode) Results() []wasm.ValType { return n.ResultTypes }

// InstrNode represents a single non-structural instruction.
type InstrNode struct {
	Instr wasm.Instruction
}

func (n *InstrNode) Params() []wasm.ValType  { return nil }
func (n *InstrNode) Results() []wasm.ValType { return nil }

// Parse converts a function body's instruction stream, including its final
// end, into a tree. If module is provided, type indices in block types are
// resolved.
func Parse(instrs []wasm.Instruction, module ...*wasm.Module) (*SeqNode, error) {
	var m *wasm.Module
	if len(module) > 0 {
		m = module[0]
	}
	p := &parser{instrs: instrs, module: m}

	body, term, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	switch term {
	case termElse:
		return nil, p.errorf("else outside of if")
	case termEOF:
		return nil, p.errorf("missing end of function body")
	}
	if p.pos < len(p.instrs) {
		return nil, p.errorf("%d instructions after end of function body", len(p.instrs)-p.pos)
	}
	return body, nil
}

type terminator int

const (
	termEnd terminator = iota
	termElse
	termEOF
)

type parser struct {
	module *wasm.Module
	instrs []wasm.Instruction
	pos    int
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path("instr", fmt.Sprint(p.pos)).
		Detail(format, args...).
		Build()
}

// parseSeq consumes instructions up to and including the matching end. An
// else is left for the caller.
func (p *parser) parseSeq() (*SeqNode, terminator, error) {
	seq := &SeqNode{}

	for p.pos < len(p.instrs) {
		instr := p.instrs[p.pos]

		switch instr.Opcode {
		case wasm.OpEnd:
			p.pos++
			return seq, termEnd, nil

		case wasm.OpElse:
			return seq, termElse, nil

		case wasm.OpBlock, wasm.OpLoop:
			n, err := p.parseBlock()
			if err != nil {
				return nil, 0, err
			}
			seq.Children = append(seq.Children, n)

		case wasm.OpIf:
			n, err := p.parseIf()
			if err != nil {
				return nil, 0, err
			}
			seq.Children = append(seq.Children, n)

		default:
			seq.Children = append(seq.Children, &InstrNode{Instr: instr})
			p.pos++
		}
	}

	return seq, termEOF, nil
}

func (p *parser) parseBlock() (Node, error) {
	instr := p.instrs[p.pos]
	imm, _ := instr.Imm.(wasm.BlockImm)
	p.pos++

	body, term, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	switch term {
	case termElse:
		return nil, p.errorf("else inside %s", wasm.OpcodeName(instr.Opcode))
	case termEOF:
		return nil, p.errorf("missing end of %s", wasm.OpcodeName(instr.Opcode))
	}

	params, results := blockTypeToParamsAndResults(imm.Type, p.module)
	return &BlockNode{
		Opcode:      instr.Opcode,
		ParamTypes:  params,
		ResultTypes: results,
		Body:        body,
		Imm:         imm,
	}, nil
}

func (p *parser) parseIf() (Node, error) {
	imm, _ := p.instrs[p.pos].Imm.(wasm.BlockImm)
	p.pos++

	thenBranch, term, err := p.parseSeq()
	if err != nil {
		return nil, err
	}

	var elseBranch *SeqNode
	if term == termElse {
		p.pos++
		elseBranch, term, err = p.parseSeq()
		if err != nil {
			return nil, err
		}
		if term == termElse {
			return nil, p.errorf("second else in if")
		}
	}
	if term == termEOF {
		return nil, p.errorf("missing end of if")
	}

	params, results := blockTypeToParamsAndResults(imm.Type, p.module)
	return &IfNode{
		ParamTypes:  params,
		ResultTypes: results,
		Then:        thenBranch,
		Else:        elseBranch,
		Imm:         imm,
	}, nil
}

// blockTypeToParamsAndResults converts a block type to param and result types.
func blockTypeToParamsAndResults(blockType int32, module *wasm.Module) (params, results []wasm.ValType) {
	switch blockType {
	case wasm.BlockTypeI32:
		return nil, []wasm.ValType{wasm.ValI32}
	case wasm.BlockTypeI64:
		return nil, []wasm.ValType{wasm.ValI64}
	case wasm.BlockTypeF32:
		return nil, []wasm.ValType{wasm.ValF32}
	case wasm.BlockTypeF64:
		return nil, []wasm.ValType{wasm.ValF64}
	case -16: // funcref
		return nil, []wasm.ValType{wasm.ValFuncRef}
	case -17: // externref
		return nil, []wasm.ValType{wasm.ValExtern}
	case wasm.BlockTypeVoid:
		return nil, nil
	default:
		if blockType >= 0 && module != nil && int(blockType) < len(module.Types) {
			ft := &module.Types[blockType]
			return ft.Params, ft.Results
		}
		return nil, nil
	}
}
