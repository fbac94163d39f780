package wasm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnsupportedOpcode is returned for instruction families the Lua backend
// does not lower: SIMD, atomics, GC and exception handling.
var ErrUnsupportedOpcode = errors.New("unsupported opcode")

// Instruction represents a decoded WebAssembly instruction
type Instruction struct {
	Imm    any
	Opcode byte
}

// BlockImm holds the block type for block, loop and if.
type BlockImm struct {
	Type int32
}

// BranchImm holds the label index for br and br_if.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm holds the local index for local.get, local.set and local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// TableImm holds the table index for table.get and table.set.
type TableImm struct {
	TableIdx uint32
}

// MemoryImm holds memory access parameters for loads and stores.
type MemoryImm struct {
	Offset uint64
	Align  uint32
	MemIdx uint32
}

// MemoryIdxImm holds the memory index for memory.size and memory.grow.
type MemoryIdxImm struct {
	MemIdx uint32
}

// I32Imm holds the constant for i32.const.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant for i64.const.
type I64Imm struct {
	Value int64
}

// F32Imm holds the constant for f32.const.
type F32Imm struct {
	Value float32
}

// F64Imm holds the constant for f64.const.
type F64Imm struct {
	Value float64
}

// RefNullImm holds the heap type for ref.null.
type RefNullImm struct {
	HeapType int64
}

// RefFuncImm holds the function index for ref.func.
type RefFuncImm struct {
	FuncIdx uint32
}

// SelectTypeImm holds the value types of a typed select.
type SelectTypeImm struct {
	Types []ValType
}

// MiscImm holds the sub-opcode and immediates of a 0xFC instruction.
type MiscImm struct {
	Operands  []uint32
	SubOpcode uint32
}

// memarg bit 6 announces an explicit memory index (multi-memory).
const memArgMemIdxFlag = 1 << 6

// DecodeInstructions decodes a function body's instruction stream.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := newReader(code)
	instrs := make([]Instruction, 0, len(code)/2)

	for r.len() > 0 {
		start := r.pos
		op, _ := r.readByte()
		instr := Instruction{Opcode: op}

		var err error
		switch {
		case op == OpBlock || op == OpLoop || op == OpIf:
			var bt int32
			bt, err = r.readS32()
			instr.Imm = BlockImm{Type: bt}

		case op == OpBr || op == OpBrIf:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = BranchImm{LabelIdx: idx}

		case op == OpBrTable:
			instr.Imm, err = readBrTable(r)

		case op == OpCall:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = CallImm{FuncIdx: idx}

		case op == OpCallIndirect:
			var imm CallIndirectImm
			if imm.TypeIdx, err = r.readU32(); err == nil {
				imm.TableIdx, err = r.readU32()
			}
			instr.Imm = imm

		case op >= OpLocalGet && op <= OpLocalTee:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = LocalImm{LocalIdx: idx}

		case op == OpGlobalGet || op == OpGlobalSet:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = GlobalImm{GlobalIdx: idx}

		case op == OpTableGet || op == OpTableSet:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = TableImm{TableIdx: idx}

		case op >= OpI32Load && op <= OpI64Store32:
			instr.Imm, err = readMemArg(r)

		case op == OpMemorySize || op == OpMemoryGrow:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = MemoryIdxImm{MemIdx: idx}

		case op == OpI32Const:
			var v int32
			v, err = r.readS32()
			instr.Imm = I32Imm{Value: v}

		case op == OpI64Const:
			var v int64
			v, err = r.readS64()
			instr.Imm = I64Imm{Value: v}

		case op == OpF32Const:
			var bits uint32
			bits, err = r.readU32LE()
			instr.Imm = F32Imm{Value: math.Float32frombits(bits)}

		case op == OpF64Const:
			var bits uint64
			bits, err = r.readU64LE()
			instr.Imm = F64Imm{Value: math.Float64frombits(bits)}

		case op == OpRefNull:
			var ht int64
			ht, err = r.readS64()
			instr.Imm = RefNullImm{HeapType: ht}

		case op == OpRefFunc:
			var idx uint32
			idx, err = r.readU32()
			instr.Imm = RefFuncImm{FuncIdx: idx}

		case op == OpSelectType:
			var types []ValType
			types, err = readValTypes(r)
			instr.Imm = SelectTypeImm{Types: types}

		case op == OpPrefixMisc:
			instr.Imm, err = readMisc(r)

		case op == OpPrefixSIMD, op == OpPrefixAtomic, op == OpPrefixGC,
			op >= 0x06 && op <= 0x0A, op >= 0x12 && op <= 0x15, op == 0x18, op == 0x19, op == 0x1F:
			err = fmt.Errorf("%w: 0x%02x", ErrUnsupportedOpcode, op)

		case op == OpUnreachable, op == OpNop, op == OpElse, op == OpEnd, op == OpReturn,
			op == OpDrop, op == OpSelect, op == OpRefIsNull,
			op >= OpI32Eqz && op <= OpI64Extend32S:
			// No immediate

		default:
			err = fmt.Errorf("unknown opcode: 0x%02x", op)
		}

		if err != nil {
			return nil, &ParseError{Err: err, Section: "code", Position: start}
		}
		instrs = append(instrs, instr)
	}

	return instrs, nil
}

func readBrTable(r *reader) (BrTableImm, error) {
	count, err := r.readCount()
	if err != nil {
		return BrTableImm{}, err
	}
	labels := make([]uint32, count)
	for i := range labels {
		if labels[i], err = r.readU32(); err != nil {
			return BrTableImm{}, err
		}
	}
	def, err := r.readU32()
	if err != nil {
		return BrTableImm{}, err
	}
	return BrTableImm{Labels: labels, Default: def}, nil
}

func readMemArg(r *reader) (MemoryImm, error) {
	align, err := r.readU32()
	if err != nil {
		return MemoryImm{}, err
	}
	var imm MemoryImm
	if align&memArgMemIdxFlag != 0 {
		align &^= memArgMemIdxFlag
		if imm.MemIdx, err = r.readU32(); err != nil {
			return MemoryImm{}, err
		}
	}
	imm.Align = align
	if imm.Offset, err = r.readU64(); err != nil {
		return MemoryImm{}, err
	}
	return imm, nil
}

func readMisc(r *reader) (MiscImm, error) {
	sub, err := r.readU32()
	if err != nil {
		return MiscImm{}, err
	}
	imm := MiscImm{SubOpcode: sub}

	var operands int
	switch sub {
	case MiscMemoryInit, MiscMemoryCopy, MiscTableInit, MiscTableCopy:
		operands = 2
	case MiscDataDrop, MiscMemoryFill, MiscElemDrop, MiscTableGrow, MiscTableSize, MiscTableFill:
		operands = 1
	default:
		if sub > MiscI64TruncSatF64U {
			return MiscImm{}, fmt.Errorf("unknown 0xFC sub-opcode: 0x%02x", sub)
		}
	}
	for i := 0; i < operands; i++ {
		v, err := r.readU32()
		if err != nil {
			return MiscImm{}, err
		}
		imm.Operands = append(imm.Operands, v)
	}
	return imm, nil
}

// String renders the instruction in WebAssembly text form.
func (i Instruction) String() string {
	name := OpcodeName(i.Opcode)
	switch imm := i.Imm.(type) {
	case BlockImm:
		if imm.Type == BlockTypeVoid {
			return name
		}
		if imm.Type < 0 {
			return fmt.Sprintf("%s (result %s)", name, ValType(byte(imm.Type&0x7f)))
		}
		return fmt.Sprintf("%s (type %d)", name, imm.Type)
	case BranchImm:
		return fmt.Sprintf("%s %d", name, imm.LabelIdx)
	case BrTableImm:
		var b strings.Builder
		b.WriteString(name)
		for _, l := range imm.Labels {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatUint(uint64(l), 10))
		}
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(imm.Default), 10))
		return b.String()
	case CallImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case CallIndirectImm:
		return fmt.Sprintf("%s %d (type %d)", name, imm.TableIdx, imm.TypeIdx)
	case LocalImm:
		return fmt.Sprintf("%s %d", name, imm.LocalIdx)
	case GlobalImm:
		return fmt.Sprintf("%s %d", name, imm.GlobalIdx)
	case TableImm:
		return fmt.Sprintf("%s %d", name, imm.TableIdx)
	case MemoryImm:
		if imm.Offset == 0 {
			return name
		}
		return fmt.Sprintf("%s offset=%d", name, imm.Offset)
	case I32Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case I64Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case F32Imm:
		return fmt.Sprintf("%s %s", name, strconv.FormatFloat(float64(imm.Value), 'g', -1, 32))
	case F64Imm:
		return fmt.Sprintf("%s %s", name, strconv.FormatFloat(imm.Value, 'g', -1, 64))
	case RefFuncImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case MiscImm:
		return MiscName(imm.SubOpcode)
	default:
		return name
	}
}
