package wasm

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Encode encodes the module to WebAssembly binary format. Only the sections
// Module models are written; non-function imports get minimal descriptors
// (funcref table, memory and i32 global with zero limits, tag of type 0).
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	writeU32LE(&w, Magic)
	writeU32LE(&w, Version)

	if len(m.Types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.WriteByte(FuncTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, SectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(imp.Kind)
			switch imp.Kind {
			case KindFunc:
				writeU32(&sec, imp.TypeIdx)
			case KindTable:
				sec.Write([]byte{byte(ValFuncRef), 0x00, 0x00})
			case KindMemory:
				sec.Write([]byte{0x00, 0x00})
			case KindGlobal:
				sec.Write([]byte{byte(ValI32), 0x00})
			case KindTag:
				sec.Write([]byte{0x00, 0x00})
			}
		}
		writeSection(&w, SectionImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			writeU32(&sec, typeIdx)
		}
		writeSection(&w, SectionFunction, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			writeName(&sec, exp.Name)
			sec.WriteByte(exp.Kind)
			writeU32(&sec, exp.Idx)
		}
		writeSection(&w, SectionExport, sec.Bytes())
	}

	if len(m.Code) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Code)))
		for _, body := range m.Code {
			var fb bytes.Buffer
			writeU32(&fb, uint32(len(body.Locals)))
			for _, l := range body.Locals {
				writeU32(&fb, l.Count)
				fb.WriteByte(byte(l.ValType))
			}
			fb.Write(body.Code)
			writeU32(&sec, uint32(fb.Len()))
			sec.Write(fb.Bytes())
		}
		writeSection(&w, SectionCode, sec.Bytes())
	}

	return w.Bytes()
}

// EncodeInstructions encodes instructions to bytes. It accepts every
// instruction DecodeInstructions produces.
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	for _, instr := range instrs {
		buf.WriteByte(instr.Opcode)
		switch imm := instr.Imm.(type) {
		case BlockImm:
			writeS64(&buf, int64(imm.Type))
		case BranchImm:
			writeU32(&buf, imm.LabelIdx)
		case BrTableImm:
			writeU32(&buf, uint32(len(imm.Labels)))
			for _, l := range imm.Labels {
				writeU32(&buf, l)
			}
			writeU32(&buf, imm.Default)
		case CallImm:
			writeU32(&buf, imm.FuncIdx)
		case CallIndirectImm:
			writeU32(&buf, imm.TypeIdx)
			writeU32(&buf, imm.TableIdx)
		case LocalImm:
			writeU32(&buf, imm.LocalIdx)
		case GlobalImm:
			writeU32(&buf, imm.GlobalIdx)
		case TableImm:
			writeU32(&buf, imm.TableIdx)
		case MemoryImm:
			if imm.MemIdx != 0 {
				writeU32(&buf, imm.Align|memArgMemIdxFlag)
				writeU32(&buf, imm.MemIdx)
			} else {
				writeU32(&buf, imm.Align)
			}
			writeU64(&buf, imm.Offset)
		case MemoryIdxImm:
			writeU32(&buf, imm.MemIdx)
		case I32Imm:
			writeS64(&buf, int64(imm.Value))
		case I64Imm:
			writeS64(&buf, imm.Value)
		case F32Imm:
			writeU32LE(&buf, math.Float32bits(imm.Value))
		case F64Imm:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(imm.Value))
			buf.Write(b[:])
		case RefNullImm:
			writeS64(&buf, imm.HeapType)
		case RefFuncImm:
			writeU32(&buf, imm.FuncIdx)
		case SelectTypeImm:
			writeValTypes(&buf, imm.Types)
		case MiscImm:
			writeU32(&buf, imm.SubOpcode)
			for _, op := range imm.Operands {
				writeU32(&buf, op)
			}
		}
	}
	return buf.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, body []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(body)))
	w.Write(body)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	writeU32(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeU32LE(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	writeU64(w, uint64(v))
}

func writeU64(w *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func writeS64(w *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.WriteByte(b)
		if done {
			return
		}
	}
}
