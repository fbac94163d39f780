package wasm_test

import (
	"errors"
	"testing"

	"github.com/wippyai/wasm-lua/wasm"
)

func TestDecodeInstructionsControl(t *testing.T) {
	code := []byte{
		wasm.OpBlock, 0x40,
		wasm.OpLoop, 0x7F,
		wasm.OpLocalGet, 0x00,
		wasm.OpBrIf, 0x01,
		wasm.OpBrTable, 0x02, 0x00, 0x01, 0x02,
		wasm.OpEnd,
		wasm.OpBr, 0x00,
		wasm.OpEnd,
		wasm.OpEnd,
	}
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instrs) != 9 {
		t.Fatalf("expected 9 instructions, got %d", len(instrs))
	}

	if imm := instrs[0].Imm.(wasm.BlockImm); imm.Type != wasm.BlockTypeVoid {
		t.Errorf("block type = %d, want void", imm.Type)
	}
	if imm := instrs[1].Imm.(wasm.BlockImm); imm.Type != wasm.BlockTypeI32 {
		t.Errorf("loop type = %d, want i32", imm.Type)
	}
	if imm := instrs[3].Imm.(wasm.BranchImm); imm.LabelIdx != 1 {
		t.Errorf("br_if label = %d, want 1", imm.LabelIdx)
	}
	bt := instrs[4].Imm.(wasm.BrTableImm)
	if len(bt.Labels) != 2 || bt.Labels[0] != 0 || bt.Labels[1] != 1 || bt.Default != 2 {
		t.Errorf("br_table = %+v", bt)
	}
}

func TestDecodeInstructionsImmediates(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"i32.const negative", wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -129}}},
		{"i64.const min", wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -1 << 63}}},
		{"f32.const", wasm.Instruction{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Value: 1.5}}},
		{"f64.const", wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: -0.25}}},
		{"i32.load", wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 1 << 20}}},
		{"load from memory 1", wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Align: 3, Offset: 8, MemIdx: 1}}},
		{"call_indirect", wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 3, TableIdx: 1}}},
		{"global.set", wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: 300}}},
		{"memory.grow", wasm.Instruction{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}}},
		{"memory.copy", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}}},
		{"trunc_sat", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscI32TruncSatF32S}}},
		{"select typed", wasm.Instruction{Opcode: wasm.OpSelectType, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValF64}}}},
		{"ref.func", wasm.Instruction{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{FuncIdx: 7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			got, err := wasm.DecodeInstructions(code)
			if err != nil {
				t.Fatalf("DecodeInstructions: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(got))
			}
			if got[0].String() != tt.instr.String() {
				t.Errorf("decoded %q, want %q", got[0].String(), tt.instr.String())
			}
			if string(wasm.EncodeInstructions(got)) != string(code) {
				t.Errorf("re-encoding changed bytes: %x", code)
			}
		})
	}
}

func TestDecodeInstructionsUnsupported(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"simd", []byte{wasm.OpNop, wasm.OpPrefixSIMD, 0x00}},
		{"atomic", []byte{wasm.OpNop, wasm.OpPrefixAtomic, 0x00}},
		{"try", []byte{wasm.OpNop, 0x06, 0x40}},
		{"return_call", []byte{wasm.OpNop, 0x12, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.DecodeInstructions(tt.code)
			if !errors.Is(err, wasm.ErrUnsupportedOpcode) {
				t.Fatalf("expected ErrUnsupportedOpcode, got %v", err)
			}
			var pe *wasm.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Position != 1 {
				t.Errorf("position = %d, want 1", pe.Position)
			}
		})
	}
}

func TestDecodeInstructionsTruncated(t *testing.T) {
	if _, err := wasm.DecodeInstructions([]byte{wasm.OpBr}); err == nil {
		t.Error("expected error for br without label")
	}
	if _, err := wasm.DecodeInstructions([]byte{wasm.OpBrTable, 0x05, 0x00}); err == nil {
		t.Error("expected error for br_table with too many labels")
	}
	if _, err := wasm.DecodeInstructions([]byte{wasm.OpPrefixMisc, 0x40}); err == nil {
		t.Error("expected error for unknown misc sub-opcode")
	}
	if _, err := wasm.DecodeInstructions([]byte{wasm.OpBrTable, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F}); !errors.Is(err, wasm.ErrCountTooLarge) {
		t.Errorf("expected ErrCountTooLarge for huge br_table, got %v", err)
	}
}

func TestDecodeInstructionsSignedLEB(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		want    int32
		wantErr bool
	}{
		{"minus one padded", []byte{wasm.OpI32Const, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, -1, false},
		{"zero padded", []byte{wasm.OpI32Const, 0x80, 0x80, 0x80, 0x80, 0x00}, 0, false},
		{"min int32", []byte{wasm.OpI32Const, 0x80, 0x80, 0x80, 0x80, 0x78}, -1 << 31, false},
		{"high bits not sign extended", []byte{wasm.OpI32Const, 0xFF, 0xFF, 0xFF, 0xFF, 0x4F}, 0, true},
		{"positive with high bits", []byte{wasm.OpI32Const, 0x80, 0x80, 0x80, 0x80, 0x10}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wasm.DecodeInstructions(tt.code)
			if tt.wantErr {
				if !errors.Is(err, wasm.ErrOverflow) {
					t.Fatalf("expected ErrOverflow, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeInstructions: %v", err)
			}
			if v := got[0].Imm.(wasm.I32Imm).Value; v != tt.want {
				t.Errorf("value = %d, want %d", v, tt.want)
			}
		})
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		want  string
		instr wasm.Instruction
	}{
		{"block", wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}}},
		{"loop (result i64)", wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeI64}}},
		{"if (type 2)", wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: 2}}},
		{"br_if 3", wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 3}}},
		{"br_table 0 1 2", wasm.Instruction{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1}, Default: 2}}},
		{"i64.const -5", wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -5}}},
		{"i32.load offset=16", wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 16}}},
		{"call_indirect 0 (type 4)", wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 4}}},
		{"memory.fill", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill}}},
		{"i32.add", wasm.Instruction{Opcode: wasm.OpI32Add}},
		{"end", wasm.Instruction{Opcode: wasm.OpEnd}},
	}

	for _, tt := range tests {
		if got := tt.instr.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOpcodeName(t *testing.T) {
	if got := wasm.OpcodeName(wasm.OpI64Extend32S); got != "i64.extend32_s" {
		t.Errorf("OpcodeName(0xC4) = %q", got)
	}
	if got := wasm.OpcodeName(0xFF); got != "op(0xff)" {
		t.Errorf("OpcodeName(0xFF) = %q", got)
	}
	if got := wasm.MiscName(wasm.MiscTableFill); got != "table.fill" {
		t.Errorf("MiscName(0x11) = %q", got)
	}
	if got := wasm.MiscName(0x40); got != "misc(0x40)" {
		t.Errorf("MiscName(0x40) = %q", got)
	}
}
