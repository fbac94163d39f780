// Package lower turns the structured control tree of one WebAssembly
// function into Lua source for a chosen edition.
//
// The walker assigns every construct a nesting level, starting with the
// function body as a block at level 0, and keeps a stack mapping wasm
// relative branch depths to (level, isLoop) targets. Editions receive only
// levels and never see wasm labels.
//
// Lowering rules:
//
//	block        StartBlock / EndBlock
//	loop         StartLoop / EndLoop
//	if           StartIf / EndIf
//	if ... else  a block holding an if one level deeper; the then arm
//	             branches to the block to skip the else arm
//	br d         BranchToLevel(level, level - target, isLoop)
//	br_if d      if <operand> ~= 0 then <branch> end
//	br_table     if / elseif / else chain on the operand
//	return       do return end
//
// After each nested construct closes the walker writes BranchTarget for the
// enclosing construct: this is where a multi-level branch resumes while
// unwinding.
//
// Straight-line instructions go to a Body. Outline, the default, keeps them
// as comments:
//
//	var buf bytes.Buffer
//	err := lower.Function(&buf, lower.Func{Index: 0, Body: tree}, lower.Options{
//	    Edition: edition.Luau{},
//	})
package lower
