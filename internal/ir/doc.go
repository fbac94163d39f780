// Package ir converts a linear WebAssembly instruction stream into a tree of
// structured control constructs.
//
// A function body becomes a SeqNode whose children are InstrNode values for
// straight-line instructions, BlockNode for block and loop, and IfNode for
// if with an optional else arm. The lowering in package lower assigns
// nesting levels while walking this tree; the tree itself carries none.
//
// Parse rejects streams whose end and else markers do not balance. Dump
// renders a tree for inspection.
package ir
