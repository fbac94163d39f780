package edition

import (
	"io"
	"strconv"
)

// LuaJIT targets the goto-capable dialect. Every construct is a plain do
// block; blocks and ifs carry their exit label at the bottom, loops carry
// their repeat label at the top, so a branch is a single goto.
type LuaJIT struct{}

func (LuaJIT) Runtime() string { return "luajit" }

func (LuaJIT) Prologue(io.Writer) error { return nil }

func (LuaJIT) Reserved() int { return 0 }

func (LuaJIT) StartBlock(w io.Writer) error {
	return line(w, "do")
}

func (LuaJIT) StartLoop(level int, w io.Writer) error {
	if err := line(w, "do"); err != nil {
		return err
	}
	return line(w, "::%s::", Label(level))
}

func (LuaJIT) StartIf(cond string, w io.Writer) error {
	return line(w, "if %s ~= 0 then", cond)
}

func (LuaJIT) EndBlock(level int, w io.Writer) error {
	if err := line(w, "::%s::", Label(level)); err != nil {
		return err
	}
	return line(w, "end")
}

// EndLoop places no exit label. A branch to a loop always restarts it, so
// callers needing a separate exit target wrap the loop in a block.
func (LuaJIT) EndLoop(w io.Writer) error {
	return line(w, "end")
}

func (LuaJIT) EndIf(level int, w io.Writer) error {
	if err := line(w, "::%s::", Label(level)); err != nil {
		return err
	}
	return line(w, "end")
}

// BranchTarget writes nothing: gotos land directly on their label.
func (LuaJIT) BranchTarget(int, bool, io.Writer) error { return nil }

func (LuaJIT) BranchToLevel(level, up int, _ bool, w io.Writer) error {
	return line(w, "goto %s", Label(level-up))
}

func (LuaJIT) I64(v int64) string {
	return strconv.FormatInt(v, 10) + "LL"
}
