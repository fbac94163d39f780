package edition

import (
	"io"
	"strconv"
)

// Luau targets the dialect without goto. Every construct is wrapped in a
// single-iteration while loop so break exits it and continue restarts it.
// A branch crossing more than one construct stores its target level in the
// sentinel and breaks; each BranchTarget on the way out either consumes the
// sentinel or breaks again.
type Luau struct{}

func (Luau) Runtime() string { return "luau" }

func (Luau) Prologue(w io.Writer) error {
	return line(w, "local %s", Sentinel)
}

func (Luau) Reserved() int { return 1 }

func (Luau) StartBlock(w io.Writer) error {
	return line(w, "while true do")
}

func (Luau) StartLoop(_ int, w io.Writer) error {
	return line(w, "while true do")
}

func (Luau) StartIf(cond string, w io.Writer) error {
	if err := line(w, "while true do"); err != nil {
		return err
	}
	return line(w, "if %s ~= 0 then", cond)
}

func (Luau) EndBlock(_ int, w io.Writer) error {
	if err := line(w, "break"); err != nil {
		return err
	}
	return line(w, "end")
}

func (Luau) EndLoop(w io.Writer) error {
	if err := line(w, "break"); err != nil {
		return err
	}
	return line(w, "end")
}

func (Luau) EndIf(_ int, w io.Writer) error {
	if err := line(w, "end"); err != nil {
		return err
	}
	if err := line(w, "break"); err != nil {
		return err
	}
	return line(w, "end")
}

func (Luau) BranchTarget(level int, inLoop bool, w io.Writer) error {
	if err := line(w, "if %s then", Sentinel); err != nil {
		return err
	}
	if err := line(w, "if %s == %d then", Sentinel, level); err != nil {
		return err
	}
	if err := line(w, "%s = nil", Sentinel); err != nil {
		return err
	}
	if inLoop {
		if err := line(w, "continue"); err != nil {
			return err
		}
	}
	if err := line(w, "end"); err != nil {
		return err
	}
	if err := line(w, "break"); err != nil {
		return err
	}
	return line(w, "end")
}

// BranchToLevel wraps the jump in do/end because Luau only accepts break
// and continue as the last statement of a block.
func (Luau) BranchToLevel(level, up int, isLoop bool, w io.Writer) error {
	if err := line(w, "do"); err != nil {
		return err
	}

	switch {
	case up == 0 && isLoop:
		if err := line(w, "continue"); err != nil {
			return err
		}
	case up == 0:
		if err := line(w, "break"); err != nil {
			return err
		}
	default:
		if err := line(w, "%s = %d", Sentinel, level-up); err != nil {
			return err
		}
		if err := line(w, "break"); err != nil {
			return err
		}
	}

	return line(w, "end")
}

// I64 renders v as bare decimal digits. Luau numbers are doubles, so values
// beyond 2^53 lose precision at run time.
func (Luau) I64(v int64) string {
	return strconv.FormatInt(v, 10)
}
