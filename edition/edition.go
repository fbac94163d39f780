package edition

import (
	"fmt"
	"io"
	"strconv"

	"github.com/wippyai/wasm-lua/errors"
)

// Sentinel is the generated-code variable that carries the target level of
// an in-flight multi-level branch in editions without goto.
const Sentinel = "desired"

// MaxLocals is the number of active locals one Lua function may hold in
// every supported runtime. Parameters count toward it.
const MaxLocals = 200

// LabelPrefix prefixes every jump label placed by goto-capable editions.
const LabelPrefix = "continue_at_"

// Edition lowers structured control constructs into one Lua dialect.
//
// Levels count enclosing constructs from the outermost (0) inward and are
// assigned by the caller. Enter and leave calls must nest in LIFO order; an
// edition trusts this and validates nothing. Every method writes straight to
// w and returns the first write error unchanged.
type Edition interface {
	// Runtime identifies the target dialect, e.g. "luajit".
	Runtime() string

	// Prologue is written once per generated function before any construct.
	Prologue(w io.Writer) error

	// Reserved is the number of locals Prologue declares.
	Reserved() int

	StartBlock(w io.Writer) error
	StartLoop(level int, w io.Writer) error
	StartIf(cond string, w io.Writer) error
	EndBlock(level int, w io.Writer) error
	EndLoop(w io.Writer) error
	EndIf(level int, w io.Writer) error

	// BranchTarget is written where an in-flight branch resumes inside the
	// construct at level. It consumes a branch aimed at level, restarting the
	// construct when inLoop, and otherwise keeps unwinding outward.
	BranchTarget(level int, inLoop bool, w io.Writer) error

	// BranchToLevel jumps from the construct at level to the construct up
	// levels further out. isLoop reports whether the destination restarts.
	BranchToLevel(level, up int, isLoop bool, w io.Writer) error

	// I64 renders a 64-bit integer literal.
	I64(v int64) string
}

var editions = []Edition{LuaJIT{}, Luau{}}

// ByName returns the edition whose Runtime matches name.
func ByName(name string) (Edition, error) {
	for _, e := range editions {
		if e.Runtime() == name {
			return e, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseConfig, "edition", name)
}

// Names lists the runtimes of all supported editions.
func Names() []string {
	names := make([]string, len(editions))
	for i, e := range editions {
		names[i] = e.Runtime()
	}
	return names
}

// Label returns the jump label name for level.
func Label(level int) string {
	return LabelPrefix + strconv.Itoa(level)
}

func line(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format+"\n", args...)
	return err
}
