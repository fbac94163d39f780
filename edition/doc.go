// Package edition emits structured control flow for the Lua dialects the
// compiler targets.
//
// WebAssembly control flow is made of nested blocks, loops and ifs plus
// branches that leave any number of enclosing constructs at once. The two
// supported runtimes need different encodings for such a branch:
//
//	luajit  labeled jumps. Each construct is a do block with a
//	        ::continue_at_<level>:: label, and a branch is one goto.
//	luau    no goto. Each construct is a single-iteration while loop and a
//	        branch crossing several constructs stores its target level in
//	        the `desired` local, then breaks outward until a BranchTarget
//	        check at the matching level consumes it.
//
// Select an edition once per compilation:
//
//	ed, err := edition.ByName("luau")
//	if err != nil {
//	    return err
//	}
//	ed.Prologue(w)
//	ed.StartLoop(0, w)
//	ed.BranchToLevel(0, 0, true, w)
//	ed.EndLoop(w)
//
// Editions are stateless values and safe to share between goroutines; the
// writer belongs to the caller.
package edition
