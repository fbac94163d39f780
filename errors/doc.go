// Package errors provides structured error types for the wasm-lua compiler.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a location path, a detail message, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLower, errors.KindOutOfBounds).
//		Path("func 3", "br").
//		Value(7).
//		Detail("branch depth %d exceeds label stack", 7).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.WriteFailed("function 3", ioErr)
//	err := errors.NotFound(errors.PhaseConfig, "edition", "lua54")
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching with errors.Is compares Phase and Kind only, so a sentinel such as
// &errors.Error{Phase: errors.PhaseEmit, Kind: errors.KindIO} matches every
// sink failure regardless of detail.
package errors
