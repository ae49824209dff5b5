// Package errors provides structured error types for the streamgen library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: function name, loop header, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseClone, errors.KindMalformedRegion).
//		Func("saxpy").
//		Loop("loop.header").
//		Detail("region exit has multiple successors").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedLoop("saxpy", "loop.header", "no preheader")
//	err := errors.Internal(errors.PhaseCodegen, "channel %d out of range", ch)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
