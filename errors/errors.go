package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pass pipeline the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // textual IR parsing
	PhaseAnalyze Phase = "analyze" // loop/affine/taint analysis
	PhaseSelect  Phase = "select"  // conflict tree selection
	PhaseExpand  Phase = "expand"  // access expansion in preheaders
	PhaseClone   Phase = "clone"   // region cloning
	PhaseCodegen Phase = "codegen" // stream setup emission
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedLoop   Kind = "malformed_loop"   // missing preheader, ambiguous exits
	KindMalformedRegion Kind = "malformed_region" // clone preconditions violated
	KindUnsupported     Kind = "unsupported"      // hardware cannot stream this shape
	KindBadConflict     Kind = "bad_conflict"     // inherently unsafe access pair
	KindInvalidInput    Kind = "invalid_input"
	KindInternal        Kind = "internal" // invariant violation, a bug in the pass
)

// Error is the structured error type used throughout the pass
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Func   string // function being transformed
	Loop   string // header block of the loop involved, if any
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" in @")
		b.WriteString(e.Func)
	}
	if e.Loop != "" {
		b.WriteString(" at loop ")
		b.WriteString(e.Loop)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Func sets the function name
func (b *Builder) Func(name string) *Builder {
	b.err.Func = name
	return b
}

// Loop sets the loop header name
func (b *Builder) Loop(header string) *Builder {
	b.err.Loop = header
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedLoop creates a malformed loop error
func MalformedLoop(fn, loop, detail string) *Error {
	return &Error{
		Phase:  PhaseAnalyze,
		Kind:   KindMalformedLoop,
		Func:   fn,
		Loop:   loop,
		Detail: detail,
	}
}

// MalformedRegion creates a clone precondition error
func MalformedRegion(fn, detail string) *Error {
	return &Error{
		Phase:  PhaseClone,
		Kind:   KindMalformedRegion,
		Func:   fn,
		Detail: detail,
	}
}

// Unsupported creates an unsupported hardware shape error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// BadConflict creates an error for an inherently unsafe access pair that
// slipped through selection
func BadConflict(fn, loop string) *Error {
	return &Error{
		Phase:  PhaseSelect,
		Kind:   KindBadConflict,
		Func:   fn,
		Loop:   loop,
		Detail: "inherently unsafe conflict reached expansion",
	}
}

// Internal creates an internal invariant violation error. These are bugs in
// the pass, never user input problems, and must surface loudly.
func Internal(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
