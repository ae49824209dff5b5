package stream

import (
	"go.uber.org/zap"

	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/stream/internal/engine"
)

// Function attributes read and written by the transformation.
const (
	// AttrStream marks functions that drive the stream registers, whether
	// by hand or through a previous run of the transformation.
	AttrStream = engine.AttrStream
	// AttrNoInline is set on transformed functions when Config.NoInline is
	// on.
	AttrNoInline = engine.AttrNoInline
)

// Config configures stream inference.
type Config struct {
	// Infer enables inference in functions not marked with AttrStream.
	// Without it the transformation never touches anything.
	Infer bool
	// NoIntersectCheck omits the runtime checks that conflicting address
	// ranges do not overlap. Only safe when the input is known disjoint.
	NoIntersectCheck bool
	// NoScratchpadCheck omits the runtime checks that streamed data lies
	// in the scratchpad.
	NoScratchpadCheck bool
	// NoBoundCheck omits the runtime checks that every covered loop runs
	// at least once.
	NoBoundCheck bool
	// ConflictFreeOnly streams only accesses with no conflicts at all,
	// trading coverage for guard-free code.
	ConflictFreeOnly bool
	// NoInline marks transformed functions with AttrNoInline.
	NoInline bool
	// Barrier emits a completion barrier per channel before the streams
	// are disabled.
	Barrier bool
	// Verbose logs the per-loop candidate sets and gain estimates.
	Verbose bool
}

// Transform infers affine memory accesses in every function of prog and
// rewrites profitable loops to use the stream registers. It reports whether
// anything changed.
func Transform(prog *ir.Program, cfg Config) (bool, error) {
	return engine.New(engineConfig(cfg), prog).Transform()
}

// TransformFunc runs inference on a single function of prog. Call graph
// information still comes from the whole program, so calls into stream-using
// siblings are handled the same way Transform handles them.
func TransformFunc(prog *ir.Program, f *ir.Func, cfg Config) (bool, error) {
	return engine.New(engineConfig(cfg), prog).TransformFunc(f)
}

// Transformed reports whether f drives stream registers.
func Transformed(f *ir.Func) bool {
	return f.HasAttr(AttrStream)
}

// SetLogger routes diagnostics to l. Passing nil restores the default
// no-op logger.
func SetLogger(l *zap.Logger) {
	engine.SetLogger(l)
}

func engineConfig(cfg Config) engine.Config {
	return engine.Config{
		Infer:             cfg.Infer,
		NoIntersectCheck:  cfg.NoIntersectCheck,
		NoScratchpadCheck: cfg.NoScratchpadCheck,
		NoBoundCheck:      cfg.NoBoundCheck,
		ConflictFreeOnly:  cfg.ConflictFreeOnly,
		NoInline:          cfg.NoInline,
		Barrier:           cfg.Barrier,
		Verbose:           cfg.Verbose,
	}
}
