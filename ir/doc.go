// Package ir provides the SSA intermediate representation that the stream
// inference pass transforms: typed values, instructions, basic blocks and
// functions, plus the dominator and natural-loop analyses the pass consumes.
//
// The representation is deliberately mutable. Passes rewrite operands in
// place, split blocks, and clone whole regions; every primitive needed for
// that lives here so transformation code never reaches into struct internals.
package ir
