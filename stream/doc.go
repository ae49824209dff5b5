// Package stream infers stream semantic register (SSR) usage in loops over
// affine memory accesses and rewrites them to drive the streaming hardware
// of Snitch-style RISC-V cores.
//
// # Overview
//
// The Snitch architecture maps memory streams onto floating point registers:
// once a data mover channel is configured with an address pattern, reading
// the mapped register pops the next element and writing it pushes one. A
// loop that walks arrays with affine addresses can shed its loads and stores
// entirely.
//
// The transformation finds loops whose memory accesses fit the hardware
// (f64 elements, up to four affine dimensions, at most three channels),
// weighs the saved memory operations against the setup code, and rewrites
// the winners:
//
//  1. Loops already using streams, directly or through callees, are found
//     and excluded.
//  2. Each loop's affine accesses are collected and ranked; nested
//     candidates compete in a selection tree so inner and outer loops never
//     stream the same accesses twice.
//  3. Selected loops get their access patterns expanded in front of the
//     loop, together with runtime guards: address ranges of conflicting
//     accesses must not overlap, streamed data must lie in the scratchpad,
//     and every covered loop must run at least once.
//  4. Unless the guards are decided at compile time, the loop is duplicated
//     and the streamed copy runs behind the guard condition while the plain
//     copy keeps the original accesses.
//
// # Usage
//
//	prog, err := irtext.Parse(src)
//	if err != nil { ... }
//	changed, err := stream.Transform(prog, stream.Config{Infer: true})
//
// Functions marked with AttrStream are never touched: their configuration
// is taken as deliberate, and nesting inferred streams inside it would
// corrupt both.
package stream
