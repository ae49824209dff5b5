// Package streamgen provides stream semantic register (SSR) inference for
// Snitch-style RISC-V cores.
//
// The stream registers of the Snitch architecture map memory streams onto
// floating point registers: loops over affine array accesses can drop their
// loads and stores entirely once a data mover channel walks the addresses
// for them. This module finds such loops in a compiler-style intermediate
// representation, decides where streaming pays off, and rewrites the code.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	streamgen/          Root package documentation
//	├── stream/         High-level API for running the transformation
//	├── affine/         Affine access recognition, conflicts, and expansion
//	├── ir/             SSA-style intermediate representation and analyses
//	├── irtext/         Textual IR parser
//	├── snitch/         Hardware constants and intrinsic names
//	├── errors/         Structured error types for diagnostics
//	└── cmd/streamgen/  Command line driver
//
// # Quick Start
//
// Parse a program and infer streams:
//
//	prog, err := irtext.Parse(src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	changed, err := stream.Transform(prog, stream.Config{Infer: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(prog)
//
// See the stream package for the transformation pipeline and its
// configuration.
package streamgen
