package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/irtext"
	"github.com/snitchtools/streamgen/stream"
)

func main() {
	var (
		inFile      = flag.String("in", "", "Path to textual IR file")
		outFile     = flag.String("o", "", "Output file (default stdout)")
		list        = flag.Bool("list", false, "List functions and loops, then exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")

		infer            = flag.Bool("infer", true, "Infer streams in unmarked functions")
		noIntersectCheck = flag.Bool("no-intersect-check", false, "Omit runtime intersection checks")
		noTCDMCheck      = flag.Bool("no-tcdm-check", false, "Omit runtime scratchpad range checks")
		noBoundCheck     = flag.Bool("no-bound-check", false, "Omit runtime trip-count checks")
		conflictFree     = flag.Bool("conflict-free-only", false, "Only stream conflict-free accesses")
		noInline         = flag.Bool("no-inline", false, "Mark transformed functions noinline")
		barrier          = flag.Bool("barrier", false, "Emit completion barriers before disabling streams")
		verbose          = flag.Bool("v", false, "Log per-loop decisions")
	)
	flag.Parse()

	if *inFile == "" && flag.NArg() == 1 {
		*inFile = flag.Arg(0)
	}
	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: streamgen -in <file.ir> [flags]")
		fmt.Fprintln(os.Stderr, "       streamgen -in <file.ir> -list")
		fmt.Fprintln(os.Stderr, "       streamgen -in <file.ir> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg := stream.Config{
		Infer:             *infer,
		NoIntersectCheck:  *noIntersectCheck,
		NoScratchpadCheck: *noTCDMCheck,
		NoBoundCheck:      *noBoundCheck,
		ConflictFreeOnly:  *conflictFree,
		NoInline:          *noInline,
		Barrier:           *barrier,
		Verbose:           *verbose,
	}

	if *interactive {
		if err := runInteractive(*inFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*inFile, *outFile, *list, *verbose, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inFile, outFile string, listOnly, verbose bool, cfg stream.Config) error {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer logger.Sync()
		stream.SetLogger(logger)
	}

	data, err := os.ReadFile(inFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	prog, err := irtext.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if listOnly {
		listProgram(prog)
		return nil
	}

	changed, err := stream.Transform(prog, cfg)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if verbose && !changed {
		fmt.Fprintln(os.Stderr, "no streams placed")
	}

	out := prog.String()
	if outFile == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func listProgram(prog *ir.Program) {
	for _, f := range prog.Funcs {
		li := ir.Loops(f, ir.Dominators(f))
		loops := len(li.PreOrder())
		mark := ""
		if stream.Transformed(f) {
			mark = "  [streams]"
		}
		fmt.Printf("%s: %d blocks, %d loops%s\n", f.Name(), len(f.Blocks), loops, mark)
	}
}
