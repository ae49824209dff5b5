package ir

import "fmt"

// Verify checks the structural invariants transformation code relies on:
// every block terminated exactly once, phis forming a prefix, phi arity
// matching its incoming list, and no nil operands. It does not check
// dominance; passes that break SSA value placement are expected to be caught
// by their own tests.
func (f *Func) Verify() error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("func @%s: no blocks", f.Nam)
	}
	seen := make(map[string]bool)
	for _, b := range f.Blocks {
		if seen[b.Nam] {
			return fmt.Errorf("func @%s: duplicate block %q", f.Nam, b.Nam)
		}
		seen[b.Nam] = true
		if err := f.verifyBlock(b); err != nil {
			return err
		}
	}
	return nil
}

func (f *Func) verifyBlock(b *Block) error {
	if len(b.Insts) == 0 || !b.Insts[len(b.Insts)-1].IsTerm() {
		return fmt.Errorf("func @%s: block %q not terminated", f.Nam, b.Nam)
	}
	inPhis := true
	for k, in := range b.Insts {
		if in.IsTerm() && k != len(b.Insts)-1 {
			return fmt.Errorf("func @%s: block %q: terminator %q not last", f.Nam, b.Nam, in.Op)
		}
		if in.IsPhi() {
			if !inPhis {
				return fmt.Errorf("func @%s: block %q: phi %%%s after non-phi", f.Nam, b.Nam, in.Nam)
			}
			if len(in.Operands) != len(in.Blocks) {
				return fmt.Errorf("func @%s: block %q: phi %%%s arity mismatch", f.Nam, b.Nam, in.Nam)
			}
		} else {
			inPhis = false
		}
		for idx, op := range in.Operands {
			if op == nil {
				return fmt.Errorf("func @%s: block %q: %s operand %d is nil", f.Nam, b.Nam, in.Op, idx)
			}
		}
		for idx, bb := range in.Blocks {
			if bb == nil {
				return fmt.Errorf("func @%s: block %q: %s block ref %d is nil", f.Nam, b.Nam, in.Op, idx)
			}
		}
		if in.Parent() != b {
			return fmt.Errorf("func @%s: block %q: %s has wrong parent", f.Nam, b.Nam, in.Op)
		}
	}
	return nil
}
