// Package affine recognizes loop memory accesses whose address is a linear
// function of induction variables (base + sum of step*index) and materializes
// their stream parameters.
//
// The package answers three questions per loop: which accesses are
// expandable there (ExpandableAccesses), how two accesses may interfere
// (Conflicts), and what the concrete base/bound/stride values are at a given
// insertion point (ExpandAllAt). Expressions are kept symbolic until
// expansion so the caller can price them before committing.
package affine
