// Package engine orchestrates stream inference.
//
// Transformation pipeline, per function:
//  1. Compute dominators, loops, and affine accesses; find tainted loops
//  2. Collect and rank candidate accesses per loop, capped at the channel count
//  3. Select the benefit-maximizing, nesting-disjoint loop set (conflict tree)
//  4. Expand stream parameters and runtime checks in each chosen preheader
//  5. Clone each chosen region behind the runtime check and emit the
//     device setup into the original copy
package engine
