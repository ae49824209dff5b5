// Package snitch describes the stream semantic register (SSR) hardware the
// pass targets: data-mover intrinsics, channel count, dimension limit, and
// the scratchpad address range streams may touch.
package snitch

import "github.com/snitchtools/streamgen/ir"

// Hardware limits. A stream covers at most MaxDim loop dimensions, and at
// most NumChannels streams can be active in one loop.
const (
	NumChannels = 3
	MaxDim      = 4
)

// Scratchpad (TCDM) address range, both ends inclusive. Streamed data must
// live here; anything else has to stay an ordinary memory access.
const (
	ScratchpadBegin = 0x100000
	ScratchpadEnd   = 0x120000
)

// ElemType is the one element type the streaming hardware supports.
const ElemType = ir.F64

// ElemSize is the element size in bytes.
const ElemSize = 8

// Intrinsic names. These appear as call targets in the IR; the code
// generator emits them and the taint analyzer classifies them.
const (
	IntrEnable          = "ssr.enable"
	IntrDisable         = "ssr.disable"
	IntrBarrier         = "ssr.barrier"
	IntrSetupRepetition = "ssr.setup_repetition"
	IntrPush            = "ssr.push"
	IntrPop             = "ssr.pop"
	IntrRead            = "ssr.read"
	IntrReadImm         = "ssr.read_imm"
	IntrWrite           = "ssr.write"
	IntrWriteImm        = "ssr.write_imm"
	IntrSetup1DRead     = "ssr.setup_1d_r"
	IntrSetup1DWrite    = "ssr.setup_1d_w"
	IntrBoundStride1D   = "ssr.setup_bound_stride_1d"
	IntrBoundStride2D   = "ssr.setup_bound_stride_2d"
	IntrBoundStride3D   = "ssr.setup_bound_stride_3d"
	IntrBoundStride4D   = "ssr.setup_bound_stride_4d"
)

var boundStride = [MaxDim]string{
	IntrBoundStride1D,
	IntrBoundStride2D,
	IntrBoundStride3D,
	IntrBoundStride4D,
}

// BoundStrideIntrinsic returns the bound/stride setup intrinsic for the
// given 1-based dimension.
func BoundStrideIntrinsic(dim int) string {
	if dim < 1 || dim > MaxDim {
		panic("snitch: bound/stride dimension out of range")
	}
	return boundStride[dim-1]
}

var intrinsics = map[string]bool{
	IntrEnable:          true,
	IntrDisable:         true,
	IntrBarrier:         true,
	IntrSetupRepetition: true,
	IntrPush:            true,
	IntrPop:             true,
	IntrRead:            true,
	IntrReadImm:         true,
	IntrWrite:           true,
	IntrWriteImm:        true,
	IntrSetup1DRead:     true,
	IntrSetup1DWrite:    true,
	IntrBoundStride1D:   true,
	IntrBoundStride2D:   true,
	IntrBoundStride3D:   true,
	IntrBoundStride4D:   true,
}

// IsStreamIntrinsic reports whether name is one of the SSR intrinsics.
func IsStreamIntrinsic(name string) bool { return intrinsics[name] }

// IsStreamCall reports whether the instruction calls an SSR intrinsic.
func IsStreamCall(in *ir.Instr) bool {
	return in.Op == ir.OpCall && intrinsics[in.Callee]
}
