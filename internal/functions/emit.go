package functions

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// EmitContext is the per-call-site state an Inline signature's Emit
// function needs beyond the bare argument values: the block to append
// instructions to, the externally-declared functions it may need to call
// (e.g. normalize calling into sqrt), and the handful of per-kernel-
// invocation values (the current voxel/point's derived seed, the volume
// target's transform pointer) that a handful of built-ins fold in
// implicitly rather than taking as an explicit source-level argument.
//
// codegen populates one EmitContext per FunctionCall it lowers; functions
// never imports codegen, so this type lives here instead.
type EmitContext struct {
	Block *ir.Block

	// Externals maps a registered external Signature's Symbol to the
	// module-level declaration codegen created for it, so an Inline body
	// can call through to a libm-backed external (e.g. ax_sqrt) without
	// functions depending on the module-building package.
	Externals map[string]*ir.Func

	// DefaultSeed is the coordinate/point-index-derived seed value the
	// zero-argument rand() overload folds in, set once by the volume/point
	// generator before it lowers the kernel body.
	DefaultSeed value.Value

	// Transform is the volume target's current `transform` kernel
	// parameter, used by voxeltoworld/worldtovoxel; nil on the point
	// target (those built-ins are volume-only: only AddVolumeBuiltins
	// registers them).
	Transform value.Value
}

// InlineEmitFunc builds the IR for one Inline signature's call site.
type InlineEmitFunc func(ctx *EmitContext, args []value.Value) (value.Value, error)
