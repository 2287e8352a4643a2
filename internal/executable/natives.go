package executable

import (
	"fmt"
	"math"

	"github.com/pablocouto/openvdb-ax/internal/grid"
	"github.com/pablocouto/openvdb-ax/internal/jit"
)

// BuildBaseResolver returns the process-wide jit.SymbolResolver every
// CompiledModule built by this package shares: libm, rand and the
// transform appliers, none of which need per-voxel/per-point context
// (unlike the point target's group built-ins, bound separately per call
// by scopedGroupResolver). Built once and reused across every Execute
// call, mirroring spec.md's "built once at process start" framing for the
// function registry itself.
func BuildBaseResolver() jit.MapResolver {
	r := jit.MapResolver{}
	for _, name := range []string{"sin", "cos", "tan", "asin", "acos", "atan", "exp", "log", "sqrt", "floor", "ceil", "round"} {
		registerUnaryLibm(r, name)
	}
	registerBinaryLibm(r, "pow", math.Pow)
	registerBinaryLibm(r, "atan2", math.Atan2)
	r["ax_rand"] = nativeRand
	r["ax_voxeltoworld_apply"] = nativeApplyTransform((*grid.Transform).VoxelToWorld)
	r["ax_worldtovoxel_apply"] = nativeApplyTransform((*grid.Transform).WorldToVoxel)
	r["ax_point_attr_ptr"] = nativePointAttrPtr
	return r
}

// nativePointAttrPtr backs codegen.PointGenerator.AttributePointer: handle
// is the attribute's per-leaf storage cell (attr_handles[index], already
// loaded), and point_index selects this invocation's element within it.
// Indirection through a native call rather than in-kernel pointer
// arithmetic is what lets a future non-dense attribute storage layout
// (e.g. a compressed point-attribute codec) change without touching
// generated IR.
func nativePointAttrPtr(args []interface{}) (interface{}, error) {
	handle, ok := args[0].(jit.Cell)
	if !ok {
		return nil, fmt.Errorf("executable: point attribute handle is not addressable")
	}
	off := handle.Offset(toInt64(args[1]))
	if off == nil {
		return nil, fmt.Errorf("executable: point attribute handle does not support indexed access")
	}
	return off, nil
}

var unaryLibm = map[string]func(float64) float64{
	"sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
	"asin": math.Asin, "acos": math.Acos, "atan": math.Atan,
	"exp": math.Exp, "log": math.Log, "sqrt": math.Sqrt,
	"floor": math.Floor, "ceil": math.Ceil, "round": math.Round,
}

func registerUnaryLibm(r jit.MapResolver, name string) {
	fn := unaryLibm[name]
	r["ax_"+name] = func(args []interface{}) (interface{}, error) {
		return fn(toFloat64(args[0])), nil
	}
	r["ax_"+name+"f"] = func(args []interface{}) (interface{}, error) {
		return float32(fn(toFloat64(args[0]))), nil
	}
}

func registerBinaryLibm(r jit.MapResolver, name string, fn func(a, b float64) float64) {
	r["ax_"+name] = func(args []interface{}) (interface{}, error) {
		return fn(toFloat64(args[0]), toFloat64(args[1])), nil
	}
	r["ax_"+name+"f"] = func(args []interface{}) (interface{}, error) {
		return float32(fn(toFloat64(args[0]), toFloat64(args[1]))), nil
	}
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// nativeRand implements the one-argument rand(seed) overload with
// splitmix64: a small, fast, deterministic generator that turns any i64
// seed into a uniform float64 in [0, 1), satisfying spec.md §4.3's
// per-call-deterministic-given-the-seed requirement without pulling in a
// stateful PRNG the parallel leaf pass would have to synchronise on.
func nativeRand(args []interface{}) (interface{}, error) {
	return splitmix64(uint64(toInt64(args[0]))), nil
}

func splitmix64(seed uint64) float64 {
	z := seed + 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z = z ^ (z >> 31)
	return float64(z>>11) * (1.0 / 9007199254740992.0) // 2^-53, matching math/rand's Float64 scaling
}

// nativeApplyTransform builds the native implementation behind
// ax_voxeltoworld_apply/ax_worldtovoxel_apply: both take (transform,
// vec_ptr, out_ptr) and differ only in which grid.Transform method they
// call, per functions.applyTransform's shared codegen shape.
func nativeApplyTransform(apply func(*grid.Transform, [3]float32) [3]float32) jit.NativeFunc {
	return func(args []interface{}) (interface{}, error) {
		t, _ := args[0].(*grid.Transform)
		if t == nil {
			return nil, fmt.Errorf("executable: kernel called a coordinate conversion built-in with no transform bound")
		}
		vecCell, ok := args[1].(jit.Cell)
		if !ok {
			return nil, fmt.Errorf("executable: coordinate conversion argument is not addressable")
		}
		outCell, ok := args[2].(jit.Cell)
		if !ok {
			return nil, fmt.Errorf("executable: coordinate conversion output is not addressable")
		}
		v := vecCell.Get().([]interface{})
		var in [3]float32
		for i := 0; i < 3; i++ {
			in[i] = v[i].(float32)
		}
		out := apply(t, in)
		outCell.Set([]interface{}{out[0], out[1], out[2]})
		return nil, nil
	}
}
