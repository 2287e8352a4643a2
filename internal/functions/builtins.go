package functions

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// NewCoreRegistry builds the target-independent built-in catalogue of
// SPEC_FULL.md §4.3: elementary math, vector/matrix ops, and rand. Volume-
// and point-target-specific groups are layered on top by AddVolumeBuiltins
// and AddPointBuiltins.
func NewCoreRegistry() *Registry {
	r := NewRegistry()
	registerScalarMath(r)
	registerLibm(r)
	registerVectorOps(r)
	registerMatrixOps(r)
	registerRand(r)
	return r
}

// AddVolumeBuiltins layers voxel/world coordinate conversion helpers onto
// r, valid only for the volume target (spec.md §4.3/§4.5).
func AddVolumeBuiltins(r *Registry) {
	vec3 := axtypes.TVec3F
	r.Register(Group{Name: "voxeltoworld", Signatures: []Signature{{
		Params: []Param{{Type: vec3, Attr: ParamByPointer}}, Return: vec3,
		Linkage: Inline, Emit: emitVoxelToWorld,
	}}})
	r.Register(Group{Name: "worldtovoxel", Signatures: []Signature{{
		Params: []Param{{Type: vec3, Attr: ParamByPointer}}, Return: vec3,
		Linkage: Inline, Emit: emitWorldToVoxel,
	}}})
}

// AddPointBuiltins layers group-membership predicates onto r, valid only
// for the point target (spec.md §4.3/§4.6). The single parameter is
// already a compile-time-resolved i32 group index by the time overload
// resolution sees it — ast.Resolve rewrites the source-level literal
// group name into that index before calling functions.Select.
func AddPointBuiltins(r *Registry) {
	idx := Param{Type: axtypes.TI32}
	r.Register(Group{Name: "ingroup", Signatures: []Signature{{
		Params: []Param{idx}, Return: axtypes.TBool, Linkage: External, Symbol: "ax_ingroup",
	}}})
	r.Register(Group{Name: "addtogroup", Signatures: []Signature{{
		Params: []Param{idx}, Return: axtypes.TBool, Linkage: External, Symbol: "ax_addtogroup",
	}}})
	r.Register(Group{Name: "removefromgroup", Signatures: []Signature{{
		Params: []Param{idx}, Return: axtypes.TBool, Linkage: External, Symbol: "ax_removefromgroup",
	}}})
}

// ---- elementary math (inline) ----

func registerScalarMath(r *Registry) {
	for _, t := range []axtypes.Type{axtypes.TF32, axtypes.TF64, axtypes.TI32, axtypes.TI64} {
		t := t
		r.maybeRegister1(&Group{Name: "abs"}, t, func(ctx *EmitContext, args []value.Value) (value.Value, error) {
			return emitAbs(ctx, args[0], t)
		})
		r.maybeRegister2(&Group{Name: "min"}, t, func(ctx *EmitContext, args []value.Value) (value.Value, error) {
			return emitMinMax(ctx, args[0], args[1], t, true)
		})
		r.maybeRegister2(&Group{Name: "max"}, t, func(ctx *EmitContext, args []value.Value) (value.Value, error) {
			return emitMinMax(ctx, args[0], args[1], t, false)
		})
	}
	for _, t := range []axtypes.Type{axtypes.TF32, axtypes.TF64} {
		t := t
		r.maybeRegister1(&Group{Name: "sign"}, t, func(ctx *EmitContext, args []value.Value) (value.Value, error) {
			return emitSign(ctx, args[0], t)
		})
		r.maybeRegister3(&Group{Name: "clamp"}, t, func(ctx *EmitContext, args []value.Value) (value.Value, error) {
			lo, err := emitMinMax(ctx, args[0], args[1], t, false)
			if err != nil {
				return nil, err
			}
			return emitMinMax(ctx, lo, args[2], t, true)
		})
		r.register5(&Group{Name: "fit"}, t, emitFit)
	}
	r.flush()
}

// registry groups accumulate across the several scalar types above before
// being registered once per name; pending holds them until flush.
func (r *Registry) maybeRegister1(g *Group, t axtypes.Type, emit InlineEmitFunc) {
	r.appendSig(g, Signature{Params: []Param{{Type: t}}, Return: t, Linkage: Inline, Emit: emit})
}
func (r *Registry) maybeRegister2(g *Group, t axtypes.Type, emit InlineEmitFunc) {
	r.appendSig(g, Signature{Params: []Param{{Type: t}, {Type: t}}, Return: t, Linkage: Inline, Emit: emit})
}
func (r *Registry) maybeRegister3(g *Group, t axtypes.Type, emit InlineEmitFunc) {
	r.appendSig(g, Signature{Params: []Param{{Type: t}, {Type: t}, {Type: t}}, Return: t, Linkage: Inline, Emit: emit})
}
func (r *Registry) register5(g *Group, t axtypes.Type, emit InlineEmitFunc) {
	r.appendSig(g, Signature{Params: []Param{{Type: t}, {Type: t}, {Type: t}, {Type: t}, {Type: t}}, Return: t, Linkage: Inline, Emit: emit})
}

// appendSig accumulates signatures for group g.Name into r.pending, keyed
// by name, so every scalar-type overload ends up registered together
// under a single Group — Register panics on a second call with the same
// name, so the catalogue cannot call it once per type directly.
func (r *Registry) appendSig(g *Group, sig Signature) {
	if r.pending == nil {
		r.pending = make(map[string]*Group)
	}
	pg, ok := r.pending[g.Name]
	if !ok {
		pg = &Group{Name: g.Name}
		r.pending[g.Name] = pg
		r.pendingOrder = append(r.pendingOrder, g.Name)
	}
	pg.Signatures = append(pg.Signatures, sig)
}

func (r *Registry) flush() {
	for _, name := range r.pendingOrder {
		r.Register(*r.pending[name])
		delete(r.pending, name)
	}
	r.pendingOrder = nil
}

func emitAbs(ctx *EmitContext, x value.Value, t axtypes.Type) (value.Value, error) {
	if t.IsFloat() {
		zero := constant.NewFloat(axtypes.IRTypeOf(t).(*types.FloatType), 0)
		neg := ctx.Block.NewFSub(zero, x)
		cond := ctx.Block.NewFCmp(enum.FPredOLT, x, zero)
		return ctx.Block.NewSelect(cond, neg, x), nil
	}
	zero := constant.NewInt(axtypes.IRTypeOf(t).(*types.IntType), 0)
	neg := ctx.Block.NewSub(zero, x)
	cond := ctx.Block.NewICmp(enum.IPredSLT, x, zero)
	return ctx.Block.NewSelect(cond, neg, x), nil
}

func emitMinMax(ctx *EmitContext, a, b value.Value, t axtypes.Type, wantMin bool) (value.Value, error) {
	var cond value.Value
	if t.IsFloat() {
		if wantMin {
			cond = ctx.Block.NewFCmp(enum.FPredOLT, a, b)
		} else {
			cond = ctx.Block.NewFCmp(enum.FPredOGT, a, b)
		}
	} else {
		if wantMin {
			cond = ctx.Block.NewICmp(enum.IPredSLT, a, b)
		} else {
			cond = ctx.Block.NewICmp(enum.IPredSGT, a, b)
		}
	}
	return ctx.Block.NewSelect(cond, a, b), nil
}

func emitSign(ctx *EmitContext, x value.Value, t axtypes.Type) (value.Value, error) {
	ft := axtypes.IRTypeOf(t).(*types.FloatType)
	zero := constant.NewFloat(ft, 0)
	one := constant.NewFloat(ft, 1)
	negOne := constant.NewFloat(ft, -1)
	isNeg := ctx.Block.NewFCmp(enum.FPredOLT, x, zero)
	isPos := ctx.Block.NewFCmp(enum.FPredOGT, x, zero)
	negOrZero := ctx.Block.NewSelect(isNeg, negOne, zero)
	return ctx.Block.NewSelect(isPos, one, negOrZero), nil
}

// emitFit implements `fit(x, oldMin, oldMax, newMin, newMax)`, the
// range-remap built-in of spec.md §4.3's catalogue.
func emitFit(ctx *EmitContext, args []value.Value) (value.Value, error) {
	x, oldMin, oldMax, newMin, newMax := args[0], args[1], args[2], args[3], args[4]
	b := ctx.Block
	span := b.NewFSub(x, oldMin)
	oldRange := b.NewFSub(oldMax, oldMin)
	newRange := b.NewFSub(newMax, newMin)
	ratio := b.NewFDiv(span, oldRange)
	return b.NewFAdd(newMin, b.NewFMul(ratio, newRange)), nil
}

// ---- libm-backed externals ----

func registerLibm(r *Registry) {
	unary := []string{"sin", "cos", "tan", "asin", "acos", "atan", "exp", "log", "sqrt", "floor", "ceil", "round"}
	for _, name := range unary {
		registerUnaryLibm(r, name)
	}
	registerBinaryLibm(r, "pow")
	registerBinaryLibm(r, "atan2")
}

func registerUnaryLibm(r *Registry, name string) {
	r.Register(Group{Name: name, Signatures: []Signature{
		{Params: []Param{{Type: axtypes.TF32}}, Return: axtypes.TF32, Linkage: External, Symbol: "ax_" + name + "f"},
		{Params: []Param{{Type: axtypes.TF64}}, Return: axtypes.TF64, Linkage: External, Symbol: "ax_" + name},
	}})
}

func registerBinaryLibm(r *Registry, name string) {
	r.Register(Group{Name: name, Signatures: []Signature{
		{Params: []Param{{Type: axtypes.TF32}, {Type: axtypes.TF32}}, Return: axtypes.TF32, Linkage: External, Symbol: "ax_" + name + "f"},
		{Params: []Param{{Type: axtypes.TF64}, {Type: axtypes.TF64}}, Return: axtypes.TF64, Linkage: External, Symbol: "ax_" + name},
	}})
}

// ---- vector ops ----

func registerVectorOps(r *Registry) {
	for _, vt := range []axtypes.Type{axtypes.TVec3F, axtypes.TVec4F} {
		vt := vt
		r.Register(Group{Name: mangled("length_sq", vt), Signatures: []Signature{{
			Params: []Param{{Type: vt, Attr: ParamByPointer}}, Return: axtypes.TF32,
			Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitLengthSq(ctx, args[0], vt)
			},
		}}})
		r.Register(Group{Name: mangled("length", vt), Signatures: []Signature{{
			Params: []Param{{Type: vt, Attr: ParamByPointer}}, Return: axtypes.TF32,
			Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitLength(ctx, args[0], vt)
			},
		}}})
		r.Register(Group{Name: mangled("normalize", vt), Signatures: []Signature{{
			Params: []Param{{Type: vt, Attr: ParamByPointer}}, Return: vt,
			Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitNormalize(ctx, args[0], vt)
			},
		}}})
		r.Register(Group{Name: mangled("dot", vt), Signatures: []Signature{{
			Params: []Param{{Type: vt, Attr: ParamByPointer}, {Type: vt, Attr: ParamByPointer}}, Return: axtypes.TF32,
			Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitDot(ctx, args[0], args[1], vt)
			},
		}}})
	}
	r.Register(Group{Name: "cross", Signatures: []Signature{{
		Params: []Param{{Type: axtypes.TVec3F, Attr: ParamByPointer}, {Type: axtypes.TVec3F, Attr: ParamByPointer}},
		Return: axtypes.TVec3F, Linkage: Inline, Emit: emitCross,
	}}})
	registerAlias(r, "length_sq", []axtypes.Type{axtypes.TVec3F, axtypes.TVec4F})
	registerAlias(r, "length", []axtypes.Type{axtypes.TVec3F, axtypes.TVec4F})
	registerAlias(r, "normalize", []axtypes.Type{axtypes.TVec3F, axtypes.TVec4F})
	registerAlias(r, "dot", []axtypes.Type{axtypes.TVec3F, axtypes.TVec4F})
}

// mangled builds a unique internal-only group name per element arity so
// the vec3/vec4 overloads of the same surfaced name ("length", "dot", ...)
// can be registered independently and then merged under the public name
// by registerAlias.
func mangled(name string, t axtypes.Type) string { return fmt.Sprintf("%s$%d", name, t.Len) }

// registerAlias merges the per-arity mangled groups registered above into
// a single publicly callable group, so user source can write `length(v)`
// regardless of whether v is a vec3 or a vec4 — Select still disambiguates
// by argument type as usual.
func registerAlias(r *Registry, name string, types_ []axtypes.Type) {
	merged := Group{Name: name}
	for _, t := range types_ {
		g, ok := r.Lookup(mangled(name, t))
		if !ok {
			continue
		}
		merged.Signatures = append(merged.Signatures, g.Signatures...)
		delete(r.groups, mangled(name, t))
	}
	r.Register(merged)
}

func emitLengthSq(ctx *EmitContext, ptr value.Value, vt axtypes.Type) (value.Value, error) {
	return emitDot(ctx, ptr, ptr, vt)
}

func emitDot(ctx *EmitContext, a, b value.Value, vt axtypes.Type) (value.Value, error) {
	arrType := axtypes.IRTypeOf(vt).(*types.ArrayType)
	blk := ctx.Block
	var sum value.Value = constant.NewFloat(types.Float, 0)
	for i := 0; i < vt.Len; i++ {
		ai := blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, a, i))
		bi := blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, b, i))
		sum = blk.NewFAdd(sum, blk.NewFMul(ai, bi))
	}
	return sum, nil
}

func emitLength(ctx *EmitContext, ptr value.Value, vt axtypes.Type) (value.Value, error) {
	sq, err := emitLengthSq(ctx, ptr, vt)
	if err != nil {
		return nil, err
	}
	sqrtf, ok := ctx.Externals["ax_sqrtf"]
	if !ok {
		return nil, fmt.Errorf("functions: ax_sqrtf external not declared")
	}
	return ctx.Block.NewCall(sqrtf, sq), nil
}

func emitNormalize(ctx *EmitContext, ptr value.Value, vt axtypes.Type) (value.Value, error) {
	length, err := emitLength(ctx, ptr, vt)
	if err != nil {
		return nil, err
	}
	arrType := axtypes.IRTypeOf(vt).(*types.ArrayType)
	blk := ctx.Block
	out := blk.NewAlloca(arrType)
	for i := 0; i < vt.Len; i++ {
		ei := blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, ptr, i))
		blk.NewStore(blk.NewFDiv(ei, length), axtypes.ElemPtr(blk, arrType, out, i))
	}
	return out, nil
}

func emitCross(ctx *EmitContext, args []value.Value) (value.Value, error) {
	a, b := args[0], args[1]
	arrType := axtypes.IRTypeOf(axtypes.TVec3F).(*types.ArrayType)
	blk := ctx.Block
	load := func(ptr value.Value, i int) value.Value {
		return blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, ptr, i))
	}
	ax, ay, az := load(a, 0), load(a, 1), load(a, 2)
	bx, by, bz := load(b, 0), load(b, 1), load(b, 2)
	cx := blk.NewFSub(blk.NewFMul(ay, bz), blk.NewFMul(az, by))
	cy := blk.NewFSub(blk.NewFMul(az, bx), blk.NewFMul(ax, bz))
	cz := blk.NewFSub(blk.NewFMul(ax, by), blk.NewFMul(ay, bx))
	out := blk.NewAlloca(arrType)
	blk.NewStore(cx, axtypes.ElemPtr(blk, arrType, out, 0))
	blk.NewStore(cy, axtypes.ElemPtr(blk, arrType, out, 1))
	blk.NewStore(cz, axtypes.ElemPtr(blk, arrType, out, 2))
	return out, nil
}

// ---- matrix ops ----

// Mat3F/Mat4F mirror axtypes.TMat4F but at 3x3 and 4x4 element counts,
// stored row-major flattened, per spec.md §4.3's "Matrix construction and
// multiply".
var (
	Mat3F = axtypes.NewArray(9, axtypes.TF32)
	Mat4F = axtypes.TMat4F
)

func registerMatrixOps(r *Registry) {
	for _, m := range []struct {
		t   axtypes.Type
		dim int
	}{{Mat3F, 3}, {Mat4F, 4}} {
		m := m
		r.Register(Group{Name: mangled("identity", m.t), Signatures: []Signature{{
			Return: m.t, Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitIdentity(ctx, m.t, m.dim)
			},
		}}})
		r.Register(Group{Name: mangled("transpose", m.t), Signatures: []Signature{{
			Params: []Param{{Type: m.t, Attr: ParamByPointer}}, Return: m.t,
			Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitTranspose(ctx, args[0], m.t, m.dim)
			},
		}}})
		r.Register(Group{Name: mangled("matmul", m.t), Signatures: []Signature{{
			Params: []Param{{Type: m.t, Attr: ParamByPointer}, {Type: m.t, Attr: ParamByPointer}}, Return: m.t,
			Linkage: Inline, Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				return emitMatMul(ctx, args[0], args[1], m.t, m.dim)
			},
		}}})
	}
	r.Register(Group{Name: "identity3", Signatures: mustGroup(r, mangled("identity", Mat3F)).Signatures})
	r.Register(Group{Name: "identity4", Signatures: mustGroup(r, mangled("identity", Mat4F)).Signatures})
	delete(r.groups, mangled("identity", Mat3F))
	delete(r.groups, mangled("identity", Mat4F))
	registerAlias(r, "transpose", []axtypes.Type{Mat3F, Mat4F})
	registerAlias(r, "matmul", []axtypes.Type{Mat3F, Mat4F})
}

func mustGroup(r *Registry, name string) *Group {
	g, _ := r.Lookup(name)
	return g
}

func emitIdentity(ctx *EmitContext, mt axtypes.Type, dim int) (value.Value, error) {
	arrType := axtypes.IRTypeOf(mt).(*types.ArrayType)
	blk := ctx.Block
	out := blk.NewAlloca(arrType)
	one := constant.NewFloat(types.Float, 1)
	zero := constant.NewFloat(types.Float, 0)
	for row := 0; row < dim; row++ {
		for col := 0; col < dim; col++ {
			v := zero
			if row == col {
				v = one
			}
			blk.NewStore(v, axtypes.ElemPtr(blk, arrType, out, row*dim+col))
		}
	}
	return out, nil
}

func emitTranspose(ctx *EmitContext, ptr value.Value, mt axtypes.Type, dim int) (value.Value, error) {
	arrType := axtypes.IRTypeOf(mt).(*types.ArrayType)
	blk := ctx.Block
	out := blk.NewAlloca(arrType)
	for row := 0; row < dim; row++ {
		for col := 0; col < dim; col++ {
			v := blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, ptr, row*dim+col))
			blk.NewStore(v, axtypes.ElemPtr(blk, arrType, out, col*dim+row))
		}
	}
	return out, nil
}

func emitMatMul(ctx *EmitContext, a, b value.Value, mt axtypes.Type, dim int) (value.Value, error) {
	arrType := axtypes.IRTypeOf(mt).(*types.ArrayType)
	blk := ctx.Block
	out := blk.NewAlloca(arrType)
	for row := 0; row < dim; row++ {
		for col := 0; col < dim; col++ {
			var sum value.Value = constant.NewFloat(types.Float, 0)
			for k := 0; k < dim; k++ {
				aik := blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, a, row*dim+k))
				bkj := blk.NewLoad(types.Float, axtypes.ElemPtr(blk, arrType, b, k*dim+col))
				sum = blk.NewFAdd(sum, blk.NewFMul(aik, bkj))
			}
			blk.NewStore(sum, axtypes.ElemPtr(blk, arrType, out, row*dim+col))
		}
	}
	return out, nil
}

// ---- rand ----

func registerRand(r *Registry) {
	r.Register(Group{Name: "rand", Signatures: []Signature{
		{
			Return: axtypes.TF64, Linkage: Inline,
			Emit: func(ctx *EmitContext, args []value.Value) (value.Value, error) {
				ax, ok := ctx.Externals["ax_rand"]
				if !ok {
					return nil, fmt.Errorf("functions: ax_rand external not declared")
				}
				return ctx.Block.NewCall(ax, ctx.DefaultSeed), nil
			},
		},
		{Params: []Param{{Type: axtypes.TI64}}, Return: axtypes.TF64, Linkage: External, Symbol: "ax_rand"},
	}})
}

// ---- volume-only coordinate helpers ----

func emitVoxelToWorld(ctx *EmitContext, args []value.Value) (value.Value, error) {
	return applyTransform(ctx, args[0], "ax_voxeltoworld_apply")
}

func emitWorldToVoxel(ctx *EmitContext, args []value.Value) (value.Value, error) {
	return applyTransform(ctx, args[0], "ax_worldtovoxel_apply")
}

func applyTransform(ctx *EmitContext, vec value.Value, symbol string) (value.Value, error) {
	fn, ok := ctx.Externals[symbol]
	if !ok {
		return nil, fmt.Errorf("functions: %s external not declared", symbol)
	}
	arrType := axtypes.IRTypeOf(axtypes.TVec3F).(*types.ArrayType)
	blk := ctx.Block
	out := blk.NewAlloca(arrType)
	blk.NewCall(fn, ctx.Transform, vec, out)
	return out, nil
}
