package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pablocouto/openvdb-ax/internal/ast"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/symtable"
)

// VolumeGenerator builds the volume kernel entry function, per spec.md
// §4.5: `void(*)(coord, transform, attr_ptrs[], active_mask, custom_data)`.
// Every `@name` reference indexes attr_ptrs[] at the attribute's stable
// registration index, then bitcasts the opaque i8* stored there to the
// attribute's concrete storage type.
type VolumeGenerator struct {
	*ComputeGenerator

	coordParam      *ir.Param
	transformParam  *ir.Param
	attrPtrsParam   *ir.Param
	activeMaskParam *ir.Param
	customDataParam *ir.Param
}

// volumeParamTypes is the fixed IR parameter list of every volume kernel
// entry function.
func volumeParamTypes() []types.Type {
	return []types.Type{
		types.NewPointer(types.NewArray(3, types.I32)), // coord
		types.NewPointer(types.I8),                     // transform
		types.NewPointer(types.NewPointer(types.I8)),   // attr_ptrs[]
		types.NewPointer(types.I64),                    // active_mask (bitset, spec.md §6)
		types.NewPointer(types.I8),                     // custom_data
	}
}

// BuildVolumeKernel lowers body into a new module-level function named
// name implementing the volume kernel ABI.
func BuildVolumeKernel(g *ComputeGenerator, name string, body ast.Stmt) (*ir.Func, error) {
	pt := volumeParamTypes()
	params := []*ir.Param{
		ir.NewParam("coord", pt[0]),
		ir.NewParam("transform", pt[1]),
		ir.NewParam("attr_ptrs", pt[2]),
		ir.NewParam("active_mask", pt[3]),
		ir.NewParam("custom_data", pt[4]),
	}
	fn := g.Module.NewFunc(name, types.Void, params...)
	entry := fn.NewBlock("entry")

	vg := &VolumeGenerator{
		ComputeGenerator: g,
		coordParam:       params[0],
		transformParam:   params[1],
		attrPtrsParam:    params[2],
		activeMaskParam:  params[3],
		customDataParam:  params[4],
	}

	g.Func = fn
	g.cur = entry
	g.Target = vg
	g.Transform = params[1]

	g.DeclareExtra("ax_voxeltoworld_apply", []types.Type{pt[1], types.NewPointer(types.NewArray(3, types.Float)), types.NewPointer(types.NewArray(3, types.Float))}, types.Void)
	g.DeclareExtra("ax_worldtovoxel_apply", []types.Type{pt[1], types.NewPointer(types.NewArray(3, types.Float)), types.NewPointer(types.NewArray(3, types.Float))}, types.Void)

	g.DefaultSeed = vg.deriveSeed()

	if err := g.LowerStmt(body); err != nil {
		return nil, err
	}
	if g.cur.Term == nil {
		g.cur.NewRet(nil)
	}
	return fn, nil
}

// deriveSeed folds the voxel's integer coordinate into a single i64 seed
// for the zero-argument rand() overload (spec.md §4.3), so repeated
// compiles of the same kernel over the same coordinate reproduce the same
// stream deterministically.
func (v *VolumeGenerator) deriveSeed() value.Value {
	coordArr := types.NewArray(3, types.I32)
	b := v.cur
	x := b.NewLoad(types.I32, axtypes.ElemPtr(b, coordArr, v.coordParam, 0))
	y := b.NewLoad(types.I32, axtypes.ElemPtr(b, coordArr, v.coordParam, 1))
	z := b.NewLoad(types.I32, axtypes.ElemPtr(b, coordArr, v.coordParam, 2))
	x64 := b.NewSExt(x, types.I64)
	y64 := b.NewSExt(y, types.I64)
	z64 := b.NewSExt(z, types.I64)
	mix := b.NewXor(x64, b.NewShl(y64, constant.NewInt(types.I64, 21)))
	return b.NewXor(mix, b.NewShl(z64, constant.NewInt(types.I64, 42)))
}

// AttributePointer implements codegen.AttributeAccessor: attr_ptrs[index]
// holds an opaque i8* to the attribute's backing buffer for this voxel,
// bitcast here to the attribute's concrete storage pointer type.
func (v *VolumeGenerator) AttributePointer(g *ComputeGenerator, entry *symtable.AttributeEntry) value.Value {
	b := g.cur
	slot := b.NewGetElementPtr(types.NewPointer(types.I8), v.attrPtrsParam, constant.NewInt(types.I32, int64(entry.Index)))
	raw := b.NewLoad(types.NewPointer(types.I8), slot)
	return b.NewBitCast(raw, types.NewPointer(axtypes.IRTypeOf(entry.Type)))
}

// ActiveMask returns the base pointer to the active-voxel bitset
// (spec.md §6: `const uint64_t* active_mask`). The executable only ever
// invokes the kernel for voxels it has already determined are active
// (spec.md §4.8), so generated kernel bodies never need to test it
// themselves; it is exposed for built-ins that inspect neighbouring
// voxels' activity.
func (v *VolumeGenerator) ActiveMask() value.Value {
	return v.activeMaskParam
}
