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

// PointGenerator builds the point kernel entry function, per spec.md
// §4.6: `void(*)(point_index, leaf_data, attr_handles[], group_handles[],
// custom_data)`. Unlike the volume target, the address of an attribute
// value is not computed in-kernel: AttributePointer hands the attribute's
// opaque handle and point_index to the ax_point_attr_ptr external, which
// returns the address of this point's value.
type PointGenerator struct {
	*ComputeGenerator

	pointIndexParam   *ir.Param
	leafDataParam     *ir.Param
	attrHandlesParam  *ir.Param
	groupHandlesParam *ir.Param
	customDataParam   *ir.Param
}

func pointParamTypes() []types.Type {
	return []types.Type{
		types.I64,                                    // point_index
		types.NewPointer(types.I8),                   // leaf_data
		types.NewPointer(types.NewPointer(types.I8)),  // attr_handles[]
		types.NewPointer(types.NewPointer(types.I8)),  // group_handles[]
		types.NewPointer(types.I8),                    // custom_data
	}
}

// attrPtrSymbol is the external accessor every point-target attribute
// reference calls through, per spec.md §4.5(i): unlike the volume target's
// dense per-voxel array, a point grid's attribute storage layout is opaque
// to the generator, so the address of a point's value is obtained from the
// host rather than computed with in-kernel pointer arithmetic.
const attrPtrSymbol = "ax_point_attr_ptr"

// BuildPointKernel lowers body into a new module-level function named name
// implementing the point kernel ABI.
func BuildPointKernel(g *ComputeGenerator, name string, body ast.Stmt) (*ir.Func, error) {
	pt := pointParamTypes()
	params := []*ir.Param{
		ir.NewParam("point_index", pt[0]),
		ir.NewParam("leaf_data", pt[1]),
		ir.NewParam("attr_handles", pt[2]),
		ir.NewParam("group_handles", pt[3]),
		ir.NewParam("custom_data", pt[4]),
	}
	fn := g.Module.NewFunc(name, types.Void, params...)
	entry := fn.NewBlock("entry")

	g.DeclareExtra(attrPtrSymbol, []types.Type{types.NewPointer(types.I8), types.I64}, types.NewPointer(types.I8))

	pg := &PointGenerator{
		ComputeGenerator:  g,
		pointIndexParam:   params[0],
		leafDataParam:     params[1],
		attrHandlesParam:  params[2],
		groupHandlesParam: params[3],
		customDataParam:   params[4],
	}

	g.Func = fn
	g.cur = entry
	g.Target = pg
	g.Transform = nil // the point target has no transform; voxeltoworld/worldtovoxel are volume-only

	g.DefaultSeed = pg.deriveSeed()

	if err := g.LowerStmt(body); err != nil {
		return nil, err
	}
	if g.cur.Term == nil {
		g.cur.NewRet(nil)
	}
	return fn, nil
}

// deriveSeed uses the point's own index directly as the rand() seed —
// unlike the volume target's three-coordinate mix, a point index is
// already a single scalar unique within its leaf.
func (p *PointGenerator) deriveSeed() value.Value {
	return p.pointIndexParam
}

// AttributePointer implements codegen.AttributeAccessor: attr_handles[index]
// holds an opaque i8* handle to this attribute's storage, whose internal
// layout (dense array, compressed, or otherwise) the generator never
// assumes. The handle and the point index are passed to the
// ax_point_attr_ptr external, which returns the address of this point's
// value; the generator only bitcasts that address to the attribute's
// concrete element pointer type.
func (p *PointGenerator) AttributePointer(g *ComputeGenerator, entry *symtable.AttributeEntry) value.Value {
	b := g.cur
	slot := b.NewGetElementPtr(types.NewPointer(types.I8), p.attrHandlesParam, constant.NewInt(types.I32, int64(entry.Index)))
	handle := b.NewLoad(types.NewPointer(types.I8), slot)
	accessor := g.Externals[attrPtrSymbol]
	raw := b.NewCall(accessor, handle, p.pointIndexParam)
	elemIRType := axtypes.IRTypeOf(entry.Type)
	return b.NewBitCast(raw, types.NewPointer(elemIRType))
}
