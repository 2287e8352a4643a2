package executable

import (
	"context"
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/ast"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/compiler"
	"github.com/pablocouto/openvdb-ax/internal/functions"
	"github.com/pablocouto/openvdb-ax/internal/grid"
	"github.com/pablocouto/openvdb-ax/internal/jit"
	"github.com/pablocouto/openvdb-ax/internal/symtable"
)

// scenarioParser hands compiler.Compile an already-built AST, standing in
// for the out-of-scope lexer/parser, same as internal/compiler's own
// fixedParser.
type scenarioParser struct{ root ast.Stmt }

func (p scenarioParser) Parse(string) (ast.Stmt, error) { return p.root, nil }

// scenario1Tree builds `@density = @density + 1.0f;` (spec.md §8 scenario
// 1), also the basis for the KERNEL-PURITY and LEAF-LOCALITY checks below.
func scenario1Tree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	density := func() *ast.AttributeValue { return &ast.AttributeValue{Name: "density"} }
	rhs := &ast.BinaryOp{Op: axtypes.OpAdd, Lhs: density(), Rhs: ast.NewLiteral(pos, ast.LitFloat, float64(1), axtypes.TF32)}
	assign := &ast.Assign{Target: density(), Op: ast.AssignSet, Rhs: rhs}
	return ast.NewBlock(pos, []ast.Stmt{assign})
}

func compileScenario1(t *testing.T) *jit.CompiledModule {
	t.Helper()
	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := compiler.New(scenarioParser{scenario1Tree()}, funcs)
	result, err := c.Compile("", compiler.Options{Target: compiler.TargetVolume})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cm, err := jit.NewBackend(BuildBaseResolver()).Build(result.Module)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cm
}

func newScenario1Grid() (*grid.VolumeGrid, *grid.Leaf) {
	g := grid.NewVolumeGrid(&grid.Transform{VoxelSize: 1})
	leaf := grid.NewLeaf(grid.Coord{0, 0, 0})
	leaf.AddAttribute("density", float32(0))
	a, b := grid.LocalIndex(0, 0, 0), grid.LocalIndex(1, 0, 0)
	leaf.Attrs["density"][a] = float32(2.0)
	leaf.Attrs["density"][b] = float32(3.5)
	leaf.Mask.Set(a, true)
	leaf.Mask.Set(b, true)
	g.AddLeaf(leaf)
	return g, leaf
}

func TestScenario1DensityIncrementEndToEnd(t *testing.T) {
	cm := compileScenario1(t)
	g, leaf := newScenario1Grid()
	attrs := symtable.NewAttributeRegistry()
	attrs.Reference("density", axtypes.TF32, symtable.AccessRead|symtable.AccessWrite)
	attrs.Freeze()

	exe, err := NewVolumeExecutable(cm, "ax_kernel", attrs, g)
	if err != nil {
		t.Fatalf("NewVolumeExecutable: %v", err)
	}
	if err := exe.Execute(context.Background(), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a, b := grid.LocalIndex(0, 0, 0), grid.LocalIndex(1, 0, 0)
	if got := leaf.Attrs["density"][a].(float32); got != 3.0 {
		t.Errorf("density(0,0,0): got=%v, want=3.0", got)
	}
	if got := leaf.Attrs["density"][b].(float32); got != 4.5 {
		t.Errorf("density(1,0,0): got=%v, want=4.5", got)
	}
}

// TestKernelPurityDeterministicAcrossRuns exercises KERNEL-PURITY: running
// the same compiled kernel twice over identical input grids yields
// identical output.
func TestKernelPurityDeterministicAcrossRuns(t *testing.T) {
	cm := compileScenario1(t)
	attrs := symtable.NewAttributeRegistry()
	attrs.Reference("density", axtypes.TF32, symtable.AccessRead|symtable.AccessWrite)
	attrs.Freeze()

	run := func() float32 {
		g, leaf := newScenario1Grid()
		exe, err := NewVolumeExecutable(cm, "ax_kernel", attrs, g)
		if err != nil {
			t.Fatalf("NewVolumeExecutable: %v", err)
		}
		if err := exe.Execute(context.Background(), Options{}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		return leaf.Attrs["density"][grid.LocalIndex(1, 0, 0)].(float32)
	}

	first, second := run(), run()
	if first != second {
		t.Errorf("two runs over identical input diverged: %v vs %v", first, second)
	}
}

// TestLeafLocalityPermutationInvariant exercises LEAF-LOCALITY: a leaf's
// result depends only on its own input, never on a sibling leaf's content
// or on the order leaves are registered/processed in.
func TestLeafLocalityPermutationInvariant(t *testing.T) {
	cm := compileScenario1(t)
	attrs := symtable.NewAttributeRegistry()
	attrs.Reference("density", axtypes.TF32, symtable.AccessRead|symtable.AccessWrite)
	attrs.Freeze()

	g := grid.NewVolumeGrid(&grid.Transform{VoxelSize: 1})
	leafA := grid.NewLeaf(grid.Coord{0, 0, 0})
	leafA.AddAttribute("density", float32(0))
	leafA.Attrs["density"][0] = float32(2.0)
	leafA.Mask.Set(0, true)

	leafB := grid.NewLeaf(grid.Coord{1, 0, 0})
	leafB.AddAttribute("density", float32(0))
	leafB.Attrs["density"][0] = float32(100.0)
	leafB.Mask.Set(0, true)

	g.AddLeaf(leafA)
	g.AddLeaf(leafB)

	exe, err := NewVolumeExecutable(cm, "ax_kernel", attrs, g)
	if err != nil {
		t.Fatalf("NewVolumeExecutable: %v", err)
	}
	if err := exe.Execute(context.Background(), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := leafA.Attrs["density"][0].(float32); got != 3.0 {
		t.Errorf("leaf A depends on leaf B's content: got=%v, want=3.0 (unaffected by leaf B's 100.0)", got)
	}
	if got := leafB.Attrs["density"][0].(float32); got != 101.0 {
		t.Errorf("leaf B: got=%v, want=101.0", got)
	}
}

// scenario2Tree builds `i@count = 0; if (@density > 5.0f) i@count = 1;`
// (spec.md §8 scenario 2).
func scenario2Tree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	count := func() *ast.AttributeValue {
		return &ast.AttributeValue{Name: "count", HasTag: true, TypeTag: axtypes.TI32}
	}
	density := &ast.AttributeValue{Name: "density"}
	zero := &ast.Assign{Target: count(), Op: ast.AssignSet, Rhs: ast.NewLiteral(pos, ast.LitInt, int64(0), axtypes.TI32)}
	cond := &ast.BinaryOp{Op: axtypes.OpGt, Lhs: density, Rhs: ast.NewLiteral(pos, ast.LitFloat, float64(5), axtypes.TF32)}
	then := &ast.Assign{Target: count(), Op: ast.AssignSet, Rhs: ast.NewLiteral(pos, ast.LitInt, int64(1), axtypes.TI32)}
	ifStmt := &ast.Conditional{Cond: cond, Then: then}
	return ast.NewBlock(pos, []ast.Stmt{zero, ifStmt})
}

func TestScenario2CountAttributeEndToEnd(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := compiler.New(scenarioParser{scenario2Tree()}, funcs)

	result, err := c.Compile("", compiler.Options{Target: compiler.TargetVolume})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cm, err := jit.NewBackend(BuildBaseResolver()).Build(result.Module)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g := grid.NewVolumeGrid(&grid.Transform{VoxelSize: 1})
	leaf := grid.NewLeaf(grid.Coord{0, 0, 0})
	leaf.AddAttribute("density", float32(0))
	low, high := grid.LocalIndex(0, 0, 0), grid.LocalIndex(1, 0, 0)
	leaf.Attrs["density"][low] = float32(4)
	leaf.Attrs["density"][high] = float32(6)
	leaf.Mask.Set(low, true)
	leaf.Mask.Set(high, true)
	g.AddLeaf(leaf)

	exe, err := NewVolumeExecutable(cm, result.EntryName, result.Attrs, g)
	if err != nil {
		t.Fatalf("NewVolumeExecutable: %v", err)
	}
	if err := exe.Execute(context.Background(), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := leaf.Attrs["count"][low].(int64); got != 0 {
		t.Errorf("count at density=4.0: got=%d, want=0", got)
	}
	if got := leaf.Attrs["count"][high].(int64); got != 1 {
		t.Errorf("count at density=6.0: got=%d, want=1", got)
	}
}

// scenario3Tree builds `v@P += {0.0f, 1.0f, 0.0f};` (spec.md §8 scenario 3).
func scenario3Tree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	p := &ast.AttributeValue{Name: "P", HasTag: true, TypeTag: axtypes.TVec3F}
	pack := &ast.VectorPack{Elements: []ast.Expr{
		ast.NewLiteral(pos, ast.LitFloat, float64(0), axtypes.TF32),
		ast.NewLiteral(pos, ast.LitFloat, float64(1), axtypes.TF32),
		ast.NewLiteral(pos, ast.LitFloat, float64(0), axtypes.TF32),
	}}
	assign := &ast.Assign{Target: p, Op: ast.AssignAdd, Rhs: pack}
	return ast.NewBlock(pos, []ast.Stmt{assign})
}

func TestScenario3PointPositionTranslationEndToEnd(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	functions.AddPointBuiltins(funcs)
	c := compiler.New(scenarioParser{scenario3Tree()}, funcs)

	result, err := c.Compile("", compiler.Options{Target: compiler.TargetPoint})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cm, err := jit.NewBackend(BuildBaseResolver()).Build(result.Module)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g := grid.NewPointGrid()
	leaf := grid.NewPointLeaf(grid.Coord{0, 0, 0}, 2)
	leaf.AddAttribute("P", []interface{}{float32(0), float32(0), float32(0)})
	leaf.Attrs["P"][0] = []interface{}{float32(1), float32(2), float32(3)}
	leaf.Attrs["P"][1] = []interface{}{float32(4), float32(5), float32(6)}
	g.AddLeaf(leaf)

	exe, err := NewPointExecutable(cm, result.EntryName, result.Attrs, result.Groups, g)
	if err != nil {
		t.Fatalf("NewPointExecutable: %v", err)
	}
	if err := exe.Execute(context.Background(), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := [][3]float32{{1, 3, 3}, {4, 6, 6}}
	for i, w := range want {
		got := leaf.Attrs["P"][i].([]interface{})
		for c := 0; c < 3; c++ {
			if got[c].(float32) != w[c] {
				t.Errorf("point %d component %d: got=%v, want=%v", i, c, got[c], w[c])
			}
		}
	}
}

// scenario4Tree builds `@a = @a * 2; @a = @a + 0.5;` on an i32 attribute
// (spec.md §8 scenario 4): the second assignment narrows a float result
// back into i32, which since the comment-1 fix to
// internal/ast/resolve.go is a warning rather than a hard error.
func scenario4Tree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	a := func() *ast.AttributeValue {
		return &ast.AttributeValue{Name: "a", HasTag: true, TypeTag: axtypes.TI32}
	}
	mul := &ast.BinaryOp{Op: axtypes.OpMul, Lhs: a(), Rhs: ast.NewLiteral(pos, ast.LitInt, int64(2), axtypes.TI32)}
	first := &ast.Assign{Target: a(), Op: ast.AssignSet, Rhs: mul}
	add := &ast.BinaryOp{Op: axtypes.OpAdd, Lhs: a(), Rhs: ast.NewLiteral(pos, ast.LitFloat, float64(0.5), axtypes.TF32)}
	second := &ast.Assign{Target: a(), Op: ast.AssignSet, Rhs: add}
	return ast.NewBlock(pos, []ast.Stmt{first, second})
}

func TestScenario4NarrowingAssignWarnsAndComputesEndToEnd(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := compiler.New(scenarioParser{scenario4Tree()}, funcs)

	result, err := c.Compile("", compiler.Options{Target: compiler.TargetVolume})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings: got=%d, want=1 (%v)", len(result.Warnings), result.Warnings)
	}

	cm, err := jit.NewBackend(BuildBaseResolver()).Build(result.Module)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := grid.NewVolumeGrid(&grid.Transform{VoxelSize: 1})
	leaf := grid.NewLeaf(grid.Coord{0, 0, 0})
	leaf.AddAttribute("a", int64(0))
	idx := grid.LocalIndex(0, 0, 0)
	leaf.Attrs["a"][idx] = int64(3)
	leaf.Mask.Set(idx, true)
	g.AddLeaf(leaf)

	exe, err := NewVolumeExecutable(cm, result.EntryName, result.Attrs, g)
	if err != nil {
		t.Fatalf("NewVolumeExecutable: %v", err)
	}
	if err := exe.Execute(context.Background(), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := leaf.Attrs["a"][idx].(int64); got != 6 {
		t.Errorf("a: got=%d, want=6", got)
	}
}

// builtinsTree builds `f@out = clamp(min(abs(@x), @y), 0.0f, 10.0f);`,
// exercising abs/min/clamp (all backed by ctx.Block.NewSelect) through a
// compiled and interpreted kernel rather than type-checked alone.
func builtinsTree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	x := &ast.AttributeValue{Name: "x"}
	y := &ast.AttributeValue{Name: "y"}
	absCall := &ast.FunctionCall{Name: "abs", Args: []ast.Expr{x}}
	minCall := &ast.FunctionCall{Name: "min", Args: []ast.Expr{absCall, y}}
	clampCall := &ast.FunctionCall{Name: "clamp", Args: []ast.Expr{
		minCall,
		ast.NewLiteral(pos, ast.LitFloat, float64(0), axtypes.TF32),
		ast.NewLiteral(pos, ast.LitFloat, float64(10), axtypes.TF32),
	}}
	out := &ast.AttributeValue{Name: "out"}
	assign := &ast.Assign{Target: out, Op: ast.AssignSet, Rhs: clampCall}
	return ast.NewBlock(pos, []ast.Stmt{assign})
}

func TestBuiltinsAbsMinClampEndToEnd(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := compiler.New(scenarioParser{builtinsTree()}, funcs)

	result, err := c.Compile("", compiler.Options{Target: compiler.TargetVolume})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cm, err := jit.NewBackend(BuildBaseResolver()).Build(result.Module)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g := grid.NewVolumeGrid(&grid.Transform{VoxelSize: 1})
	leaf := grid.NewLeaf(grid.Coord{0, 0, 0})
	leaf.AddAttribute("x", float32(0))
	leaf.AddAttribute("y", float32(0))
	withinRange, saturating := grid.LocalIndex(0, 0, 0), grid.LocalIndex(1, 0, 0)
	leaf.Attrs["x"][withinRange], leaf.Attrs["y"][withinRange] = float32(-3), float32(20)
	leaf.Attrs["x"][saturating], leaf.Attrs["y"][saturating] = float32(-20), float32(50)
	leaf.Mask.Set(withinRange, true)
	leaf.Mask.Set(saturating, true)
	g.AddLeaf(leaf)

	exe, err := NewVolumeExecutable(cm, result.EntryName, result.Attrs, g)
	if err != nil {
		t.Fatalf("NewVolumeExecutable: %v", err)
	}
	if err := exe.Execute(context.Background(), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := leaf.Attrs["out"][withinRange].(float32); got != 3 {
		t.Errorf("clamp(min(abs(-3), 20), 0, 10): got=%v, want=3", got)
	}
	if got := leaf.Attrs["out"][saturating].(float32); got != 10 {
		t.Errorf("clamp(min(abs(-20), 50), 0, 10): got=%v, want=10", got)
	}
}
