package compiler

import (
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/ast"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/functions"
	"github.com/pablocouto/openvdb-ax/internal/jit"
)

// fixedParser lets a test hand the driver an already-built AST, standing
// in for the out-of-scope lexer/parser.
type fixedParser struct{ root ast.Stmt }

func (p fixedParser) Parse(string) (ast.Stmt, error) { return p.root, nil }

// doubleDensityTree builds `@density = @density * 2.0f;`.
func doubleDensityTree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	density := func() *ast.AttributeValue { return &ast.AttributeValue{Name: "density"} }
	rhs := &ast.BinaryOp{Op: axtypes.OpMul, Lhs: density(), Rhs: ast.NewLiteral(pos, ast.LitFloat, float64(2), axtypes.TF32)}
	assign := &ast.Assign{Target: density(), Op: ast.AssignSet, Rhs: rhs}
	return ast.NewBlock(pos, []ast.Stmt{assign})
}

func TestCompileVolumeKernelProducesVerifiableModule(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := New(fixedParser{root: doubleDensityTree()}, funcs)

	result, err := c.Compile("", Options{Target: TargetVolume})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if result.EntryName != "ax_kernel" {
		t.Errorf("EntryName: got=%q, want=%q", result.EntryName, "ax_kernel")
	}
	if result.Groups != nil {
		t.Error("volume target should not allocate a group registry")
	}
	if entries := result.Attrs.Entries(); len(entries) != 1 || entries[0].Name != "density" {
		t.Fatalf("Attrs: got=%v, want a single \"density\" entry", entries)
	}
	if err := jit.Verify(result.Module); err != nil {
		t.Errorf("the module compiler.Compile already verified failed re-verification: %v", err)
	}
}

func TestCompileRejectsConflictingAttributeTypes(t *testing.T) {
	pos := ast.Pos{Line: 1, Column: 1}
	// `i@a = f@a;`, where @a is referenced with conflicting type tags,
	// should surface as a TypeError rather than panicking the driver.
	a := &ast.AttributeValue{Name: "a", HasTag: true, TypeTag: axtypes.TI32}
	b := &ast.AttributeValue{Name: "a", HasTag: true, TypeTag: axtypes.TF32}
	assign := &ast.Assign{Target: a, Op: ast.AssignSet, Rhs: b}
	root := ast.NewBlock(pos, []ast.Stmt{assign})

	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := New(fixedParser{root: root}, funcs)

	if _, err := c.Compile("", Options{Target: TargetVolume}); err == nil {
		t.Fatal("expected a type conflict error, got nil")
	}
}

func TestCompilePointKernelAllocatesGroupRegistry(t *testing.T) {
	pos := ast.Pos{Line: 1, Column: 1}
	root := ast.NewBlock(pos, nil) // empty kernel body is valid
	funcs := functions.NewCoreRegistry()
	functions.AddPointBuiltins(funcs)
	c := New(fixedParser{root: root}, funcs)

	result, err := c.Compile("", Options{Target: TargetPoint})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if result.Groups == nil {
		t.Error("point target should allocate a group registry even with no group references")
	}
}
