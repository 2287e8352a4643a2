package ast

import (
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axerrors"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/functions"
	"github.com/pablocouto/openvdb-ax/internal/symtable"
)

var testPos = Pos{Line: 1, Column: 1}

func attr(name string) *AttributeValue { return &AttributeValue{Name: name} }

func resolveFresh(root Stmt, funcs *functions.Registry) (*symtable.AttributeRegistry, *axerrors.Diagnostics, error) {
	attrs := symtable.NewAttributeRegistry()
	diags := &axerrors.Diagnostics{}
	err := Resolve(root, funcs, attrs, diags)
	return attrs, diags, err
}

// IDEMP-TYPE: running Resolve twice over freshly-built equivalent trees
// (each resolve call gets its own symtable.Table and AttributeRegistry per
// Resolve's own doc comment) produces identical ResolvedType annotations.
func TestResolveIsIdempotentAcrossRuns(t *testing.T) {
	build := func() Stmt {
		rhs := &BinaryOp{Op: axtypes.OpMul, Lhs: attr("density"), Rhs: NewLiteral(testPos, LitFloat, float64(2), axtypes.TF32)}
		return NewBlock(testPos, []Stmt{&Assign{Target: attr("density"), Op: AssignSet, Rhs: rhs}})
	}
	funcs := functions.NewRegistry()

	tree1 := build()
	_, _, err := resolveFresh(tree1, funcs)
	if err != nil {
		t.Fatalf("first Resolve returned error: %v", err)
	}
	tree2 := build()
	_, _, err = resolveFresh(tree2, funcs)
	if err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}

	a1 := tree1.(*Block).Stmts[0].(*Assign).Rhs.ResolvedType()
	a2 := tree2.(*Block).Stmts[0].(*Assign).Rhs.ResolvedType()
	if !a1.Equal(a2) {
		t.Errorf("ResolvedType differs across runs: %s vs %s", a1, a2)
	}
}

func TestResolveBareAttributeDefaultsToF32(t *testing.T) {
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: attr("density")}})
	attrs, _, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	entry, ok := attrs.Lookup("density")
	if !ok || !entry.Type.Equal(axtypes.TF32) {
		t.Errorf("density entry = %+v, want f32", entry)
	}
}

func TestResolveAttributeTypeConflictIsError(t *testing.T) {
	a := &AttributeValue{Name: "x", HasTag: true, TypeTag: axtypes.TI32}
	b := &AttributeValue{Name: "x", HasTag: true, TypeTag: axtypes.TF32}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: a}, &ExprStmt{Expr: b}})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err == nil {
		t.Fatal("expected a type conflict error")
	}
}

func TestResolveLocalDeclareAndLookup(t *testing.T) {
	decl := &DeclareLocal{Type: axtypes.TI32, Name: "i"}
	use := &ExprStmt{Expr: &LocalValue{Name: "i"}}
	root := NewBlock(testPos, []Stmt{decl, use})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !use.Expr.ResolvedType().Equal(axtypes.TI32) {
		t.Errorf("local lookup ResolvedType = %s, want i32", use.Expr.ResolvedType())
	}
}

func TestResolveUndeclaredLocalIsError(t *testing.T) {
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: &LocalValue{Name: "nope"}}})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err == nil {
		t.Fatal("expected an undeclared-local error")
	}
}

func TestResolveLocalDoesNotLeakOutOfItsBlock(t *testing.T) {
	inner := NewBlock(testPos, []Stmt{&DeclareLocal{Type: axtypes.TI32, Name: "i"}})
	outerUse := &ExprStmt{Expr: &LocalValue{Name: "i"}}
	root := NewBlock(testPos, []Stmt{inner, outerUse})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err == nil {
		t.Fatal("expected i to be out of scope outside its declaring block")
	}
}

// Scenario 4: `@a = @a * 2; @a = @a + 0.5;` succeeds by default, with the
// float->int narrowing on the second assignment reported as a warning,
// not rejected outright.
func TestResolveFloatToIntAssignWarnsByDefault(t *testing.T) {
	decl := &DeclareLocal{Type: axtypes.TI32, Name: "i"}
	assign := &Assign{Target: &LocalValue{Name: "i"}, Op: AssignSet, Rhs: NewLiteral(testPos, LitFloat, float64(1.5), axtypes.TF32)}
	root := NewBlock(testPos, []Stmt{decl, assign})
	_, diags, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("expected float->int assignment to succeed by default, got error: %v", err)
	}
	if len(diags.Warnings()) != 1 {
		t.Errorf("expected exactly one narrowing warning, got %d", len(diags.Warnings()))
	}
}

func TestResolveFloatToIntAssignSilencedByOption(t *testing.T) {
	decl := &DeclareLocal{Type: axtypes.TI32, Name: "i"}
	assign := &Assign{Target: &LocalValue{Name: "i"}, Op: AssignSet, Rhs: NewLiteral(testPos, LitFloat, float64(1.5), axtypes.TF32)}
	root := NewBlock(testPos, []Stmt{decl, assign})
	diags := &axerrors.Diagnostics{}
	if err := ResolveWithOptions(root, functions.NewRegistry(), symtable.NewAttributeRegistry(), nil, diags, true); err != nil {
		t.Fatalf("Resolve returned error with AllowImplicitFloatToInt: %v", err)
	}
	if len(diags.Warnings()) != 0 {
		t.Errorf("expected AllowImplicitFloatToInt to silence the narrowing warning, got %d warnings", len(diags.Warnings()))
	}
}

func TestResolveExplicitCastSatisfiesFloatToInt(t *testing.T) {
	decl := &DeclareLocal{Type: axtypes.TI32, Name: "i"}
	cast := &Cast{Target: axtypes.TI32, Value: NewLiteral(testPos, LitFloat, float64(1.5), axtypes.TF32)}
	assign := &Assign{Target: &LocalValue{Name: "i"}, Op: AssignSet, Rhs: cast}
	root := NewBlock(testPos, []Stmt{decl, assign})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("explicit cast should satisfy invariant (iii): %v", err)
	}
}

func TestResolveNarrowingConversionWarns(t *testing.T) {
	decl := &DeclareLocal{Type: axtypes.TF32, Name: "f"}
	assign := &Assign{Target: &LocalValue{Name: "f"}, Op: AssignSet, Rhs: NewLiteral(testPos, LitFloat, float64(1), axtypes.TF64)}
	root := NewBlock(testPos, []Stmt{decl, assign})
	diags := &axerrors.Diagnostics{}
	if err := Resolve(root, functions.NewRegistry(), symtable.NewAttributeRegistry(), diags); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	warnings := diags.Warnings()
	if len(warnings) != 1 || warnings[0].WarningKind != axerrors.WarnNarrowingConversion {
		t.Errorf("warnings = %v, want one NarrowingConversion", warnings)
	}
}

func TestResolveCompoundAssignOnAttribute(t *testing.T) {
	assign := &Assign{Target: attr("density"), Op: AssignAdd, Rhs: NewLiteral(testPos, LitFloat, float64(1), axtypes.TF32)}
	root := NewBlock(testPos, []Stmt{assign})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !assign.OperandType.Equal(axtypes.TF32) {
		t.Errorf("OperandType = %s, want f32", assign.OperandType)
	}
}

func TestResolveBinaryOpPromotesToCommonType(t *testing.T) {
	bo := &BinaryOp{Op: axtypes.OpAdd, Lhs: NewLiteral(testPos, LitInt, int64(1), axtypes.TI32), Rhs: NewLiteral(testPos, LitFloat, float64(1), axtypes.TF32)}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: bo}})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !bo.ResolvedType().Equal(axtypes.TF32) {
		t.Errorf("ResolvedType = %s, want f32 (promoted from i32/f32)", bo.ResolvedType())
	}
}

func TestResolveBitwiseNotOnFloatWarnsAndForcesI64(t *testing.T) {
	u := &UnaryOp{Op: UnaryBitNot, Operand: NewLiteral(testPos, LitFloat, float64(1), axtypes.TF32)}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: u}})
	diags := &axerrors.Diagnostics{}
	if err := Resolve(root, functions.NewRegistry(), symtable.NewAttributeRegistry(), diags); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !u.ResolvedType().Equal(axtypes.TI64) {
		t.Errorf("ResolvedType = %s, want i64", u.ResolvedType())
	}
	if len(diags.Warnings()) != 1 || diags.Warnings()[0].WarningKind != axerrors.WarnBitwiseFloatCast {
		t.Errorf("expected exactly one BitwiseOpImplicitFloatCast warning, got %v", diags.Warnings())
	}
}

func TestResolveVectorPackRequires3Or4Elements(t *testing.T) {
	pack := &VectorPack{Elements: []Expr{
		NewLiteral(testPos, LitFloat, float64(1), axtypes.TF32),
		NewLiteral(testPos, LitFloat, float64(2), axtypes.TF32),
	}}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: pack}})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err == nil {
		t.Fatal("expected a 2-element vector pack to be rejected")
	}
}

// ROUND-TRIP-PACK: packing 3 scalars of mixed precedence yields an array of
// their common (highest-precedence) element type, and unpacking any
// component recovers exactly that element type back.
func TestResolveVectorPackThenUnpackRoundTrips(t *testing.T) {
	pack := &VectorPack{Elements: []Expr{
		NewLiteral(testPos, LitInt, int64(1), axtypes.TI32),
		NewLiteral(testPos, LitFloat, float64(2), axtypes.TF32),
		NewLiteral(testPos, LitFloat, float64(3), axtypes.TF32),
	}}
	unpack := &VectorUnpack{Value: pack, Index: 1}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: unpack}})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !pack.ResolvedType().Equal(axtypes.NewArray(3, axtypes.TF32)) {
		t.Errorf("pack ResolvedType = %s, want [3]f32", pack.ResolvedType())
	}
	if !unpack.ResolvedType().Equal(axtypes.TF32) {
		t.Errorf("unpack ResolvedType = %s, want f32", unpack.ResolvedType())
	}
}

func TestResolveVectorUnpackOutOfBoundsIsError(t *testing.T) {
	pack := &VectorPack{Elements: []Expr{
		NewLiteral(testPos, LitFloat, float64(1), axtypes.TF32),
		NewLiteral(testPos, LitFloat, float64(2), axtypes.TF32),
		NewLiteral(testPos, LitFloat, float64(3), axtypes.TF32),
	}}
	unpack := &VectorUnpack{Value: pack, Index: 3}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: unpack}})
	_, _, err := resolveFresh(root, functions.NewRegistry())
	if err == nil {
		t.Fatal("expected out-of-bounds unpack index to be rejected")
	}
}

func TestResolveFunctionCallSelectsOverload(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	call := &FunctionCall{Name: "abs", Args: []Expr{NewLiteral(testPos, LitInt, int64(-1), axtypes.TI32)}}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: call}})
	_, _, err := resolveFresh(root, funcs)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if call.Resolved == nil || !call.Resolved.Return.Equal(axtypes.TI32) {
		t.Errorf("Resolved = %+v, want a Return of i32", call.Resolved)
	}
}

func TestResolveGroupBuiltinRewritesLiteralNameToIndex(t *testing.T) {
	funcs := functions.NewCoreRegistry()
	functions.AddPointBuiltins(funcs)
	call := &FunctionCall{Name: "ingroup", Args: []Expr{NewLiteral(testPos, LitString, "visible", axtypes.TString)}}
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: call}})

	groups := symtable.NewGroupRegistry()
	attrs := symtable.NewAttributeRegistry()
	diags := &axerrors.Diagnostics{}
	if err := ResolveWithOptions(root, funcs, attrs, groups, diags, false); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	rewritten, ok := call.Args[0].(*Literal)
	if !ok || rewritten.Kind != LitInt || rewritten.Raw.(int64) != 0 {
		t.Errorf("Args[0] = %+v, want a rewritten LitInt 0", call.Args[0])
	}
	if names := groups.Names(); len(names) != 1 || names[0] != "visible" {
		t.Errorf("Names() = %v, want [visible]", names)
	}
}
