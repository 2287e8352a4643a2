package ast

import (
	"strings"
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

func TestPrintBlockWithDeclareAndAssign(t *testing.T) {
	decl := &DeclareLocal{Type: axtypes.TI32, Name: "i", Init: NewLiteral(testPos, LitInt, int64(0), axtypes.TI32)}
	assign := &Assign{Target: &LocalValue{Name: "i"}, Op: AssignAdd, Rhs: NewLiteral(testPos, LitInt, int64(1), axtypes.TI32)}
	root := NewBlock(testPos, []Stmt{decl, assign})

	got := Print(root)
	for _, want := range []string{"(block", "(decl i32 i 0)", "(assign", "+=", "1)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Print output %q does not contain %q", got, want)
		}
	}
}

func TestPrintExprLiteralOmitsResolvedType(t *testing.T) {
	lit := NewLiteral(testPos, LitFloat, float64(2), axtypes.TF32)
	lit.setResolvedType(axtypes.TF32)
	got := PrintExpr(lit)
	if got != "2" {
		t.Errorf("PrintExpr(literal) = %q, want %q", got, "2")
	}
}

func TestPrintAttributeValueShowsNameAndType(t *testing.T) {
	a := attr("density")
	a.setResolvedType(axtypes.TF32)
	got := PrintExpr(a)
	if got != "@density:f32" {
		t.Errorf("PrintExpr(attribute) = %q, want %q", got, "@density:f32")
	}
}

func TestPrintCastAndUnary(t *testing.T) {
	cast := &Cast{Target: axtypes.TI32, Value: NewLiteral(testPos, LitFloat, float64(1.5), axtypes.TF32)}
	got := PrintExpr(cast)
	if got != "(cast i32 1.5)" {
		t.Errorf("PrintExpr(cast) = %q, want %q", got, "(cast i32 1.5)")
	}

	neg := &UnaryOp{Op: UnaryNeg, Operand: NewLiteral(testPos, LitInt, int64(1), axtypes.TI32)}
	if got := PrintExpr(neg); got != "(- 1)" {
		t.Errorf("PrintExpr(neg) = %q, want %q", got, "(- 1)")
	}
}

func TestPrintCrementPreAndPost(t *testing.T) {
	pre := &Crement{Target: &LocalValue{Name: "i"}, Kind: CrementInc, Pre: true}
	if got := PrintExpr(pre); !strings.HasPrefix(got, "(++ i:") {
		t.Errorf("PrintExpr(pre-increment) = %q, want prefix %q", got, "(++ i:")
	}
	post := &Crement{Target: &LocalValue{Name: "i"}, Kind: CrementDec, Pre: false}
	if got := PrintExpr(post); !strings.HasSuffix(got, " --)") {
		t.Errorf("PrintExpr(post-decrement) = %q, want suffix %q", got, " --)")
	}
}

func TestPrintVectorPackAndUnpack(t *testing.T) {
	pack := &VectorPack{Elements: []Expr{
		NewLiteral(testPos, LitFloat, float64(1), axtypes.TF32),
		NewLiteral(testPos, LitFloat, float64(2), axtypes.TF32),
		NewLiteral(testPos, LitFloat, float64(3), axtypes.TF32),
	}}
	if got := PrintExpr(pack); got != "(pack 1 2 3)" {
		t.Errorf("PrintExpr(pack) = %q, want %q", got, "(pack 1 2 3)")
	}
	unpack := &VectorUnpack{Value: pack, Index: 1}
	if got := PrintExpr(unpack); got != "(unpack (pack 1 2 3) 1)" {
		t.Errorf("PrintExpr(unpack) = %q, want %q", got, "(unpack (pack 1 2 3) 1)")
	}
}
