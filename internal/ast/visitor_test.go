package ast

import (
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// countingVisitor counts every LocalValue leaf it reaches, relying on
// BaseVisitor's default recursion for everything else.
type countingVisitor struct {
	BaseVisitor
	locals int
}

func (c *countingVisitor) VisitLocalValue(n *LocalValue) interface{} {
	c.locals++
	return nil
}

func TestBaseVisitorRecursesIntoChildrenByDefault(t *testing.T) {
	root := NewBlock(testPos, []Stmt{
		&ExprStmt{Expr: &BinaryOp{Op: axtypes.OpAdd, Lhs: &LocalValue{Name: "a"}, Rhs: &LocalValue{Name: "b"}}},
		&Assign{Target: &LocalValue{Name: "c"}, Op: AssignSet, Rhs: &LocalValue{Name: "d"}},
	})
	v := &countingVisitor{}
	v.Self = v
	Walk(root, v)
	if v.locals != 4 {
		t.Errorf("locals visited = %d, want 4", v.locals)
	}
}

func TestBaseVisitorWithoutSelfStillRecursesThroughItself(t *testing.T) {
	// Self is deliberately left nil: self() should fall back to the
	// BaseVisitor itself rather than panicking, per its own doc comment.
	root := NewBlock(testPos, []Stmt{&ExprStmt{Expr: &LocalValue{Name: "a"}}})
	v := &BaseVisitor{}
	Walk(root, v)
}

func TestBaseVisitorVisitsLoopChildrenInOrder(t *testing.T) {
	var order []string
	init := &DeclareLocal{Type: axtypes.TI32, Name: "i", Init: NewLiteral(testPos, LitInt, int64(0), axtypes.TI32)}
	cond := &LocalValue{Name: "i"}
	step := &ExprStmt{Expr: &Crement{Target: &LocalValue{Name: "i"}, Kind: CrementInc, Pre: false}}
	body := &ExprStmt{Expr: &LocalValue{Name: "i"}}
	loop := &Loop{Kind: LoopFor, Init: init, Cond: cond, Step: step, Body: body}

	v := &orderTrackingVisitor{order: &order}
	v.Self = v
	Walk(NewBlock(testPos, []Stmt{loop}), v)

	want := []string{"init", "cond", "step", "body"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

type orderTrackingVisitor struct {
	BaseVisitor
	order *[]string
}

func (v *orderTrackingVisitor) VisitDeclareLocal(n *DeclareLocal) interface{} {
	*v.order = append(*v.order, "init")
	return nil
}

func (v *orderTrackingVisitor) VisitLocalValue(n *LocalValue) interface{} {
	*v.order = append(*v.order, "cond")
	return nil
}

func (v *orderTrackingVisitor) VisitExprStmt(n *ExprStmt) interface{} {
	if _, ok := n.Expr.(*Crement); ok {
		*v.order = append(*v.order, "step")
		return nil
	}
	*v.order = append(*v.order, "body")
	return nil
}
