package ast

import (
	"fmt"
	"strings"
)

// Print renders stmt as the canonical, parenthesised dump spec.md §4.2
// describes, used by golden-output tests.
func Print(stmt Stmt) string {
	p := &printer{}
	stmt.Accept(p)
	return p.sb.String()
}

// PrintExpr is the expression-only entry point, used by tests that check a
// single expression's annotated shape (e.g. scenario 6 of spec.md §8).
func PrintExpr(e Expr) string {
	p := &printer{}
	e.Accept(p)
	return p.sb.String()
}

type printer struct {
	BaseVisitor
	sb strings.Builder
}

func (p *printer) VisitBlock(n *Block) interface{} {
	p.sb.WriteString("(block")
	for _, s := range n.Stmts {
		p.sb.WriteString(" ")
		s.Accept(p)
	}
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitDeclareLocal(n *DeclareLocal) interface{} {
	fmt.Fprintf(&p.sb, "(decl %s %s", n.Type, n.Name)
	if n.Init != nil {
		p.sb.WriteString(" ")
		n.Init.Accept(p)
	}
	p.sb.WriteString(")")
	return nil
}

var assignOpSym = map[AssignOp]string{
	AssignSet: "=", AssignAdd: "+=", AssignSub: "-=", AssignMul: "*=", AssignDiv: "/=",
}

func (p *printer) VisitAssign(n *Assign) interface{} {
	p.sb.WriteString("(assign ")
	n.Target.Accept(p)
	fmt.Fprintf(&p.sb, " %s ", assignOpSym[n.Op])
	n.Rhs.Accept(p)
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitExprStmt(n *ExprStmt) interface{} {
	p.sb.WriteString("(expr-stmt ")
	n.Expr.Accept(p)
	p.sb.WriteString(")")
	return nil
}

var keywordName = map[KeywordKind]string{
	KeywordReturn: "return", KeywordBreak: "break", KeywordContinue: "continue",
}

func (p *printer) VisitKeyword(n *Keyword) interface{} {
	p.sb.WriteString("(" + keywordName[n.Kind])
	if n.Value != nil {
		p.sb.WriteString(" ")
		n.Value.Accept(p)
	}
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitConditional(n *Conditional) interface{} {
	p.sb.WriteString("(if ")
	n.Cond.Accept(p)
	p.sb.WriteString(" ")
	n.Then.Accept(p)
	if n.Else != nil {
		p.sb.WriteString(" ")
		n.Else.Accept(p)
	}
	p.sb.WriteString(")")
	return nil
}

var loopName = map[LoopKind]string{LoopWhile: "while", LoopDoWhile: "do-while", LoopFor: "for"}

func (p *printer) VisitLoop(n *Loop) interface{} {
	p.sb.WriteString("(" + loopName[n.Kind] + " ")
	if n.Init != nil {
		n.Init.Accept(p)
		p.sb.WriteString(" ")
	}
	if n.Cond != nil {
		n.Cond.Accept(p)
	}
	if n.Step != nil {
		p.sb.WriteString(" ")
		n.Step.Accept(p)
	}
	p.sb.WriteString(" ")
	n.Body.Accept(p)
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitAttributeValue(n *AttributeValue) interface{} {
	fmt.Fprintf(&p.sb, "@%s:%s", n.Name, n.ResolvedType())
	return nil
}

func (p *printer) VisitLocalValue(n *LocalValue) interface{} {
	fmt.Fprintf(&p.sb, "%s:%s", n.Name, n.ResolvedType())
	return nil
}

func (p *printer) VisitLiteral(n *Literal) interface{} {
	fmt.Fprintf(&p.sb, "%v", n.Raw)
	return nil
}

func (p *printer) VisitCast(n *Cast) interface{} {
	fmt.Fprintf(&p.sb, "(cast %s ", n.Target)
	n.Value.Accept(p)
	p.sb.WriteString(")")
	return nil
}

var unaryOpSym = map[UnaryOpKind]string{UnaryNot: "!", UnaryNeg: "-", UnaryBitNot: "~"}

func (p *printer) VisitUnaryOp(n *UnaryOp) interface{} {
	fmt.Fprintf(&p.sb, "(%s ", unaryOpSym[n.Op])
	n.Operand.Accept(p)
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitBinaryOp(n *BinaryOp) interface{} {
	p.sb.WriteString("(")
	n.Lhs.Accept(p)
	fmt.Fprintf(&p.sb, " %d ", n.Op)
	n.Rhs.Accept(p)
	fmt.Fprintf(&p.sb, " :%s)", n.ResolvedType())
	return nil
}

func (p *printer) VisitCrement(n *Crement) interface{} {
	sym := "++"
	if n.Kind == CrementDec {
		sym = "--"
	}
	if n.Pre {
		p.sb.WriteString("(" + sym + " ")
		n.Target.Accept(p)
		p.sb.WriteString(")")
	} else {
		p.sb.WriteString("(")
		n.Target.Accept(p)
		p.sb.WriteString(" " + sym + ")")
	}
	return nil
}

func (p *printer) VisitFunctionCall(n *FunctionCall) interface{} {
	fmt.Fprintf(&p.sb, "(call %s", n.Name)
	for _, a := range n.Args {
		p.sb.WriteString(" ")
		a.Accept(p)
	}
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitVectorPack(n *VectorPack) interface{} {
	p.sb.WriteString("(pack")
	for _, e := range n.Elements {
		p.sb.WriteString(" ")
		e.Accept(p)
	}
	p.sb.WriteString(")")
	return nil
}

func (p *printer) VisitVectorUnpack(n *VectorUnpack) interface{} {
	p.sb.WriteString("(unpack ")
	n.Value.Accept(p)
	fmt.Fprintf(&p.sb, " %d)", n.Index)
	return nil
}
