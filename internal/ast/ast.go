// Package ast implements the AX abstract syntax tree: a discriminated node
// hierarchy produced by the (out-of-scope) parser, a generic visitor for
// traversal, a canonical print visitor, and the single-pass type resolver.
//
// Grounded on the teacher's internal/parser/ast.go visitor-pattern shape
// (Expr interface + Accept(visitor) + one struct per node variant),
// generalized from sentra's dynamically-typed tree to AX's statically
// typed one: every expression node carries a ResolvedType field, set by
// Resolve (see resolve.go) rather than left to run-time dispatch.
package ast

import (
	"github.com/pablocouto/openvdb-ax/internal/axerrors"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/functions"
)

// Pos is the source location a node was parsed from, used to build
// axerrors.Diagnostic values during type resolution and codegen.
type Pos struct {
	Line   int
	Column int
}

// Node is implemented by every AST node, expression or statement.
type Node interface {
	Pos() Pos
}

// Expr is any AX expression node. ResolvedType returns the type annotation
// written by Resolve; it is the zero Type before resolution runs.
type Expr interface {
	Node
	Accept(v Visitor) interface{}
	ResolvedType() axtypes.Type
	setResolvedType(axtypes.Type)
}

// Stmt is any AX statement node.
type Stmt interface {
	Node
	Accept(v Visitor) interface{}
}

// exprBase factors the position + resolved-type bookkeeping every concrete
// Expr embeds.
type exprBase struct {
	pos  Pos
	typ  axtypes.Type
	done bool
}

func (e *exprBase) Pos() Pos                        { return e.pos }
func (e *exprBase) ResolvedType() axtypes.Type       { return e.typ }
func (e *exprBase) setResolvedType(t axtypes.Type)   { e.typ = t; e.done = true }
func (e *exprBase) isResolved() bool                 { return e.done }

type stmtBase struct {
	pos Pos
}

func (s *stmtBase) Pos() Pos { return s.pos }

// ---- Statements ----

// Block is a sequence of statements with its own lexical scope.
type Block struct {
	stmtBase
	Stmts []Stmt
}

func NewBlock(pos Pos, stmts []Stmt) *Block { return &Block{stmtBase{pos}, stmts} }
func (b *Block) Accept(v Visitor) interface{} { return v.VisitBlock(b) }

// DeclareLocal declares a new local of Type, optionally initialised.
type DeclareLocal struct {
	stmtBase
	Type axtypes.Type
	Name string
	Init Expr // nil if uninitialised (defaults to zero value)
}

func (d *DeclareLocal) Accept(v Visitor) interface{} { return v.VisitDeclareLocal(d) }

// AssignOp enumerates the compound-assignment operators.
type AssignOp int

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
)

// Assign is `target op= rhs`; target is either an AttributeValue or a
// LocalValue (an lvalue). OperandType is filled in by Resolve for a
// compound op (the type both the loaded target value and Rhs are cast to
// before the operation, mirroring BinaryOp.OperandType) and left zero for
// a plain `=`.
type Assign struct {
	stmtBase
	Target      Expr
	Op          AssignOp
	Rhs         Expr
	OperandType axtypes.Type
}

func (a *Assign) Accept(v Visitor) interface{} { return v.VisitAssign(a) }

// ExprStmt wraps a bare expression used as a statement (e.g. a crement or
// call whose value is discarded).
type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (e *ExprStmt) Accept(v Visitor) interface{} { return v.VisitExprStmt(e) }

// KeywordKind enumerates the bare-keyword statements.
type KeywordKind int

const (
	KeywordReturn KeywordKind = iota
	KeywordBreak
	KeywordContinue
)

// Keyword is a `return`, `break` or `continue` statement. Value is only
// set for KeywordReturn and may be nil (bare `return;`).
type Keyword struct {
	stmtBase
	Kind  KeywordKind
	Value Expr
}

func (k *Keyword) Accept(v Visitor) interface{} { return v.VisitKeyword(k) }

// Conditional is `if (cond) then else?`.
type Conditional struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else branch
}

func (c *Conditional) Accept(v Visitor) interface{} { return v.VisitConditional(c) }

// LoopKind distinguishes the three loop forms spec.md §3 names.
type LoopKind int

const (
	LoopWhile LoopKind = iota
	LoopDoWhile
	LoopFor
)

// Loop covers while/do-while/for: Init and Step are only present for
// LoopFor.
type Loop struct {
	stmtBase
	Kind LoopKind
	Init Stmt // for-loops only
	Cond Expr
	Step Stmt // for-loops only
	Body Stmt
}

func (l *Loop) Accept(v Visitor) interface{} { return v.VisitLoop(l) }

// ---- Expressions ----

// AttributeValue is a `@name`/`f@name`/`v@name`/... reference. TypeTag is
// the explicit prefix type if one was written, or the zero Type (meaning
// "infer f32, the bare-`@` default") otherwise; Resolve fills in Type from
// whichever of TypeTag/prior-usage applies.
type AttributeValue struct {
	exprBase
	Name    string
	TypeTag axtypes.Type
	HasTag  bool
}

func (a *AttributeValue) Accept(v Visitor) interface{} { return v.VisitAttributeValue(a) }

// LocalValue is a reference to a local variable or function parameter.
type LocalValue struct {
	exprBase
	Name string
}

func (l *LocalValue) Accept(v Visitor) interface{} { return v.VisitLocalValue(l) }

// LiteralKind distinguishes the lexical literal forms.
type LiteralKind int

const (
	LitBool LiteralKind = iota
	LitInt
	LitFloat
	LitString
)

// Literal is a lexical constant; Raw holds the already-parsed Go value
// (bool, int64, float64 or string) matching Kind. LitType is the
// literal's lexical type as determined by the (out-of-scope) lexer/parser
// (e.g. the `f` suffix on `2.0f` makes LitType f32 rather than f64);
// Resolve copies it straight into ResolvedType without re-deriving it.
type Literal struct {
	exprBase
	Kind    LiteralKind
	Raw     interface{}
	LitType axtypes.Type
}

func NewLiteral(pos Pos, kind LiteralKind, raw interface{}, litType axtypes.Type) *Literal {
	return &Literal{exprBase: exprBase{pos: pos}, Kind: kind, Raw: raw, LitType: litType}
}

func (l *Literal) Accept(v Visitor) interface{} { return v.VisitLiteral(l) }

// Cast is an explicit `type(expr)` conversion.
type Cast struct {
	exprBase
	Target axtypes.Type
	Value  Expr
}

func (c *Cast) Accept(v Visitor) interface{} { return v.VisitCast(c) }

// UnaryOp is `!x`, `-x`, `~x`.
type UnaryOpKind int

const (
	UnaryNot UnaryOpKind = iota
	UnaryNeg
	UnaryBitNot
)

type UnaryOp struct {
	exprBase
	Op      UnaryOpKind
	Operand Expr
}

func (u *UnaryOp) Accept(v Visitor) interface{} { return v.VisitUnaryOp(u) }

// BinaryOp is any two-operand operator from axtypes.OpKind. OperandType
// and Warn are filled in by Resolve: OperandType is the common type both
// Lhs and Rhs must be cast to before codegen emits the operation (the
// promoted type from axtypes.Precedence, or the i64 forced by a bitwise
// op against float operands); Warn is set when that promotion is itself
// the subject of a spec.md §7 warning.
type BinaryOp struct {
	exprBase
	Op          axtypes.OpKind
	Lhs         Expr
	Rhs         Expr
	OperandType axtypes.Type
	Warn        axerrors.WarningKind
}

func (b *BinaryOp) Accept(v Visitor) interface{} { return v.VisitBinaryOp(b) }

// CrementKind distinguishes ++ from --.
type CrementKind int

const (
	CrementInc CrementKind = iota
	CrementDec
)

// Crement is `++x`, `x++`, `--x`, `x--`.
type Crement struct {
	exprBase
	Target Expr
	Kind   CrementKind
	Pre    bool
}

func (c *Crement) Accept(v Visitor) interface{} { return v.VisitCrement(c) }

// FunctionCall is a built-in function invocation resolved by the function
// registry's overload selection (functions.Registry). Resolved is filled
// in by Resolve: the exact Signature overload selected for this call
// site, which codegen uses directly instead of re-running selection.
type FunctionCall struct {
	exprBase
	Name     string
	Args     []Expr
	Resolved *functions.Signature
}

func (f *FunctionCall) Accept(v Visitor) interface{} { return v.VisitFunctionCall(f) }

// VectorPack builds a fixed-length array literal `{a, b, c}` or
// `{a, b, c, d}`.
type VectorPack struct {
	exprBase
	Elements []Expr
}

func (p *VectorPack) Accept(v Visitor) interface{} { return v.VisitVectorPack(p) }

// VectorUnpack is `expr.x`/`expr[index]` component access; Index must be a
// compile-time literal per invariant (iv).
type VectorUnpack struct {
	exprBase
	Value Expr
	Index int
}

func (u *VectorUnpack) Accept(v Visitor) interface{} { return v.VisitVectorUnpack(u) }
