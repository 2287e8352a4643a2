package ast

import (
	"github.com/pablocouto/openvdb-ax/internal/axerrors"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/functions"
	"github.com/pablocouto/openvdb-ax/internal/symtable"
)

// Resolver implements the single-pass type-annotation walk of spec.md
// §4.2: every expression node's ResolvedType is set exactly once, local
// declarations populate a fresh symtable.Table, and every `@name`
// reference populates the shared AttributeRegistry. Embeds BaseVisitor so
// it only needs to override the variants that carry type information;
// anything else recurses via the default Walk behaviour — except
// Resolver never relies on that default for nodes whose children need
// scope-sensitive handling (Block, Loop, Conditional), which it overrides
// explicitly.
type Resolver struct {
	BaseVisitor
	Funcs *functions.Registry
	Attrs *symtable.AttributeRegistry
	Diags *axerrors.Diagnostics
	// Groups is only non-nil when resolving a point-target kernel;
	// ingroup/addtogroup/removefromgroup resolve their compile-time
	// group-name argument against it instead of treating it as a normal
	// call argument (strings are reserved, spec.md §9).
	Groups *symtable.GroupRegistry

	// AllowImplicitFloatToInt silences the narrowing-conversion warning a
	// floating -> integer assignment would otherwise emit (spec.md §4.7's
	// `allow_implicit_float_to_int` option, scenario 4): the conversion
	// itself is always allowed without an explicit cast, this only
	// controls whether it is reported.
	AllowImplicitFloatToInt bool

	locals *symtable.Table
	// lvalueWrite/lvalueRead are not set or read by any resolver path:
	// resolveTarget passes an Assign/Crement target's read/write access
	// straight to resolveAttribute instead.
	lvalueWrite bool
	lvalueRead  bool
}

// Resolve runs the type-resolution pass over root, attrs and diags, per
// spec.md §4.7 step 2/3. It constructs a fresh symbol table each call, so
// re-running it on the same tree (IDEMP-TYPE) reproduces identical
// ResolvedType annotations and identical AttributeRegistry entries.
func Resolve(root Stmt, funcs *functions.Registry, attrs *symtable.AttributeRegistry, diags *axerrors.Diagnostics) error {
	return ResolveWithOptions(root, funcs, attrs, nil, diags, false)
}

// ResolveWithOptions is Resolve with the compiler driver's Groups registry
// (point targets only, nil for volume) and allow_implicit_float_to_int
// option threaded through (spec.md §4.7).
func ResolveWithOptions(root Stmt, funcs *functions.Registry, attrs *symtable.AttributeRegistry, groups *symtable.GroupRegistry, diags *axerrors.Diagnostics, allowImplicitFloatToInt bool) error {
	r := &Resolver{
		Funcs:                   funcs,
		Attrs:                   attrs,
		Diags:                   diags,
		Groups:                  groups,
		locals:                  symtable.New(),
		AllowImplicitFloatToInt: allowImplicitFloatToInt,
	}
	r.Self = r
	root.Accept(r)
	if diags.HasErrors() {
		errs := diags.Errors()
		return errs[0]
	}
	return nil
}

func (r *Resolver) errorf(pos Pos, kind axerrors.Kind, format string, args ...interface{}) {
	r.Diags.Error(axerrors.New(kind, pos.Line, pos.Column, format, args...))
}

func (r *Resolver) warnf(pos Pos, kind axerrors.WarningKind, format string, args ...interface{}) {
	r.Diags.Warn(axerrors.NewWarning(kind, pos.Line, pos.Column, format, args...))
}

// ---- Statements ----

func (r *Resolver) VisitBlock(n *Block) interface{} {
	r.locals.Push()
	for _, s := range n.Stmts {
		s.Accept(r)
	}
	r.locals.Pop()
	return nil
}

func (r *Resolver) VisitDeclareLocal(n *DeclareLocal) interface{} {
	if n.Init != nil {
		n.Init.Accept(r)
		r.checkAssignable(n.Init.Pos(), n.Init.ResolvedType(), n.Type)
	}
	if _, err := r.locals.Declare(n.Name, n.Type); err != nil {
		r.errorf(n.pos, axerrors.TypeError, "%s", err)
	}
	return nil
}

func (r *Resolver) VisitAssign(n *Assign) interface{} {
	n.Rhs.Accept(r)
	// A compound op (+=, ...) both reads and writes the target; a plain
	// `=` only writes it.
	r.resolveTarget(n.Target, n.Op != AssignSet, true)

	targetType := n.Target.ResolvedType()
	if n.Op == AssignSet {
		r.checkAssignable(n.Rhs.Pos(), n.Rhs.ResolvedType(), targetType)
		return nil
	}
	// Compound assignment: `lhs op= rhs` behaves like `lhs = lhs op rhs`
	// (spec.md §4.4), so the intermediate binary-op result must itself be
	// assignable back into the (unchanged) target type. Array-typed targets
	// (e.g. `v@P += {0, 1, 0}`) promote elementwise the same way a plain
	// BinaryOp's operands do, rather than through axtypes.Precedence, which
	// only accepts scalars.
	op := compoundToBinary(n.Op)
	rhsType := n.Rhs.ResolvedType()
	var common axtypes.Type
	if targetType.IsArray() || rhsType.IsArray() {
		if !targetType.IsArray() || !rhsType.IsArray() || targetType.Len != rhsType.Len {
			r.errorf(n.pos, axerrors.TypeError, "mismatched array operands %s and %s", targetType, rhsType)
			return nil
		}
		common = axtypes.NewArray(targetType.Len, axtypes.Precedence(*targetType.Elem, *rhsType.Elem))
	} else {
		common = axtypes.Precedence(targetType, rhsType)
	}
	result, err := axtypes.BinaryOp(common, common, op)
	if err != nil {
		r.errorf(n.pos, axerrors.BinaryOperationError, "%s", err)
		return nil
	}
	n.OperandType = result.OperandType
	if result.Warning != "" {
		r.warnf(n.pos, result.Warning, "compound assignment forces implicit cast to %s", result.OperandType)
	}
	r.checkAssignable(n.pos, result.ResultType, targetType)
	return nil
}

func compoundToBinary(op AssignOp) axtypes.OpKind {
	switch op {
	case AssignAdd:
		return axtypes.OpAdd
	case AssignSub:
		return axtypes.OpSub
	case AssignMul:
		return axtypes.OpMul
	case AssignDiv:
		return axtypes.OpDiv
	default:
		return axtypes.OpAdd
	}
}

// checkAssignable enforces invariant (iii): rhs must be implicitly
// convertible to target. Any narrowing conversion, including floating ->
// integer (scenario 4), is permitted with a warning rather than rejected;
// AllowImplicitFloatToInt silences that warning for the float -> integer
// case specifically.
func (r *Resolver) checkAssignable(pos Pos, from, to axtypes.Type) {
	if from.Equal(to) {
		return
	}
	if from.IsArray() || to.IsArray() {
		if !from.IsArray() || !to.IsArray() || from.Len != to.Len {
			r.errorf(pos, axerrors.TypeError, "cannot assign %s to %s", from, to)
			return
		}
		r.checkAssignable(pos, *from.Elem, *to.Elem)
		return
	}
	if from.IsString() || to.IsString() {
		if !from.Equal(to) {
			r.errorf(pos, axerrors.TypeError, "cannot assign %s to %s", from, to)
		}
		return
	}
	kind := axtypes.ClassifyConversion(from, to)
	if axtypes.IsNarrowing(kind) {
		if kind == axtypes.FPToInt && r.AllowImplicitFloatToInt {
			return
		}
		r.warnf(pos, axerrors.WarnNarrowingConversion, "narrowing conversion from %s to %s", from, to)
	}
}

func (r *Resolver) VisitExprStmt(n *ExprStmt) interface{} {
	n.Expr.Accept(r)
	return nil
}

func (r *Resolver) VisitKeyword(n *Keyword) interface{} {
	if n.Value != nil {
		n.Value.Accept(r)
	}
	return nil
}

func (r *Resolver) VisitConditional(n *Conditional) interface{} {
	n.Cond.Accept(r)
	n.Then.Accept(r)
	if n.Else != nil {
		n.Else.Accept(r)
	}
	return nil
}

func (r *Resolver) VisitLoop(n *Loop) interface{} {
	r.locals.Push()
	if n.Init != nil {
		n.Init.Accept(r)
	}
	if n.Cond != nil {
		n.Cond.Accept(r)
	}
	if n.Step != nil {
		n.Step.Accept(r)
	}
	n.Body.Accept(r)
	r.locals.Pop()
	return nil
}

// ---- Expressions ----

// resolveTarget resolves an lvalue expression (the target of an Assign or
// Crement), registering attribute writes/reads as it goes instead of
// treating the reference as a plain read.
func (r *Resolver) resolveTarget(target Expr, read, write bool) {
	switch t := target.(type) {
	case *AttributeValue:
		r.resolveAttribute(t, read, write)
	case *LocalValue:
		r.resolveLocal(t)
	default:
		target.Accept(r)
	}
}

func (r *Resolver) resolveAttribute(n *AttributeValue, read, write bool) {
	typ := axtypes.TF32
	if n.HasTag {
		typ = n.TypeTag
	} else if existing, ok := r.Attrs.Lookup(n.Name); ok {
		typ = existing.Type
	}
	var access symtable.AccessFlags
	if read {
		access |= symtable.AccessRead
	}
	if write {
		access |= symtable.AccessWrite
	}
	if access == 0 {
		access = symtable.AccessRead
	}
	if err := r.Attrs.Reference(n.Name, typ, access); err != nil {
		r.errorf(n.pos, axerrors.TypeError, "%s", err)
	}
	n.setResolvedType(typ)
}

func (r *Resolver) resolveLocal(n *LocalValue) {
	sym, ok := r.locals.Lookup(n.Name)
	if !ok {
		r.errorf(n.pos, axerrors.TypeError, "undeclared local %q", n.Name)
		n.setResolvedType(axtypes.TF32)
		return
	}
	n.setResolvedType(sym.Type)
}

func (r *Resolver) VisitAttributeValue(n *AttributeValue) interface{} {
	r.resolveAttribute(n, true, false)
	return nil
}

func (r *Resolver) VisitLocalValue(n *LocalValue) interface{} {
	r.resolveLocal(n)
	return nil
}

func (r *Resolver) VisitLiteral(n *Literal) interface{} {
	n.setResolvedType(n.LitType)
	return nil
}

func (r *Resolver) VisitCast(n *Cast) interface{} {
	n.Value.Accept(r)
	n.setResolvedType(n.Target)
	return nil
}

func (r *Resolver) VisitUnaryOp(n *UnaryOp) interface{} {
	n.Operand.Accept(r)
	operand := n.Operand.ResolvedType()
	switch n.Op {
	case UnaryNot:
		n.setResolvedType(axtypes.TBool)
	case UnaryBitNot:
		if operand.IsFloat() {
			r.warnf(n.pos, axerrors.WarnBitwiseFloatCast, "bitwise not on floating-point operand %s implicitly casts to i64", operand)
			n.setResolvedType(axtypes.TI64)
			return nil
		}
		n.setResolvedType(operand)
	default: // UnaryNeg
		n.setResolvedType(operand)
	}
	return nil
}

func (r *Resolver) VisitBinaryOp(n *BinaryOp) interface{} {
	n.Lhs.Accept(r)
	n.Rhs.Accept(r)
	lhs, rhs := n.Lhs.ResolvedType(), n.Rhs.ResolvedType()

	var common axtypes.Type
	if lhs.IsArray() || rhs.IsArray() {
		if !lhs.IsArray() || !rhs.IsArray() || lhs.Len != rhs.Len {
			r.errorf(n.pos, axerrors.TypeError, "mismatched array operands %s and %s", lhs, rhs)
			n.setResolvedType(lhs)
			return nil
		}
		common = axtypes.NewArray(lhs.Len, axtypes.Precedence(*lhs.Elem, *rhs.Elem))
	} else {
		common = axtypes.Precedence(lhs, rhs)
	}

	result, err := axtypes.BinaryOp(common, common, n.Op)
	if err != nil {
		r.errorf(n.pos, axerrors.BinaryOperationError, "%s", err)
		n.setResolvedType(common)
		return nil
	}
	n.OperandType = result.OperandType
	n.Warn = result.Warning
	if result.Warning != "" {
		r.warnf(n.pos, result.Warning, "operator forces implicit cast of %s operands to %s", common, result.OperandType)
	}
	n.setResolvedType(result.ResultType)
	return nil
}

func (r *Resolver) VisitCrement(n *Crement) interface{} {
	r.resolveTarget(n.Target, true, true)
	n.setResolvedType(n.Target.ResolvedType())
	return nil
}

// groupBuiltins names the point-group built-ins whose sole argument is a
// compile-time group name rather than a runtime value (spec.md §4.3/§4.6).
var groupBuiltins = map[string]bool{"ingroup": true, "addtogroup": true, "removefromgroup": true}

func (r *Resolver) VisitFunctionCall(n *FunctionCall) interface{} {
	if groupBuiltins[n.Name] && r.Groups != nil && len(n.Args) == 1 {
		lit, ok := n.Args[0].(*Literal)
		if !ok || lit.Kind != LitString {
			r.errorf(n.pos, axerrors.TypeError, "%s requires a literal group name", n.Name)
			n.setResolvedType(axtypes.TBool)
			return nil
		}
		idx, err := r.Groups.Reference(lit.Raw.(string))
		if err != nil {
			r.errorf(n.pos, axerrors.TypeError, "%s", err)
		}
		n.Args[0] = NewLiteral(lit.pos, LitInt, int64(idx), axtypes.TI32)
	}

	argTypes := make([]axtypes.Type, len(n.Args))
	for i, a := range n.Args {
		a.Accept(r)
		argTypes[i] = a.ResolvedType()
	}
	sig, err := functions.Select(r.Funcs, n.Name, argTypes)
	if err != nil {
		switch err.(type) {
		case *functions.AmbiguousOverloadError:
			r.errorf(n.pos, axerrors.AmbiguousOverloadError, "%s", err)
		default:
			r.errorf(n.pos, axerrors.FunctionLookupError, "%s", err)
		}
		n.setResolvedType(axtypes.TF32)
		return nil
	}
	n.Resolved = sig
	n.setResolvedType(sig.Return)
	return nil
}

func (r *Resolver) VisitVectorPack(n *VectorPack) interface{} {
	elemTypes := make([]axtypes.Type, len(n.Elements))
	for i, e := range n.Elements {
		e.Accept(r)
		elemTypes[i] = e.ResolvedType()
	}
	if len(n.Elements) != 3 && len(n.Elements) != 4 {
		r.errorf(n.pos, axerrors.TypeError, "vector pack must have 3 or 4 elements, got %d", len(n.Elements))
		n.setResolvedType(axtypes.TVec3F)
		return nil
	}
	common, err := axtypes.CommonElementType(elemTypes)
	if err != nil {
		r.errorf(n.pos, axerrors.TypeError, "%s", err)
		n.setResolvedType(axtypes.TVec3F)
		return nil
	}
	n.setResolvedType(axtypes.NewArray(len(n.Elements), common))
	return nil
}

func (r *Resolver) VisitVectorUnpack(n *VectorUnpack) interface{} {
	n.Value.Accept(r)
	arr := n.Value.ResolvedType()
	if err := axtypes.ValidateIndex(arr, n.Index); err != nil {
		r.errorf(n.pos, axerrors.TypeError, "%s", err)
		n.setResolvedType(axtypes.TF32)
		return nil
	}
	n.setResolvedType(*arr.Elem)
	return nil
}
