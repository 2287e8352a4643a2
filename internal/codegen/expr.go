package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pablocouto/openvdb-ax/internal/ast"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/functions"
)

// LowerExpr lowers e and returns the IR value it produces: a scalar SSA
// value for scalar AX types, or a pointer to the backing alloca for array
// types (spec.md §4.1's fixed-length arrays), matching the ParamByPointer
// convention the built-in catalogue already uses.
func (g *ComputeGenerator) LowerExpr(e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return g.lowerLiteral(n)
	case *ast.AttributeValue:
		entry, ok := g.Attrs.Lookup(n.Name)
		if !ok {
			return nil, fmt.Errorf("codegen: unreferenced attribute %q", n.Name)
		}
		return g.load(g.Target.AttributePointer(g, entry), entry.Type), nil
	case *ast.LocalValue:
		sym, ok := g.locals.Lookup(n.Name)
		if !ok {
			return nil, fmt.Errorf("codegen: undeclared local %q", n.Name)
		}
		return g.load(g.slots[sym.Slot], sym.Type), nil
	case *ast.Cast:
		v, err := g.LowerExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return g.castTo(v, n.Value.ResolvedType(), n.Target)
	case *ast.UnaryOp:
		return g.lowerUnary(n)
	case *ast.BinaryOp:
		return g.lowerBinaryOp(n)
	case *ast.Crement:
		return g.lowerCrement(n)
	case *ast.FunctionCall:
		return g.lowerCall(n)
	case *ast.VectorPack:
		return g.lowerVectorPack(n)
	case *ast.VectorUnpack:
		return g.lowerVectorUnpack(n)
	default:
		return nil, fmt.Errorf("codegen: unhandled expression %T", e)
	}
}

func (g *ComputeGenerator) lowerLiteral(n *ast.Literal) (value.Value, error) {
	switch n.Kind {
	case ast.LitBool:
		b := int64(0)
		if n.Raw.(bool) {
			b = 1
		}
		return constant.NewInt(types.I1, b), nil
	case ast.LitInt:
		it := axtypes.IRTypeOf(n.LitType).(*types.IntType)
		return constant.NewInt(it, n.Raw.(int64)), nil
	case ast.LitFloat:
		ft := axtypes.IRTypeOf(n.LitType).(*types.FloatType)
		return constant.NewFloat(ft, n.Raw.(float64)), nil
	case ast.LitString:
		charArray := constant.NewCharArrayFromString(n.Raw.(string) + "\x00")
		global := g.Module.NewGlobalDef("", charArray)
		global.Immutable = true
		zero := constant.NewInt(types.I64, 0)
		return g.cur.NewGetElementPtr(charArray.Type(), global, zero, zero), nil
	default:
		return nil, fmt.Errorf("codegen: unhandled literal kind %v", n.Kind)
	}
}

func (g *ComputeGenerator) lowerUnary(n *ast.UnaryOp) (value.Value, error) {
	v, err := g.LowerExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	ot := n.Operand.ResolvedType()
	switch n.Op {
	case ast.UnaryNot:
		b, err := axtypes.BoolCoerce(g.cur, v, ot)
		if err != nil {
			return nil, err
		}
		return g.cur.NewXor(b, constant.NewInt(types.I1, 1)), nil
	case ast.UnaryBitNot:
		target := n.ResolvedType()
		casted, err := g.castTo(v, ot, target)
		if err != nil {
			return nil, err
		}
		it := axtypes.IRTypeOf(target).(*types.IntType)
		return g.cur.NewXor(casted, constant.NewInt(it, -1)), nil
	default: // UnaryNeg
		if ot.IsFloat() {
			zero := constant.NewFloat(axtypes.IRTypeOf(ot).(*types.FloatType), 0)
			return g.cur.NewFSub(zero, v), nil
		}
		zero := constant.NewInt(axtypes.IRTypeOf(ot).(*types.IntType), 0)
		return g.cur.NewSub(zero, v), nil
	}
}

func (g *ComputeGenerator) lowerBinaryOp(n *ast.BinaryOp) (value.Value, error) {
	if n.Op == axtypes.OpLogicalAnd || n.Op == axtypes.OpLogicalOr {
		return g.lowerShortCircuit(n)
	}
	lhs, err := g.LowerExpr(n.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := g.LowerExpr(n.Rhs)
	if err != nil {
		return nil, err
	}
	lhsCast, err := g.castTo(lhs, n.Lhs.ResolvedType(), n.OperandType)
	if err != nil {
		return nil, err
	}
	rhsCast, err := g.castTo(rhs, n.Rhs.ResolvedType(), n.OperandType)
	if err != nil {
		return nil, err
	}
	return g.emitBinary(n.Op, lhsCast, rhsCast, n.OperandType)
}

// lowerShortCircuit implements C-like `&&`/`||` short-circuit evaluation:
// Rhs is only lowered on the branch where its value is needed, merged back
// with a phi node.
func (g *ComputeGenerator) lowerShortCircuit(n *ast.BinaryOp) (value.Value, error) {
	lhs, err := g.LowerExpr(n.Lhs)
	if err != nil {
		return nil, err
	}
	lhsBool, err := axtypes.BoolCoerce(g.cur, lhs, n.Lhs.ResolvedType())
	if err != nil {
		return nil, err
	}
	entryBlk := g.cur
	rhsBlk := g.Func.NewBlock("")
	mergeBlk := g.Func.NewBlock("")

	shortCircuit := constant.NewInt(types.I1, 0) // && short-circuits to false
	if n.Op == axtypes.OpLogicalOr {
		shortCircuit = constant.NewInt(types.I1, 1) // || short-circuits to true
		g.cur.NewCondBr(lhsBool, mergeBlk, rhsBlk)
	} else {
		g.cur.NewCondBr(lhsBool, rhsBlk, mergeBlk)
	}

	g.cur = rhsBlk
	rhs, err := g.LowerExpr(n.Rhs)
	if err != nil {
		return nil, err
	}
	rhsBool, err := axtypes.BoolCoerce(g.cur, rhs, n.Rhs.ResolvedType())
	if err != nil {
		return nil, err
	}
	rhsEndBlk := g.cur
	rhsEndBlk.NewBr(mergeBlk)

	g.cur = mergeBlk
	phi := g.cur.NewPhi(
		ir.NewIncoming(shortCircuit, entryBlk),
		ir.NewIncoming(rhsBool, rhsEndBlk),
	)
	return phi, nil
}

func (g *ComputeGenerator) lowerCrement(n *ast.Crement) (value.Value, error) {
	ptr, targetType, err := g.targetStorage(n.Target)
	if err != nil {
		return nil, err
	}
	cur := g.load(ptr, targetType)
	var delta value.Value
	if targetType.IsFloat() {
		delta = constant.NewFloat(axtypes.IRTypeOf(targetType).(*types.FloatType), 1)
	} else {
		delta = constant.NewInt(axtypes.IRTypeOf(targetType).(*types.IntType), 1)
	}
	op := axtypes.OpAdd
	if n.Kind == ast.CrementDec {
		op = axtypes.OpSub
	}
	updated, err := g.emitBinary(op, cur, delta, targetType)
	if err != nil {
		return nil, err
	}
	g.store(ptr, updated, targetType)
	if n.Pre {
		return updated, nil
	}
	return cur, nil
}

func (g *ComputeGenerator) lowerCall(n *ast.FunctionCall) (value.Value, error) {
	sig := n.Resolved
	if sig == nil {
		return nil, fmt.Errorf("codegen: call to %q was never resolved", n.Name)
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := g.LowerExpr(a)
		if err != nil {
			return nil, err
		}
		v, err = g.castTo(v, a.ResolvedType(), sig.Params[i].Type)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if sig.Linkage == functions.Inline {
		return sig.Emit(g.emitCtx(), args)
	}
	fn := g.declareExternal(sig.Symbol, sig.Params, sig.Return)
	call := g.cur.NewCall(fn, args...)
	return call, nil
}

func (g *ComputeGenerator) lowerVectorPack(n *ast.VectorPack) (value.Value, error) {
	resultType := n.ResolvedType()
	elemType := *resultType.Elem
	arrType := axtypes.IRTypeOf(resultType).(*types.ArrayType)
	out := g.cur.NewAlloca(arrType)
	for i, e := range n.Elements {
		v, err := g.LowerExpr(e)
		if err != nil {
			return nil, err
		}
		v, err = g.castTo(v, e.ResolvedType(), elemType)
		if err != nil {
			return nil, err
		}
		g.cur.NewStore(v, axtypes.ElemPtr(g.cur, arrType, out, i))
	}
	return out, nil
}

func (g *ComputeGenerator) lowerVectorUnpack(n *ast.VectorUnpack) (value.Value, error) {
	arrVal, err := g.LowerExpr(n.Value)
	if err != nil {
		return nil, err
	}
	srcType := n.Value.ResolvedType()
	arrType := axtypes.IRTypeOf(srcType).(*types.ArrayType)
	ptr := axtypes.ElemPtr(g.cur, arrType, arrVal, n.Index)
	return g.cur.NewLoad(axtypes.IRTypeOf(*srcType.Elem), ptr), nil
}

// castTo converts val (of AX type from) to AX type to: a scalar cast via
// axtypes.ArithmeticCast, or an elementwise cast into a freshly allocated
// array for matching-length arrays. A from==to array/scalar pair is
// returned unchanged.
func (g *ComputeGenerator) castTo(val value.Value, from, to axtypes.Type) (value.Value, error) {
	if from.Equal(to) {
		return val, nil
	}
	if !from.IsArray() && !to.IsArray() {
		return axtypes.ArithmeticCast(g.cur, val, from, to)
	}
	if !from.IsArray() || !to.IsArray() || from.Len != to.Len {
		return nil, fmt.Errorf("codegen: cannot cast %s to %s", from, to)
	}
	fromArr := axtypes.IRTypeOf(from).(*types.ArrayType)
	toArr := axtypes.IRTypeOf(to).(*types.ArrayType)
	out := g.cur.NewAlloca(toArr)
	for i := 0; i < from.Len; i++ {
		elem := g.cur.NewLoad(axtypes.IRTypeOf(*from.Elem), axtypes.ElemPtr(g.cur, fromArr, val, i))
		cast, err := g.castTo(elem, *from.Elem, *to.Elem)
		if err != nil {
			return nil, err
		}
		g.cur.NewStore(cast, axtypes.ElemPtr(g.cur, toArr, out, i))
	}
	return out, nil
}

// emitBinary emits the IR for one binary operator over two values already
// cast to the common operand type t, elementwise when t is an array
// (spec.md §4.1: arithmetic on vectors/matrices is componentwise).
func (g *ComputeGenerator) emitBinary(op axtypes.OpKind, a, b value.Value, t axtypes.Type) (value.Value, error) {
	if t.IsArray() {
		arrType := axtypes.IRTypeOf(t).(*types.ArrayType)
		elemType := *t.Elem
		var resultElem axtypes.Type
		switch op {
		case axtypes.OpEq, axtypes.OpNe, axtypes.OpLt, axtypes.OpLe, axtypes.OpGt, axtypes.OpGe:
			return nil, fmt.Errorf("codegen: comparison operators do not support array operands")
		default:
			resultElem = elemType
		}
		resultArrType := axtypes.IRTypeOf(axtypes.NewArray(t.Len, resultElem)).(*types.ArrayType)
		out := g.cur.NewAlloca(resultArrType)
		for i := 0; i < t.Len; i++ {
			ai := g.cur.NewLoad(axtypes.IRTypeOf(elemType), axtypes.ElemPtr(g.cur, arrType, a, i))
			bi := g.cur.NewLoad(axtypes.IRTypeOf(elemType), axtypes.ElemPtr(g.cur, arrType, b, i))
			ri, err := g.emitBinary(op, ai, bi, elemType)
			if err != nil {
				return nil, err
			}
			g.cur.NewStore(ri, axtypes.ElemPtr(g.cur, resultArrType, out, i))
		}
		return out, nil
	}

	isFloat := t.IsFloat()
	switch op {
	case axtypes.OpAdd:
		if isFloat {
			return g.cur.NewFAdd(a, b), nil
		}
		return g.cur.NewAdd(a, b), nil
	case axtypes.OpSub:
		if isFloat {
			return g.cur.NewFSub(a, b), nil
		}
		return g.cur.NewSub(a, b), nil
	case axtypes.OpMul:
		if isFloat {
			return g.cur.NewFMul(a, b), nil
		}
		return g.cur.NewMul(a, b), nil
	case axtypes.OpDiv:
		if isFloat {
			return g.cur.NewFDiv(a, b), nil
		}
		return g.cur.NewSDiv(a, b), nil
	case axtypes.OpMod:
		if isFloat {
			return g.cur.NewFRem(a, b), nil
		}
		return g.cur.NewSRem(a, b), nil
	case axtypes.OpBitAnd:
		return g.cur.NewAnd(a, b), nil
	case axtypes.OpBitOr:
		return g.cur.NewOr(a, b), nil
	case axtypes.OpBitXor:
		return g.cur.NewXor(a, b), nil
	case axtypes.OpShl:
		return g.cur.NewShl(a, b), nil
	case axtypes.OpShr:
		return g.cur.NewAShr(a, b), nil
	case axtypes.OpEq, axtypes.OpNe, axtypes.OpLt, axtypes.OpLe, axtypes.OpGt, axtypes.OpGe:
		return g.emitComparison(op, a, b, isFloat)
	default:
		return nil, fmt.Errorf("codegen: unhandled operator %v", op)
	}
}

func (g *ComputeGenerator) emitComparison(op axtypes.OpKind, a, b value.Value, isFloat bool) (value.Value, error) {
	if isFloat {
		var pred enum.FPred
		switch op {
		case axtypes.OpEq:
			pred = enum.FPredOEQ
		case axtypes.OpNe:
			pred = enum.FPredONE
		case axtypes.OpLt:
			pred = enum.FPredOLT
		case axtypes.OpLe:
			pred = enum.FPredOLE
		case axtypes.OpGt:
			pred = enum.FPredOGT
		default:
			pred = enum.FPredOGE
		}
		return g.cur.NewFCmp(pred, a, b), nil
	}
	var pred enum.IPred
	switch op {
	case axtypes.OpEq:
		pred = enum.IPredEQ
	case axtypes.OpNe:
		pred = enum.IPredNE
	case axtypes.OpLt:
		pred = enum.IPredSLT
	case axtypes.OpLe:
		pred = enum.IPredSLE
	case axtypes.OpGt:
		pred = enum.IPredSGT
	default:
		pred = enum.IPredSGE
	}
	return g.cur.NewICmp(pred, a, b), nil
}
