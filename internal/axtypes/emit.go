package axtypes

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// ArithmeticCast emits the IR instruction(s) that convert val (of AX type
// from) to AX type to, selecting one of the conversion families spec.md
// §4.1 names. Narrowing conversions are permitted without a guard,
// matching C semantics; callers are responsible for surfacing the
// associated warning (axtypes does the conversion, not the diagnostics).
func ArithmeticCast(b *ir.Block, val value.Value, from, to Type) (value.Value, error) {
	if from.Equal(to) {
		return val, nil
	}
	if !from.IsScalar() || !to.IsScalar() {
		return nil, fmt.Errorf("axtypes: ArithmeticCast only supports scalar types, got %s -> %s", from, to)
	}
	dst := IRTypeOf(to)
	switch ClassifyConversion(from, to) {
	case FPExtend:
		return b.NewFPExt(val, dst), nil
	case FPTruncate:
		return b.NewFPTrunc(val, dst), nil
	case IntSignExtend:
		return b.NewSExt(val, dst), nil
	case IntTruncate:
		return b.NewTrunc(val, dst), nil
	case IntToFP:
		return b.NewSIToFP(val, dst), nil
	case FPToInt:
		return b.NewFPToSI(val, dst), nil
	case BoolToFP:
		return b.NewUIToFP(val, dst), nil
	case BoolToInt:
		return b.NewZExt(val, dst), nil
	case IntToBool:
		zero := constant.NewInt(IRTypeOf(from).(*types.IntType), 0)
		return b.NewICmp(enum.IPredNE, val, zero), nil
	case FPToBool:
		zero := constant.NewFloat(IRTypeOf(from).(*types.FloatType), 0)
		return b.NewFCmp(enum.FPredONE, val, zero), nil
	default:
		return val, nil
	}
}

// BoolCoerce emits the comparison that reduces val (of AX type t, which
// must be scalar) to an i1: "!= 0.0" with ordered semantics for floating
// point (NaN becomes false) and "!= 0" for integers, per spec.md §4.1.
func BoolCoerce(b *ir.Block, val value.Value, t Type) (value.Value, error) {
	if t.Kind == Bool {
		return val, nil
	}
	if !t.IsScalar() {
		return nil, fmt.Errorf("axtypes: BoolCoerce only supports scalar types, got %s", t)
	}
	if t.IsFloat() {
		zero := constant.NewFloat(IRTypeOf(t).(*types.FloatType), 0)
		return b.NewFCmp(enum.FPredONE, val, zero), nil
	}
	zero := constant.NewInt(IRTypeOf(t).(*types.IntType), 0)
	return b.NewICmp(enum.IPredNE, val, zero), nil
}

// ZeroValue returns the constant zero of a scalar AX type, used to
// default-initialise a freshly declared local (spec.md §4.4: "initial
// value defaults to zero of the declared type").
func ZeroValue(t Type) constant.Constant {
	switch t.Kind {
	case Bool:
		return constant.NewInt(types.I1, 0)
	case I16, I32, I64:
		return constant.NewInt(IRTypeOf(t).(*types.IntType), 0)
	case F32, F64:
		return constant.NewFloat(IRTypeOf(t).(*types.FloatType), 0)
	case String:
		return constant.NewNull(IRTypeOf(t).(*types.PointerType))
	default:
		panic(fmt.Sprintf("axtypes: ZeroValue requires a scalar type, got %s", t))
	}
}

// ElemPtr emits the two-index GetElementPtr that addresses element index
// of the fixed-length array arrType pointed to by ptr — the standard
// "dereference the pointer, then index the array" idiom every array
// access in the generated IR uses.
func ElemPtr(b *ir.Block, arrType *types.ArrayType, ptr value.Value, index int) value.Value {
	return b.NewGetElementPtr(arrType, ptr,
		constant.NewInt(types.I64, 0),
		constant.NewInt(types.I32, int64(index)))
}
