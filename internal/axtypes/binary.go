package axtypes

import (
	"fmt"

	"github.com/pablocouto/openvdb-ax/internal/axerrors"
)

// OpKind enumerates the binary operators spec.md §4.1 assigns semantics to.
type OpKind int

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpLogicalAnd
	OpLogicalOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o OpKind) isComparison() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

func (o OpKind) isBitwise() bool {
	switch o {
	case OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
		return true
	}
	return false
}

func (o OpKind) isLogicalShortCircuit() bool {
	return o == OpLogicalAnd || o == OpLogicalOr
}

// BinaryResult is the outcome of resolving a binary operator's type: the
// AX result type, the (possibly forced) operand type both sides must be
// cast to before emitting the operation, and an optional warning kind
// ("BitwiseOpImplicitFloatCast" per spec.md §7) to surface.
type BinaryResult struct {
	ResultType  Type
	OperandType Type
	Warning     axerrors.WarningKind
}

// BinaryOp resolves the result type of a binary operator over two scalar
// operand types that have already been promoted to a common type by the
// caller (spec.md §4.1: "after ensuring operand types match (caller's
// responsibility to have promoted)"). lhs and rhs are expected equal; this
// function additionally performs the float/bitwise special-casing the
// promotion step cannot express on its own (casting both operands to i64
// for a bitwise op against float operands).
func BinaryOp(lhs, rhs Type, op OpKind) (BinaryResult, error) {
	if !lhs.Equal(rhs) {
		return BinaryResult{}, fmt.Errorf("axtypes: BinaryOp requires matching operand types, got %s and %s", lhs, rhs)
	}
	operand := lhs

	if op.isLogicalShortCircuit() {
		if operand.IsFloat() {
			return BinaryResult{}, fmt.Errorf("axtypes: %w", &BinaryOperationError{Op: op, Operand: operand})
		}
		return BinaryResult{ResultType: TBool, OperandType: operand}, nil
	}

	if op.isBitwise() {
		if operand.IsFloat() {
			return BinaryResult{
				ResultType:  TI64,
				OperandType: TI64,
				Warning:     axerrors.WarnBitwiseFloatCast,
			}, nil
		}
		return BinaryResult{ResultType: operand, OperandType: operand}, nil
	}

	if op.isComparison() {
		return BinaryResult{ResultType: TBool, OperandType: operand}, nil
	}

	// Arithmetic: integer division/modulo are signed (handled by codegen
	// instruction selection, not the type rule); result type is the
	// (already-promoted) operand type, elementwise for arrays.
	if operand.IsArray() {
		elemResult, err := BinaryOp(*operand.Elem, *operand.Elem, op)
		if err != nil {
			return BinaryResult{}, err
		}
		return BinaryResult{
			ResultType:  NewArray(operand.Len, elemResult.ResultType),
			OperandType: operand,
		}, nil
	}
	return BinaryResult{ResultType: operand, OperandType: operand}, nil
}

// BinaryOperationError reports an operator/operand combination with no
// valid lowering, per spec.md §7 (e.g. `&&` against float operands).
type BinaryOperationError struct {
	Op      OpKind
	Operand Type
}

func (e *BinaryOperationError) Error() string {
	return fmt.Sprintf("operator does not support floating-point operand of type %s", e.Operand)
}
