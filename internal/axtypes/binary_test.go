package axtypes

import (
	"errors"
	"testing"

	"github.com/pablocouto/openvdb-ax/internal/axerrors"
)

func TestBinaryOpArithmeticPreservesOperandType(t *testing.T) {
	res, err := BinaryOp(TI32, TI32, OpAdd)
	if err != nil {
		t.Fatalf("BinaryOp returned error: %v", err)
	}
	if !res.ResultType.Equal(TI32) {
		t.Errorf("ResultType = %s, want i32", res.ResultType)
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning: %s", res.Warning)
	}
}

func TestBinaryOpComparisonAlwaysReturnsBool(t *testing.T) {
	res, err := BinaryOp(TF64, TF64, OpLt)
	if err != nil {
		t.Fatalf("BinaryOp returned error: %v", err)
	}
	if !res.ResultType.Equal(TBool) {
		t.Errorf("ResultType = %s, want bool", res.ResultType)
	}
}

func TestBinaryOpBitwiseOnFloatForcesI64AndWarns(t *testing.T) {
	res, err := BinaryOp(TF32, TF32, OpBitAnd)
	if err != nil {
		t.Fatalf("BinaryOp returned error: %v", err)
	}
	if !res.ResultType.Equal(TI64) || !res.OperandType.Equal(TI64) {
		t.Errorf("bitwise-on-float result = %s/%s, want i64/i64", res.ResultType, res.OperandType)
	}
	if res.Warning != axerrors.WarnBitwiseFloatCast {
		t.Errorf("Warning = %q, want %q", res.Warning, axerrors.WarnBitwiseFloatCast)
	}
}

func TestBinaryOpLogicalAndOnFloatIsAnError(t *testing.T) {
	_, err := BinaryOp(TF32, TF32, OpLogicalAnd)
	if err == nil {
		t.Fatal("expected an error for && over float operands")
	}
	var opErr *BinaryOperationError
	if !errors.As(err, &opErr) {
		t.Errorf("error is not a *BinaryOperationError: %v", err)
	}
}

func TestBinaryOpMismatchedOperandsIsAnError(t *testing.T) {
	if _, err := BinaryOp(TI32, TF32, OpAdd); err == nil {
		t.Fatal("expected an error for mismatched operand types")
	}
}

func TestBinaryOpArrayAppliesElementwise(t *testing.T) {
	res, err := BinaryOp(TVec3F, TVec3F, OpAdd)
	if err != nil {
		t.Fatalf("BinaryOp returned error: %v", err)
	}
	if !res.ResultType.Equal(TVec3F) {
		t.Errorf("ResultType = %s, want %s", res.ResultType, TVec3F)
	}
}
