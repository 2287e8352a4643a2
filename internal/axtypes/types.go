// Package axtypes implements the AX type system: the scalar/array/string
// type lattice, its total precedence order, implicit-conversion rules, and
// the mapping of every AX type onto the LLVM IR type it lowers to.
package axtypes

import (
	"fmt"

	"github.com/llir/llvm/ir/types"

	"github.com/pablocouto/openvdb-ax/internal/axerrors"
)

// Kind identifies the scalar family of an AX type. Array and string types
// carry additional fields on Type but share a Kind of Array/String.
type Kind int

const (
	Bool Kind = iota
	I16
	I32
	I64
	F32
	F64
	String
	Array
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case String:
		return "string"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Type is a fully-resolved AX type: a scalar, a string, or a fixed-length
// array of some element scalar type. Two Types are equal iff Kind, Len and
// Elem all match.
type Type struct {
	Kind Kind
	Len  int   // only meaningful when Kind == Array
	Elem *Type // only meaningful when Kind == Array
}

func Scalar(k Kind) Type { return Type{Kind: k} }

func NewArray(length int, elem Type) Type {
	e := elem
	return Type{Kind: Array, Len: length, Elem: &e}
}

var (
	TBool   = Scalar(Bool)
	TI16    = Scalar(I16)
	TI32    = Scalar(I32)
	TI64    = Scalar(I64)
	TF32    = Scalar(F32)
	TF64    = Scalar(F64)
	TString = Scalar(String)
	TVec3F  = NewArray(3, TF32)
	TVec4F  = NewArray(4, TF32)
	TMat4F  = NewArray(16, TF32) // stored row-major, flattened 4x4
)

func (t Type) IsScalar() bool { return t.Kind != Array && t.Kind != String }
func (t Type) IsInteger() bool {
	return t.Kind == Bool || t.Kind == I16 || t.Kind == I32 || t.Kind == I64
}
func (t Type) IsFloat() bool  { return t.Kind == F32 || t.Kind == F64 }
func (t Type) IsArray() bool  { return t.Kind == Array }
func (t Type) IsString() bool { return t.Kind == String }

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != Array {
		return true
	}
	if t.Len != o.Len {
		return false
	}
	if t.Elem == nil || o.Elem == nil {
		return t.Elem == o.Elem
	}
	return t.Elem.Equal(*o.Elem)
}

func (t Type) String() string {
	switch t.Kind {
	case Array:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem.String())
	default:
		return t.Kind.String()
	}
}

// precedenceRank gives the total order bool < i16 < i32 < i64 < f32 < f64.
// spec.md lists i8 in the prose total order, but the concrete scalar set
// (spec.md §3) never introduces i8 as a representable AX type, so the
// rank table only needs the six types AX actually has.
var precedenceRank = map[Kind]int{
	Bool: 0,
	I16:  1,
	I32:  2,
	I64:  3,
	F32:  4,
	F64:  5,
}

// Precedence returns the higher-ranked of a and b under the total order
// bool < i16 < i32 < i64 < f32 < f64. Both arguments must be scalar
// (non-array, non-string); Precedence panics via a TypeError-shaped value
// otherwise, because this is invariant-level programmer error, not a
// recoverable compile error (callers check IsScalar before calling).
func Precedence(a, b Type) Type {
	ra, aok := precedenceRank[a.Kind]
	rb, bok := precedenceRank[b.Kind]
	if !aok || !bok {
		panic(axerrors.New(axerrors.TypeError, 0, 0, "axtypes: Precedence requires scalar operands, got %s and %s", a, b))
	}
	if ra >= rb {
		return a
	}
	return b
}

// IRTypeOf returns the github.com/llir/llvm/ir/types.Type that a given AX
// type lowers to, per SPEC_FULL.md §4.1's table.
func IRTypeOf(t Type) types.Type {
	switch t.Kind {
	case Bool:
		return types.I1
	case I16:
		return types.I16
	case I32:
		return types.I32
	case I64:
		return types.I64
	case F32:
		return types.Float
	case F64:
		return types.Double
	case String:
		return types.NewPointer(types.I8)
	case Array:
		return types.NewArray(uint64(t.Len), IRTypeOf(*t.Elem))
	default:
		panic(fmt.Sprintf("axtypes: no IR type for %s", t))
	}
}
