package jit

import "github.com/llir/llvm/ir/types"

// rtVal is the interpreter's runtime representation of an AX value: bool,
// int64 (covering i16/i32/i64; casts wrap to a narrower width, see
// truncateTo), float32, float64, or []interface{} for an array (each
// element itself an rtVal).
type rtVal = interface{}

// Cell is an addressable storage location: what every pointer-typed IR
// value evaluates to in the interpreter, standing in for a real memory
// address since the reference backend never allocates raw bytes (spec.md
// treats LLVM purely as an IR builder; this interpreter is the JIT, not a
// wrapper around a real MCJIT engine — see SPEC_FULL.md §9). Exported so internal/executable and internal/grid can hand
// the interpreter cells backed by real host buffers (attribute arrays,
// group bitsets) for the kernel's pointer-typed parameters.
type Cell interface {
	Get() rtVal
	Set(rtVal)
	// Offset returns the cell n elements further along the same backing
	// buffer, or nil if this cell has no such neighbour (a single boxed
	// local, as opposed to an indexable host buffer) — only the
	// single-index "pointer + n" GEP form needs it.
	Offset(n int64) Cell
}

type sliceCell struct {
	buf []rtVal
	idx int
}

func NewSliceCell(buf []rtVal, idx int) Cell { return &sliceCell{buf: buf, idx: idx} }

func (c *sliceCell) Get() rtVal        { return c.buf[c.idx] }
func (c *sliceCell) Set(v rtVal)       { c.buf[c.idx] = v }
func (c *sliceCell) Offset(n int64) Cell { return &sliceCell{buf: c.buf, idx: c.idx + int(n)} }

// boxCell addresses a single boxed value with no indexable neighbours —
// the storage an Alloca of a scalar or whole-array-by-value allocates.
type boxCell struct {
	val rtVal
}

func NewBoxCell(initial rtVal) Cell { return &boxCell{val: initial} }

func (c *boxCell) Get() rtVal  { return c.val }
func (c *boxCell) Set(v rtVal) { c.val = v }
func (c *boxCell) Offset(int64) Cell { return nil }

// arrayElemCell addresses element index n of the array value currently
// stored at base — the two-index "dereference then index" GEP form
// axtypes.ElemPtr always emits. It has no Offset of its own: nothing in
// codegen GEPs further from an array element.
type arrayElem struct {
	base Cell
	n    int
}

func arrayElemCell(base Cell, n int) Cell { return &arrayElem{base: base, n: n} }

func (c *arrayElem) Get() rtVal {
	return c.base.Get().([]rtVal)[c.n]
}
func (c *arrayElem) Set(v rtVal) {
	c.base.Get().([]rtVal)[c.n] = v
}
func (c *arrayElem) Offset(int64) Cell { return nil }

// newBoxCellFor allocates the zero value of t (scalar or fixed-length
// array) boxed in a fresh Cell, mirroring codegen's storeZero/ZeroValue
// default-initialisation of a freshly declared local (spec.md §4.4).
func newBoxCellFor(t types.Type) Cell {
	return NewBoxCell(zeroForType(t))
}

func zeroForType(t types.Type) rtVal {
	switch tt := t.(type) {
	case *types.IntType:
		if tt.BitSize == 1 {
			return false
		}
		return int64(0)
	case *types.FloatType:
		if tt == types.Double {
			return float64(0)
		}
		return float32(0)
	case *types.ArrayType:
		elems := make([]rtVal, tt.Len)
		zero := zeroForType(tt.ElemType)
		for i := range elems {
			elems[i] = zero
		}
		return elems
	case *types.PointerType:
		return NewBoxCell(nil)
	default:
		return int64(0)
	}
}
