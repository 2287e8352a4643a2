package jit

import (
	"fmt"
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// poisonInt is what an integer division or remainder by zero produces:
// spec.md leaves this undefined, and a software interpreter cannot fault
// the way a real `sdiv` instruction traps without giving the kernel ABI
// an error channel it doesn't have (see DESIGN.md). math.MinInt64 is
// chosen over 0 precisely because it is an implausible result of any
// ordinary kernel arithmetic, making a poisoned computation easy to spot
// in test output rather than silently looking like a valid zero.
const poisonInt int64 = math.MinInt64

// NativeFunc is a host-provided implementation of one External-linkage
// signature (spec.md §4.3's libm/rand/group built-ins), addressed by its
// mangled symbol.
type NativeFunc func(args []interface{}) (interface{}, error)

// SymbolResolver is the "named symbol lookup callback supplied by the
// host" spec.md §9 describes a JIT add/link step needing. A real MCJIT
// engine would bind these at native-address resolution time; this
// interpreter calls straight through instead.
type SymbolResolver interface {
	Resolve(symbol string) (NativeFunc, bool)
}

// Interpreter tree-walks a single llir/llvm function's real instruction
// values — the reference backend's stand-in for machine code generation,
// since pure Go cannot host LLVM's MCJIT (see SPEC_FULL.md §9). It
// supports exactly the instruction set
// internal/codegen emits, not arbitrary externally supplied IR.
type Interpreter struct {
	resolver SymbolResolver
}

func NewInterpreter(resolver SymbolResolver) *Interpreter {
	return &Interpreter{resolver: resolver}
}

// Run executes fn with args bound to its parameters in order. A
// pointer-typed argument must be a Cell; a scalar argument is a bool,
// int64, float32 or float64. Returns the function's return value, or nil
// for a void kernel.
func (in *Interpreter) Run(fn *ir.Func, args []interface{}) (interface{}, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("jit: %s expects %d arguments, got %d", fn.Name(), len(fn.Params), len(args))
	}
	env := make(map[value.Value]interface{}, len(fn.Params))
	for i, p := range fn.Params {
		env[p] = args[i]
	}
	if len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("jit: %s has no body (declaration, not a definition)", fn.Name())
	}

	cur := fn.Blocks[0]
	var prev *ir.Block
	for {
		for _, inst := range cur.Insts {
			result, err := in.evalInst(inst, env, prev)
			if err != nil {
				return nil, err
			}
			if iv, ok := inst.(value.Value); ok && result != nil {
				env[iv] = result
			}
		}
		switch term := cur.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return nil, nil
			}
			return in.eval(term.X, env)
		case *ir.TermBr:
			prev, cur = cur, term.Target
		case *ir.TermCondBr:
			condV, err := in.eval(term.Cond, env)
			if err != nil {
				return nil, err
			}
			prev = cur
			if condV.(bool) {
				cur = term.TargetTrue
			} else {
				cur = term.TargetFalse
			}
		default:
			return nil, fmt.Errorf("jit: unsupported terminator %T in %s", cur.Term, fn.Name())
		}
	}
}

// eval resolves an operand to its runtime value: a constant is computed
// directly, anything else must already be in env (true by construction —
// every SSA use is dominated by its def, and this interpreter executes
// blocks in the same order a real control-flow walk would).
func (in *Interpreter) eval(v value.Value, env map[value.Value]interface{}) (interface{}, error) {
	switch c := v.(type) {
	case *constant.Int:
		if c.Typ == types.I1 {
			return c.X.Sign() != 0, nil
		}
		return c.X.Int64(), nil
	case *constant.Float:
		f, _ := c.X.Float64()
		if c.Typ == types.Double {
			return f, nil
		}
		return float32(f), nil
	}
	if val, ok := env[v]; ok {
		return val, nil
	}
	return nil, fmt.Errorf("jit: value %v used before definition", v.Ident())
}

func (in *Interpreter) evalIndex(v value.Value, env map[value.Value]interface{}) (int64, error) {
	raw, err := in.eval(v, env)
	if err != nil {
		return 0, err
	}
	i, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("jit: index operand %v is not an integer", v.Ident())
	}
	return i, nil
}

func (in *Interpreter) evalInst(inst ir.Instruction, env map[value.Value]interface{}, prev *ir.Block) (interface{}, error) {
	switch n := inst.(type) {
	case *ir.InstAlloca:
		return newBoxCellFor(n.ElemType), nil
	case *ir.InstLoad:
		ptr, err := in.eval(n.Src, env)
		if err != nil {
			return nil, err
		}
		return ptr.(Cell).Get(), nil
	case *ir.InstStore:
		ptr, err := in.eval(n.Dst, env)
		if err != nil {
			return nil, err
		}
		val, err := in.eval(n.Src, env)
		if err != nil {
			return nil, err
		}
		ptr.(Cell).Set(val)
		return nil, nil
	case *ir.InstGetElementPtr:
		base, err := in.eval(n.Src, env)
		if err != nil {
			return nil, err
		}
		baseCell := base.(Cell)
		switch len(n.Indices) {
		case 2:
			idx1, err := in.evalIndex(n.Indices[1], env)
			if err != nil {
				return nil, err
			}
			return arrayElemCell(baseCell, int(idx1)), nil
		case 1:
			n0, err := in.evalIndex(n.Indices[0], env)
			if err != nil {
				return nil, err
			}
			off := baseCell.Offset(n0)
			if off == nil {
				return nil, fmt.Errorf("jit: pointer does not support indexed arithmetic")
			}
			return off, nil
		default:
			return nil, fmt.Errorf("jit: unsupported getelementptr with %d indices", len(n.Indices))
		}
	case *ir.InstBitCast:
		return in.eval(n.From, env)
	case *ir.InstAdd:
		return in.binNum(n.X, n.Y, env, func(a, b int64) interface{} { return a + b }, nil)
	case *ir.InstFAdd:
		return in.binNum(n.X, n.Y, env, nil, func(a, b float64) float64 { return a + b })
	case *ir.InstSub:
		return in.binNum(n.X, n.Y, env, func(a, b int64) interface{} { return a - b }, nil)
	case *ir.InstFSub:
		return in.binNum(n.X, n.Y, env, nil, func(a, b float64) float64 { return a - b })
	case *ir.InstMul:
		return in.binNum(n.X, n.Y, env, func(a, b int64) interface{} { return a * b }, nil)
	case *ir.InstFMul:
		return in.binNum(n.X, n.Y, env, nil, func(a, b float64) float64 { return a * b })
	case *ir.InstSDiv:
		return in.binNum(n.X, n.Y, env, func(a, b int64) interface{} {
			if b == 0 {
				return poisonInt
			}
			return a / b
		}, nil)
	case *ir.InstFDiv:
		return in.binNum(n.X, n.Y, env, nil, func(a, b float64) float64 { return a / b })
	case *ir.InstSRem:
		return in.binNum(n.X, n.Y, env, func(a, b int64) interface{} {
			if b == 0 {
				return poisonInt
			}
			return a % b
		}, nil)
	case *ir.InstFRem:
		return in.binNum(n.X, n.Y, env, nil, math.Mod)
	case *ir.InstAnd:
		return in.binBitwise(n.X, n.Y, env, func(a, b int64) int64 { return a & b })
	case *ir.InstOr:
		return in.binBitwise(n.X, n.Y, env, func(a, b int64) int64 { return a | b })
	case *ir.InstXor:
		return in.binBitwise(n.X, n.Y, env, func(a, b int64) int64 { return a ^ b })
	case *ir.InstShl:
		return in.binBitwise(n.X, n.Y, env, func(a, b int64) int64 { return a << uint(b) })
	case *ir.InstAShr:
		return in.binBitwise(n.X, n.Y, env, func(a, b int64) int64 { return a >> uint(b) })
	case *ir.InstICmp:
		return in.evalICmp(n, env)
	case *ir.InstFCmp:
		return in.evalFCmp(n, env)
	case *ir.InstSExt, *ir.InstZExt, *ir.InstTrunc, *ir.InstFPExt, *ir.InstFPTrunc, *ir.InstSIToFP, *ir.InstFPToSI, *ir.InstUIToFP:
		return in.evalCast(inst, env)
	case *ir.InstSelect:
		cond, err := in.eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if cond.(bool) {
			return in.eval(n.X, env)
		}
		return in.eval(n.Y, env)
	case *ir.InstPhi:
		for _, inc := range n.Incs {
			if inc.Pred == prev {
				return in.eval(inc.X, env)
			}
		}
		return nil, fmt.Errorf("jit: phi %v has no incoming value for predecessor block", n.Ident())
	case *ir.InstCall:
		return in.evalCall(n, env)
	default:
		return nil, fmt.Errorf("jit: unsupported instruction %T", inst)
	}
}

func (in *Interpreter) binNum(xv, yv value.Value, env map[value.Value]interface{}, intOp func(a, b int64) interface{}, floatOp func(a, b float64) float64) (interface{}, error) {
	x, err := in.eval(xv, env)
	if err != nil {
		return nil, err
	}
	y, err := in.eval(yv, env)
	if err != nil {
		return nil, err
	}
	switch a := x.(type) {
	case int64:
		return intOp(a, y.(int64)), nil
	case float32:
		return float32(floatOp(float64(a), float64(y.(float32)))), nil
	case float64:
		return floatOp(a, y.(float64)), nil
	default:
		return nil, fmt.Errorf("jit: arithmetic on unsupported value %v", x)
	}
}

func (in *Interpreter) binBitwise(xv, yv value.Value, env map[value.Value]interface{}, op func(a, b int64) int64) (interface{}, error) {
	x, err := in.eval(xv, env)
	if err != nil {
		return nil, err
	}
	y, err := in.eval(yv, env)
	if err != nil {
		return nil, err
	}
	xi, yi := toInt64(x), toInt64(y)
	return op(xi, yi), nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case bool:
		if n {
			return 1
		}
		return 0
	case int64:
		return n
	default:
		return 0
	}
}

func (in *Interpreter) evalICmp(n *ir.InstICmp, env map[value.Value]interface{}) (interface{}, error) {
	x, err := in.eval(n.X, env)
	if err != nil {
		return nil, err
	}
	y, err := in.eval(n.Y, env)
	if err != nil {
		return nil, err
	}
	a, b := toInt64(x), toInt64(y)
	switch n.Pred {
	case enum.IPredEQ:
		return a == b, nil
	case enum.IPredNE:
		return a != b, nil
	case enum.IPredSLT:
		return a < b, nil
	case enum.IPredSLE:
		return a <= b, nil
	case enum.IPredSGT:
		return a > b, nil
	case enum.IPredSGE:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("jit: unsupported icmp predicate %v", n.Pred)
	}
}

func (in *Interpreter) evalFCmp(n *ir.InstFCmp, env map[value.Value]interface{}) (interface{}, error) {
	x, err := in.eval(n.X, env)
	if err != nil {
		return nil, err
	}
	y, err := in.eval(n.Y, env)
	if err != nil {
		return nil, err
	}
	a, b := toFloat64(x), toFloat64(y)
	switch n.Pred {
	case enum.FPredOEQ:
		return a == b, nil
	case enum.FPredONE:
		return a != b, nil
	case enum.FPredOLT:
		return a < b, nil
	case enum.FPredOLE:
		return a <= b, nil
	case enum.FPredOGT:
		return a > b, nil
	case enum.FPredOGE:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("jit: unsupported fcmp predicate %v", n.Pred)
	}
}

// truncateTo sign-extends/wraps a conceptually-int64 value to bits width,
// matching LLVM's Trunc semantics for the i16/i32 widths AX actually has
// (IntSignExtend never needs this since a narrower value is already
// within a wider one's range).
func truncateTo(v int64, bits uint64) int64 {
	switch bits {
	case 16:
		return int64(int16(v))
	case 32:
		return int64(int32(v))
	default:
		return v
	}
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// evalCast applies one of axtypes.ArithmeticCast's emitted instructions.
// Integer values of every width are held as Go int64; a cast to i16 or
// i32 wraps the value to that width (truncateTo), and otherwise only the
// destination's scalar family (bool/int/float32/float64) matters here.
func (in *Interpreter) evalCast(inst ir.Instruction, env map[value.Value]interface{}) (interface{}, error) {
	var from value.Value
	var to types.Type
	switch n := inst.(type) {
	case *ir.InstSExt:
		from, to = n.From, n.To
	case *ir.InstZExt:
		from, to = n.From, n.To
	case *ir.InstTrunc:
		from, to = n.From, n.To
	case *ir.InstFPExt:
		from, to = n.From, n.To
	case *ir.InstFPTrunc:
		from, to = n.From, n.To
	case *ir.InstSIToFP:
		from, to = n.From, n.To
	case *ir.InstFPToSI:
		from, to = n.From, n.To
	case *ir.InstUIToFP:
		from, to = n.From, n.To
	}
	v, err := in.eval(from, env)
	if err != nil {
		return nil, err
	}
	switch t := to.(type) {
	case *types.IntType:
		var i int64
		switch src := v.(type) {
		case float32:
			i = int64(src)
		case float64:
			i = int64(src)
		default:
			i = toInt64(v)
		}
		if t.BitSize == 1 {
			return i != 0, nil
		}
		return truncateTo(i, t.BitSize), nil
	case *types.FloatType:
		var f float64
		if b, ok := v.(bool); ok {
			if b {
				f = 1
			}
		} else if i, ok := v.(int64); ok {
			f = float64(i)
		} else {
			f = toFloat64(v)
		}
		if t == types.Double {
			return f, nil
		}
		return float32(f), nil
	default:
		return nil, fmt.Errorf("jit: unsupported cast destination type %v", to)
	}
}

func (in *Interpreter) evalCall(n *ir.InstCall, env map[value.Value]interface{}) (interface{}, error) {
	args := make([]interface{}, len(n.Args))
	for i, a := range n.Args {
		v, err := in.eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	fn, ok := n.Callee.(*ir.Func)
	if !ok {
		return nil, fmt.Errorf("jit: call to non-function callee %v", n.Callee)
	}
	if len(fn.Blocks) > 0 {
		return in.Run(fn, args)
	}
	if in.resolver == nil {
		return nil, fmt.Errorf("jit: no symbol resolver configured for external call to %s", fn.Name())
	}
	native, ok := in.resolver.Resolve(fn.Name())
	if !ok {
		return nil, fmt.Errorf("jit: unresolved external symbol %q", fn.Name())
	}
	return native(args)
}
