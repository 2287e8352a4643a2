// Package codegen lowers a resolved AX statement tree onto real
// github.com/llir/llvm IR: a shared ComputeGenerator implements the
// target-independent core (locals, control flow, expressions, built-in
// calls), and the volume/point generators built on top of it supply the
// kernel entry function and the `@name`/group storage addressing their
// ABI requires (spec.md §4.4-§4.6).
//
// Grounded on the teacher's internal/codegen/llvm generateStatement/
// generateExpression switch-based lowering (see
// _examples/other_examples/..._internal-codegen-llvm.go.go), adapted from
// sentra's dynamically-typed values to AX's resolved-type-driven casts and
// from a handful of scalar ops to the full arithmetic/array/attribute
// surface spec.md §4 names.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pablocouto/openvdb-ax/internal/ast"
	"github.com/pablocouto/openvdb-ax/internal/axerrors"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/functions"
	"github.com/pablocouto/openvdb-ax/internal/symtable"
)

// AttributeAccessor is implemented by the volume and point generators to
// supply the storage address of an `@name` reference; the shared
// generator never addresses attribute storage itself, since that differs
// per kernel ABI (spec.md §4.5 vs §4.6).
type AttributeAccessor interface {
	// AttributePointer returns the IR pointer value@name's storage lives
	// at, for both loads and stores.
	AttributePointer(g *ComputeGenerator, entry *symtable.AttributeEntry) value.Value
}

// ComputeGenerator lowers the statement/expression core shared by every
// kernel target. It keeps its own symtable.Table, walked in exactly the
// same Push/Pop/Declare/Lookup order ast.Resolve used, so a LocalValue's
// name resolves to the same binding codegen allocated the alloca for —
// the annotations Resolve leaves on the tree (ResolvedType, the
// OperandType of an Assign or BinaryOp, a FunctionCall's Resolved
// signature) are otherwise the only channel Resolve uses to hand codegen
// information (spec.md §4.2).
type ComputeGenerator struct {
	Module *ir.Module
	Func   *ir.Func
	Funcs  *functions.Registry
	Attrs  *symtable.AttributeRegistry
	Diags  *axerrors.Diagnostics
	Target AttributeAccessor

	// Externals maps the Symbol of each external declared in the module so
	// far (by DeclareExternals, DeclareExtra, or lowerCall on first use) to
	// its module-level function declaration, shared with
	// functions.EmitContext so Inline built-ins can call through.
	Externals map[string]*ir.Func

	// DefaultSeed/Transform mirror functions.EmitContext's per-invocation
	// state; the volume/point generator refreshes them once per voxel or
	// point before lowering the kernel body.
	DefaultSeed value.Value
	Transform   value.Value

	locals *symtable.Table
	slots  map[int]value.Value // symtable.Symbol.Slot -> alloca pointer

	cur *ir.Block

	breakTargets    []*ir.Block
	continueTargets []*ir.Block
}

func NewComputeGenerator(module *ir.Module, funcs *functions.Registry, attrs *symtable.AttributeRegistry, diags *axerrors.Diagnostics) *ComputeGenerator {
	return &ComputeGenerator{
		Module:    module,
		Funcs:     funcs,
		Attrs:     attrs,
		Diags:     diags,
		Externals: make(map[string]*ir.Func),
		locals:    symtable.New(),
		slots:     make(map[int]value.Value),
	}
}

// DeclareExternals walks every group in reg and declares a module-level
// function for each External signature, keyed by its Symbol — the JIT
// backend later resolves these symbols to native code (spec.md §4.3: "The
// registry stores a flag per signature distinguishing the two").
func (g *ComputeGenerator) DeclareExternals(reg *functions.Registry, names []string) {
	for _, name := range names {
		group, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		for i := range group.Signatures {
			sig := &group.Signatures[i]
			if sig.Linkage != functions.External {
				continue
			}
			g.declareExternal(sig.Symbol, sig.Params, sig.Return)
		}
	}
}

// DeclareExtra declares an ABI-only external not reachable through the
// function registry (the voxel/world transform appliers the volume
// target's built-ins call into implicitly, spec.md §4.5).
func (g *ComputeGenerator) DeclareExtra(symbol string, paramTypes []types.Type, ret types.Type) *ir.Func {
	if fn, ok := g.Externals[symbol]; ok {
		return fn
	}
	params := make([]*ir.Param, len(paramTypes))
	for i, t := range paramTypes {
		params[i] = ir.NewParam("", t)
	}
	fn := g.Module.NewFunc(symbol, ret, params...)
	g.Externals[symbol] = fn
	return fn
}

func (g *ComputeGenerator) declareExternal(symbol string, params []functions.Param, ret axtypes.Type) *ir.Func {
	if fn, ok := g.Externals[symbol]; ok {
		return fn
	}
	irParams := make([]*ir.Param, len(params))
	for i, p := range params {
		irParams[i] = ir.NewParam("", paramIRType(p))
	}
	fn := g.Module.NewFunc(symbol, axtypes.IRTypeOf(ret), irParams...)
	g.Externals[symbol] = fn
	return fn
}

func paramIRType(p functions.Param) types.Type {
	t := axtypes.IRTypeOf(p.Type)
	if p.Attr == functions.ParamByPointer {
		return types.NewPointer(t)
	}
	return t
}

// emitCtx builds the functions.EmitContext an Inline built-in's Emit needs
// for the current insertion point.
func (g *ComputeGenerator) emitCtx() *functions.EmitContext {
	return &functions.EmitContext{
		Block:       g.cur,
		Externals:   g.Externals,
		DefaultSeed: g.DefaultSeed,
		Transform:   g.Transform,
	}
}

// ---- statements ----

func (g *ComputeGenerator) LowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Block:
		return g.lowerBlock(n)
	case *ast.DeclareLocal:
		return g.lowerDeclareLocal(n)
	case *ast.Assign:
		return g.lowerAssign(n)
	case *ast.ExprStmt:
		_, err := g.LowerExpr(n.Expr)
		return err
	case *ast.Keyword:
		return g.lowerKeyword(n)
	case *ast.Conditional:
		return g.lowerConditional(n)
	case *ast.Loop:
		return g.lowerLoop(n)
	default:
		return fmt.Errorf("codegen: unhandled statement %T", s)
	}
}

func (g *ComputeGenerator) lowerBlock(n *ast.Block) error {
	g.locals.Push()
	defer g.locals.Pop()
	for _, s := range n.Stmts {
		if g.cur.Term != nil {
			// A prior return/break/continue already terminated this
			// block; anything lexically after it is unreachable.
			continue
		}
		if err := g.LowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *ComputeGenerator) lowerDeclareLocal(n *ast.DeclareLocal) error {
	irType := axtypes.IRTypeOf(n.Type)
	alloca := g.cur.NewAlloca(irType)
	if n.Init != nil {
		v, err := g.LowerExpr(n.Init)
		if err != nil {
			return err
		}
		v, err = g.castTo(v, n.Init.ResolvedType(), n.Type)
		if err != nil {
			return err
		}
		g.store(alloca, v, n.Type)
	} else {
		g.storeZero(alloca, n.Type)
	}
	sym, err := g.locals.Declare(n.Name, n.Type)
	if err != nil {
		return err
	}
	g.slots[sym.Slot] = alloca
	return nil
}

func (g *ComputeGenerator) storeZero(ptr value.Value, t axtypes.Type) {
	if !t.IsArray() {
		g.cur.NewStore(axtypes.ZeroValue(t), ptr)
		return
	}
	arrType := axtypes.IRTypeOf(t).(*types.ArrayType)
	zero := axtypes.ZeroValue(*t.Elem)
	for i := 0; i < t.Len; i++ {
		g.cur.NewStore(zero, axtypes.ElemPtr(g.cur, arrType, ptr, i))
	}
}

// store writes v (already cast to t) to ptr — a straight store for
// scalars, an elementwise copy for arrays (since v for an array-typed
// expression is itself a pointer, per load's convention below).
func (g *ComputeGenerator) store(ptr, v value.Value, t axtypes.Type) {
	if !t.IsArray() {
		g.cur.NewStore(v, ptr)
		return
	}
	arrType := axtypes.IRTypeOf(t).(*types.ArrayType)
	for i := 0; i < t.Len; i++ {
		elem := g.cur.NewLoad(axtypes.IRTypeOf(*t.Elem), axtypes.ElemPtr(g.cur, arrType, v, i))
		g.cur.NewStore(elem, axtypes.ElemPtr(g.cur, arrType, ptr, i))
	}
}

// load reads ptr as an AX value of type t: a scalar load, or — for
// arrays — the pointer itself, since every array-typed value in this
// generator is represented by a pointer to its backing alloca rather than
// an aggregate SSA value (matching the ParamByPointer convention the
// function registry's vector/matrix built-ins already use).
func (g *ComputeGenerator) load(ptr value.Value, t axtypes.Type) value.Value {
	if t.IsArray() {
		return ptr
	}
	return g.cur.NewLoad(axtypes.IRTypeOf(t), ptr)
}

// targetStorage resolves an lvalue expression to its storage pointer and
// AX type, used by both Assign and Crement.
func (g *ComputeGenerator) targetStorage(target ast.Expr) (value.Value, axtypes.Type, error) {
	switch t := target.(type) {
	case *ast.LocalValue:
		sym, ok := g.locals.Lookup(t.Name)
		if !ok {
			return nil, axtypes.Type{}, fmt.Errorf("codegen: undeclared local %q", t.Name)
		}
		return g.slots[sym.Slot], sym.Type, nil
	case *ast.AttributeValue:
		entry, ok := g.Attrs.Lookup(t.Name)
		if !ok {
			return nil, axtypes.Type{}, fmt.Errorf("codegen: unreferenced attribute %q", t.Name)
		}
		return g.Target.AttributePointer(g, entry), entry.Type, nil
	default:
		return nil, axtypes.Type{}, fmt.Errorf("codegen: %T is not an lvalue", target)
	}
}

func (g *ComputeGenerator) lowerAssign(n *ast.Assign) error {
	rhsVal, err := g.LowerExpr(n.Rhs)
	if err != nil {
		return err
	}
	ptr, targetType, err := g.targetStorage(n.Target)
	if err != nil {
		return err
	}
	if n.Op == ast.AssignSet {
		casted, err := g.castTo(rhsVal, n.Rhs.ResolvedType(), targetType)
		if err != nil {
			return err
		}
		g.store(ptr, casted, targetType)
		return nil
	}
	cur := g.load(ptr, targetType)
	curCast, err := g.castTo(cur, targetType, n.OperandType)
	if err != nil {
		return err
	}
	rhsCast, err := g.castTo(rhsVal, n.Rhs.ResolvedType(), n.OperandType)
	if err != nil {
		return err
	}
	result, err := g.emitBinary(compoundOp(n.Op), curCast, rhsCast, n.OperandType)
	if err != nil {
		return err
	}
	resultCast, err := g.castTo(result, n.OperandType, targetType)
	if err != nil {
		return err
	}
	g.store(ptr, resultCast, targetType)
	return nil
}

func compoundOp(op ast.AssignOp) axtypes.OpKind {
	switch op {
	case ast.AssignAdd:
		return axtypes.OpAdd
	case ast.AssignSub:
		return axtypes.OpSub
	case ast.AssignMul:
		return axtypes.OpMul
	case ast.AssignDiv:
		return axtypes.OpDiv
	default:
		return axtypes.OpAdd
	}
}

func (g *ComputeGenerator) lowerKeyword(n *ast.Keyword) error {
	switch n.Kind {
	case ast.KeywordReturn:
		g.cur.NewRet(nil)
	case ast.KeywordBreak:
		if len(g.breakTargets) == 0 {
			return fmt.Errorf("codegen: break outside a loop")
		}
		g.cur.NewBr(g.breakTargets[len(g.breakTargets)-1])
	case ast.KeywordContinue:
		if len(g.continueTargets) == 0 {
			return fmt.Errorf("codegen: continue outside a loop")
		}
		g.cur.NewBr(g.continueTargets[len(g.continueTargets)-1])
	}
	return nil
}

func (g *ComputeGenerator) lowerConditional(n *ast.Conditional) error {
	condVal, err := g.LowerExpr(n.Cond)
	if err != nil {
		return err
	}
	condVal, err = axtypes.BoolCoerce(g.cur, condVal, n.Cond.ResolvedType())
	if err != nil {
		return err
	}
	thenBlk := g.Func.NewBlock("")
	afterBlk := g.Func.NewBlock("")
	elseBlk := afterBlk
	if n.Else != nil {
		elseBlk = g.Func.NewBlock("")
	}
	g.cur.NewCondBr(condVal, thenBlk, elseBlk)

	g.cur = thenBlk
	if err := g.LowerStmt(n.Then); err != nil {
		return err
	}
	if g.cur.Term == nil {
		g.cur.NewBr(afterBlk)
	}

	if n.Else != nil {
		g.cur = elseBlk
		if err := g.LowerStmt(n.Else); err != nil {
			return err
		}
		if g.cur.Term == nil {
			g.cur.NewBr(afterBlk)
		}
	}

	g.cur = afterBlk
	return nil
}

func (g *ComputeGenerator) lowerLoop(n *ast.Loop) error {
	g.locals.Push()
	defer g.locals.Pop()

	if n.Init != nil {
		if err := g.LowerStmt(n.Init); err != nil {
			return err
		}
	}

	condBlk := g.Func.NewBlock("")
	bodyBlk := g.Func.NewBlock("")
	afterBlk := g.Func.NewBlock("")
	// continueBlk is where `continue` (and the body's own fallthrough)
	// jumps to: the step block if this is a for-loop, or straight back to
	// the condition check otherwise.
	continueBlk := condBlk
	if n.Step != nil {
		continueBlk = g.Func.NewBlock("")
	}

	entry := condBlk
	if n.Kind == ast.LoopDoWhile {
		entry = bodyBlk
	}
	g.cur.NewBr(entry)

	if n.Cond != nil {
		g.cur = condBlk
		condVal, err := g.LowerExpr(n.Cond)
		if err != nil {
			return err
		}
		condVal, err = axtypes.BoolCoerce(g.cur, condVal, n.Cond.ResolvedType())
		if err != nil {
			return err
		}
		g.cur.NewCondBr(condVal, bodyBlk, afterBlk)
	} else {
		condBlk.NewBr(bodyBlk)
	}

	g.breakTargets = append(g.breakTargets, afterBlk)
	g.continueTargets = append(g.continueTargets, continueBlk)

	g.cur = bodyBlk
	if err := g.LowerStmt(n.Body); err != nil {
		return err
	}
	if g.cur.Term == nil {
		g.cur.NewBr(continueBlk)
	}

	if n.Step != nil {
		g.cur = continueBlk
		if err := g.LowerStmt(n.Step); err != nil {
			return err
		}
		if g.cur.Term == nil {
			g.cur.NewBr(condBlk)
		}
	}

	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]

	g.cur = afterBlk
	return nil
}
