// Package jit implements spec.md §9's "reference JIT backend": the
// compiler driver hands it a verified github.com/llir/llvm IR module and a
// chosen entry function, and this package makes that function callable.
//
// There is no real machine-code JIT here — pure Go has no binding to
// LLVM's MCJIT/ORC engines, and spec.md's "Out of scope" section excludes
// bringing in cgo — so "compiling" a module means verifying its
// structure, and "running" the compiled kernel means tree-walking its
// real instruction values with Interpreter. SPEC_FULL.md §9 records this
// choice; it is not a simplification of the spec's
// kernel semantics: every instruction codegen emits is executed for
// real, just by an interpreter loop instead of a native dispatch.
package jit

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// Verify runs the structural checks a real LLVM verifier would reject a
// module for: every defined function must have at least one basic block,
// every block must end in exactly one terminator instruction, and every
// externally-called function must resolve to some function value in the
// module (spec.md §4.7 step 6).
func Verify(module *ir.Module) error {
	declared := make(map[string]bool, len(module.Funcs))
	for _, fn := range module.Funcs {
		declared[fn.Name()] = true
	}
	for _, fn := range module.Funcs {
		if len(fn.Blocks) == 0 {
			continue // a pure declaration (an External built-in), nothing to verify
		}
		for _, blk := range fn.Blocks {
			if blk.Term == nil {
				return fmt.Errorf("jit: function %q block %q has no terminator", fn.Name(), blk.Ident())
			}
			for _, inst := range blk.Insts {
				if err := verifyInst(inst, declared); err != nil {
					return fmt.Errorf("jit: function %q: %w", fn.Name(), err)
				}
			}
		}
	}
	return nil
}

func verifyInst(inst ir.Instruction, declared map[string]bool) error {
	call, ok := inst.(*ir.InstCall)
	if !ok {
		return nil
	}
	fn, ok := call.Callee.(*ir.Func)
	if !ok {
		return fmt.Errorf("call to non-function value %v", call.Callee)
	}
	if !declared[fn.Name()] {
		return fmt.Errorf("call to %q, which is not declared in this module", fn.Name())
	}
	return nil
}

// Backend "builds" a verified module into something callable: since there
// is no native codegen, this amounts to remembering the module and the
// resolver the Interpreter will use for External-linkage calls.
type Backend struct {
	resolver SymbolResolver
}

func NewBackend(resolver SymbolResolver) *Backend {
	return &Backend{resolver: resolver}
}

// CompiledModule is the result of Backend.Build: a module whose entry
// functions can be looked up and invoked.
type CompiledModule struct {
	module *ir.Module
	base   SymbolResolver
}

// Build verifies module and wraps it for execution. Per spec.md's JIT-add
// step, this is where native code would be generated and externals
// linked; here it is where the process-wide symbol table (libm, rand) is
// bound — group-membership externals need further, per-invocation
// context, supplied separately to Invoke.
func (b *Backend) Build(module *ir.Module) (*CompiledModule, error) {
	if err := Verify(module); err != nil {
		return nil, err
	}
	return &CompiledModule{module: module, base: b.resolver}, nil
}

// KernelFunc is a single invocable entry point resolved from a
// CompiledModule — what internal/executable holds on to per leaf.
type KernelFunc struct {
	cm *CompiledModule
	fn *ir.Func
}

// Lookup resolves name to a callable KernelFunc, or an error if no
// function definition (not merely a declaration) by that name exists.
func (cm *CompiledModule) Lookup(name string) (*KernelFunc, error) {
	for _, fn := range cm.module.Funcs {
		if fn.Name() == name {
			if len(fn.Blocks) == 0 {
				return nil, fmt.Errorf("jit: %q is only declared, not defined, in this module", name)
			}
			return &KernelFunc{cm: cm, fn: fn}, nil
		}
	}
	return nil, fmt.Errorf("jit: no function named %q in this module", name)
}

// Invoke runs the kernel once with args bound to its parameters in
// declaration order — a pointer-typed parameter must be a Cell. scoped
// resolves symbols needing the current voxel/point's own context (the
// point target's ingroup/addtogroup/removefromgroup, which the function
// registry declares with no point-index parameter of their own — see
// DESIGN.md); it is tried before the module's process-wide resolver and
// may be nil when the target has no such built-ins (the volume target,
// or a point kernel that never references a group).
func (k *KernelFunc) Invoke(scoped SymbolResolver, args ...interface{}) error {
	resolver := k.cm.base
	if scoped != nil {
		resolver = ChainResolver{scoped, k.cm.base}
	}
	_, err := NewInterpreter(resolver).Run(k.fn, args)
	return err
}
