// Package symtable implements the block-scoped symbol table and the
// frozen-after-codegen attribute registry from spec.md §3/§4.
//
// Grounded on the teacher's StmtCompiler.locals/localCount scope tracking
// (internal/compiler/stmt_compiler.go), generalized into a standalone,
// reusable scope-stack type instead of a handful of fields on the
// compiler itself.
package symtable

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// Symbol is what a local-scope lookup resolves to: its declared type and
// its storage slot (an opaque handle codegen maps to an IR alloca).
type Symbol struct {
	Type axtypes.Type
	Slot int
}

type scope struct {
	names map[string]Symbol
}

// Table is a stack of lexical scopes, innermost last. Lookup searches
// innermost outward, matching spec.md §3.
type Table struct {
	scopes   []*scope
	nextSlot int
}

func New() *Table {
	t := &Table{}
	t.Push()
	return t
}

// Push opens a new scope on block entry.
func (t *Table) Push() {
	t.scopes = append(t.scopes, &scope{names: make(map[string]Symbol)})
}

// Pop closes the innermost scope on block exit.
func (t *Table) Pop() {
	if len(t.scopes) == 0 {
		panic("symtable: Pop on empty scope stack")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Declare adds name to the innermost scope with a freshly allocated slot.
// It returns an error if name is already declared in the innermost scope
// (shadowing an outer scope's name is allowed; redeclaring in the same
// scope is not).
func (t *Table) Declare(name string, typ axtypes.Type) (Symbol, error) {
	cur := t.scopes[len(t.scopes)-1]
	if _, exists := cur.names[name]; exists {
		return Symbol{}, fmt.Errorf("symtable: %q already declared in this scope", name)
	}
	sym := Symbol{Type: typ, Slot: t.nextSlot}
	t.nextSlot++
	cur.names[name] = sym
	return sym, nil
}

// Lookup searches scopes innermost-to-outermost.
func (t *Table) Lookup(name string) (Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].names[name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Depth reports the current scope nesting depth (1 at the top level),
// useful for diagnostics and tests asserting Push/Pop balance.
func (t *Table) Depth() int { return len(t.scopes) }

// NamesInScope returns the names declared directly in the innermost scope,
// in a stable (sorted) order. No compiler pass calls it, and no pass
// emits the "unused local" warning.
func (t *Table) NamesInScope() []string {
	cur := t.scopes[len(t.scopes)-1]
	names := maps.Keys(cur.names)
	slices.Sort(names)
	return names
}
