// Package functions implements the built-in function catalogue and
// overload resolution from spec.md §4.3: typed signatures, function
// groups, and the five-step cost-vector overload-selection algorithm.
package functions

import (
	"fmt"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// Linkage distinguishes a signature implemented directly in IR (Inline)
// from one resolved to a native-code symbol at JIT link time (External),
// per spec.md §4.3: "The registry stores a flag per signature
// distinguishing the two."
type Linkage int

const (
	Inline Linkage = iota
	External
)

// ParamAttr are the per-parameter attributes spec.md §4.3 names.
type ParamAttr int

const (
	ParamByValue ParamAttr = iota
	ParamByPointer
)

// Param is one parameter of a Signature.
type Param struct {
	Type axtypes.Type
	Attr ParamAttr
}

// SigAttrs are the whole-signature attributes spec.md §4.3 names.
type SigAttrs struct {
	Readonly     bool
	Noalias      bool
	AlwaysInline bool
}

// Signature is one overload of a built-in function.
type Signature struct {
	Params     []Param
	Return     axtypes.Type
	Attrs      SigAttrs
	Linkage    Linkage
	// Symbol is the native-code symbol name resolved by the JIT's
	// named-lookup callback; only meaningful when Linkage == External.
	Symbol string
	// Emit builds the IR for an Inline signature; only meaningful when
	// Linkage == Inline. Takes an EmitContext rather than a bare *ir.Block
	// so inline built-ins that still need an external call (normalize
	// calling into sqrt, the zero-arg rand() deriving a coordinate seed)
	// can reach the declared externals and per-invocation state codegen
	// populates, without functions depending on the codegen package.
	Emit InlineEmitFunc
}

func (s *Signature) Arity() int { return len(s.Params) }

// Group is a built-in function name plus its (non-empty) list of
// overloads.
type Group struct {
	Name       string
	Signatures []Signature
}

// Registry is the immutable, built-once catalogue of built-in function
// groups. spec.md DESIGN NOTES: "The function registry is built once at
// process start and thereafter read-only; model it as an immutable table
// behind a shared handle."
type Registry struct {
	groups map[string]*Group

	// pending/pendingOrder are scratch state used only while the built-in
	// catalogue (builtins.go) is being assembled, to accumulate several
	// scalar-type overloads of the same name before a single Register
	// call; empty once NewCoreRegistry returns.
	pending      map[string]*Group
	pendingOrder []string
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]*Group)}
}

// Register adds a function group. It panics on a duplicate name or an
// empty signature list, since both are programmer error in the registry's
// own construction (spec.md: "A function group is a name plus a
// non-empty list of signatures"), not a user-facing compile error.
func (r *Registry) Register(g Group) {
	if len(g.Signatures) == 0 {
		panic(fmt.Sprintf("functions: group %q has no signatures", g.Name))
	}
	if _, exists := r.groups[g.Name]; exists {
		panic(fmt.Sprintf("functions: group %q already registered", g.Name))
	}
	r.groups[g.Name] = &g
}

// Lookup returns the group registered under name, if any.
func (r *Registry) Lookup(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}
