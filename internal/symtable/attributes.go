package symtable

import (
	"fmt"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// AccessFlags records how a kernel touches an attribute, per spec.md §3.
type AccessFlags int

const (
	AccessRead AccessFlags = 1 << iota
	AccessWrite
)

func (f AccessFlags) ReadWrite() AccessFlags { return AccessRead | AccessWrite }

func (f AccessFlags) String() string {
	switch {
	case f&AccessRead != 0 && f&AccessWrite != 0:
		return "read-write"
	case f&AccessWrite != 0:
		return "write"
	default:
		return "read"
	}
}

// AttributeEntry is one (name, type, access) tuple in the registry.
type AttributeEntry struct {
	Name   string
	Type   axtypes.Type
	Access AccessFlags
	// Index is this attribute's position in the registry's stable
	// registration order, used by codegen as the index into
	// attribute_ptrs[]/attr_handles[] (spec.md §4.5/§4.6).
	Index int
}

// AttributeRegistry is the per-compilation-unit set of (name, type,
// access) tuples a kernel references, built by a pre-pass over the AST and
// frozen once codegen begins (spec.md invariant (v)).
type AttributeRegistry struct {
	byName map[string]*AttributeEntry
	order  []string
	frozen bool
}

func NewAttributeRegistry() *AttributeRegistry {
	return &AttributeRegistry{byName: make(map[string]*AttributeEntry)}
}

// Reference records that the kernel accesses name with the given type and
// access flags, merging with any prior reference to the same name. It
// returns an error if the same name was previously referenced with a
// different type — spec.md §3: "A type conflict is a compile error."
func (r *AttributeRegistry) Reference(name string, typ axtypes.Type, access AccessFlags) error {
	if r.frozen {
		return fmt.Errorf("symtable: attribute registry is frozen, cannot reference %q", name)
	}
	if existing, ok := r.byName[name]; ok {
		if !existing.Type.Equal(typ) {
			return fmt.Errorf("symtable: attribute %q referenced as both %s and %s", name, existing.Type, typ)
		}
		existing.Access |= access
		return nil
	}
	entry := &AttributeEntry{Name: name, Type: typ, Access: access, Index: len(r.order)}
	r.byName[name] = entry
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the entry for name, if it has been referenced.
func (r *AttributeRegistry) Lookup(name string) (*AttributeEntry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Freeze prevents further References, per invariant (v): "The attribute
// registry is frozen once codegen begins."
func (r *AttributeRegistry) Freeze() { r.frozen = true }

func (r *AttributeRegistry) Frozen() bool { return r.frozen }

// Entries returns every registered attribute in stable registration
// order — the same order codegen uses to build attribute_ptrs[].
func (r *AttributeRegistry) Entries() []*AttributeEntry {
	out := make([]*AttributeEntry, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

// Names returns the registered attribute names in stable registration
// order — the order is already deterministic (insertion order), which
// matters for reproducible attribute_ptrs[] layouts across repeated
// compiles of the same source.
func (r *AttributeRegistry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *AttributeRegistry) Len() int { return len(r.order) }
