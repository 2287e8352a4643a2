package symtable

import "fmt"

// GroupRegistry is the point-target analogue of AttributeRegistry for
// point-group membership: `ingroup("foo")`/`addtogroup("foo")`/
// `removefromgroup("foo")` resolve a compile-time group *name* to a
// stable i32 index the point kernel ABI's group_handles[] is indexed by
// (spec.md §4.6), the same way attribute names resolve to attr_ptrs[]
// indices. Frozen once codegen begins, mirroring AttributeRegistry's
// invariant (v).
type GroupRegistry struct {
	indexOf map[string]int
	order   []string
	frozen  bool
}

func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{indexOf: make(map[string]int)}
}

// Reference returns the stable index for name, registering it on first
// use.
func (g *GroupRegistry) Reference(name string) (int, error) {
	if idx, ok := g.indexOf[name]; ok {
		return idx, nil
	}
	if g.frozen {
		return 0, fmt.Errorf("symtable: group registry is frozen, cannot reference %q", name)
	}
	idx := len(g.order)
	g.indexOf[name] = idx
	g.order = append(g.order, name)
	return idx, nil
}

func (g *GroupRegistry) Freeze() { g.frozen = true }

// Names returns every registered group name in stable registration order.
func (g *GroupRegistry) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *GroupRegistry) Len() int { return len(g.order) }
