// Package executable is the host side of the reference JIT: it owns the
// real memory (leaf attribute buffers, group bitsets) a compiled kernel's
// pointer parameters address, drives the leaf-parallel execution pass
// spec.md §4.8 describes. Group membership changes are written straight
// into the leaf's group bitsets as each point runs; the leaf's LeafData
// blob is written back once that leaf's points have all run, inside the
// leaf's own task and without a lock.
package executable

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/grid"
	"github.com/pablocouto/openvdb-ax/internal/jit"
	"github.com/pablocouto/openvdb-ax/internal/symtable"
)

// Options controls one Execute call. Workers <= 0 means
// runtime.GOMAXPROCS(0), spec.md §4.8's "bounded worker pool, one leaf per
// task" with no further tuning knob exposed.
type Options struct {
	Workers    int
	CustomData interface{}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// zeroRuntimeValue is the interpreter-side mirror of axtypes.ZeroValue:
// the Go value a freshly allocated attribute buffer slot starts at,
// matching codegen's own default-initialisation of locals (spec.md §4.4).
func zeroRuntimeValue(t axtypes.Type) interface{} {
	switch {
	case t.Kind == axtypes.Bool:
		return false
	case t.Kind == axtypes.F32:
		return float32(0)
	case t.Kind == axtypes.F64:
		return float64(0)
	case t.Kind == axtypes.String:
		return ""
	case t.IsArray():
		elems := make([]interface{}, t.Len)
		zero := zeroRuntimeValue(*t.Elem)
		for i := range elems {
			elems[i] = zero
		}
		return elems
	default: // I16, I32, I64
		return int64(0)
	}
}

// VolumeExecutable runs a compiled volume kernel over every active voxel
// of a grid.VolumeGrid.
type VolumeExecutable struct {
	kernel *jit.KernelFunc
	attrs  *symtable.AttributeRegistry
	g      *grid.VolumeGrid
}

// NewVolumeExecutable looks up entryName in cm and binds it to g's leaves.
func NewVolumeExecutable(cm *jit.CompiledModule, entryName string, attrs *symtable.AttributeRegistry, g *grid.VolumeGrid) (*VolumeExecutable, error) {
	k, err := cm.Lookup(entryName)
	if err != nil {
		return nil, err
	}
	return &VolumeExecutable{kernel: k, attrs: attrs, g: g}, nil
}

// Execute runs the kernel once per active voxel across every leaf,
// leaves run concurrently, voxels within a leaf run in ascending local
// index order. A kernel error stops the rest of that leaf only; every
// other leaf still runs, and the first error is returned once all leaf
// tasks have finished.
func (e *VolumeExecutable) Execute(ctx context.Context, opts Options) error {
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(opts.workers())
	for _, leaf := range e.g.Leaves {
		leaf := leaf
		grp.Go(func() error {
			return e.executeLeaf(leaf, opts.CustomData)
		})
	}
	return grp.Wait()
}

func (e *VolumeExecutable) executeLeaf(leaf *grid.Leaf, customData interface{}) error {
	entries := e.attrs.Entries()
	for _, entry := range entries {
		if _, ok := leaf.Attrs[entry.Name]; !ok {
			leaf.AddAttribute(entry.Name, zeroRuntimeValue(entry.Type))
		}
	}
	customCell := jit.NewBoxCell(customData)
	activeMaskCell := jit.NewBoxCell(leaf.Mask.Words())
	for i := 0; i < grid.LeafVoxels; i++ {
		if !leaf.Mask.Test(i) {
			continue
		}
		x, y, z := i%grid.LeafDim, (i/grid.LeafDim)%grid.LeafDim, i/(grid.LeafDim*grid.LeafDim)
		coordCell := jit.NewBoxCell([]interface{}{
			int64(leaf.Origin[0]) + int64(x),
			int64(leaf.Origin[1]) + int64(y),
			int64(leaf.Origin[2]) + int64(z),
		})
		attrSlots := make([]interface{}, len(entries))
		for _, entry := range entries {
			attrSlots[entry.Index] = jit.NewSliceCell(leaf.Attrs[entry.Name], i)
		}
		attrPtrsCell := jit.NewSliceCell(attrSlots, 0)

		if err := e.kernel.Invoke(nil, coordCell, e.g.Transform, attrPtrsCell, activeMaskCell, customCell); err != nil {
			return fmt.Errorf("executable: leaf %v voxel %d: %w", leaf.Origin, i, err)
		}
	}
	return nil
}

// PointExecutable runs a compiled point kernel over every point of a
// grid.PointGrid.
type PointExecutable struct {
	kernel *jit.KernelFunc
	attrs  *symtable.AttributeRegistry
	groups *symtable.GroupRegistry
	g      *grid.PointGrid
}

// NewPointExecutable looks up entryName in cm and binds it to g's leaves.
// groups may be nil if the compiled kernel references no group built-in.
func NewPointExecutable(cm *jit.CompiledModule, entryName string, attrs *symtable.AttributeRegistry, groups *symtable.GroupRegistry, g *grid.PointGrid) (*PointExecutable, error) {
	k, err := cm.Lookup(entryName)
	if err != nil {
		return nil, err
	}
	return &PointExecutable{kernel: k, attrs: attrs, groups: groups, g: g}, nil
}

func (e *PointExecutable) Execute(ctx context.Context, opts Options) error {
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(opts.workers())
	for _, leaf := range e.g.Leaves {
		leaf := leaf
		grp.Go(func() error {
			return e.executeLeaf(leaf, opts.CustomData)
		})
	}
	return grp.Wait()
}

func (e *PointExecutable) executeLeaf(leaf *grid.PointLeaf, customData interface{}) error {
	entries := e.attrs.Entries()
	for _, entry := range entries {
		if _, ok := leaf.Attrs[entry.Name]; !ok {
			leaf.AddAttribute(entry.Name, zeroRuntimeValue(entry.Type))
		}
	}
	var groupNames []string
	groupSlots := []interface{}{}
	if e.groups != nil {
		groupNames = e.groups.Names()
		for _, name := range groupNames {
			if _, ok := leaf.Groups[name]; !ok {
				leaf.AddGroup(name)
			}
		}
		groupSlots = make([]interface{}, len(groupNames))
		for i, name := range groupNames {
			groupSlots[i] = jit.NewBoxCell(leaf.Groups[name])
		}
	}
	groupHandlesCell := jit.NewSliceCell(groupSlots, 0)

	attrSlots := make([]interface{}, len(entries))
	for _, entry := range entries {
		attrSlots[entry.Index] = jit.NewSliceCell(leaf.Attrs[entry.Name], 0)
	}
	attrHandlesCell := jit.NewSliceCell(attrSlots, 0)
	leafDataCell := jit.NewBoxCell(leaf.LeafData)
	customCell := jit.NewBoxCell(customData)

	for i := 0; i < leaf.Count; i++ {
		scoped := scopedGroupResolver(groupNames, leaf.Groups, i)
		if err := e.kernel.Invoke(scoped, int64(i), leafDataCell, attrHandlesCell, groupHandlesCell, customCell); err != nil {
			return fmt.Errorf("executable: leaf %v point %d: %w", leaf.Origin, i, err)
		}
	}
	leaf.LeafData = leafDataCell.Get()
	return nil
}

// scopedGroupResolver binds ingroup/addtogroup/removefromgroup to the one
// point index this invocation runs for — the function registry declares
// these built-ins with a compile-time-resolved i32 group index and no
// point-index parameter of their own (see functions.AddPointBuiltins), so
// the point context has to be supplied out of band, per call, rather than
// threaded through the kernel's own arguments.
func scopedGroupResolver(names []string, groups map[string]*grid.Bitset, point int) jit.SymbolResolver {
	if names == nil {
		return nil
	}
	lookup := func(args []interface{}) (*grid.Bitset, error) {
		idx := int(toInt64(args[0]))
		if idx < 0 || idx >= len(names) {
			return nil, fmt.Errorf("executable: group index %d out of range", idx)
		}
		bs, ok := groups[names[idx]]
		if !ok {
			return nil, fmt.Errorf("executable: group %q not allocated on this leaf", names[idx])
		}
		return bs, nil
	}
	return jit.MapResolver{
		"ax_ingroup": func(args []interface{}) (interface{}, error) {
			bs, err := lookup(args)
			if err != nil {
				return nil, err
			}
			return bs.Test(point), nil
		},
		"ax_addtogroup": func(args []interface{}) (interface{}, error) {
			bs, err := lookup(args)
			if err != nil {
				return nil, err
			}
			changed := !bs.Test(point)
			bs.Set(point, true)
			return changed, nil
		},
		"ax_removefromgroup": func(args []interface{}) (interface{}, error) {
			bs, err := lookup(args)
			if err != nil {
				return nil, err
			}
			changed := bs.Test(point)
			bs.Set(point, false)
			return changed, nil
		},
	}
}
