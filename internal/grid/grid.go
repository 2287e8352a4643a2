// Package grid is the minimal in-memory stand-in for the "opaque grid
// provider" spec.md §1/§6 places out of scope: no real OpenVDB tree, just
// enough of a leaf/voxel-mask/point-count structure for
// internal/executable to walk and for SPEC_FULL.md §8's end-to-end test
// scenarios to exercise against. Every attribute/group is stored as a flat
// []interface{}, boxed the same way internal/jit's Cell values are, so a
// leaf's storage can be wrapped directly into the Cells a kernel call
// needs without a marshalling step in between.
package grid

// Coord is a leaf or voxel's integer grid coordinate.
type Coord = [3]int32

// LeafDim is the edge length of a leaf in voxels, per DESIGN.md's
// "8x8x8-voxel leaves".
const LeafDim = 8

// LeafVoxels is the number of voxels in one leaf (8^3).
const LeafVoxels = LeafDim * LeafDim * LeafDim

// LocalIndex returns the flat, row-major index of a voxel at local
// coordinate (x, y, z) within its leaf, each in [0, LeafDim).
func LocalIndex(x, y, z int) int {
	return z*LeafDim*LeafDim + y*LeafDim + x
}

// Bitset is a flat, word-packed boolean array — backing a volume leaf's
// active-voxel mask (spec.md §6's `active_mask`) and a point leaf's
// per-group membership flags.
type Bitset struct {
	words []uint64
	n     int
}

func NewBitset(n int) *Bitset {
	return &Bitset{words: make([]uint64, (n+63)/64), n: n}
}

func (b *Bitset) Len() int { return b.n }

func (b *Bitset) Test(i int) bool {
	return b.words[i/64]&(uint64(1)<<uint(i%64)) != 0
}

func (b *Bitset) Set(i int, v bool) {
	word, bit := i/64, uint(i%64)
	if v {
		b.words[word] |= uint64(1) << bit
	} else {
		b.words[word] &^= uint64(1) << bit
	}
}

// Words exposes the backing storage directly — the volume kernel ABI's
// `const uint64_t* active_mask` parameter addresses this buffer, not a
// single flag per call (spec.md §6).
func (b *Bitset) Words() []uint64 { return b.words }

// PopCount returns how many bits are set. The executable does not call
// it: its per-leaf loop tests every bit of the active-voxel mask.
func (b *Bitset) PopCount() int {
	n := 0
	for _, w := range b.words {
		for w != 0 {
			w &= w - 1
			n++
		}
	}
	return n
}

// Leaf is one volume-target leaf: a fixed 8x8x8 block of voxels, an
// active-voxel mask, and one flat, LeafVoxels-length array per attribute
// the compiled kernel references.
type Leaf struct {
	Origin Coord
	Mask   *Bitset
	Attrs  map[string][]interface{}
}

func NewLeaf(origin Coord) *Leaf {
	return &Leaf{Origin: origin, Mask: NewBitset(LeafVoxels), Attrs: make(map[string][]interface{})}
}

// AddAttribute allocates a LeafVoxels-length buffer for name, initialised
// to zero, if one does not already exist.
func (l *Leaf) AddAttribute(name string, zero interface{}) {
	if _, ok := l.Attrs[name]; ok {
		return
	}
	buf := make([]interface{}, LeafVoxels)
	for i := range buf {
		buf[i] = zero
	}
	l.Attrs[name] = buf
}

// Transform is the reference linear voxel<->world mapping: spec.md §4.5
// treats a grid's transform as an opaque handle the kernel only ever
// passes through to voxeltoworld/worldtovoxel, so this is deliberately the
// simplest transform that makes those two built-ins meaningful, not a
// stand-in for OpenVDB's general affine/frustum transform hierarchy.
type Transform struct {
	VoxelSize float32
	Origin    [3]float32
}

func (t *Transform) VoxelToWorld(v [3]float32) [3]float32 {
	return [3]float32{
		t.Origin[0] + v[0]*t.VoxelSize,
		t.Origin[1] + v[1]*t.VoxelSize,
		t.Origin[2] + v[2]*t.VoxelSize,
	}
}

func (t *Transform) WorldToVoxel(w [3]float32) [3]float32 {
	return [3]float32{
		(w[0] - t.Origin[0]) / t.VoxelSize,
		(w[1] - t.Origin[1]) / t.VoxelSize,
		(w[2] - t.Origin[2]) / t.VoxelSize,
	}
}

// VolumeGrid holds every leaf of a volume-target grid plus the opaque
// transform handle the kernel's `transform` parameter carries through to
// voxeltoworld/worldtovoxel (spec.md §4.5).
type VolumeGrid struct {
	Leaves    map[Coord]*Leaf
	Transform *Transform
}

func NewVolumeGrid(transform *Transform) *VolumeGrid {
	return &VolumeGrid{Leaves: make(map[Coord]*Leaf), Transform: transform}
}

func (g *VolumeGrid) Leaf(origin Coord) (*Leaf, bool) {
	l, ok := g.Leaves[origin]
	return l, ok
}

func (g *VolumeGrid) AddLeaf(l *Leaf) { g.Leaves[l.Origin] = l }

// PointLeaf is one point-target leaf: a count of points, one flat,
// Count-length array per attribute, one Count-length Bitset per group, and
// an opaque per-leaf blob (`leaf_data`, spec.md §6) new-string/new-group
// built-ins would accumulate into.
type PointLeaf struct {
	Origin   Coord
	Count    int
	Attrs    map[string][]interface{}
	Groups   map[string]*Bitset
	LeafData interface{}
}

func NewPointLeaf(origin Coord, count int) *PointLeaf {
	return &PointLeaf{
		Origin: origin,
		Count:  count,
		Attrs:  make(map[string][]interface{}),
		Groups: make(map[string]*Bitset),
	}
}

func (l *PointLeaf) AddAttribute(name string, zero interface{}) {
	if _, ok := l.Attrs[name]; ok {
		return
	}
	buf := make([]interface{}, l.Count)
	for i := range buf {
		buf[i] = zero
	}
	l.Attrs[name] = buf
}

func (l *PointLeaf) AddGroup(name string) {
	if _, ok := l.Groups[name]; ok {
		return
	}
	l.Groups[name] = NewBitset(l.Count)
}

// PointGrid holds every leaf of a point-target grid.
type PointGrid struct {
	Leaves map[Coord]*PointLeaf
}

func NewPointGrid() *PointGrid {
	return &PointGrid{Leaves: make(map[Coord]*PointLeaf)}
}

func (g *PointGrid) Leaf(origin Coord) (*PointLeaf, bool) {
	l, ok := g.Leaves[origin]
	return l, ok
}

func (g *PointGrid) AddLeaf(l *PointLeaf) { g.Leaves[l.Origin] = l }
