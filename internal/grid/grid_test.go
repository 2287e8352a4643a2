package grid

import "testing"

func TestBitsetSetTestAcrossWordBoundary(t *testing.T) {
	b := NewBitset(130)
	b.Set(0, true)
	b.Set(63, true)
	b.Set(64, true)
	b.Set(129, true)

	for _, i := range []int{0, 63, 64, 129} {
		if !b.Test(i) {
			t.Errorf("bit %d: got false, want true", i)
		}
	}
	if b.PopCount() != 4 {
		t.Errorf("PopCount: got=%d, want=4", b.PopCount())
	}

	b.Set(64, false)
	if b.Test(64) {
		t.Error("bit 64: expected clear after Set(64, false)")
	}
	if b.PopCount() != 3 {
		t.Errorf("PopCount after clear: got=%d, want=3", b.PopCount())
	}
}

func TestLocalIndexRoundTrip(t *testing.T) {
	seen := make(map[int]bool)
	for z := 0; z < LeafDim; z++ {
		for y := 0; y < LeafDim; y++ {
			for x := 0; x < LeafDim; x++ {
				idx := LocalIndex(x, y, z)
				if idx < 0 || idx >= LeafVoxels {
					t.Fatalf("LocalIndex(%d,%d,%d)=%d out of range", x, y, z, idx)
				}
				if seen[idx] {
					t.Fatalf("LocalIndex(%d,%d,%d)=%d collides with an earlier coordinate", x, y, z, idx)
				}
				seen[idx] = true
			}
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := &Transform{VoxelSize: 0.5, Origin: [3]float32{1, 2, 3}}
	world := tr.VoxelToWorld([3]float32{2, 4, 6})
	back := tr.WorldToVoxel(world)
	want := [3]float32{2, 4, 6}
	for i := range want {
		if back[i] != want[i] {
			t.Errorf("axis %d: got=%v, want=%v", i, back[i], want[i])
		}
	}
}

func TestLeafAddAttributeIsIdempotent(t *testing.T) {
	l := NewLeaf(Coord{0, 0, 0})
	l.AddAttribute("density", float32(0))
	l.Attrs["density"][5] = float32(1.5)
	l.AddAttribute("density", float32(0))
	if l.Attrs["density"][5].(float32) != 1.5 {
		t.Error("AddAttribute clobbered existing data on a second call")
	}
	if len(l.Attrs["density"]) != LeafVoxels {
		t.Errorf("buffer length: got=%d, want=%d", len(l.Attrs["density"]), LeafVoxels)
	}
}

func TestPointLeafAddGroupIsIdempotent(t *testing.T) {
	l := NewPointLeaf(Coord{0, 0, 0}, 10)
	l.AddGroup("solid")
	l.Groups["solid"].Set(3, true)
	l.AddGroup("solid")
	if !l.Groups["solid"].Test(3) {
		t.Error("AddGroup clobbered existing membership on a second call")
	}
}
