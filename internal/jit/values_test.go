package jit

import "testing"

func TestSliceCellOffset(t *testing.T) {
	buf := []rtVal{int64(10), int64(20), int64(30)}
	c := NewSliceCell(buf, 0)
	if c.Get().(int64) != 10 {
		t.Fatalf("got=%v, want=10", c.Get())
	}
	c2 := c.Offset(2)
	if c2.Get().(int64) != 30 {
		t.Fatalf("offset(2): got=%v, want=30", c2.Get())
	}
	c2.Set(int64(99))
	if buf[2].(int64) != 99 {
		t.Fatalf("Set through offset cell did not reach backing buffer, buf=%v", buf)
	}
}

func TestBoxCellHasNoNeighbours(t *testing.T) {
	c := NewBoxCell(int64(5))
	if c.Offset(1) != nil {
		t.Errorf("boxCell.Offset should be nil, got %v", c.Offset(1))
	}
	c.Set(int64(6))
	if c.Get().(int64) != 6 {
		t.Errorf("got=%v, want=6", c.Get())
	}
}

func TestArrayElemCell(t *testing.T) {
	base := NewBoxCell([]rtVal{float32(1), float32(2), float32(3)})
	elem := arrayElemCell(base, 1)
	if elem.Get().(float32) != 2 {
		t.Fatalf("got=%v, want=2", elem.Get())
	}
	elem.Set(float32(42))
	if base.Get().([]rtVal)[1].(float32) != 42 {
		t.Errorf("Set did not reach the backing array, array=%v", base.Get())
	}
	if elem.Offset(1) != nil {
		t.Errorf("arrayElem.Offset should be nil, got %v", elem.Offset(1))
	}
}
