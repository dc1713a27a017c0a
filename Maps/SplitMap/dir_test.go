package SplitMap

import (
	"sync"
	"testing"
)

func TestDir_Locate(t *testing.T) {
	d := dir{base: 4}
	cases := [][3]uint{
		{0, 0, 0}, {3, 0, 3},
		{4, 1, 0}, {7, 1, 3},
		{8, 2, 0}, {15, 2, 7},
		{16, 3, 0}, {31, 3, 15},
		{32, 4, 0},
	}
	for _, c := range cases {
		if s, off := d.locate(c[0]); s != c[1] || off != c[2] {
			t.Errorf("locate(%d): got (%d,%d), expected (%d,%d)", c[0], s, off, c[1], c[2])
		}
	}
}

func TestDir_UninitializedReads(t *testing.T) {
	d := dir{base: 4}
	for _, i := range []uint{0, 3, 4, 100, 1 << 20} {
		if d.get(i) != nil {
			t.Fatal("phantom sentinel at", i)
		}
	}
	for s := range d.segs {
		if d.segs[s].Load() != nil {
			t.Fatal("get allocated segment", s)
		}
	}
}

func TestDir_WireOnce(t *testing.T) {
	d := dir{base: 4}
	a, b := &node{order: 2}, &node{order: 4}
	if !d.tryWire(9, a) {
		t.Fatal("first wire failed")
	}
	if d.tryWire(9, b) {
		t.Fatal("second wire succeeded")
	}
	if d.get(9) != a {
		t.Fatal("entry overwritten")
	}
	if d.get(8) != nil || d.get(10) != nil {
		t.Fatal("neighbors set")
	}
}

func TestDir_GrowRace(t *testing.T) {
	d := dir{base: 4}
	const thrds = 8
	segs := make([]*segment, thrds)
	wg := sync.WaitGroup{}
	wg.Add(thrds)
	for i := 0; i < thrds; i++ {
		go func(i int) {
			segs[i] = d.grow(21)
			wg.Done()
		}(i)
	}
	wg.Wait()
	for i := 1; i < thrds; i++ {
		if segs[i] != segs[0] {
			t.Fatal("racing growers observed different segments")
		}
	}
	if len(*segs[0]) != 16 {
		t.Fatal("segment size:", len(*segs[0]))
	}
}
