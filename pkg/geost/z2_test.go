package geost

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestSplit2Combine2(t *testing.T) {
	values := []uint64{0, 1, 2, 0x55555555, 0x2aaaaaaa, 0x7fffffff}
	for _, v := range values {
		if got := combine2(split2(v)); got != v {
			t.Errorf("combine2(split2(%#x)) = %#x, want %#x", v, got, v)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := rng.Uint64() & 0x7fffffff
		if got := combine2(split2(v)); got != v {
			t.Fatalf("combine2(split2(%#x)) = %#x", v, got)
		}
	}
}

func TestZ2EncodeDecode(t *testing.T) {
	z := NewZ2()

	tests := []struct {
		name string
		x, y float64
	}{
		{"origin", 0, 0},
		{"corner min", -180, -90},
		{"corner max", 180, 90},
		{"typical", -122.42, 37.77},
		{"antimeridian", 179.999, -45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := z.Encode(tt.x, tt.y)
			gx, gy := z.Decode(idx)
			if dx := gx - tt.x; dx > z.X.BinWidth() || dx < -z.X.BinWidth() {
				t.Errorf("x drifted: got %v, want %v", gx, tt.x)
			}
			if dy := gy - tt.y; dy > z.Y.BinWidth() || dy < -z.Y.BinWidth() {
				t.Errorf("y drifted: got %v, want %v", gy, tt.y)
			}
		})
	}
}

func TestZ2EncodeLocality(t *testing.T) {
	// nearby points share high index bits; identical points share the index
	z := NewZ2()
	a := z.Encode(10, 10)
	b := z.Encode(10, 10)
	if a != b {
		t.Errorf("equal points got different indexes: %#x vs %#x", a, b)
	}
	if a>>62 != 0 {
		t.Errorf("index uses more than 62 bits: %#x", a)
	}
}

func TestZ2RangesCoverPoints(t *testing.T) {
	z := NewZ2()
	box := Box{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}
	ranges := z.Ranges(box, DefaultMaxRanges)
	if len(ranges) == 0 {
		t.Fatal("no ranges for a plain box")
	}
	if len(ranges) > DefaultMaxRanges {
		t.Fatalf("got %d ranges, budget is %d", len(ranges), DefaultMaxRanges)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		x := box.MinX + rng.Float64()*(box.MaxX-box.MinX)
		y := box.MinY + rng.Float64()*(box.MaxY-box.MinY)
		idx := z.Encode(x, y)
		if !rangesContain(ranges, idx) {
			t.Fatalf("point (%v, %v) index %#x not covered", x, y, idx)
		}
	}
}

func TestZ2RangesSortedAndDisjoint(t *testing.T) {
	z := NewZ2()
	ranges := z.Ranges(Box{MinX: -77, MinY: 38, MaxX: -76, MaxY: 39}, 50)

	for i, r := range ranges {
		if r.Lower > r.Upper {
			t.Errorf("range %d inverted: [%#x, %#x]", i, r.Lower, r.Upper)
		}
		if i > 0 && r.Lower <= ranges[i-1].Upper {
			t.Errorf("range %d overlaps or touches previous", i)
		}
	}
}

func TestZ2RangesDeterministic(t *testing.T) {
	z := NewZ2()
	box := Box{MinX: 0, MinY: 0, MaxX: 30, MaxY: 20}
	a := z.Ranges(box, 100)
	b := z.Ranges(box, 100)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different range lists")
	}
}

func TestZ2RangesBudget(t *testing.T) {
	z := NewZ2()
	box := Box{MinX: -170, MinY: -80, MaxX: 170, MaxY: 80}

	for _, budget := range []int{4, 10, 50, 200} {
		ranges := z.Ranges(box, budget)
		if len(ranges) > budget {
			t.Errorf("budget %d: got %d ranges", budget, len(ranges))
		}
		if len(ranges) == 0 {
			t.Errorf("budget %d: no ranges at all", budget)
		}
	}
}

func TestZ2RangesTightBudgetStillCovers(t *testing.T) {
	z := NewZ2()
	box := Box{MinX: -45, MinY: -45, MaxX: 45, MaxY: 45}
	tight := z.Ranges(box, 4)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		x := box.MinX + rng.Float64()*(box.MaxX-box.MinX)
		y := box.MinY + rng.Float64()*(box.MaxY-box.MinY)
		if !rangesContain(tight, z.Encode(x, y)) {
			t.Fatalf("tight budget lost coverage of (%v, %v)", x, y)
		}
	}
}

func TestZ2RangesEdgeCases(t *testing.T) {
	z := NewZ2()

	t.Run("inverted box", func(t *testing.T) {
		if got := z.Ranges(Box{MinX: 10, MinY: 0, MaxX: -10, MaxY: 5}, 100); got != nil {
			t.Errorf("inverted box returned %d ranges, want none", len(got))
		}
	})

	t.Run("zero width box", func(t *testing.T) {
		ranges := z.Ranges(Box{MinX: 5, MinY: 5, MaxX: 5, MaxY: 5}, 100)
		if len(ranges) == 0 {
			t.Fatal("degenerate box returned no ranges")
		}
		if !rangesContain(ranges, z.Encode(5, 5)) {
			t.Error("degenerate box ranges miss the point itself")
		}
	})

	t.Run("whole world", func(t *testing.T) {
		ranges := z.Ranges(WholeWorld(), 100)
		if len(ranges) != 1 {
			t.Fatalf("whole world should collapse to a single range, got %d", len(ranges))
		}
		if !ranges[0].Contains {
			t.Error("whole-world range should be exact")
		}
	})
}

func rangesContain(ranges []IndexRange, idx uint64) bool {
	for _, r := range ranges {
		if idx >= r.Lower && idx <= r.Upper {
			return true
		}
	}
	return false
}

func BenchmarkZ2Encode(b *testing.B) {
	z := NewZ2()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		z.Encode(-122.42, 37.77)
	}
}

func BenchmarkZ2Ranges(b *testing.B) {
	z := NewZ2()
	box := Box{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		z.Ranges(box, DefaultMaxRanges)
	}
}
