package geost

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestSplit3Combine3(t *testing.T) {
	values := []uint64{0, 1, 2, 0x155555, 0x0aaaaa, 0x1fffff}
	for _, v := range values {
		if got := combine3(split3(v)); got != v {
			t.Errorf("combine3(split3(%#x)) = %#x, want %#x", v, got, v)
		}
	}

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		v := rng.Uint64() & 0x1fffff
		if got := combine3(split3(v)); got != v {
			t.Fatalf("combine3(split3(%#x)) = %#x", v, got)
		}
	}
}

func TestZ3EncodeDecode(t *testing.T) {
	z := NewZ3()

	tests := []struct {
		name string
		x, y float64
		t    int64
	}{
		{"origin at period start", 0, 0, 0},
		{"corner", -180, -90, 0},
		{"period end", 180, 90, PeriodSeconds},
		{"midweek", -0.12, 51.5, 3 * 24 * 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := z.Encode(tt.x, tt.y, tt.t)
			if idx>>63 != 0 {
				t.Fatalf("index uses more than 63 bits: %#x", idx)
			}
			gx, gy, gt := z.Decode(idx)
			if dx := gx - tt.x; dx > z.X.BinWidth() || dx < -z.X.BinWidth() {
				t.Errorf("x drifted: got %v, want %v", gx, tt.x)
			}
			if dy := gy - tt.y; dy > z.Y.BinWidth() || dy < -z.Y.BinWidth() {
				t.Errorf("y drifted: got %v, want %v", gy, tt.y)
			}
			if dt := float64(gt - tt.t); dt > z.T.BinWidth() || dt < -z.T.BinWidth() {
				t.Errorf("t drifted: got %v, want %v", gt, tt.t)
			}
		})
	}
}

func TestZ3RangesCoverPoints(t *testing.T) {
	z := NewZ3()
	box := Box{MinX: -5, MinY: -5, MaxX: 5, MaxY: 5}
	t0, t1 := int64(3600), int64(7200)

	ranges := z.Ranges(box, t0, t1, DefaultMaxRanges)
	if len(ranges) == 0 {
		t.Fatal("no ranges")
	}
	if len(ranges) > DefaultMaxRanges {
		t.Fatalf("got %d ranges, budget is %d", len(ranges), DefaultMaxRanges)
	}

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		x := box.MinX + rng.Float64()*(box.MaxX-box.MinX)
		y := box.MinY + rng.Float64()*(box.MaxY-box.MinY)
		ts := t0 + rng.Int63n(t1-t0+1)
		if !rangesContain(ranges, z.Encode(x, y, ts)) {
			t.Fatalf("point (%v, %v, %d) not covered", x, y, ts)
		}
	}
}

func TestZ3RangesExcludeTime(t *testing.T) {
	// a point far outside the time window must not match an exact range
	z := NewZ3()
	box := Box{MinX: -5, MinY: -5, MaxX: 5, MaxY: 5}
	ranges := z.Ranges(box, 0, 3600, DefaultMaxRanges)

	idx := z.Encode(0, 0, PeriodSeconds-1)
	for _, r := range ranges {
		if r.Contains && idx >= r.Lower && idx <= r.Upper {
			t.Fatalf("out-of-window point sits in exact range [%#x, %#x]", r.Lower, r.Upper)
		}
	}
}

func TestZ3RangesDeterministic(t *testing.T) {
	z := NewZ3()
	box := Box{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}
	a := z.Ranges(box, 0, PeriodSeconds, 150)
	b := z.Ranges(box, 0, PeriodSeconds, 150)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different range lists")
	}
}

func TestZ3RangesEdgeCases(t *testing.T) {
	z := NewZ3()

	t.Run("inverted interval", func(t *testing.T) {
		if got := z.Ranges(Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, 100, 50, 100); got != nil {
			t.Errorf("inverted interval returned %d ranges", len(got))
		}
	})

	t.Run("inverted box", func(t *testing.T) {
		if got := z.Ranges(Box{MinX: 1, MinY: 0, MaxX: 0, MaxY: 1}, 0, 100, 100); got != nil {
			t.Errorf("inverted box returned %d ranges", len(got))
		}
	})

	t.Run("instant interval", func(t *testing.T) {
		ranges := z.Ranges(Box{MinX: 0, MinY: 0, MaxX: 0, MaxY: 0}, 500, 500, 100)
		if len(ranges) == 0 {
			t.Fatal("instant interval returned no ranges")
		}
		if !rangesContain(ranges, z.Encode(0, 0, 500)) {
			t.Error("instant interval ranges miss the point itself")
		}
	})
}

func BenchmarkZ3Ranges(b *testing.B) {
	z := NewZ3()
	box := Box{MinX: -5, MinY: -5, MaxX: 5, MaxY: 5}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		z.Ranges(box, 0, 24*3600, DefaultMaxRanges)
	}
}
