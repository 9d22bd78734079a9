package geost

import (
	"bytes"
	"testing"
	"time"
)

func planFor(t *testing.T, p *Planner, input string) ScanPlan {
	t.Helper()
	pred, err := ParsePredicate(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	plans, err := p.PlanQuery(pred)
	if err != nil {
		t.Fatalf("plan %q: %v", input, err)
	}
	if len(plans) == 0 {
		t.Fatalf("no plans for %q", input)
	}
	sp, err := p.BuildScanPlan(plans[0].Filters[0])
	if err != nil {
		t.Fatalf("build %q: %v", input, err)
	}
	return sp
}

func TestBuildScanPlanZ3(t *testing.T) {
	p := NewPlanner(testSchema(), PlannerOptions{})
	sp := planFor(t, p, "BBOX(0,0,10,10) AND DURING('2024-01-01T00:00:00Z','2024-01-03T00:00:00Z')")

	if len(sp.Ranges) == 0 {
		t.Fatal("no ranges")
	}
	if sp.MayHaveDuplicates {
		t.Error("single-week interval should not risk duplicates")
	}
	for i, r := range sp.Ranges {
		if r.Start[0] != PrefixZ3 {
			t.Fatalf("range %d starts with prefix %c, want z", i, r.Start[0])
		}
		if r.End == nil || bytes.Compare(r.Start, r.End) >= 0 {
			t.Fatalf("range %d not ascending", i)
		}
	}
	if sp.Residual == nil {
		t.Error("curve scans must keep the query as residual")
	}
}

func TestBuildScanPlanZ3MultiWeek(t *testing.T) {
	p := NewPlanner(testSchema(), PlannerOptions{})
	sp := planFor(t, p, "BBOX(0,0,10,10) AND DURING('2024-01-01T00:00:00Z','2024-02-01T00:00:00Z')")

	if !sp.MayHaveDuplicates {
		t.Error("multi-week interval must flag possible duplicates")
	}
	if len(sp.Ranges) == 0 {
		t.Fatal("no ranges")
	}

	// the row of a matching feature falls inside some range
	ts := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	z := p.z3.Encode(5, 5, secondsWithin(ts))
	key := make([]byte, Z3HeaderSize+len("id1"))
	EncodeZ3Key(key, PeriodOf(ts), z, "id1")
	if !byteRangesContain(sp.Ranges, key) {
		t.Error("matching feature's row key not covered")
	}
}

func TestBuildScanPlanZ3DisjointIntervals(t *testing.T) {
	// two bounded intervals that never overlap intersect to an inverted
	// interval, which must scan nothing rather than error
	p := NewPlanner(testSchema(), PlannerOptions{})
	sp := planFor(t, p, "BBOX(0,0,10,10)"+
		" AND DURING('2024-01-01T00:00:00Z','2024-01-02T00:00:00Z')"+
		" AND DURING('2024-03-01T00:00:00Z','2024-03-02T00:00:00Z')")

	if len(sp.Ranges) != 0 {
		t.Errorf("got %d ranges for disjoint intervals, want none", len(sp.Ranges))
	}
}

func TestBuildScanPlanZ2(t *testing.T) {
	schema := testSchema()
	schema.HasTime = false
	p := NewPlanner(schema, PlannerOptions{})
	sp := planFor(t, p, "BBOX(-10,-10,10,10)")

	if len(sp.Ranges) == 0 {
		t.Fatal("no ranges")
	}
	for _, r := range sp.Ranges {
		if r.Start[0] != PrefixZ2 {
			t.Fatalf("prefix %c, want g", r.Start[0])
		}
	}

	key := make([]byte, Z2HeaderSize+3)
	EncodeCurveKey(key, PrefixZ2, p.z2.Encode(3, -3), "abc")
	if !byteRangesContain(sp.Ranges, key) {
		t.Error("matching point's row key not covered")
	}
}

func TestBuildScanPlanXZ2(t *testing.T) {
	schema := testSchema()
	schema.Points = false
	schema.HasTime = false
	p := NewPlanner(schema, PlannerOptions{})
	sp := planFor(t, p, "BBOX(-10,-10,10,10)")

	if !sp.MayHaveDuplicates {
		t.Error("extent scans must flag possible duplicates")
	}
	for _, r := range sp.Ranges {
		if r.Start[0] != PrefixXZ2 {
			t.Fatalf("prefix %c, want x", r.Start[0])
		}
	}

	stored := Box{MinX: -2, MinY: -2, MaxX: 25, MaxY: 3}
	key := make([]byte, Z2HeaderSize+2)
	EncodeCurveKey(key, PrefixXZ2, p.xz2.Encode(stored), "e1")
	if !byteRangesContain(sp.Ranges, key) {
		t.Error("intersecting extent's row key not covered")
	}
}

func TestBuildScanPlanAttributeEquality(t *testing.T) {
	p := NewPlanner(testSchema(), PlannerOptions{})
	sp := planFor(t, p, "name = 'bob'")

	if len(sp.Ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(sp.Ranges))
	}
	r := sp.Ranges[0]
	if !r.Contains {
		t.Error("equality range is exact")
	}
	if !byteRangesContain(sp.Ranges, EncodeAttrKey("name", "bob", "some-id")) {
		t.Error("the value's own row is not covered")
	}
	if byteRangesContain(sp.Ranges, EncodeAttrKey("name", "bobby", "some-id")) {
		t.Error("a longer value leaked into the equality range")
	}
	if byteRangesContain(sp.Ranges, EncodeAttrKey("flag", "bob", "some-id")) {
		t.Error("another attribute leaked into the range")
	}
}

func TestBuildScanPlanAttributeRange(t *testing.T) {
	p := NewPlanner(testSchema(), PlannerOptions{})

	t.Run("bounded", func(t *testing.T) {
		sp := planFor(t, p, "name >= 'b' AND name <= 'd'")
		if len(sp.Ranges) != 1 {
			t.Fatalf("got %d ranges, want 1", len(sp.Ranges))
		}
		if !byteRangesContain(sp.Ranges, EncodeAttrKey("name", "carol", "x")) {
			t.Error("in-range value not covered")
		}
		if byteRangesContain(sp.Ranges, EncodeAttrKey("name", "al", "x")) {
			t.Error("below-range value covered")
		}
		if byteRangesContain(sp.Ranges, EncodeAttrKey("name", "ed", "x")) {
			t.Error("above-range value covered")
		}
	})

	t.Run("exclusive bound kept as residual", func(t *testing.T) {
		sp := planFor(t, p, "name > 'b'")
		if sp.Residual == nil {
			t.Fatal("exclusive bound needs a residual recheck")
		}
		boundary := &Feature{ID: "x", Attrs: map[string]string{"name": "b"}}
		if sp.Residual.Matches(boundary) {
			t.Error("residual admits the excluded boundary value")
		}
	})

	t.Run("conflicting bounds scan nothing", func(t *testing.T) {
		sp := planFor(t, p, "name > 'x' AND name < 'a'")
		if len(sp.Ranges) != 0 {
			t.Errorf("got %d ranges for contradictory bounds, want none", len(sp.Ranges))
		}
	})
}

func TestBuildScanPlanID(t *testing.T) {
	p := NewPlanner(testSchema(), PlannerOptions{})
	sp := planFor(t, p, "IN('alpha','beta')")

	if len(sp.Ranges) != 2 {
		t.Fatalf("got %d ranges, want one per id", len(sp.Ranges))
	}
	if !byteRangesContain(sp.Ranges, EncodeIDKey("alpha")) {
		t.Error("id row not covered")
	}
	if byteRangesContain(sp.Ranges, EncodeIDKey("alphabet")) {
		t.Error("id prefix bleeds into another id")
	}
}

func TestBuildScanPlanFullScan(t *testing.T) {
	p := NewPlanner(testSchema(), PlannerOptions{})
	sp := planFor(t, p, "note = 'x'")

	if len(sp.Ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(sp.Ranges))
	}
	r := sp.Ranges[0]
	if r.Start[0] != PrefixZ3 {
		t.Errorf("full scan starts at prefix %c, want the z3 data table", r.Start[0])
	}
	if sp.Residual == nil {
		t.Error("full scan must carry the filter as residual")
	}
}

func TestBuildScanPlanLooseBBox(t *testing.T) {
	schema := testSchema()
	schema.HasTime = false
	schema.LooseBBox = true
	p := NewPlanner(schema, PlannerOptions{})
	sp := planFor(t, p, "BBOX(0,0,10,10)")

	if sp.Residual != nil {
		t.Errorf("loose bbox should skip the spatial recheck, got %s", sp.Residual)
	}
}

func TestKeySuccessor(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"simple", []byte{'a', 0x01}, []byte{'a', 0x02}},
		{"carry", []byte{'a', 0xff}, []byte{'b'}},
		{"all max", []byte{0xff, 0xff}, nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeySuccessor(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("KeySuccessor(%x) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func byteRangesContain(ranges []ByteRange, key []byte) bool {
	for _, r := range ranges {
		if bytes.Compare(key, r.Start) >= 0 && (r.End == nil || bytes.Compare(key, r.End) < 0) {
			return true
		}
	}
	return false
}
