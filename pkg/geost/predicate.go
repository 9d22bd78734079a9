package geost

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Predicate is a node of a boolean filter over features. The set of
// implementations is closed; the planner classifies every leaf by type.
type Predicate interface {
	predicate()

	// Matches reports whether a feature satisfies the predicate.
	Matches(f *Feature) bool

	// String renders a canonical form, stable across equal predicates.
	String() string
}

// And matches when every child matches.
type And struct{ Children []Predicate }

// Or matches when any child matches.
type Or struct{ Children []Predicate }

// Not matches when the child does not.
type Not struct{ Child Predicate }

// BBox matches features whose bounds intersect the box.
type BBox struct{ Box Box }

// During matches features whose timestamp falls inside [Start, End],
// boundaries included. A zero endpoint leaves that side unbounded.
type During struct {
	Start time.Time
	End   time.Time
}

// Equals matches an exact attribute value.
type Equals struct {
	Name  string
	Value string
}

// Range matches an attribute against string-ordered bounds. An empty bound
// is open; IncLo and IncHi control boundary inclusion.
type Range struct {
	Name  string
	Lo    string
	Hi    string
	IncLo bool
	IncHi bool
}

// IDIn matches features whose id is in the set. IDs are kept sorted and
// unique; build values with NewIDIn.
type IDIn struct{ IDs []string }

// All matches every feature.
type All struct{}

// None matches nothing.
type None struct{}

func (And) predicate()    {}
func (Or) predicate()     {}
func (Not) predicate()    {}
func (BBox) predicate()   {}
func (During) predicate() {}
func (Equals) predicate() {}
func (Range) predicate()  {}
func (IDIn) predicate()   {}
func (All) predicate()    {}
func (None) predicate()   {}

// NewIDIn builds an id-set predicate with sorted, deduplicated ids.
func NewIDIn(ids ...string) IDIn {
	out := make([]string, 0, len(ids))
	out = append(out, ids...)
	sort.Strings(out)
	dedup := out[:0]
	for i, id := range out {
		if i > 0 && id == out[i-1] {
			continue
		}
		dedup = append(dedup, id)
	}
	return IDIn{IDs: dedup}
}

// NewAnd builds a conjunction: zero children collapse to All, one child
// unwraps.
func NewAnd(children ...Predicate) Predicate {
	switch len(children) {
	case 0:
		return All{}
	case 1:
		return children[0]
	}
	return And{Children: children}
}

// NewOr builds a disjunction: zero children collapse to None, one child
// unwraps.
func NewOr(children ...Predicate) Predicate {
	switch len(children) {
	case 0:
		return None{}
	case 1:
		return children[0]
	}
	return Or{Children: children}
}

func (v And) Matches(f *Feature) bool {
	for _, c := range v.Children {
		if !c.Matches(f) {
			return false
		}
	}
	return true
}

func (v Or) Matches(f *Feature) bool {
	for _, c := range v.Children {
		if c.Matches(f) {
			return true
		}
	}
	return false
}

func (v Not) Matches(f *Feature) bool {
	return !v.Child.Matches(f)
}

func (v BBox) Matches(f *Feature) bool {
	return v.Box.Intersects(f.Bounds)
}

func (v During) Matches(f *Feature) bool {
	if f.Time.IsZero() {
		return false
	}
	if !v.Start.IsZero() && f.Time.Before(v.Start) {
		return false
	}
	if !v.End.IsZero() && f.Time.After(v.End) {
		return false
	}
	return true
}

func (v Equals) Matches(f *Feature) bool {
	got, ok := f.Attrs[v.Name]
	return ok && got == v.Value
}

func (v Range) Matches(f *Feature) bool {
	got, ok := f.Attrs[v.Name]
	if !ok {
		return false
	}
	if v.Lo != "" {
		if v.IncLo {
			if got < v.Lo {
				return false
			}
		} else if got <= v.Lo {
			return false
		}
	}
	if v.Hi != "" {
		if v.IncHi {
			if got > v.Hi {
				return false
			}
		} else if got >= v.Hi {
			return false
		}
	}
	return true
}

func (v IDIn) Matches(f *Feature) bool {
	i := sort.SearchStrings(v.IDs, f.ID)
	return i < len(v.IDs) && v.IDs[i] == f.ID
}

func (All) Matches(f *Feature) bool  { return true }
func (None) Matches(f *Feature) bool { return false }

func (v And) String() string { return "(" + joinPredicates(v.Children, " AND ") + ")" }
func (v Or) String() string  { return "(" + joinPredicates(v.Children, " OR ") + ")" }
func (v Not) String() string { return "NOT " + v.Child.String() }

func (v BBox) String() string {
	return fmt.Sprintf("BBOX(%g,%g,%g,%g)", v.Box.MinX, v.Box.MinY, v.Box.MaxX, v.Box.MaxY)
}

func (v During) String() string {
	return fmt.Sprintf("DURING(%s,%s)", formatBound(v.Start), formatBound(v.End))
}

func (v Equals) String() string {
	return fmt.Sprintf("%s = '%s'", v.Name, v.Value)
}

func (v Range) String() string {
	lo, hi := "*", "*"
	if v.Lo != "" {
		lo = "'" + v.Lo + "'"
	}
	if v.Hi != "" {
		hi = "'" + v.Hi + "'"
	}
	open, closing := "(", ")"
	if v.IncLo {
		open = "["
	}
	if v.IncHi {
		closing = "]"
	}
	return fmt.Sprintf("%s IN %s%s,%s%s", v.Name, open, lo, hi, closing)
}

func (v IDIn) String() string {
	quoted := make([]string, len(v.IDs))
	for i, id := range v.IDs {
		quoted[i] = "'" + id + "'"
	}
	return "IN(" + strings.Join(quoted, ",") + ")"
}

func (All) String() string  { return "INCLUDE" }
func (None) String() string { return "EXCLUDE" }

// coversWorld reports a bbox that covers the whole coordinate domain and
// therefore cannot narrow any scan.
func (v BBox) coversWorld() bool {
	w := WholeWorld()
	return v.Box.MinX <= w.MinX && v.Box.MinY <= w.MinY &&
		v.Box.MaxX >= w.MaxX && v.Box.MaxY >= w.MaxY
}

// bounded reports an interval with both endpoints set.
func (v During) bounded() bool {
	return !v.Start.IsZero() && !v.End.IsZero()
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}

func joinPredicates(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, sep)
}

// conj folds leaves into a single conjunction, or nil when there are none.
// Used to build secondary filters, where nil means "nothing left to check".
func conj(ps []Predicate) Predicate {
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	}
	return And{Children: ps}
}

// predicateKey returns a canonical grouping key for a predicate list.
func predicateKey(ps []Predicate) string {
	return joinPredicates(ps, " AND ")
}
