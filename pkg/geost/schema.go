package geost

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// Box is an axis-aligned bounding box in longitude/latitude space. A point is
// a box whose corners coincide.
type Box struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// WholeWorld is the full longitude/latitude domain.
func WholeWorld() Box {
	return Box{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
}

// IsPoint reports a degenerate box.
func (b Box) IsPoint() bool {
	return b.MinX == b.MaxX && b.MinY == b.MaxY
}

// Intersects reports whether two boxes share any point, boundaries included.
func (b Box) Intersects(o Box) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Intersection returns the overlap of two boxes. Disjoint boxes yield an
// inverted box, which every range decomposition treats as empty.
func (b Box) Intersection(o Box) Box {
	out := b
	if o.MinX > out.MinX {
		out.MinX = o.MinX
	}
	if o.MinY > out.MinY {
		out.MinY = o.MinY
	}
	if o.MaxX < out.MaxX {
		out.MaxX = o.MaxX
	}
	if o.MaxY < out.MaxY {
		out.MaxY = o.MaxY
	}
	return out
}

// Cardinality is a hint about an indexed attribute's value spread, used by
// the cost model to rank attribute scans.
type Cardinality int

const (
	CardinalityUnknown Cardinality = iota
	CardinalityLow
	CardinalityHigh
)

// Attribute describes one feature attribute.
type Attribute struct {
	Name        string      `json:"name"`
	Indexed     bool        `json:"indexed,omitempty"`
	Cardinality Cardinality `json:"cardinality,omitempty"`
}

// Schema is the immutable per-feature-type metadata the planner consumes:
// which curve indexes apply and which attributes are indexed. Construct once
// and share freely; the planner never mutates it.
type Schema struct {
	Name string `json:"name"`

	// Points marks geometries as points, indexed exactly on Z2/Z3. When
	// false, extents are indexed on the coarse XZ2 curve instead.
	Points bool `json:"points"`

	// HasTime marks features as carrying a timestamp, enabling the Z3
	// strategy for bounded time predicates.
	HasTime bool `json:"has_time"`

	// LooseBBox skips re-checking curve primaries against scan results,
	// trading precision for speed. Honored for point schemas only; extent
	// results are always re-filtered.
	LooseBBox bool `json:"loose_bbox,omitempty"`

	Attributes []Attribute `json:"attributes,omitempty"`
}

// Attribute looks up an attribute by name.
func (s *Schema) Attribute(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// ID is a stable hash of the schema layout, used as a cache key and to detect
// schema drift against a stored copy.
func (s *Schema) ID() uint64 {
	h := xxhash.New()
	h.WriteString(s.Name)
	if s.Points {
		h.WriteString("|points")
	}
	if s.HasTime {
		h.WriteString("|time")
	}
	for _, a := range s.Attributes {
		h.WriteString("|")
		h.WriteString(a.Name)
		if a.Indexed {
			h.WriteString("+")
		}
	}
	return h.Sum64()
}

// Feature is one record: id, geometry bounds, optional timestamp and
// attribute values.
type Feature struct {
	ID     string            `json:"id"`
	Bounds Box               `json:"bounds"`
	Time   time.Time         `json:"time,omitzero"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}
