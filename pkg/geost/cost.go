package geost

import (
	"math"
	"sort"
)

// Static strategy ranks, lower is preferred. Z3 outranks Z2 because the time
// dimension narrows the scan further; a Z3 filter without a spatial leaf
// ranks just behind one that has both.
const (
	costID               int64 = 1
	costAttributeHigh    int64 = 1
	costZ3Spatial        int64 = 200
	costAttributeLow     int64 = 250
	costZ2               int64 = 400
	costZ3TemporalOnly   int64 = 401
	costAttributeUnknown int64 = 999
	costFullScan         int64 = 1 << 31
)

// StatsProvider estimates how many rows a primary predicate selects.
// Implementations are optional; the cost model falls back to static ranks
// when no estimate is available.
type StatsProvider interface {
	EstimateCount(schema *Schema, primary []Predicate) (uint64, bool)
}

// CostModel ranks candidate plans. The zero value uses static strategy
// ranks; setting Stats refines them with estimated cardinalities.
type CostModel struct {
	Stats StatsProvider
}

// FilterCost returns the cost of executing one query filter. An available
// cardinality estimate takes precedence over the static rank.
func (m CostModel) FilterCost(schema *Schema, qf QueryFilter) int64 {
	if m.Stats != nil {
		if n, ok := m.Stats.EstimateCount(schema, qf.Primary); ok {
			if n > math.MaxInt64 {
				return math.MaxInt64
			}
			return int64(n)
		}
	}

	switch qf.Strategy {
	case StrategyID:
		return costID
	case StrategyAttribute:
		attr, ok := schema.Attribute(qf.Attribute)
		if !ok {
			return costAttributeUnknown
		}
		switch attr.Cardinality {
		case CardinalityHigh:
			return costAttributeHigh
		case CardinalityLow:
			return costAttributeLow
		default:
			return costAttributeUnknown
		}
	case StrategyZ3:
		if hasSpatial(qf.Primary) {
			return costZ3Spatial
		}
		return costZ3TemporalOnly
	case StrategyZ2:
		return costZ2
	}
	return costFullScan
}

// PlanCost is the sum of the plan's filter costs.
func (m CostModel) PlanCost(schema *Schema, plan FilterPlan) int64 {
	var total int64
	for _, qf := range plan.Filters {
		total += m.FilterCost(schema, qf)
	}
	return total
}

// Rank sorts plans cheapest-first. The sort is stable so equally priced
// plans keep their enumeration order.
func (m CostModel) Rank(schema *Schema, plans []FilterPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		return m.PlanCost(schema, plans[i]) < m.PlanCost(schema, plans[j])
	})
}

func hasSpatial(primary []Predicate) bool {
	for _, p := range primary {
		if _, ok := p.(BBox); ok {
			return true
		}
	}
	return false
}
