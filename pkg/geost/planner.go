package geost

// Planner turns predicate trees into ranked filter plans, and chosen filters
// into executable scan plans. A planner is immutable after construction and
// safe for unlimited concurrent use; one instance per schema is the intended
// lifecycle.
type Planner struct {
	schema    *Schema
	splitter  *Splitter
	cost      CostModel
	z2        Z2
	z3        Z3
	xz2       XZ2
	maxRanges int
}

// PlannerOptions configures a Planner.
type PlannerOptions struct {
	// Stats refines plan ranking with estimated cardinalities. Nil keeps the
	// static strategy ranks.
	Stats StatsProvider

	// MaxRanges caps the ranges one curve decomposition may emit. Zero means
	// DefaultMaxRanges.
	MaxRanges int
}

// NewPlanner creates a planner for a schema.
func NewPlanner(schema *Schema, opts PlannerOptions) *Planner {
	maxRanges := opts.MaxRanges
	if maxRanges <= 0 {
		maxRanges = DefaultMaxRanges
	}
	return &Planner{
		schema:    schema,
		splitter:  NewSplitter(schema),
		cost:      CostModel{Stats: opts.Stats},
		z2:        NewZ2(),
		z3:        NewZ3(),
		xz2:       NewXZ2(),
		maxRanges: maxRanges,
	}
}

// Schema returns the planner's schema.
func (p *Planner) Schema() *Schema {
	return p.schema
}

// Cost returns the planner's cost model.
func (p *Planner) Cost() CostModel {
	return p.cost
}

// PlanQuery decomposes the predicate and returns candidate plans ordered
// best-first by cost. An unsatisfiable predicate returns no plans and no
// error.
func (p *Planner) PlanQuery(pred Predicate) ([]FilterPlan, error) {
	plans, err := p.splitter.Split(pred)
	if err != nil {
		return nil, err
	}
	p.cost.Rank(p.schema, plans)
	return plans, nil
}
