package geost

// RewriteToDNF rewrites a predicate into disjunctive normal form: an OR of
// ANDs with no boolean node nested inside any AND clause. NOT is pushed onto
// the leaves, AND distributes over OR and trivial children simplify away.
// The rewrite is idempotent: applying it twice equals applying it once.
func RewriteToDNF(p Predicate) Predicate {
	clauses := DNFClauses(p)
	terms := make([]Predicate, 0, len(clauses))
	for _, c := range clauses {
		terms = append(terms, NewAnd(c...))
	}
	return NewOr(terms...)
}

// DNFClauses returns the AND-clauses of the DNF form, one leaf slice per
// OR-branch. Each clause is simplified: redundant All leaves are dropped and
// a clause containing None collapses to a bare None.
func DNFClauses(p Predicate) [][]Predicate {
	raw := dnfClauses(pushNot(p, false))
	out := make([][]Predicate, 0, len(raw))
	for _, c := range raw {
		out = append(out, simplifyClause(c))
	}
	return out
}

// pushNot drives negation down to the leaves using De Morgan's laws.
func pushNot(p Predicate, neg bool) Predicate {
	switch v := p.(type) {
	case And:
		children := make([]Predicate, len(v.Children))
		for i, c := range v.Children {
			children[i] = pushNot(c, neg)
		}
		if neg {
			return Or{Children: children}
		}
		return And{Children: children}
	case Or:
		children := make([]Predicate, len(v.Children))
		for i, c := range v.Children {
			children[i] = pushNot(c, neg)
		}
		if neg {
			return And{Children: children}
		}
		return Or{Children: children}
	case Not:
		return pushNot(v.Child, !neg)
	case All:
		if neg {
			return None{}
		}
		return v
	case None:
		if neg {
			return All{}
		}
		return v
	default:
		if neg {
			return Not{Child: p}
		}
		return p
	}
}

// dnfClauses expands a negation-free tree into clause lists: OR concatenates
// its children's clauses, AND takes the cartesian product.
func dnfClauses(p Predicate) [][]Predicate {
	switch v := p.(type) {
	case Or:
		var out [][]Predicate
		for _, c := range v.Children {
			out = append(out, dnfClauses(c)...)
		}
		return out
	case And:
		out := [][]Predicate{nil}
		for _, c := range v.Children {
			sub := dnfClauses(c)
			next := make([][]Predicate, 0, len(out)*len(sub))
			for _, a := range out {
				for _, b := range sub {
					clause := make([]Predicate, 0, len(a)+len(b))
					clause = append(append(clause, a...), b...)
					next = append(next, clause)
				}
			}
			out = next
		}
		return out
	default:
		return [][]Predicate{{p}}
	}
}

func simplifyClause(clause []Predicate) []Predicate {
	out := make([]Predicate, 0, len(clause))
	for _, p := range clause {
		switch p.(type) {
		case None:
			return []Predicate{None{}}
		case All:
		default:
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []Predicate{All{}}
	}
	return out
}
