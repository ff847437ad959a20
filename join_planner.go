package relstore

import (
	"fmt"
	"sort"
)

// JoinNode describes one join predicate between two tables, compared with
// Op (OpEq for an equi-join; other comparators are also accepted), each
// table identified by the alias used elsewhere in the query, as consumed by
// the join-ordering planner. The join operator itself is an external
// collaborator (§1); this type only carries enough information to cost
// and order joins.
type JoinNode struct {
	Table1, Table2 string
	Field1, Field2 string
	Op             BoolOp
}

func (j JoinNode) String() string {
	return fmt.Sprintf("%s.%s%s%s.%s", j.Table1, j.Field1, j.Op, j.Table2, j.Field2)
}

// planCost is a (compute cost, output cardinality) pair produced by
// costing a sequence of joins.
type planCost struct {
	cost float64
	card int
}

// JoinPlanner chooses a join order over a query's equi-join predicates
// by dynamic programming over subsets, minimizing estimated total cost
// using per-table TableStats (§2, §8). It does not build or execute the
// join plan itself — only the table order.
type JoinPlanner struct {
	stats map[string]Stats
}

// NewJoinPlanner builds a planner backed by stats, a map from table
// alias to its TableStats (or any other Stats implementation).
func NewJoinPlanner(stats map[string]Stats) *JoinPlanner {
	return &JoinPlanner{stats: stats}
}

// subsetKey canonicalizes a subset of join indices into a stable cache
// key, used to memoize the DP below.
func subsetKey(indices []int) string {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	return fmt.Sprint(sorted)
}

// OrderJoins returns joins reordered to minimize the planner's
// estimated total cost, via DP over all 2^n subsets of the input joins
// (n = len(joins)). More than 20 joins (2^20 subsets) is rejected with an
// error; callers with larger join graphs should pre-partition before
// calling this.
func (p *JoinPlanner) OrderJoins(joins []JoinNode) ([]JoinNode, error) {
	n := len(joins)
	if n == 0 {
		return nil, nil
	}
	if n > 20 {
		return nil, fmt.Errorf("join planner: %d joins exceeds the subset-DP bound", n)
	}

	bestCost := make(map[string]planCost)
	bestOrder := make(map[string][]int)

	var solve func(mask int) (planCost, []int, error)
	solve = func(mask int) (planCost, []int, error) {
		indices := bitsOf(mask, n)
		key := subsetKey(indices)
		if pc, ok := bestCost[key]; ok {
			return pc, bestOrder[key], nil
		}

		var best planCost
		var bestOrd []int
		first := true

		for _, last := range indices {
			subMask := mask &^ (1 << last)
			var subCost planCost
			var subOrder []int
			if subMask != 0 {
				c, o, err := solve(subMask)
				if err != nil {
					return planCost{}, nil, err
				}
				subCost, subOrder = c, o
			}

			cost, card, err := p.costJoin(joins[last], subCost, subMask == 0)
			if err != nil {
				return planCost{}, nil, err
			}
			total := planCost{cost: subCost.cost + cost, card: card}
			if first || total.cost < best.cost {
				best = total
				bestOrd = append(append([]int(nil), subOrder...), last)
				first = false
			}
		}

		bestCost[key] = best
		bestOrder[key] = bestOrd
		return best, bestOrd, nil
	}

	fullMask := (1 << n) - 1
	_, order, err := solve(fullMask)
	if err != nil {
		return nil, err
	}

	ordered := make([]JoinNode, len(order))
	for i, idx := range order {
		ordered[i] = joins[idx]
	}
	return ordered, nil
}

// costJoin estimates the incremental cost and resulting cardinality of
// applying join on top of a plan that already produced prev.card rows
// (or, when firstJoin is true, of scanning join's two base tables
// fresh). Cost is nested-loop shaped: reading both base tables once plus
// one unit per pair of input rows (left cardinality times the second
// table's cardinality).
func (p *JoinPlanner) costJoin(join JoinNode, prev planCost, firstJoin bool) (float64, int, error) {
	s1, ok := p.stats[join.Table1]
	if !ok {
		return 0, 0, fmt.Errorf("join planner: no stats for table %q", join.Table1)
	}
	s2, ok := p.stats[join.Table2]
	if !ok {
		return 0, 0, fmt.Errorf("join planner: no stats for table %q", join.Table2)
	}

	card1 := s1.EstimateCardinality(1.0)
	card2 := s2.EstimateCardinality(1.0)

	leftCard := card1
	if !firstJoin {
		leftCard = prev.card
	}

	cost := s1.EstimateScanCost() + s2.EstimateScanCost() + float64(leftCard)*float64(card2)
	card := estimateJoinCardinality(join, leftCard, card2)
	return cost, card, nil
}

// estimateJoinCardinality approximates the output size of an equi-join
// between two relations of the given cardinalities: equality joins are
// assumed to produce roughly one row per row of the larger side (the
// classic foreign-key heuristic), while all other comparators are
// assumed to retain a third of the cross product.
func estimateJoinCardinality(join JoinNode, card1, card2 int) int {
	if card1 == 0 || card2 == 0 {
		return 0
	}
	switch join.Op {
	case OpEq:
		if card1 > card2 {
			return card1
		}
		return card2
	default:
		card := (card1 * card2) / 3
		if card < 1 {
			card = 1
		}
		return card
	}
}

// bitsOf returns the set bits of mask, restricted to the low n bits.
func bitsOf(mask, n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if mask&(1<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}
