package hexgrid

import "container/heap"

// CostCalculator abstracts terrain and occupancy away from the search. The
// engine and rule layer depend on this interface only, never on the concrete
// algorithm behind it.
type CostCalculator interface {
	// MovementCost prices the step from a onto adjacent b.
	MovementCost(a, b Loc) int
	// EstimatedCost is an admissible estimate of the remaining cost to b.
	EstimatedCost(a, b Loc) int
	// AllowedToMove reports whether a may be entered at all.
	AllowedToMove(a Loc) bool
	// LegalMoveEndpoint reports whether a move may end on a. A hex can be
	// passable but not stoppable, e.g. one occupied by a friendly unit.
	LegalMoveEndpoint(a Loc) bool
}

// BaseCalculator supplies the default costs; embed it and override what the
// terrain or unit actually cares about.
type BaseCalculator struct{}

func (BaseCalculator) MovementCost(a, b Loc) int  { return 1 }
func (BaseCalculator) EstimatedCost(a, b Loc) int { return Distance(a, b) }
func (BaseCalculator) AllowedToMove(Loc) bool     { return true }
func (BaseCalculator) LegalMoveEndpoint(Loc) bool { return true }

// Route is a path to one reachable hex and its total cost.
type Route struct {
	Steps []Loc
	Cost  int
}

// PossibleMoves runs a cost-limited flood search from src and returns a route
// per reachable legal endpoint. src itself is not included. The search is
// read-only and deterministic: ties expand in coordinate order.
func PossibleMoves(src Loc, maxCost int, calc CostCalculator) map[Loc]Route {
	best := map[Loc]int{src: 0}
	routes := make(map[Loc]Route)
	q := &searchQueue{{loc: src, path: []Loc{src}}}
	heap.Init(q)

	for q.Len() > 0 {
		cur := heap.Pop(q).(*searchItem)
		if c, ok := best[cur.loc]; ok && cur.cost > c {
			continue
		}
		for _, next := range cur.loc.Adjacent() {
			if !next.Valid() || !calc.AllowedToMove(next) {
				continue
			}
			cost := cur.cost + calc.MovementCost(cur.loc, next)
			if cost > maxCost {
				continue
			}
			if c, ok := best[next]; ok && cost >= c {
				continue
			}
			best[next] = cost
			path := append(append([]Loc(nil), cur.path...), next)
			if calc.LegalMoveEndpoint(next) {
				routes[next] = Route{Steps: path, Cost: cost}
			}
			heap.Push(q, &searchItem{loc: next, cost: cost, priority: cost, path: path})
		}
	}
	return routes
}

type searchItem struct {
	loc      Loc
	cost     int
	priority int
	path     []Loc
}

type searchQueue []*searchItem

func (q searchQueue) Len() int { return len(q) }
func (q searchQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	if q[i].loc.Y != q[j].loc.Y {
		return q[i].loc.Y < q[j].loc.Y
	}
	return q[i].loc.X < q[j].loc.X
}
func (q searchQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *searchQueue) Push(x any) { *q = append(*q, x.(*searchItem)) }
func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// FindPath searches for the cheapest path from src to dst, A* over the
// calculator's costs. adjacentOnly accepts any hex adjacent to dst as the
// goal, which is how melee approach moves are computed. Returns nil when no
// path within maxCost exists.
func FindPath(src, dst Loc, calc CostCalculator, maxCost int, adjacentOnly bool) []Loc {
	goal := func(l Loc) bool {
		if adjacentOnly {
			return l.IsAdjacent(dst)
		}
		return l == dst
	}
	if goal(src) {
		return []Loc{src}
	}

	best := map[Loc]int{src: 0}
	q := &searchQueue{{loc: src, path: []Loc{src}}}
	heap.Init(q)

	for q.Len() > 0 {
		cur := heap.Pop(q).(*searchItem)
		if c, ok := best[cur.loc]; ok && cur.cost > c {
			continue
		}
		if goal(cur.loc) {
			return cur.path
		}
		for _, next := range cur.loc.Adjacent() {
			if !next.Valid() || !calc.AllowedToMove(next) {
				continue
			}
			cost := cur.cost + calc.MovementCost(cur.loc, next)
			if cost > maxCost {
				continue
			}
			if c, ok := best[next]; ok && cost >= c {
				continue
			}
			best[next] = cost
			heap.Push(q, &searchItem{
				loc:      next,
				cost:     cost,
				priority: cost + calc.EstimatedCost(next, dst),
				path:     append(append([]Loc(nil), cur.path...), next),
			})
		}
	}
	return nil
}
