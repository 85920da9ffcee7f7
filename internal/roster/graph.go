package roster

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoChains means no ordered roster could be recovered at all.
	ErrNoChains = errors.New("no reconstructed chains")
	// ErrNoOrderEvidence means several identities exist but no two of them
	// were ever seen in the same frame.
	ErrNoOrderEvidence = fmt.Errorf("%w: no identities share a frame", ErrNoChains)
)

// Edge states that From's row appeared above To's row in a shared frame.
type Edge struct {
	From    string
	To      string
	Frame   int // first shared frame, which fixes the orientation
	Support int // shared frames agreeing with the orientation
	seq     int
}

type edgeKey struct{ from, to string }

// Graph is the "appears above" relation between identities.
type Graph struct {
	nodes   []string // discovery order
	pos     map[string]int
	edges   map[edgeKey]*Edge
	derived int
	dropped []Edge
}

type firstSeen struct {
	frame  int
	offset int
}

// BuildGraph derives one edge for every pair of live groups that shared a
// frame. Records from different frames never produce an edge.
func BuildGraph(g *Groups) *Graph {
	keys := g.Keys()
	seen := make(map[string]firstSeen, len(keys))
	offsets := make(map[string]map[int]int, len(keys))
	frames := make(map[string][]int, len(keys))
	for _, k := range keys {
		byFrame := make(map[int]int)
		var order []int
		for _, rec := range g.Records(k) {
			if _, ok := byFrame[rec.FrameIndex]; ok {
				continue
			}
			byFrame[rec.FrameIndex] = rec.Offset
			order = append(order, rec.FrameIndex)
		}
		offsets[k] = byFrame
		frames[k] = order
		first := firstSeen{frame: -1}
		for _, f := range order {
			if first.frame < 0 || f < first.frame {
				first = firstSeen{frame: f, offset: byFrame[f]}
			}
		}
		seen[k] = first
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := seen[keys[i]], seen[keys[j]]
		if a.frame != b.frame {
			return a.frame < b.frame
		}
		return a.offset < b.offset
	})

	gr := &Graph{
		nodes: keys,
		pos:   make(map[string]int, len(keys)),
		edges: make(map[edgeKey]*Edge),
	}
	for i, k := range keys {
		gr.pos[k] = i
	}

	for i, a := range keys {
		for _, b := range keys[i+1:] {
			edge, ok := relate(a, b, frames[a], offsets[a], offsets[b])
			if !ok {
				continue
			}
			edge.seq = gr.derived
			gr.derived++
			gr.edges[edgeKey{edge.From, edge.To}] = edge
		}
	}
	return gr
}

func relate(a, b string, framesA []int, offA, offB map[int]int) (*Edge, bool) {
	var edge *Edge
	for _, f := range framesA {
		yb, ok := offB[f]
		if !ok || yb == offA[f] {
			continue
		}
		aAbove := offA[f] < yb
		if edge == nil {
			edge = &Edge{From: a, To: b, Frame: f}
			if !aAbove {
				edge.From, edge.To = b, a
			}
		}
		if aAbove == (edge.From == a) {
			edge.Support++
		}
	}
	return edge, edge != nil
}

// Nodes returns the identities in discovery order.
func (gr *Graph) Nodes() []string {
	return append([]string(nil), gr.nodes...)
}

// Edges returns the current edges ordered by source then target discovery.
func (gr *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(gr.edges))
	for _, e := range gr.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if gr.pos[out[i].From] != gr.pos[out[j].From] {
			return gr.pos[out[i].From] < gr.pos[out[j].From]
		}
		return gr.pos[out[i].To] < gr.pos[out[j].To]
	})
	return out
}

// Derived returns how many edges were derived before any normalization.
func (gr *Graph) Derived() int { return gr.derived }

// Dropped returns the edges removed as conflicting evidence.
func (gr *Graph) Dropped() []Edge { return append([]Edge(nil), gr.dropped...) }

func (gr *Graph) successors(n string) []*Edge {
	var out []*Edge
	for _, e := range gr.edges {
		if e.From == n {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return gr.pos[out[i].To] < gr.pos[out[j].To] })
	return out
}

func (gr *Graph) predecessors(n string) []*Edge {
	var out []*Edge
	for _, e := range gr.edges {
		if e.To == n {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return gr.pos[out[i].From] < gr.pos[out[j].From] })
	return out
}

func (gr *Graph) drop(e *Edge) {
	delete(gr.edges, edgeKey{e.From, e.To})
	gr.dropped = append(gr.dropped, *e)
}

// FindCycle returns the edges of one directed cycle, or nil when acyclic.
func (gr *Graph) FindCycle() []Edge {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(gr.nodes))
	var stack []*Edge
	var cycle []Edge

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = grey
		for _, e := range gr.successors(n) {
			switch color[e.To] {
			case grey:
				start := len(stack)
				for start > 0 && stack[start-1].From != e.To {
					start--
				}
				if start > 0 {
					start--
				}
				for _, s := range stack[start:] {
					cycle = append(cycle, *s)
				}
				cycle = append(cycle, *e)
				return true
			case white:
				stack = append(stack, e)
				if visit(e.To) {
					return true
				}
				stack = stack[:len(stack)-1]
			}
		}
		color[n] = black
		return false
	}

	for _, n := range gr.nodes {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

func (gr *Graph) breakCycles() {
	for {
		cycle := gr.FindCycle()
		if cycle == nil {
			return
		}
		weakest := cycle[0]
		for _, e := range cycle[1:] {
			if e.Support < weakest.Support || (e.Support == weakest.Support && e.seq > weakest.seq) {
				weakest = e
			}
		}
		gr.drop(gr.edges[edgeKey{weakest.From, weakest.To}])
	}
}

// reduce removes edges implied by a longer path. A frame showing rows
// r1..rk yields edges between every pair, only neighbours are kept.
func (gr *Graph) reduce() {
	var redundant []edgeKey
	for k := range gr.edges {
		if gr.reachableAvoiding(k.from, k.to) {
			redundant = append(redundant, k)
		}
	}
	for _, k := range redundant {
		delete(gr.edges, k)
	}
}

// reachableAvoiding reports whether to is reachable from from through at
// least one intermediate node.
func (gr *Graph) reachableAvoiding(from, to string) bool {
	visited := map[string]bool{from: true}
	var queue []string
	for _, e := range gr.successors(from) {
		if e.To != to && !visited[e.To] {
			visited[e.To] = true
			queue = append(queue, e.To)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range gr.successors(n) {
			if e.To == to {
				return true
			}
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return false
}

// resolveBranches leaves every node with at most one successor and one
// predecessor, keeping the best supported edge.
func (gr *Graph) resolveBranches() {
	better := func(a, b *Edge) bool { return a.Support > b.Support }
	for _, n := range gr.nodes {
		if succ := gr.successors(n); len(succ) > 1 {
			gr.keepBest(succ, better)
		}
	}
	for _, n := range gr.nodes {
		if pred := gr.predecessors(n); len(pred) > 1 {
			gr.keepBest(pred, better)
		}
	}
}

func (gr *Graph) keepBest(candidates []*Edge, better func(a, b *Edge) bool) {
	best := candidates[0]
	for _, e := range candidates[1:] {
		if better(e, best) {
			best = e
		}
	}
	for _, e := range candidates {
		if e != best {
			gr.drop(e)
		}
	}
}

// Chains normalizes the relation into a successor function and walks it.
// Chains start at nodes nothing points to, in discovery order.
func (gr *Graph) Chains() ([][]string, error) {
	if len(gr.nodes) == 0 {
		return nil, ErrNoChains
	}
	if gr.derived == 0 && len(gr.nodes) > 1 {
		return nil, ErrNoOrderEvidence
	}

	gr.breakCycles()
	gr.reduce()
	gr.resolveBranches()

	next := make(map[string]string, len(gr.edges))
	indegree := make(map[string]int, len(gr.nodes))
	for _, e := range gr.edges {
		next[e.From] = e.To
		indegree[e.To]++
	}

	visited := make(map[string]bool, len(gr.nodes))
	walk := func(start string) []string {
		var chain []string
		for cur, ok := start, true; ok && !visited[cur]; cur, ok = next[cur] {
			visited[cur] = true
			chain = append(chain, cur)
		}
		return chain
	}

	var chains [][]string
	for _, n := range gr.nodes {
		if indegree[n] == 0 && !visited[n] {
			chains = append(chains, walk(n))
		}
	}
	for _, n := range gr.nodes {
		if !visited[n] {
			chains = append(chains, walk(n))
		}
	}
	if len(chains) == 0 {
		return nil, ErrNoChains
	}
	return chains, nil
}
