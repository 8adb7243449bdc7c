// Package toposort orders and checks directed graphs whose nodes are dense
// integer identities, such as the assets of a module graph.
package toposort

import "slices"

// IntGraph is a directed graph over node IDs 0..N-1 stored as an
// adjacency list. Edges keep insertion order; duplicate edges are ignored.
type IntGraph struct {
	// nodes[u] lists v for every edge u -> v.
	nodes [][]int
	// inDegree[v] counts edges ending at v.
	inDegree []int
}

// NewIntGraph creates an empty IntGraph.
func NewIntGraph() *IntGraph {
	return &IntGraph{}
}

// Len returns the number of nodes, which is one past the highest ID seen.
func (g *IntGraph) Len() int {
	return len(g.nodes)
}

// AddNode makes sure id (and every lower ID) exists.
// Returns true if the graph grew.
func (g *IntGraph) AddNode(id int) bool {
	if id < len(g.nodes) {
		return false
	}

	g.grow(id + 1)

	return true
}

// AddEdge adds u -> v. Returns false if the edge already existed.
func (g *IntGraph) AddEdge(u, v int) bool {
	g.grow(max(u, v) + 1)

	if slices.Contains(g.nodes[u], v) {
		return false
	}

	g.nodes[u] = append(g.nodes[u], v)
	g.inDegree[v]++

	return true
}

// Successors returns the targets of u's outgoing edges in insertion order.
func (g *IntGraph) Successors(u int) []int {
	if u < 0 || u >= len(g.nodes) {
		return nil
	}

	return slices.Clone(g.nodes[u])
}

func (g *IntGraph) grow(n int) {
	if n <= len(g.nodes) {
		return
	}

	g.nodes = append(g.nodes, make([][]int, n-len(g.nodes))...)
	g.inDegree = append(g.inDegree, make([]int, n-len(g.inDegree))...)
}

// TopoSort orders the nodes with Kahn's algorithm, always picking the lowest
// ready ID so the result is deterministic. The boolean is false when a cycle
// kept some nodes out of the order.
func (g *IntGraph) TopoSort() ([]int, bool) {
	n := len(g.nodes)
	if n == 0 {
		return []int{}, true
	}

	inDegree := slices.Clone(g.inDegree)

	ready := make([]int, 0, n)
	for id := range n {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]int, 0, n)

	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		order = append(order, u)

		for _, v := range g.nodes[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				insertSorted(&ready, v)
			}
		}
	}

	return order, len(order) == n
}

// FindCycle returns a cycle through start as start -> ... -> start, or an
// empty slice when start is not on a cycle. The path found is a shortest one.
func (g *IntGraph) FindCycle(start int) []int {
	if start < 0 || start >= len(g.nodes) {
		return []int{}
	}

	parent := map[int]int{start: -1}
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range g.nodes[u] {
			if v == start {
				return closeCycle(parent, start, u)
			}

			if _, seen := parent[v]; !seen {
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	return []int{}
}

// FindAnyCycle returns the cycle through the lowest ID that lies on one, or
// an empty slice for an acyclic graph.
func (g *IntGraph) FindAnyCycle() []int {
	order, ok := g.TopoSort()
	if ok {
		return []int{}
	}

	sorted := make([]bool, len(g.nodes))
	for _, id := range order {
		sorted[id] = true
	}

	for id := range g.nodes {
		if sorted[id] {
			continue
		}

		if cycle := g.FindCycle(id); len(cycle) > 0 {
			return cycle
		}
	}

	return []int{}
}

// closeCycle rebuilds start -> ... -> last -> start from BFS parents.
func closeCycle(parent map[int]int, start, last int) []int {
	cycle := []int{start}

	for cur := last; cur != start && cur != -1; cur = parent[cur] {
		cycle = append(cycle, cur)
	}

	cycle = append(cycle, start)
	slices.Reverse(cycle)

	return cycle
}

// insertSorted inserts v into the ascending slice s.
func insertSorted(s *[]int, v int) {
	i, _ := slices.BinarySearch(*s, v)
	*s = slices.Insert(*s, i, v)
}
