package dag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/davidahmann/jadegate/core/schema/v1/skill"
)

var ErrCycle = errors.New("execution graph contains a cycle")

// graph is the index form of an execution graph. Vertices are positions in
// the node list; edges with an unknown endpoint are dropped.
type graph struct {
	ids      []string
	outgoing [][]int
	indegree []int
}

func build(g skill.ExecutionGraph) graph {
	ids := g.NodeIDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := index[id]; !ok {
			index[id] = i
		}
	}
	built := graph{
		ids:      ids,
		outgoing: make([][]int, len(g.Nodes)),
		indegree: make([]int, len(g.Nodes)),
	}
	for _, edge := range g.Edges {
		from, okFrom := index[edge.From]
		to, okTo := index[edge.To]
		if !okFrom || !okTo {
			continue
		}
		built.outgoing[from] = append(built.outgoing[from], to)
		built.indegree[to]++
	}
	return built
}

// eliminate runs Kahn's algorithm. Among ready vertices the one earliest in
// the node list is always taken first.
func (g graph) eliminate() []int {
	indegree := make([]int, len(g.indegree))
	copy(indegree, g.indegree)

	ready := make([]int, 0, len(indegree))
	for vertex, degree := range indegree {
		if degree == 0 {
			ready = append(ready, vertex)
		}
	}

	order := make([]int, 0, len(indegree))
	for len(ready) > 0 {
		vertex := ready[0]
		ready = ready[1:]
		order = append(order, vertex)
		for _, next := range g.outgoing[vertex] {
			indegree[next]--
			if indegree[next] == 0 {
				at := sort.SearchInts(ready, next)
				ready = append(ready, 0)
				copy(ready[at+1:], ready[at:])
				ready[at] = next
			}
		}
	}
	return order
}

// DetectCyclesAndOrphans reports a cycle when elimination cannot reach every
// node, and, for graphs with more than one node, every node that is not an
// endpoint of any edge. Both checks always run.
func DetectCyclesAndOrphans(g skill.ExecutionGraph) []string {
	var problems []string

	built := build(g)
	if reached := len(built.eliminate()); reached < len(g.Nodes) {
		problems = append(problems, fmt.Sprintf("%v (%d of %d nodes reachable)", ErrCycle, reached, len(g.Nodes)))
	}

	if len(g.Nodes) > 1 {
		connected := make(map[string]struct{}, len(g.Edges)*2)
		for _, edge := range g.Edges {
			connected[edge.From] = struct{}{}
			connected[edge.To] = struct{}{}
		}
		for _, node := range g.Nodes {
			if _, ok := connected[node.ID]; !ok {
				problems = append(problems, fmt.Sprintf("orphan node: %s (not connected to execution graph)", node.ID))
			}
		}
	}
	return problems
}

// TopologicalOrder returns node ids in dependency order. Ties resolve to
// node list order, so the result is stable for a given manifest.
func TopologicalOrder(g skill.ExecutionGraph) ([]string, error) {
	built := build(g)
	order := built.eliminate()
	if len(order) < len(g.Nodes) {
		return nil, fmt.Errorf("%w (%d of %d nodes reachable)", ErrCycle, len(order), len(g.Nodes))
	}
	ids := make([]string, len(order))
	for i, vertex := range order {
		ids[i] = built.ids[vertex]
	}
	return ids, nil
}

// Layers groups the topological order into waves: every node in a wave
// depends only on nodes in earlier waves.
func Layers(g skill.ExecutionGraph) ([][]string, error) {
	built := build(g)
	order := built.eliminate()
	if len(order) < len(g.Nodes) {
		return nil, fmt.Errorf("%w (%d of %d nodes reachable)", ErrCycle, len(order), len(g.Nodes))
	}
	depth := make([]int, len(g.Nodes))
	maxDepth := 0
	for _, vertex := range order {
		for _, next := range built.outgoing[vertex] {
			if depth[vertex]+1 > depth[next] {
				depth[next] = depth[vertex] + 1
			}
		}
		if depth[vertex] > maxDepth {
			maxDepth = depth[vertex]
		}
	}
	if len(order) == 0 {
		return [][]string{}, nil
	}
	waves := make([][]string, maxDepth+1)
	for _, vertex := range order {
		waves[depth[vertex]] = append(waves[depth[vertex]], built.ids[vertex])
	}
	return waves, nil
}
