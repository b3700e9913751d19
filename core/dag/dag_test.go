package dag

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davidahmann/jadegate/core/schema/v1/skill"
)

func graphOf(ids []string, edges ...[2]string) skill.ExecutionGraph {
	g := skill.ExecutionGraph{}
	for _, id := range ids {
		g.Nodes = append(g.Nodes, skill.Node{ID: id})
	}
	for _, edge := range edges {
		g.Edges = append(g.Edges, skill.Edge{From: edge[0], To: edge[1]})
	}
	return g
}

func TestTopologicalOrderChain(t *testing.T) {
	g := graphOf([]string{"respond", "parse", "fetch"}, [2]string{"fetch", "parse"}, [2]string{"parse", "respond"})
	order, err := TopologicalOrder(g)
	if err != nil {
		t.Fatalf("topological order: %v", err)
	}
	if want := []string{"fetch", "parse", "respond"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestTopologicalOrderTieBreakFollowsNodeList(t *testing.T) {
	g := graphOf(
		[]string{"z", "m", "a", "join"},
		[2]string{"z", "join"}, [2]string{"a", "join"}, [2]string{"m", "join"},
	)
	for i := 0; i < 20; i++ {
		order, err := TopologicalOrder(g)
		if err != nil {
			t.Fatalf("topological order: %v", err)
		}
		if want := []string{"z", "m", "a", "join"}; !reflect.DeepEqual(order, want) {
			t.Fatalf("run %d: unexpected order: %v", i, order)
		}
	}

	// b becomes ready after a; c was ready from the start but sits later in the list.
	g = graphOf([]string{"a", "c", "b"}, [2]string{"a", "b"}, [2]string{"c", "b"})
	order, err := TopologicalOrder(g)
	if err != nil {
		t.Fatalf("topological order: %v", err)
	}
	if want := []string{"a", "c", "b"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestTopologicalOrderReadyNodeInsertedByListPosition(t *testing.T) {
	// After root, both x (index 1) and y (index 3) become ready; w (index 2)
	// depends on x. Ready set order must be x before y, then w before y.
	g := graphOf(
		[]string{"root", "x", "w", "y"},
		[2]string{"root", "y"}, [2]string{"root", "x"}, [2]string{"x", "w"},
	)
	order, err := TopologicalOrder(g)
	if err != nil {
		t.Fatalf("topological order: %v", err)
	}
	if want := []string{"root", "x", "w", "y"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestCycleDetected(t *testing.T) {
	g := graphOf([]string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})
	problems := DetectCyclesAndOrphans(g)
	if len(problems) != 1 {
		t.Fatalf("expected one problem, got %v", problems)
	}
	if !strings.Contains(problems[0], "cycle") || !strings.Contains(problems[0], "0 of 2 nodes reachable") {
		t.Fatalf("unexpected cycle message: %s", problems[0])
	}
	if _, err := TopologicalOrder(g); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if _, err := Layers(g); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle from layers, got %v", err)
	}
}

func TestPartialCycleCountsReachableNodes(t *testing.T) {
	g := graphOf(
		[]string{"start", "loop_a", "loop_b"},
		[2]string{"start", "loop_a"}, [2]string{"loop_a", "loop_b"}, [2]string{"loop_b", "loop_a"},
	)
	problems := DetectCyclesAndOrphans(g)
	if len(problems) != 1 || !strings.Contains(problems[0], "1 of 3 nodes reachable") {
		t.Fatalf("unexpected problems: %v", problems)
	}
}

func TestSelfLoopIsCycle(t *testing.T) {
	g := graphOf([]string{"solo"}, [2]string{"solo", "solo"})
	if problems := DetectCyclesAndOrphans(g); len(problems) != 1 {
		t.Fatalf("expected self loop to be a cycle, got %v", problems)
	}
}

func TestOrphans(t *testing.T) {
	g := graphOf([]string{"a", "b", "lonely"}, [2]string{"a", "b"})
	problems := DetectCyclesAndOrphans(g)
	if want := []string{"orphan node: lonely (not connected to execution graph)"}; !reflect.DeepEqual(problems, want) {
		t.Fatalf("unexpected problems: %v", problems)
	}

	if problems := DetectCyclesAndOrphans(graphOf([]string{"single"})); len(problems) != 0 {
		t.Fatalf("single node graph must not be flagged: %v", problems)
	}
}

func TestCycleAndOrphanBothReported(t *testing.T) {
	g := graphOf([]string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "A"})
	problems := DetectCyclesAndOrphans(g)
	if len(problems) != 2 {
		t.Fatalf("expected cycle and orphan, got %v", problems)
	}
	if !strings.Contains(problems[0], "cycle") || !strings.Contains(problems[1], "orphan node: C") {
		t.Fatalf("unexpected problems: %v", problems)
	}
}

func TestUnknownEdgeEndpointsIgnored(t *testing.T) {
	g := graphOf([]string{"a", "b"}, [2]string{"a", "b"}, [2]string{"ghost", "a"})
	order, err := TopologicalOrder(g)
	if err != nil {
		t.Fatalf("topological order: %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestEmptyGraph(t *testing.T) {
	order, err := TopologicalOrder(skill.ExecutionGraph{})
	if err != nil || len(order) != 0 {
		t.Fatalf("unexpected result: order=%v err=%v", order, err)
	}
	waves, err := Layers(skill.ExecutionGraph{})
	if err != nil || len(waves) != 0 {
		t.Fatalf("unexpected waves: %v err=%v", waves, err)
	}
	if problems := DetectCyclesAndOrphans(skill.ExecutionGraph{}); len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
}

func TestLayers(t *testing.T) {
	g := graphOf(
		[]string{"fetch_a", "fetch_b", "merge", "publish"},
		[2]string{"fetch_a", "merge"}, [2]string{"fetch_b", "merge"}, [2]string{"merge", "publish"}, [2]string{"fetch_a", "publish"},
	)
	waves, err := Layers(g)
	if err != nil {
		t.Fatalf("layers: %v", err)
	}
	want := [][]string{{"fetch_a", "fetch_b"}, {"merge"}, {"publish"}}
	if !reflect.DeepEqual(waves, want) {
		t.Fatalf("unexpected waves: %v", waves)
	}
}
