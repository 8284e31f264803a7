package pgraph

import "testing"

type strVertex string

func (s strVertex) ID() string { return string(s) }

func idsOf(vs []Vertex) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID()
	}
	return out
}

func indexOf(order []Vertex, id string) int {
	for i, v := range order {
		if v.ID() == id {
			return i
		}
	}
	return -1
}

func TestTopologicalSortLinear(t *testing.T) {
	g := NewGraph("g")
	a, b, c := strVertex("a"), strVertex("b"), strVertex("c")
	g.AddEdge(a, b, "")
	g.AddEdge(b, c, "")

	order, ok := g.TopologicalSort()
	if !ok {
		t.Fatalf("expected a valid sort")
	}
	if got := idsOf(order); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestTopologicalSortRejectsCycle(t *testing.T) {
	g := NewGraph("g")
	a, b, c := strVertex("a"), strVertex("b"), strVertex("c")
	g.AddEdge(a, b, "")
	g.AddEdge(b, c, "")
	g.AddEdge(c, a, "")

	if _, ok := g.TopologicalSort(); ok {
		t.Fatalf("expected TopologicalSort to fail on a cyclic graph")
	}
}

// TestCycleBreaking covers a three-cycle: graph A->B, B->C, C->A must
// resolve to exactly one of the three rotations with no vertex repeated
// and all three present.
func TestCycleBreaking(t *testing.T) {
	g := NewGraph("g")
	a, b, c := strVertex("a"), strVertex("b"), strVertex("c")
	g.AddEdge(a, b, "")
	g.AddEdge(b, c, "")
	g.AddEdge(c, a, "")

	back := g.FindBackEdges()
	if len(back) != 1 {
		t.Fatalf("expected exactly one back-edge, got %d: %v", len(back), back)
	}

	dag := g.RemoveBackEdges()
	order, ok := dag.TopologicalSort()
	if !ok {
		t.Fatalf("expected the back-edge-free graph to be a DAG")
	}
	if len(order) != 3 {
		t.Fatalf("expected all three vertices exactly once, got %v", idsOf(order))
	}
	seen := map[string]bool{}
	for _, v := range order {
		if seen[v.ID()] {
			t.Fatalf("vertex %s appeared twice in %v", v.ID(), idsOf(order))
		}
		seen[v.ID()] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Fatalf("vertex %s missing from sort %v", id, idsOf(order))
		}
	}
}

func TestRemoveBackEdgesNoopOnAcyclicGraph(t *testing.T) {
	g := NewGraph("g")
	a, b, c := strVertex("a"), strVertex("b"), strVertex("c")
	g.AddEdge(a, b, "")
	g.AddEdge(b, c, "")

	dag := g.RemoveBackEdges()
	if dag.NumVertices() != g.NumVertices() || dag.NumEdges() != g.NumEdges() {
		t.Fatalf("expected RemoveBackEdges to be a no-op on an already acyclic graph")
	}
}

func TestTopologicalSortStableUnderReinsertion(t *testing.T) {
	g := NewGraph("g")
	a, b, c := strVertex("a"), strVertex("b"), strVertex("c")
	g.AddEdge(a, b, "")
	g.AddEdge(b, c, "")

	order1, _ := g.TopologicalSort()

	leaf := strVertex("d")
	g.AddEdge(c, leaf, "")
	order2, _ := g.TopologicalSort()

	for i := 0; i < len(order1); i++ {
		if order1[i].ID() != order2[i].ID() {
			t.Fatalf("prefix reordered after adding a leaf: %v vs %v", idsOf(order1), idsOf(order2))
		}
	}
	if order2[len(order2)-1].ID() != "d" {
		t.Fatalf("expected new leaf to be appended last, got %v", idsOf(order2))
	}
}

func TestForwardEdgesRespectOrder(t *testing.T) {
	g := NewGraph("g")
	a, b, c := strVertex("a"), strVertex("b"), strVertex("c")
	g.AddEdge(a, c, "")
	g.AddEdge(b, c, "")
	g.AddEdge(a, b, "")

	order, ok := g.TopologicalSort()
	if !ok {
		t.Fatalf("expected a valid sort")
	}
	if indexOf(order, "a") >= indexOf(order, "b") {
		t.Fatalf("a must precede b: %v", idsOf(order))
	}
	if indexOf(order, "a") >= indexOf(order, "c") {
		t.Fatalf("a must precede c: %v", idsOf(order))
	}
	if indexOf(order, "b") >= indexOf(order, "c") {
		t.Fatalf("b must precede c: %v", idsOf(order))
	}
}
