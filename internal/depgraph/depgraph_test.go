package depgraph

import (
	"errors"
	"reflect"
	"testing"
)

type testNode struct {
	id   string
	deps []string
}

func (n testNode) ID() string             { return n.id }
func (n testNode) Dependencies() []string { return n.deps }

func ids(nodes []testNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestSort_Ordering(t *testing.T) {
	tests := []struct {
		name  string
		nodes []testNode
		want  []string
	}{
		{
			name:  "empty input",
			nodes: nil,
			want:  []string{},
		},
		{
			name: "no dependencies preserves input order",
			nodes: []testNode{
				{id: "a"}, {id: "b"}, {id: "c"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "simple chain",
			nodes: []testNode{
				{id: "c", deps: []string{"b"}},
				{id: "b", deps: []string{"a"}},
				{id: "a"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "diamond",
			nodes: []testNode{
				{id: "d", deps: []string{"b", "c"}},
				{id: "b", deps: []string{"a"}},
				{id: "c", deps: []string{"a"}},
				{id: "a"},
			},
			want: []string{"a", "b", "c", "d"},
		},
		{
			name: "external dependency is already satisfied",
			nodes: []testNode{
				{id: "a", deps: []string{"not-present"}},
				{id: "b", deps: []string{"a"}},
			},
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sort[string](tt.nodes)
			if err != nil {
				t.Fatalf("Sort() error = %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("Sort() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestSort_EveryNodeOnceAndEdgesRespected(t *testing.T) {
	nodes := []testNode{
		{id: "e", deps: []string{"d", "a"}},
		{id: "d", deps: []string{"c"}},
		{id: "c", deps: []string{"a", "b"}},
		{id: "b"},
		{id: "a", deps: []string{"b"}},
	}

	got, err := Sort[string](nodes)
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	if len(got) != len(nodes) {
		t.Fatalf("Sort() returned %d nodes, want %d", len(got), len(nodes))
	}

	order := ids(got)
	seen := make(map[string]int)
	for _, id := range order {
		seen[id]++
	}
	for _, n := range nodes {
		if seen[n.id] != 1 {
			t.Errorf("node %q appears %d times, want exactly once", n.id, seen[n.id])
		}
	}

	for _, n := range nodes {
		for _, dep := range n.deps {
			if indexOf(order, dep) < 0 {
				continue // external
			}
			if indexOf(order, dep) >= indexOf(order, n.id) {
				t.Errorf("dependency %q does not precede %q in %v", dep, n.id, order)
			}
		}
	}
}

func TestSort_Deterministic(t *testing.T) {
	nodes := []testNode{
		{id: "x"},
		{id: "y"},
		{id: "z", deps: []string{"x"}},
		{id: "w", deps: []string{"y"}},
	}

	first, err := Sort[string](nodes)
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Sort[string](nodes)
		if err != nil {
			t.Fatalf("Sort() error = %v", err)
		}
		if !reflect.DeepEqual(ids(first), ids(again)) {
			t.Fatalf("Sort() not deterministic: %v vs %v", ids(first), ids(again))
		}
	}
}

func TestSort_Cycles(t *testing.T) {
	tests := []struct {
		name  string
		nodes []testNode
	}{
		{
			name: "two node cycle",
			nodes: []testNode{
				{id: "a", deps: []string{"b"}},
				{id: "b", deps: []string{"a"}},
			},
		},
		{
			name: "self dependency",
			nodes: []testNode{
				{id: "a", deps: []string{"a"}},
			},
		},
		{
			name: "cycle with acyclic prefix",
			nodes: []testNode{
				{id: "ok"},
				{id: "a", deps: []string{"c"}},
				{id: "b", deps: []string{"a"}},
				{id: "c", deps: []string{"b"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sort[string](tt.nodes)
			if !errors.Is(err, ErrCyclicDependency) {
				t.Fatalf("Sort() error = %v, want ErrCyclicDependency", err)
			}
			if got != nil {
				t.Errorf("Sort() returned partial ordering %v on cycle", ids(got))
			}
		})
	}
}

func TestSort_DuplicateIdentifier(t *testing.T) {
	nodes := []testNode{
		{id: "a"},
		{id: "a"},
	}
	if _, err := Sort[string](nodes); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Sort() error = %v, want ErrDuplicateID", err)
	}
}
