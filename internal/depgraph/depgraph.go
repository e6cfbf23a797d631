// Package depgraph resolves a total order from declared dependencies.
//
// The resolver is generic over any node type that exposes an identifier and
// the identifiers it depends on. It is used to order mod lifecycle hooks so
// that a mod always runs after the mods it declares a dependency on.
package depgraph

import (
	"errors"
	"fmt"
)

// Resolver errors.
var (
	// ErrDuplicateID is returned when two input nodes share an identifier.
	ErrDuplicateID = errors.New("duplicate node identifier")

	// ErrCyclicDependency is returned when the input contains a dependency
	// cycle and no total order exists.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Node is a participant in dependency resolution.
type Node[ID comparable] interface {
	// ID returns the node's unique identifier.
	ID() ID

	// Dependencies returns the identifiers this node depends on.
	// Identifiers that are not present in the input collection are treated
	// as externally satisfied.
	Dependencies() []ID
}

// Sort returns the input nodes ordered so that every node appears after all
// input nodes it depends on. Every input node appears exactly once.
//
// The sort is deterministic: among the nodes whose dependencies are all
// satisfied, the one earliest in input order is emitted first. An empty
// input yields an empty output. A node depending on its own identifier is
// always cyclic.
func Sort[ID comparable, N Node[ID]](nodes []N) ([]N, error) {
	present := make(map[ID]bool, len(nodes))
	for _, n := range nodes {
		id := n.ID()
		if present[id] {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateID, id)
		}
		present[id] = true
	}

	// remaining[i] holds the not-yet-satisfied dependencies of nodes[i],
	// restricted to identifiers actually present in the input.
	remaining := make([]map[ID]bool, len(nodes))
	for i, n := range nodes {
		deps := make(map[ID]bool)
		for _, d := range n.Dependencies() {
			if present[d] {
				deps[d] = true
			}
		}
		remaining[i] = deps
	}

	// Kahn-style selection. The linear scan per step is O(n^2) overall,
	// which is fine for the node counts seen in practice (mods in a
	// process, not millions of vertices).
	out := make([]N, 0, len(nodes))
	emitted := make([]bool, len(nodes))
	for len(out) < len(nodes) {
		picked := -1
		for i := range nodes {
			if !emitted[i] && len(remaining[i]) == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			// Every unemitted node still waits on another unemitted node.
			for i, n := range nodes {
				if !emitted[i] {
					return nil, fmt.Errorf("%w: involving %v", ErrCyclicDependency, n.ID())
				}
			}
			return nil, ErrCyclicDependency
		}

		emitted[picked] = true
		out = append(out, nodes[picked])

		id := nodes[picked].ID()
		for i := range nodes {
			if !emitted[i] {
				delete(remaining[i], id)
			}
		}
	}

	return out, nil
}
