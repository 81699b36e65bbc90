package family

import "fmt"

// Reconcile decides what happens when the forward traversal proposes a
// generation for a person that already holds one. This only occurs when the
// parent relation is not a simple tree, e.g. cousins who share ancestors.
type Reconcile int

const (
	// ReconcileOverwrite lets the last proposal win.
	ReconcileOverwrite Reconcile = iota
	// ReconcileMax keeps the larger of the current and proposed values.
	ReconcileMax
	// ReconcileReject fails with ErrInconsistentGeneration on any conflict.
	ReconcileReject
)

var reconcileNames = map[Reconcile]string{
	ReconcileOverwrite: "overwrite",
	ReconcileMax:       "max",
	ReconcileReject:    "reject",
}

// String returns the policy name accepted by [ParseReconcile].
func (r Reconcile) String() string {
	if s, ok := reconcileNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reconcile(%d)", int(r))
}

// ParseReconcile converts "overwrite", "max" or "reject" to a policy.
// The empty string selects ReconcileOverwrite.
func ParseReconcile(s string) (Reconcile, error) {
	if s == "" {
		return ReconcileOverwrite, nil
	}
	for r, name := range reconcileNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown reconcile policy %q (must be overwrite, max or reject)", s)
}

// PropagateOptions configures [Propagate].
type PropagateOptions struct {
	Reconcile Reconcile
}

// Stats summarizes a propagation run.
type Stats struct {
	Traversed  int   `json:"traversed"`            // nodes visited by the forward traversal
	Backfilled int   `json:"backfilled"`           // nodes resolved from a parent's generation
	Passes     int   `json:"passes"`               // back-fill passes, including the final unproductive one
	Unresolved []int `json:"unresolved,omitempty"` // ids still unassigned, in input order
}

// Propagate assigns generations outward from anchor, which must already
// hold generation 0 (see [SelectAnchor]).
//
// The forward phase walks parent edges from the anchor and gives each
// visited person's mother and father the person's generation plus one.
// The back-fill phase then repeatedly scans the persons still unassigned:
// a known mother yields her generation minus one, otherwise a known father
// yields his. Scanning stops once nothing is unassigned or a full pass
// resolves nobody; whoever is left stays unassigned, which is not an error.
func Propagate(g *Graph, anchor *Node, opts PropagateOptions) (Stats, error) {
	var stats Stats

	start, ok := g.index[anchor.ID]
	if !ok || g.nodes[start] != anchor {
		return stats, fmt.Errorf("%w: person %d", ErrUnknownAnchor, anchor.ID)
	}
	if !anchor.Generation.IsAssigned() {
		return stats, fmt.Errorf("%w: person %d has no generation", ErrNoAnchor, anchor.ID)
	}

	var err error
	g.walk(start, func(i int) bool {
		stats.Traversed++
		v, ok := g.nodes[i].Generation.Value()
		if !ok {
			return true
		}
		for _, j := range g.parents[i] {
			if j == none {
				continue
			}
			if err = g.propose(j, v+1, opts.Reconcile); err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return stats, err
	}

	for {
		var pending []int
		for i, n := range g.nodes {
			if !n.Generation.IsAssigned() && !g.shadowed(i) {
				pending = append(pending, i)
			}
		}
		if len(pending) == 0 {
			break
		}

		stats.Passes++
		resolved := 0
		for _, i := range pending {
			if v, ok := g.backfill(i); ok {
				g.nodes[i].Generation = Assigned(v)
				resolved++
			}
		}
		stats.Backfilled += resolved
		if resolved == 0 {
			for _, i := range pending {
				stats.Unresolved = append(stats.Unresolved, g.nodes[i].ID)
			}
			break
		}
	}
	return stats, nil
}

func (g *Graph) propose(i, v int, policy Reconcile) error {
	n := g.nodes[i]
	cur, ok := n.Generation.Value()
	switch {
	case !ok, policy == ReconcileOverwrite:
		n.Generation = Assigned(v)
	case policy == ReconcileMax:
		if v > cur {
			n.Generation = Assigned(v)
		}
	case v != cur:
		return fmt.Errorf("%w: person %d holds %d, proposed %d", ErrInconsistentGeneration, n.ID, cur, v)
	}
	return nil
}

func (g *Graph) backfill(i int) (int, bool) {
	for _, j := range g.parents[i] {
		if j == none {
			continue
		}
		if v, ok := g.nodes[j].Generation.Value(); ok {
			return v - 1, true
		}
	}
	return 0, false
}

// Options combines the anchor and propagation settings used by [Assign].
type Options struct {
	Anchor    AnchorOptions
	Propagate PropagateOptions
}

// Assignment is the outcome of [Assign].
type Assignment struct {
	Anchor *Node
	Stats
}

// Assign selects an anchor and propagates generations from it.
func Assign(g *Graph, opts Options) (*Assignment, error) {
	anchor, err := SelectAnchor(g, opts.Anchor)
	if err != nil {
		return nil, fmt.Errorf("select anchor: %w", err)
	}
	stats, err := Propagate(g, anchor, opts.Propagate)
	if err != nil {
		return nil, fmt.Errorf("propagate: %w", err)
	}
	return &Assignment{Anchor: anchor, Stats: stats}, nil
}
