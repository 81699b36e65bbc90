package family

import (
	"cmp"
	"fmt"
	"slices"
)

// AnchorOptions configures [SelectAnchor].
type AnchorOptions struct {
	// RequireParents makes a candidate leaf without both a mother and a
	// father node a fatal error. When false, a missing parent simply adds
	// nothing to the reference-parent set. It is not checked when the graph
	// has exactly one candidate leaf; that leaf is the anchor regardless.
	RequireParents bool
}

// Candidate is a candidate leaf together with its anchor score.
type Candidate struct {
	Node  *Node
	Score int
}

// Candidates returns the candidate leaves ordered by ascending person id,
// each scored against the reference-parent set.
//
// The reference-parent set is the union of every candidate's mother and
// father. A candidate's score is the number of nodes visited consecutively by
// [Graph.Walk] from the candidate while each visited node is in that set.
// The walk starts at the candidate itself, and a candidate leaf is nobody's
// parent, so every score is 0 and the anchor is the smallest candidate id.
func Candidates(g *Graph, opts AnchorOptions) ([]Candidate, error) {
	var leaves []int
	for i := range g.nodes {
		if len(g.children[i]) == 0 && !g.shadowed(i) {
			leaves = append(leaves, i)
		}
	}
	if len(leaves) == 0 {
		return nil, ErrNoCandidateLeaves
	}
	slices.SortStableFunc(leaves, func(a, b int) int {
		return cmp.Compare(g.nodes[a].ID, g.nodes[b].ID)
	})

	refs := make(map[int]bool, 2*len(leaves))
	for _, i := range leaves {
		for _, rel := range []Relation{Mother, Father} {
			j := g.parents[i][rel]
			if j == none {
				if opts.RequireParents {
					return nil, fmt.Errorf("%w: person %d has no %s", ErrLeafMissingParent, g.nodes[i].ID, rel)
				}
				continue
			}
			refs[j] = true
		}
	}

	out := make([]Candidate, len(leaves))
	for k, i := range leaves {
		score := 0
		g.walk(i, func(j int) bool {
			if !refs[j] {
				return false
			}
			score++
			return true
		})
		out[k] = Candidate{Node: g.nodes[i], Score: score}
	}
	return out, nil
}

// SelectAnchor picks the generation-zero node and sets its generation to 0.
//
// A single candidate leaf is the anchor directly. Otherwise the candidate with
// the highest [Candidates] score wins, and ties go to the smallest person id.
// Any generations already present on other nodes are left untouched.
func SelectAnchor(g *Graph, opts AnchorOptions) (*Node, error) {
	var anchor *Node
	if leaves := g.Leaves(); len(leaves) == 1 {
		anchor = leaves[0]
	} else {
		cands, err := Candidates(g, opts)
		if err != nil {
			return nil, err
		}
		best := -1
		for _, c := range cands {
			if c.Score > best {
				anchor, best = c.Node, c.Score
			}
		}
	}
	if anchor == nil {
		return nil, ErrNoAnchor
	}
	anchor.Generation = Assigned(0)
	return anchor, nil
}
