// Package family builds parent/child graphs from genealogical records and
// labels every person with a generation number.
//
// # Overview
//
// Lineage renders family trees as layered diagrams where each layer holds one
// generation. This package provides the data structure and the
// generation-assignment engine behind those layers. Work happens in three
// strictly sequential steps:
//
//  1. [Build] turns person records into a [Graph] with a Mother and a Father
//     edge from each child to its parents.
//  2. [SelectAnchor] picks one candidate leaf (a person nobody names as a
//     parent) and gives it generation 0.
//  3. [Propagate] walks parent edges from the anchor, giving parents their
//     child's generation plus one, then back-fills anyone the walk missed
//     from their parents' generations.
//
// [Assign] runs steps 2 and 3 together:
//
//	g := family.Build(people)
//	res, err := family.Assign(g, family.Options{})
//	if err != nil {
//	    return err
//	}
//	for _, id := range res.Unresolved {
//	    log.Printf("person %d has no generation", id)
//	}
//
// # Generations
//
// A [Generation] is either assigned or unassigned; there is no sentinel
// number. Ancestors hold larger values than their descendants. Back-fill can
// produce negative values for descendants of people outside the anchor's
// direct line.
//
// # Limitations
//
// The parent relation is assumed to be a forest. When a person is reachable
// from the anchor along two paths of different length, the [Reconcile] policy
// decides which proposal survives. Cycles are not detected. People who are
// neither reachable from the anchor nor have a resolved parent remain
// unassigned and are reported in [Stats.Unresolved].
//
// # Concurrency
//
// Graph is not safe for concurrent use. Build a separate graph per goroutine.
package family
