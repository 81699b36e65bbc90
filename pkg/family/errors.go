package family

import "errors"

var (
	// ErrNoCandidateLeaves is returned by [SelectAnchor] when every node is
	// named as somebody's mother or father, leaving nothing to anchor on.
	ErrNoCandidateLeaves = errors.New("no candidate leaves")

	// ErrLeafMissingParent is returned by [SelectAnchor] in strict mode when a
	// candidate leaf lacks a mother or father node in the graph.
	ErrLeafMissingParent = errors.New("candidate leaf is missing a parent")

	// ErrNoAnchor is returned when no anchor could be determined, or when
	// [Propagate] is given an anchor without an assigned generation.
	ErrNoAnchor = errors.New("no anchor found")

	// ErrUnknownAnchor is returned by [Propagate] when the anchor node does
	// not belong to the graph.
	ErrUnknownAnchor = errors.New("anchor is not part of the graph")

	// ErrInconsistentGeneration is returned by [Propagate] under
	// [ReconcileReject] when two paths propose different generations for the
	// same person.
	ErrInconsistentGeneration = errors.New("inconsistent generation")
)
