package family

// none marks an absent parent slot.
const none = -1

// Node is a person in the graph together with its generation state.
type Node struct {
	Person
	Generation Generation
}

// Edge is a directed, labeled edge from a child to one of its parents.
// Both endpoints are person ids.
type Edge struct {
	From     int
	To       int
	Relation Relation
}

// Graph is the parent/child graph built from a set of person records.
//
// Nodes keep the order of the input records. Every node has at most one
// Mother edge and at most one Father edge. The node and edge sets are fixed
// by [Build]; afterwards only Node.Generation changes.
//
// The zero value is an empty graph. Graph is not safe for concurrent use.
type Graph struct {
	nodes    []*Node
	index    map[int]int // person id -> position in nodes
	edges    []Edge
	parents  [][2]int // position -> [mother, father] positions, none when absent
	children [][]int  // position -> child positions
}

// Build creates a graph from people. Parent edges are added in a second pass
// once every node exists, so records may reference parents that appear later
// in the input.
//
// A mother or father id that matches no record produces no edge and no error:
// the parent is simply unknown. Ids are expected to be unique; if they are
// not, the last record with a given id wins the id lookup. Earlier records
// with that id stay in [Graph.Nodes] but are shadowed: they get no edges,
// are never candidate leaves and never receive a generation.
func Build(people []Person) *Graph {
	g := &Graph{
		nodes: make([]*Node, 0, len(people)),
		index: make(map[int]int, len(people)),
	}
	for _, p := range people {
		g.index[p.ID] = len(g.nodes)
		g.nodes = append(g.nodes, &Node{Person: p})
	}

	g.parents = make([][2]int, len(g.nodes))
	g.children = make([][]int, len(g.nodes))
	for i, n := range g.nodes {
		g.parents[i] = [2]int{none, none}
		if g.shadowed(i) {
			continue
		}
		for _, rel := range []Relation{Mother, Father} {
			id, ok := n.ParentID(rel)
			if !ok {
				continue
			}
			j, ok := g.index[id]
			if !ok {
				continue
			}
			g.parents[i][rel] = j
			g.children[j] = append(g.children[j], i)
			g.edges = append(g.edges, Edge{From: n.ID, To: id, Relation: rel})
		}
	}
	return g
}

// shadowed reports whether the node at position i lost the id lookup to a
// later record with the same id.
func (g *Graph) shadowed(i int) bool { return g.index[g.nodes[i].ID] != i }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of parent edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns all nodes in input order. The slice is shared; do not modify it.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns all parent edges. The slice is shared; do not modify it.
func (g *Graph) Edges() []Edge { return g.edges }

// Node returns the node with the given person id.
func (g *Graph) Node(id int) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Mother returns the mother node of id, if the edge exists.
func (g *Graph) Mother(id int) (*Node, bool) { return g.parent(id, Mother) }

// Father returns the father node of id, if the edge exists.
func (g *Graph) Father(id int) (*Node, bool) { return g.parent(id, Father) }

func (g *Graph) parent(id int, rel Relation) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	j := g.parents[i][rel]
	if j == none {
		return nil, false
	}
	return g.nodes[j], true
}

// Parents returns the mother and father nodes of id that exist, mother first.
func (g *Graph) Parents(id int) []*Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	var out []*Node
	for _, j := range g.parents[i] {
		if j != none {
			out = append(out, g.nodes[j])
		}
	}
	return out
}

// Children returns the nodes that name id as mother or father.
func (g *Graph) Children(id int) []*Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]*Node, len(g.children[i]))
	for k, j := range g.children[i] {
		out[k] = g.nodes[j]
	}
	return out
}

// InDegree returns how many nodes name id as a parent.
func (g *Graph) InDegree(id int) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.children[i])
}

// Leaves returns the candidate leaves in input order: nodes that no other
// node names as mother or father. Shadowed duplicates are skipped.
func (g *Graph) Leaves() []*Node {
	var out []*Node
	for i, n := range g.nodes {
		if len(g.children[i]) == 0 && !g.shadowed(i) {
			out = append(out, n)
		}
	}
	return out
}

// Walk performs a depth-first traversal along parent edges starting at id,
// calling fn once per reachable node, the start node first. The mother line
// is explored before the father line. Walk stops early when fn returns false.
func (g *Graph) Walk(id int, fn func(*Node) bool) {
	start, ok := g.index[id]
	if !ok {
		return
	}
	g.walk(start, func(i int) bool { return fn(g.nodes[i]) })
}

func (g *Graph) walk(start int, fn func(int) bool) {
	visited := make([]bool, len(g.nodes))
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true
		// Father is pushed first so the mother is popped first.
		for _, rel := range []Relation{Father, Mother} {
			if j := g.parents[i][rel]; j != none && !visited[j] {
				stack = append(stack, j)
			}
		}
		if !fn(i) {
			return
		}
	}
}

// Unresolved returns the nodes whose generation is still unassigned,
// in input order. Shadowed duplicates are not included.
func (g *Graph) Unresolved() []*Node {
	var out []*Node
	for i, n := range g.nodes {
		if !n.Generation.IsAssigned() && !g.shadowed(i) {
			out = append(out, n)
		}
	}
	return out
}

// GenerationBounds returns the smallest and largest assigned generation.
// ok is false when no node has an assigned generation.
func (g *Graph) GenerationBounds() (lo, hi int, ok bool) {
	for _, n := range g.nodes {
		v, assigned := n.Generation.Value()
		if !assigned {
			continue
		}
		if !ok || v < lo {
			lo = v
		}
		if !ok || v > hi {
			hi = v
		}
		ok = true
	}
	return lo, hi, ok
}

// NodesInGeneration returns the nodes assigned generation v, in input order.
func (g *Graph) NodesInGeneration(v int) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if got, ok := n.Generation.Value(); ok && got == v {
			out = append(out, n)
		}
	}
	return out
}
