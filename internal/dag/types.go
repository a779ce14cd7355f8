package dag

// Graph is a set of string-keyed nodes and their dependencies. Node
// insertion order is remembered so traversals are deterministic.
type Graph struct {
	nodes map[string]*node
	order []string
}

// node is un-exported so callers go through the string-id API.
type node struct {
	id string
	// deps holds the nodes this node depends on, in insertion order.
	deps []string
	// dependents holds the nodes depending on this node, in insertion order.
	dependents []string
}
