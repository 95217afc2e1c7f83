package internal

// ReconstructPath walks parent links from goal back to start and returns the
// chain in start-to-goal order. It fails when a link is missing or when the
// chain grows past limit nodes, which can only happen on a cycle.
func ReconstructPath[NodeType comparable](
	parentOf func(NodeType) (NodeType, bool),
	goal NodeType,
	start NodeType,
	limit int,
) ([]NodeType, bool) {
	path := []NodeType{goal}
	current := goal
	for current != start {
		if len(path) > limit {
			return nil, false
		}
		previousNode, exists := parentOf(current)
		if !exists {
			return nil, false
		}
		path = append(path, previousNode)
		current = previousNode
	}
	// reverse path
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}
