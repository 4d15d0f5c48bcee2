package store

// lookup walks segments below node. Absent or null nodes are ErrNotFound.
func lookup(node interface{}, segments []string) (interface{}, error) {
	for _, seg := range segments {
		parent, ok := node.(map[string]interface{})
		if !ok {
			return nil, ErrNotFound
		}
		node, ok = parent[seg]
		if !ok || node == nil {
			return nil, ErrNotFound
		}
	}
	if node == nil {
		return nil, ErrNotFound
	}
	return node, nil
}

// assign writes value below root, creating intermediate maps and replacing
// non-map intermediates. A nil value removes the leaf.
func assign(root map[string]interface{}, segments []string, value interface{}) {
	parent := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := parent[seg].(map[string]interface{})
		if !ok {
			if value == nil {
				return
			}
			child = make(map[string]interface{})
			parent[seg] = child
		}
		parent = child
	}

	leaf := segments[len(segments)-1]
	if value == nil {
		delete(parent, leaf)
		return
	}
	parent[leaf] = value
}
