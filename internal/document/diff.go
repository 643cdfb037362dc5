package document

import "fmt"

// Change kinds reported by DiffStructures
const (
	ChangeAdded    = "added"
	ChangeRemoved  = "removed"
	ChangeModified = "modified"
)

// Change describes one top-level node that differs between two structures
type Change struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Title  string `json:"title,omitempty"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

func nodeKey(i int, n Node) string {
	switch {
	case n.ID != "":
		return "id:" + n.ID
	case n.Title != "":
		return "title:" + n.Title
	default:
		return fmt.Sprintf("#%d", i)
	}
}

// DiffStructures compares top-level nodes by id, title or position. Added and
// modified nodes come in new order, removed ones follow in old order.
func DiffStructures(before, after *Structure) []Change {
	if before == nil {
		before = &Structure{}
	}
	if after == nil {
		after = &Structure{}
	}

	old := make(map[string]string, len(before.Nodes))
	for i, n := range before.Nodes {
		old[nodeKey(i, n)] = RenderNode(n)
	}

	changes := []Change{}
	seen := make(map[string]bool, len(after.Nodes))
	for i, n := range after.Nodes {
		key := nodeKey(i, n)
		seen[key] = true
		rendered := RenderNode(n)
		prev, ok := old[key]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeAdded, Key: key, Title: n.Title, After: rendered})
		case prev != rendered:
			changes = append(changes, Change{Kind: ChangeModified, Key: key, Title: n.Title, Before: prev, After: rendered})
		}
	}
	for i, n := range before.Nodes {
		key := nodeKey(i, n)
		if !seen[key] {
			changes = append(changes, Change{Kind: ChangeRemoved, Key: key, Title: n.Title, Before: old[key]})
		}
	}
	return changes
}
