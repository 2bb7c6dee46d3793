// Package hierarchy is an id-indexed arena over the category tree. It answers
// ancestor, descendant and path queries and validates re-parenting without
// touching storage.
package hierarchy

import (
	"errors"
	"strings"
)

// PathSeparator joins category names in a display path.
const PathSeparator = " / "

var (
	// ErrCycle means an edge would make a node its own ancestor.
	ErrCycle = errors.New("hierarchy: move would create a cycle")
	// ErrUnknownNode means an id is not part of the tree.
	ErrUnknownNode = errors.New("hierarchy: unknown node")
)

// Node is a single tree entry. ParentID is empty for roots.
type Node struct {
	ID       string
	ParentID string
	Name     string
}

// Tree indexes nodes by id and by parent.
type Tree struct {
	nodes    map[string]Node
	children map[string][]string
}

// New builds a tree from a flat node list. Children keep the input order.
func New(nodes []Node) *Tree {
	t := &Tree{
		nodes:    make(map[string]Node, len(nodes)),
		children: make(map[string][]string),
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
		if n.ParentID != "" {
			t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
		}
	}
	return t
}

// Node returns the node with the given id.
func (t *Tree) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Ancestors returns the chain from id's parent up to its root, nearest first.
func (t *Tree) Ancestors(id string) ([]Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, ErrUnknownNode
	}
	visited := map[string]bool{id: true}
	var out []Node
	for cur := n.ParentID; cur != ""; {
		if visited[cur] {
			return nil, ErrCycle
		}
		visited[cur] = true
		p, ok := t.nodes[cur]
		if !ok {
			return nil, ErrUnknownNode
		}
		out = append(out, p)
		cur = p.ParentID
	}
	return out, nil
}

// Descendants returns every node below id in breadth-first order.
func (t *Tree) Descendants(id string) ([]Node, error) {
	if _, ok := t.nodes[id]; !ok {
		return nil, ErrUnknownNode
	}
	visited := map[string]bool{id: true}
	queue := append([]string(nil), t.children[id]...)
	var out []Node
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, t.nodes[cur])
		queue = append(queue, t.children[cur]...)
	}
	return out, nil
}

// Subtree returns id followed by all its descendant ids.
func (t *Tree) Subtree(id string) ([]string, error) {
	desc, err := t.Descendants(id)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(desc)+1)
	ids = append(ids, id)
	for _, n := range desc {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

// Path returns the node names from the root down to id.
func (t *Tree) Path(id string) ([]string, error) {
	anc, err := t.Ancestors(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(anc)+1)
	for i := len(anc) - 1; i >= 0; i-- {
		names = append(names, anc[i].Name)
	}
	names = append(names, t.nodes[id].Name)
	return names, nil
}

// FullPath returns Path joined with PathSeparator.
func (t *Tree) FullPath(id string) (string, error) {
	names, err := t.Path(id)
	if err != nil {
		return "", err
	}
	return strings.Join(names, PathSeparator), nil
}

// CheckMove validates re-parenting id under newParentID. An empty
// newParentID detaches the node to the root level. The candidate parent's
// ancestor chain is walked with a visited set; reaching id means the edge
// would close a cycle.
func (t *Tree) CheckMove(id, newParentID string) error {
	if _, ok := t.nodes[id]; !ok {
		return ErrUnknownNode
	}
	if newParentID == "" {
		return nil
	}
	if newParentID == id {
		return ErrCycle
	}
	visited := make(map[string]bool)
	for cur := newParentID; cur != ""; {
		if cur == id || visited[cur] {
			return ErrCycle
		}
		visited[cur] = true
		n, ok := t.nodes[cur]
		if !ok {
			return ErrUnknownNode
		}
		cur = n.ParentID
	}
	return nil
}
