// Package thread rebuilds the reply tree of a post from the flat list of
// notes returned by the instance.
package thread

import (
	"slices"
	"strings"

	"misskey-comments/internal/domain"
)

// Node is the render node of one note and the handles of its replies.
type Node struct {
	Note     domain.Note
	Children []*Node
}

// Tree is the reconstructed reply tree under a root post.
type Tree struct {
	RootID string
	// Nodes are the top-level render nodes: direct replies to the root
	// first, then notes whose parent could not be resolved.
	Nodes []*Node
	// Detached counts the top-level nodes placed by the fallback.
	Detached int
}

// Build reconstructs the reply tree of rootID from notes.
//
// Notes are grouped by parent reference once and placed in a single top-down
// pass; siblings are ordered by createdAt, ties keep input order. A note whose
// parent never becomes an anchor (parent outside the fetch window, or a reply
// cycle unreachable from the root) is appended at the top level so that every
// note appears exactly once. Duplicate ids keep the first occurrence.
func Build(notes []domain.Note, rootID string) *Tree {
	tree := &Tree{RootID: rootID}

	unique := dedupe(notes, rootID)
	if len(unique) == 0 {
		return tree
	}

	ids := make(map[string]bool, len(unique))
	for _, n := range unique {
		if n.ID != "" {
			ids[n.ID] = true
		}
	}

	children := make(map[string][]int, len(unique))
	for i, n := range unique {
		parent := n.ParentRef(rootID)
		children[parent] = append(children[parent], i)
	}
	for parent := range children {
		sortByCreated(unique, children[parent])
	}

	b := &builder{notes: unique, children: children, placed: make([]bool, len(unique))}
	tree.Nodes = b.attach(rootID)

	order := make([]int, len(unique))
	for i := range order {
		order[i] = i
	}
	sortByCreated(unique, order)

	// Parents missing from the collection first, so that whole detached
	// subthreads stay nested; whatever is left is part of a cycle.
	for _, missingParent := range []bool{true, false} {
		for _, i := range order {
			if b.placed[i] {
				continue
			}
			parent := unique[i].ParentRef(rootID)
			if missingParent && ids[parent] {
				continue
			}
			tree.Nodes = append(tree.Nodes, b.place(i))
			tree.Detached++
		}
	}

	return tree
}

type builder struct {
	notes    []domain.Note
	children map[string][]int
	placed   []bool
}

func (b *builder) attach(anchorID string) []*Node {
	var nodes []*Node
	for _, i := range b.children[anchorID] {
		if b.placed[i] {
			continue
		}
		nodes = append(nodes, b.place(i))
	}
	return nodes
}

func (b *builder) place(i int) *Node {
	b.placed[i] = true
	node := &Node{Note: b.notes[i]}
	if id := b.notes[i].ID; id != "" {
		node.Children = b.attach(id)
	}
	return node
}

func dedupe(notes []domain.Note, rootID string) []domain.Note {
	seen := make(map[string]bool, len(notes))
	unique := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		// The root post is the container, never one of its own replies.
		if n.ID != "" && n.ID == rootID {
			continue
		}
		if n.ID != "" {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
		}
		unique = append(unique, n)
	}
	return unique
}

func sortByCreated(notes []domain.Note, idx []int) {
	slices.SortStableFunc(idx, func(a, b int) int {
		return strings.Compare(notes[a].CreatedAt, notes[b].CreatedAt)
	})
}

// Len returns the number of notes in the tree.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(*Node, int) { count++ })
	return count
}

// Empty reports whether the tree has no notes.
func (t *Tree) Empty() bool {
	return t == nil || len(t.Nodes) == 0
}

// Walk visits every node depth-first in render order. Depth 0 is top level.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	if t == nil {
		return
	}
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(t.Nodes, 0)
}
