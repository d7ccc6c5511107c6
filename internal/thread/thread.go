// Package thread turns the flat, time-ordered comments of a post into the
// reply tree shown under it.
package thread

import (
	"sort"

	"corkboard/internal/content"
)

// Node is a comment with the comments that answer it directly.
type Node struct {
	content.Comment
	Replies []*Node

	seq int
}

// Build links comments to their parents. Input must be sorted by creation
// time, oldest first; that order is kept at every level.
//
// A comment whose parent is not in the input is dropped, not promoted to the
// top level. Comments caught in a parent cycle can never be reached from a
// top-level comment, so they are dropped as well.
func Build(comments []content.Comment) []*Node {
	byID := make(map[int64]*Node, len(comments))
	nodes := make([]*Node, len(comments))
	for i := range comments {
		node := &Node{Comment: comments[i], seq: i}
		nodes[i] = node
		byID[node.ID] = node
	}

	roots := make([]*Node, 0, len(comments))
	for _, node := range nodes {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*node.ParentID]
		if !ok || parent == node {
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}
	return roots
}

// Flatten lists every comment reachable from roots in pre-order.
func Flatten(roots []*Node) []content.Comment {
	var out []content.Comment
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, node := range nodes {
			out = append(out, node.Comment)
			walk(node.Replies)
		}
	}
	walk(roots)
	return out
}

// Entry is a top-level comment and every comment below it.
type Entry struct {
	content.Comment
	Replies []content.Comment
}

// TwoTier renders the tree in two ranks. A reply to a reply is listed under
// its top-level ancestor, and each reply list keeps creation order.
func TwoTier(roots []*Node) []Entry {
	entries := make([]Entry, 0, len(roots))
	for _, root := range roots {
		var below []*Node
		collect(root.Replies, &below)
		sort.SliceStable(below, func(i, j int) bool { return below[i].seq < below[j].seq })

		replies := make([]content.Comment, 0, len(below))
		for _, node := range below {
			replies = append(replies, node.Comment)
		}
		entries = append(entries, Entry{Comment: root.Comment, Replies: replies})
	}
	return entries
}

func collect(nodes []*Node, out *[]*Node) {
	for _, node := range nodes {
		*out = append(*out, node)
		collect(node.Replies, out)
	}
}
