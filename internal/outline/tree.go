// Package outline parses dot-numbered outlines ("1.", "1.2.", "1.2.3") into
// an arena-backed tree and splits finished outlines into top-level sections.
package outline

import (
	"regexp"
	"strings"
)

// NodeID indexes a node in its Tree. The synthetic root is always 0.
type NodeID int

const rootID NodeID = 0

// Node is one numbered outline line.
type Node struct {
	Title    string   `json:"title"`
	Number   string   `json:"number"`
	Depth    int      `json:"depth"`
	Parent   NodeID   `json:"parent"`
	Children []NodeID `json:"children,omitempty"`
}

// Tree stores nodes in source order. Index 0 is a synthetic root with depth
// -1 that is never exposed through Roots or Walk.
type Tree struct {
	nodes []Node
}

// lineRe requires a dotted number: "2." or "2.1" or "2.1." but not a bare "2024".
var lineRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)+\.?|\d+\.)\s+(\S.*)$`)

// Parse builds a tree from outline text. Lines without a leading dotted
// number are ignored. Depth jumps attach to the nearest shallower ancestor.
func Parse(text string) *Tree {
	t := &Tree{nodes: []Node{{Depth: -1, Parent: -1}}}

	type frame struct {
		id    NodeID
		depth int
	}
	stack := []frame{{rootID, -1}}

	for _, line := range strings.Split(text, "\n") {
		m := lineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		number := strings.TrimSuffix(m[1], ".")
		depth := strings.Count(number, ".")

		for len(stack) > 1 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].id

		id := NodeID(len(t.nodes))
		t.nodes = append(t.nodes, Node{
			Title:  strings.TrimSpace(m[2]),
			Number: number,
			Depth:  depth,
			Parent: parent,
		})
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
		stack = append(stack, frame{id, depth})
	}
	return t
}

// Len returns the number of parsed nodes, excluding the root.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Roots returns the top-level nodes in source order.
func (t *Tree) Roots() []NodeID { return t.nodes[rootID].Children }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) Node { return t.nodes[id] }

// Walk visits every node in pre-order, which is source order. Returning
// false from fn stops the walk.
func (t *Tree) Walk(fn func(NodeID, Node) bool) {
	roots := t.Roots()
	stack := make([]NodeID, 0, len(t.nodes))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[id]
		if !fn(id, n) {
			return
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Titles flattens the tree to its titles in pre-order.
func (t *Tree) Titles() []string {
	titles := make([]string, 0, t.Len())
	t.Walk(func(_ NodeID, n Node) bool {
		titles = append(titles, n.Title)
		return true
	})
	return titles
}

// Item is a self-contained view of a node and its subtree, suitable for
// JSON responses.
type Item struct {
	Number   string `json:"number"`
	Title    string `json:"title"`
	Depth    int    `json:"depth"`
	Children []Item `json:"children,omitempty"`
}

// Items materialises the tree as nested values.
func (t *Tree) Items() []Item {
	// Build bottom-up: children always have larger ids than their parent.
	built := make([]Item, len(t.nodes))
	for id := len(t.nodes) - 1; id > 0; id-- {
		n := t.nodes[id]
		item := Item{Number: n.Number, Title: n.Title, Depth: n.Depth}
		for _, c := range n.Children {
			item.Children = append(item.Children, built[c])
		}
		built[id] = item
	}
	items := make([]Item, 0, len(t.Roots()))
	for _, id := range t.Roots() {
		items = append(items, built[id])
	}
	return items
}
