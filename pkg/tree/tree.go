// Package tree provides a keyed, immutable tree with an ancestor index and
// pre-order traversal.
package tree

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// Root is the reserved key of the synthetic root node
const Root Key = "_ROOT_"

// ErrDuplicateKey is returned when two nodes share a key
var ErrDuplicateKey = errors.New("duplicate tree key")

// Key identifies a node uniquely within a tree
type Key string

// Node is a tree node carrying an opaque payload. The order of Children is
// display order only.
type Node[T any] struct {
	Key      Key        `json:"key"`
	Title    string     `json:"title"`
	Children []*Node[T] `json:"children,omitempty"`
	Data     T          `json:"-"`
}

// IsLeaf reports whether the node has no children
func (n *Node[T]) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree wraps a list of top-level nodes under a synthetic root and indexes
// every key to its ancestor chain. It must not be mutated after New.
type Tree[T any] struct {
	root      *Node[T]
	ancestors map[Key][]*Node[T]
}

// New builds a tree from top-level nodes
func New[T any](nodes []*Node[T]) (*Tree[T], error) {
	root := &Node[T]{Key: Root, Title: "Root", Children: nodes}
	t := &Tree[T]{
		root:      root,
		ancestors: map[Key][]*Node[T]{Root: {root}},
	}
	if err := t.index(nodes, nil); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree[T]) index(nodes []*Node[T], parents []*Node[T]) error {
	for _, n := range nodes {
		if _, dup := t.ancestors[n.Key]; dup {
			return fmt.Errorf("index node %q: %w", n.Key, ErrDuplicateKey)
		}
		chain := make([]*Node[T], len(parents)+1)
		copy(chain, parents)
		chain[len(parents)] = n
		t.ancestors[n.Key] = chain
		if err := t.index(n.Children, chain); err != nil {
			return err
		}
	}
	return nil
}

// RootNode returns the synthetic root
func (t *Tree[T]) RootNode() *Node[T] {
	return t.root
}

// Roots returns the top-level nodes in construction order
func (t *Tree[T]) Roots() []*Node[T] {
	return t.root.Children
}

// Len returns the number of indexed nodes, excluding the synthetic root
func (t *Tree[T]) Len() int {
	return len(t.ancestors) - 1
}

// AncestorsByKey returns the chain from the top-level ancestor down to the
// node itself. Unknown keys give an empty chain; Root gives the root alone.
// The chain is a copy; the nodes are shared with the tree.
func (t *Tree[T]) AncestorsByKey(key Key) []*Node[T] {
	return slices.Clone(t.ancestors[key])
}

// Lookup returns the node for a key
func (t *Tree[T]) Lookup(key Key) (*Node[T], bool) {
	chain, ok := t.ancestors[key]
	if !ok {
		return nil, false
	}
	return chain[len(chain)-1], true
}

// NodeByKey returns the node for a key and panics if the key is unknown.
// Check with Lookup or AncestorsByKey first when the key is untrusted.
func (t *Tree[T]) NodeByKey(key Key) *Node[T] {
	n, ok := t.Lookup(key)
	if !ok {
		panic(fmt.Sprintf("tree: unknown key %q", key))
	}
	return n
}

// Walk yields every node with its parent in pre-order, starting again from
// the roots on each call. Top-level nodes have a nil parent.
func (t *Tree[T]) Walk() iter.Seq2[*Node[T], *Node[T]] {
	return t.WalkFrom(t.root.Children, nil)
}

// WalkFrom yields the nodes of a subtree in pre-order, reporting parent as
// the parent of the given nodes.
func (t *Tree[T]) WalkFrom(nodes []*Node[T], parent *Node[T]) iter.Seq2[*Node[T], *Node[T]] {
	return func(yield func(*Node[T], *Node[T]) bool) {
		walk(nodes, parent, yield)
	}
}

func walk[T any](nodes []*Node[T], parent *Node[T], yield func(*Node[T], *Node[T]) bool) bool {
	for _, n := range nodes {
		if !yield(n, parent) {
			return false
		}
		if !walk(n.Children, n, yield) {
			return false
		}
	}
	return true
}

// View names a way of presenting a node
type View struct {
	Value string `json:"value"`
	Icon  string `json:"icon"`
}

// Viewer is a tree that can tell which views apply to each node
type Viewer[T any] interface {
	Roots() []*Node[T]
	AncestorsByKey(key Key) []*Node[T]
	NodeByKey(key Key) *Node[T]
	Walk() iter.Seq2[*Node[T], *Node[T]]
	ViewsByKey(key Key) []View
}
