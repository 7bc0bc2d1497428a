package tree

import "strings"

// ChildrenKey is the key of the trailing breadcrumb offering the children of
// the selected node
const ChildrenKey Key = "_CHILD_"

// MenuItem is an entry in a breadcrumb's sibling menu
type MenuItem struct {
	Key   Key    `json:"key"`
	Title string `json:"title"`
}

// Crumb is one step of the path to a selected node
type Crumb struct {
	Key   Key        `json:"key"`
	Title string     `json:"title"`
	Menu  []MenuItem `json:"menu,omitempty"`
}

// Breadcrumbs returns the path from the root to key. Each step carries a menu
// of the nodes that could be chosen at that level instead, omitted when the
// node has no alternatives. A trailing "..." step lists the children of a
// non-leaf selection.
func (t *Tree[T]) Breadcrumbs(key Key) []Crumb {
	crumbs := []Crumb{{Key: Root, Title: t.root.Title}}

	var path []*Node[T]
	if key != Root {
		path = t.AncestorsByKey(key)
	}

	level := t.root.Children
	for _, n := range path {
		crumb := Crumb{Key: n.Key, Title: n.Title}
		if len(level) > 1 || (len(level) == 1 && level[0] != n) {
			crumb.Menu = menu(level)
		}
		crumbs = append(crumbs, crumb)
		level = n.Children
	}

	if len(level) > 0 {
		crumbs = append(crumbs, Crumb{Key: ChildrenKey, Title: "...", Menu: menu(level)})
	}
	return crumbs
}

func menu[T any](nodes []*Node[T]) []MenuItem {
	items := make([]MenuItem, len(nodes))
	for i, n := range nodes {
		items[i] = MenuItem{Key: n.Key, Title: n.Title}
	}
	return items
}

// Search returns the keys of the parents of every node whose title contains
// substr, in walk order without repeats. These are the nodes to expand so
// that all matches are visible.
func (t *Tree[T]) Search(substr string) []Key {
	seen := make(map[Key]bool)
	var keys []Key
	for n, parent := range t.Walk() {
		if parent == nil || !strings.Contains(n.Title, substr) {
			continue
		}
		if !seen[parent.Key] {
			seen[parent.Key] = true
			keys = append(keys, parent.Key)
		}
	}
	return keys
}

// Matches returns the keys of the nodes whose title contains substr
func (t *Tree[T]) Matches(substr string) []Key {
	var keys []Key
	for n := range t.Walk() {
		if strings.Contains(n.Title, substr) {
			keys = append(keys, n.Key)
		}
	}
	return keys
}
