package contrib

import (
	"cmp"
	"slices"
	"strings"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/registry"
)

// SortedCommands returns commands ordered by title, then id.
func SortedCommands(store *registry.Store[Command]) []*registry.Contribution[Command] {
	all := store.GetAll()
	slices.SortStableFunc(all, func(a, b *registry.Contribution[Command]) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Payload.Title), strings.ToLower(b.Payload.Title)),
			strings.Compare(a.ID, b.ID),
		)
	})
	return all
}

// CommandPalette filters commands by query. Title prefix matches rank before
// substring matches; an empty query returns every command sorted.
func CommandPalette(store *registry.Store[Command], query string) []*registry.Contribution[Command] {
	sorted := SortedCommands(store)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return sorted
	}

	var prefix, contains []*registry.Contribution[Command]
	for _, c := range sorted {
		title := strings.ToLower(c.Payload.Title)
		switch {
		case strings.HasPrefix(title, q):
			prefix = append(prefix, c)
		case strings.Contains(title, q), strings.Contains(strings.ToLower(c.ID), q):
			contains = append(contains, c)
		}
	}
	return append(prefix, contains...)
}

// SortedSidebar returns sidebar items by Order, then title.
func SortedSidebar(store *registry.Store[SidebarItem]) []*registry.Contribution[SidebarItem] {
	all := store.GetAll()
	slices.SortStableFunc(all, func(a, b *registry.Contribution[SidebarItem]) int {
		return cmp.Or(cmp.Compare(a.Payload.Order, b.Payload.Order), strings.Compare(a.Payload.Title, b.Payload.Title))
	})
	return all
}

// StatusBar splits status items by alignment, keeping registration order.
func StatusBar(store *registry.Store[StatusBarItem]) (left, right []*registry.Contribution[StatusBarItem]) {
	for _, c := range store.GetAll() {
		if c.Payload.Align == AlignRight {
			right = append(right, c)
		} else {
			left = append(left, c)
		}
	}
	return left, right
}

// EntityMenu returns the entity menu items that apply to e.
func EntityMenu(store *registry.Store[EntityMenuItem], e *catalog.Entity) []*registry.Contribution[EntityMenuItem] {
	var out []*registry.Contribution[EntityMenuItem]
	for _, c := range store.GetAll() {
		if c.Payload.AppliesTo(e) {
			out = append(out, c)
		}
	}
	return out
}

// Node is one level of a contribution tree.
type Node[T any] struct {
	Item     *registry.Contribution[T]
	Children []*Node[T]
}

// Tree resolves ParentID links. Items whose parent is missing, or that sit on a
// parent cycle, are returned as orphans.
func Tree[T any](items []*registry.Contribution[T]) (roots []*Node[T], orphans []*registry.Contribution[T]) {
	nodes := make(map[string]*Node[T], len(items))
	for _, c := range items {
		nodes[c.ID] = &Node[T]{Item: c}
	}

	for _, c := range items {
		if c.ParentID == "" {
			roots = append(roots, nodes[c.ID])
			continue
		}
		if parent, ok := nodes[c.ParentID]; ok {
			parent.Children = append(parent.Children, nodes[c.ID])
		}
	}

	reached := make(map[string]bool, len(items))
	var walk func(n *Node[T])
	walk = func(n *Node[T]) {
		reached[n.Item.ID] = true
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	for _, c := range items {
		if !reached[c.ID] {
			orphans = append(orphans, c)
		}
	}
	return roots, orphans
}
