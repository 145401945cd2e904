// Package resolver walks the dynamically-expanding command tree: id
// lookup, favorites discovery with breadcrumbs, suggestion building, and
// deep-search flattening.
//
// Children are produced fresh on every call, so all lookups work by
// (ancestorIdPath, id), never by holding a node reference across requests.
// A failing children producer empties that branch only: the error is
// logged and sibling branches keep being searched.
package resolver

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// RootID names the implicit top level of the catalog.
const RootID = "root"

// Resolver performs tree walks against a command catalog.
type Resolver struct {
	log logr.Logger
}

// New returns a resolver logging through log.
func New(log logr.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve finds id anywhere under nodes: the current level is checked
// first, then each group's children depth-first.
func (r *Resolver) Resolve(ctx context.Context, nodes []command.Node, id string, rc *command.RunContext) (command.Node, error) {
	for _, n := range nodes {
		if n.ID == id {
			return n, nil
		}
	}
	for _, n := range nodes {
		if n.Kind != command.KindGroup || n.Children == nil {
			continue
		}
		children, err := n.Children(ctx, rc)
		if err != nil {
			r.log.Error(err, "children producer failed, skipping branch", "group", n.ID)
			continue
		}
		if found, err := r.Resolve(ctx, children, id, rc); err == nil {
			return found, nil
		}
	}
	return command.Node{}, &command.NotFoundError{ID: id}
}

// ResolveByPath relocates a node by its ancestor id path: each path element
// names a group at the current level to descend into, and id is looked up
// at the final level. An empty or root-only path resolves at the top level.
func (r *Resolver) ResolveByPath(ctx context.Context, nodes []command.Node, parentPath []string, id string, rc *command.RunContext) (command.Node, error) {
	level, err := r.LevelAtPath(ctx, nodes, parentPath, rc)
	if err != nil {
		return command.Node{}, err
	}
	for _, n := range level {
		if n.ID == id {
			return n, nil
		}
	}
	return command.Node{}, &command.NotFoundError{ID: id}
}

// LevelAtPath returns the child list reached by descending the ancestor id
// path from the top level.
func (r *Resolver) LevelAtPath(ctx context.Context, nodes []command.Node, parentPath []string, rc *command.RunContext) ([]command.Node, error) {
	level := nodes
	for _, ancestor := range parentPath {
		if ancestor == RootID {
			continue
		}
		var next *command.Node
		for i := range level {
			if level[i].ID == ancestor {
				next = &level[i]
				break
			}
		}
		if next == nil || next.Kind != command.KindGroup || next.Children == nil {
			return nil, &command.NotFoundError{ID: ancestor}
		}
		children, err := next.Children(ctx, rc)
		if err != nil {
			return nil, &command.ExecutionError{ID: ancestor, Err: err}
		}
		level = children
	}
	return level, nil
}

// visit is called for every node reached during a Walk. parentPath holds
// the ancestor ids (excluding root), parentName the nearest ancestor's
// resolved display name, and nameTrail every ancestor name from the top
// down.
type visit func(n command.Node, parentPath []string, parentName string, nameTrail []string)

// Walk traverses the whole tree in discovery order, expanding every group.
// Failing branches are logged and skipped.
func (r *Resolver) Walk(ctx context.Context, nodes []command.Node, rc *command.RunContext, fn visit) {
	r.walk(ctx, nodes, rc, nil, "", nil, fn)
}

func (r *Resolver) walk(ctx context.Context, nodes []command.Node, rc *command.RunContext, parentPath []string, parentName string, nameTrail []string, fn visit) {
	for _, n := range nodes {
		fn(n, parentPath, parentName, nameTrail)
		if n.Kind != command.KindGroup || n.Children == nil {
			continue
		}
		children, err := n.Children(ctx, rc)
		if err != nil {
			r.log.Error(err, "children producer failed, skipping branch", "group", n.ID)
			continue
		}
		name, err := n.ResolveName(ctx, rc)
		if err != nil {
			r.log.Error(err, "name resolution failed, using id", "command", n.ID)
			name = n.ID
		}
		childPath := append(append([]string(nil), parentPath...), n.ID)
		childTrail := append(append([]string(nil), nameTrail...), name)
		r.walk(ctx, children, rc, childPath, name, childTrail, fn)
	}
}

// CatalogOrder returns every command id in discovery order (the pre-order
// of a full tree walk). Used as the stable tie-break for ranking.
func (r *Resolver) CatalogOrder(ctx context.Context, nodes []command.Node, rc *command.RunContext) []string {
	var order []string
	r.Walk(ctx, nodes, rc, func(n command.Node, _ []string, _ string, _ []string) {
		order = append(order, n.ID)
	})
	return order
}
