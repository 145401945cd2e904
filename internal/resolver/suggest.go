package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// SuggestOptions carries the persisted state a suggestion merges in:
// per-command overrides from the settings blob and the favorites set.
type SuggestOptions struct {
	Overrides  map[string]command.Settings
	Favorites  map[string]bool
	ParentPath []string
}

// ToSuggestions projects nodes into UI-ready suggestions for one execution
// context: all asynchronous display properties resolved, the derived action
// set computed, and any persisted keybinding override merged over the
// node's default. parentName, when non-empty, is attached as the breadcrumb
// (the node is being shown out of its hierarchical context).
func (r *Resolver) ToSuggestions(ctx context.Context, nodes []command.Node, rc *command.RunContext, parentName string, opts SuggestOptions) []command.Suggestion {
	out := make([]command.Suggestion, 0, len(nodes))
	for i := range nodes {
		out = append(out, r.toSuggestion(ctx, &nodes[i], rc, parentName, opts))
	}
	return out
}

func (r *Resolver) toSuggestion(ctx context.Context, n *command.Node, rc *command.RunContext, parentName string, opts SuggestOptions) command.Suggestion {
	s := command.Suggestion{
		ID:         n.ID,
		Kind:       n.Kind,
		ParentName: parentName,
		Keywords:   append([]string(nil), n.Keywords...),
		Confirm:    n.Confirm,
		RemainOpen: n.RemainOpen,
		ParentPath: append([]string(nil), opts.ParentPath...),
		Favorited:  opts.Favorites[n.ID],
	}
	if n.Kind == command.KindInput && n.Input != nil {
		s.Field = n.Input.Field
	}

	name, err := n.ResolveName(ctx, rc)
	if err != nil {
		r.log.Error(err, "name resolution failed, using id", "command", n.ID)
		name = n.ID
	}
	s.Name = name
	s.Description = r.resolveText(ctx, n.Description, rc, n.ID, "description")
	s.Icon = r.resolveText(ctx, n.Icon, rc, n.ID, "icon")
	s.Color = r.resolveText(ctx, n.Color, rc, n.ID, "color")

	s.Keybinding = effectiveKeybinding(n, opts.Overrides)
	s.Actions = r.deriveActions(ctx, n, rc, s)
	return s
}

func (r *Resolver) resolveText(ctx context.Context, fn command.TextFunc, rc *command.RunContext, id, prop string) string {
	if fn == nil {
		return ""
	}
	v, err := fn(ctx, rc)
	if err != nil {
		r.log.Error(err, "display property resolution failed", "command", id, "property", prop)
		return ""
	}
	return v
}

// effectiveKeybinding merges the persisted override over the node default.
func effectiveKeybinding(n *command.Node, overrides map[string]command.Settings) string {
	if ov, ok := overrides[n.ID]; ok && ov.Keybinding != nil {
		return *ov.Keybinding
	}
	return n.DefaultKeybinding
}

// deriveActions computes the suggestion's action list: favorite toggle
// always; primary open/run unless the node declares custom actions; one
// action per modifier with a non-empty label; keybinding set/reset unless
// the node opts out.
func (r *Resolver) deriveActions(ctx context.Context, n *command.Node, rc *command.RunContext, s command.Suggestion) []command.SuggestionAction {
	var actions []command.SuggestionAction

	favLabel := "Add to favorites"
	if s.Favorited {
		favLabel = "Remove from favorites"
	}
	actions = append(actions, command.SuggestionAction{Type: command.ActionToggleFavorite, Label: favLabel})

	if !n.CustomActions {
		switch n.Kind {
		case command.KindGroup:
			actions = append(actions, command.SuggestionAction{Type: command.ActionOpen, Label: "Open"})
		case command.KindAction, command.KindSubmit:
			actions = append(actions, command.SuggestionAction{Type: command.ActionRun, Label: "Run"})
		case command.KindInput, command.KindDisplay:
			// Non-executable on their own; no primary action.
		}
	}

	for i := range n.ModifierActions {
		ma := &n.ModifierActions[i]
		label := r.resolveText(ctx, ma.Label, rc, n.ID, "modifier label")
		if label == "" {
			continue
		}
		actions = append(actions, command.SuggestionAction{
			Type:     command.ActionModifier,
			Label:    label,
			Modifier: ma.Modifier,
		})
	}

	if !n.NoCustomKeybinding && (n.Kind == command.KindAction || n.Kind == command.KindSubmit) {
		actions = append(actions, command.SuggestionAction{Type: command.ActionSetKeybinding, Label: "Set keybinding"})
		if s.Keybinding != "" {
			actions = append(actions, command.SuggestionAction{Type: command.ActionResetKeybinding, Label: "Reset keybinding"})
		}
	}
	return actions
}

// FindFavorited walks the whole tree and returns suggestions for the
// favorited ids, in catalog discovery order. A favorited node found below
// the top level gets its parent's name attached so the UI renders a
// breadcrumb pair; recursion enters every group regardless of whether the
// group itself is favorited.
func (r *Resolver) FindFavorited(ctx context.Context, nodes []command.Node, favoriteIDs []string, rc *command.RunContext, opts SuggestOptions) []command.Suggestion {
	wanted := make(map[string]bool, len(favoriteIDs))
	for _, id := range favoriteIDs {
		wanted[id] = true
	}
	if opts.Favorites == nil {
		opts.Favorites = wanted
	}

	var out []command.Suggestion
	r.Walk(ctx, nodes, rc, func(n command.Node, parentPath []string, parentName string, _ []string) {
		if !wanted[n.ID] {
			return
		}
		o := opts
		o.ParentPath = parentPath
		out = append(out, r.toSuggestion(ctx, &n, rc, parentName, o))
	})
	return out
}

// DeepSearchItems flattens the descendant actions of deep-search groups
// into one list, so a single top-level query can surface deeply nested
// actions. The deep-search flag is inherited: every descendant of a
// flagged group participates. The reversed breadcrumb trail is appended to
// both the display name and the keyword set.
func (r *Resolver) DeepSearchItems(ctx context.Context, nodes []command.Node, rc *command.RunContext, opts SuggestOptions) []command.Suggestion {
	var out []command.Suggestion
	r.deepSearch(ctx, nodes, rc, nil, nil, false, opts, &out)
	return out
}

func (r *Resolver) deepSearch(ctx context.Context, nodes []command.Node, rc *command.RunContext, parentPath, nameTrail []string, inherited bool, opts SuggestOptions, out *[]command.Suggestion) {
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case command.KindGroup:
			if n.Children == nil {
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
			r.deepSearch(ctx, children, rc, childPath, childTrail, inherited || n.DeepSearch, opts, out)

		case command.KindAction:
			if !inherited || len(nameTrail) == 0 {
				continue
			}
			o := opts
			o.ParentPath = parentPath
			s := r.toSuggestion(ctx, n, rc, nameTrail[len(nameTrail)-1], o)
			trail := reversedTrail(nameTrail)
			s.Name = s.Name + " · " + strings.Join(trail, " / ")
			s.Keywords = append(s.Keywords, trail...)
			*out = append(*out, s)

		case command.KindInput, command.KindSubmit, command.KindDisplay:
			// Form pieces and informational rows never flatten.
		}
	}
}

func reversedTrail(trail []string) []string {
	out := make([]string, len(trail))
	for i, v := range trail {
		out[len(trail)-1-i] = v
	}
	return out
}

// SortByScore orders suggestions by ranking score descending; unranked
// (never-used) suggestions sort after all ranked ones, preserving catalog
// order among themselves. scores holds the live score per id; absence
// means unranked.
func SortByScore(suggestions []command.Suggestion, scores map[string]float64) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		si, iok := scores[suggestions[i].ID]
		sj, jok := scores[suggestions[j].ID]
		switch {
		case iok && jok:
			return si > sj
		case iok:
			return true
		default:
			return false
		}
	})
}
