package palette

import (
	"context"

	"github.com/oakwood-commons/cmdk/internal/keybind"
	"github.com/oakwood-commons/cmdk/internal/resolver"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

// Commands is the root page projection: three disjoint sections plus the
// flattened deep-search pool that is only consulted while a query is
// active.
type Commands struct {
	Favorites       []command.Suggestion
	Recents         []command.Suggestion
	Suggestions     []command.Suggestion
	DeepSearchItems []command.Suggestion
}

// KeyResult reports what a keystroke did.
type KeyResult struct {
	// CommandID names the executed command when Executed is set.
	CommandID string
	// Executed reports that a command ran synchronously.
	Executed bool
	// Pending reports that the stroke extended an unresolved sequence and
	// the host should show a chord hint.
	Pending bool
}

// GetCommands builds the content of the root page. Favorited commands come
// first in catalog discovery order, then up to maxRecents recently used
// commands ranked by score, then every remaining top-level command sorted
// by score with unused ones keeping catalog order at the tail. The result
// is also installed as the navigation stack's root content.
func (e *Engine) GetCommands(ctx context.Context, rc *command.RunContext) (Commands, error) {
	nodes, err := e.catalog(ctx, rc)
	if err != nil {
		return Commands{}, err
	}
	overrides, favoriteSet, err := e.loadState(ctx)
	if err != nil {
		return Commands{}, err
	}
	favoriteIDs, err := e.loadFavorites(ctx)
	if err != nil {
		return Commands{}, err
	}
	opts := resolver.SuggestOptions{Overrides: overrides, Favorites: favoriteSet}

	out := Commands{
		Favorites:       e.resolver.FindFavorited(ctx, nodes, favoriteIDs, rc, opts),
		DeepSearchItems: e.resolver.DeepSearchItems(ctx, nodes, rc, opts),
	}

	order := e.resolver.CatalogOrder(ctx, nodes, rc)
	ranked, err := e.ledger.RankedIDs(ctx, order)
	if err != nil {
		return Commands{}, err
	}

	taken := make(map[string]bool, len(out.Favorites))
	for _, s := range out.Favorites {
		taken[s.ID] = true
	}
	for _, id := range ranked {
		if len(out.Recents) == maxRecents {
			break
		}
		if taken[id] {
			continue
		}
		st, used, err := e.ledger.Stats(ctx, id)
		if err != nil {
			return Commands{}, err
		}
		if !used || st.TotalUsage == 0 {
			continue
		}
		n, err := e.resolver.Resolve(ctx, nodes, id, rc)
		if err != nil {
			// Usage can outlive the catalog entry. Stale ids are skipped.
			e.log.V(1).Info("recent command no longer in catalog", "command", id)
			continue
		}
		parentName := ""
		if len(st.ParentNames) > 0 {
			parentName = st.ParentNames[len(st.ParentNames)-1]
		}
		recents := e.resolver.ToSuggestions(ctx, []command.Node{n}, rc, parentName, opts)
		out.Recents = append(out.Recents, recents...)
		taken[id] = true
	}

	scores, err := e.ledger.Scores(ctx)
	if err != nil {
		return Commands{}, err
	}
	top := e.resolver.ToSuggestions(ctx, nodes, rc, "", opts)
	rest := top[:0]
	for _, s := range top {
		if !taken[s.ID] {
			rest = append(rest, s)
		}
	}
	resolver.SortByScore(rest, scores)
	out.Suggestions = rest

	e.stack.SetRootContent(out.Favorites, out.Recents, out.Suggestions)
	return out, nil
}

// Children is the response of GetChildren. OpensPage reports whether the
// command is a group at all; a non-group yields an empty response, not an
// error. DynamicChildren tells the host the children depend on the active
// query and must be refetched as it changes.
type Children struct {
	Suggestions     []command.Suggestion
	OpensPage       bool
	DynamicChildren bool
}

// GetChildren projects the children of the group identified by id under
// parentPath without touching the navigation stack.
func (e *Engine) GetChildren(ctx context.Context, id string, parentPath []string, rc *command.RunContext) (Children, error) {
	if err := validateID(id); err != nil {
		return Children{}, err
	}
	nodes, err := e.catalog(ctx, rc)
	if err != nil {
		return Children{}, err
	}
	n, err := e.resolver.ResolveByPath(ctx, nodes, parentPath, id, rc)
	if err != nil {
		return Children{}, err
	}
	if n.Kind != command.KindGroup || n.Children == nil {
		return Children{}, nil
	}
	content, err := e.PageFor(ctx, id, parentPath, rc)
	if err != nil {
		return Children{}, err
	}
	return Children{
		Suggestions:     content.Suggestions,
		OpensPage:       true,
		DynamicChildren: n.DynamicChildren,
	}, nil
}

// ExecuteCommand runs the command's effect through the dispatcher.
// parentNames is the breadcrumb of the page the command was invoked from;
// it is recorded alongside usage for later display of recents.
func (e *Engine) ExecuteCommand(ctx context.Context, id string, rc *command.RunContext, formValues map[string]string, parentNames []string) error {
	if err := validateID(id); err != nil {
		return err
	}
	for field, value := range formValues {
		if len(value) > maxSettingValueLen*16 {
			return &command.ValidationError{Reason: "form value for " + field + " too large"}
		}
	}
	return e.dispatcher.Execute(ctx, id, rc, formValues, parentNames)
}

// ExecuteKeybinding feeds one keystroke to the sequence matcher. An exact
// unambiguous match executes immediately; an ambiguous or prefix match
// returns Pending and resolves on the chord timeout; anything else is a
// no-op for the caller.
func (e *Engine) ExecuteKeybinding(ctx context.Context, stroke keybind.Stroke, rc *command.RunContext) (KeyResult, error) {
	if err := e.ensureBindings(ctx, rc); err != nil {
		return KeyResult{}, err
	}
	res := e.matcher.HandleStroke(stroke)
	if res.Executed {
		return KeyResult{CommandID: res.CommandID, Executed: true},
			e.dispatcher.Execute(ctx, res.CommandID, rc, nil, nil)
	}
	if res.Pending {
		return KeyResult{Pending: true}, nil
	}
	return KeyResult{}, nil
}

// CheckKeybindingConflict reports whether sequence is already owned by a
// command other than excludeID. The registry is consulted after
// normalization, so "CMD K" and "cmd k" collide.
func (e *Engine) CheckKeybindingConflict(ctx context.Context, sequence, excludeID string, rc *command.RunContext) (string, bool, error) {
	if err := e.ensureBindings(ctx, rc); err != nil {
		return "", false, err
	}
	owner, conflict := e.registry.HasConflict(keybind.NormalizeSequence(sequence), excludeID)
	return owner, conflict, nil
}

// UpdateCommandSetting persists one per-command setting. "keybinding"
// rebinds or clears a sequence (empty value clears); "favorite" pins or
// unpins the command with a boolean value. Unknown settings, malformed
// ids, and oversized values fail as ValidationError; a taken sequence
// fails as ConflictError without persisting.
func (e *Engine) UpdateCommandSetting(ctx context.Context, id, setting, value string, rc *command.RunContext) error {
	if err := validateID(id); err != nil {
		return err
	}
	if len(value) > maxSettingValueLen {
		return &command.ValidationError{Reason: "setting value too large"}
	}

	switch setting {
	case "keybinding":
		n, err := e.resolveNode(ctx, id, rc)
		if err != nil {
			return err
		}
		if n.NoCustomKeybinding {
			return &command.ValidationError{Reason: "command " + id + " does not accept custom keybindings"}
		}
		seq := keybind.NormalizeSequence(value)
		if seq != "" {
			if err := e.ensureBindings(ctx, rc); err != nil {
				return err
			}
			if owner, conflict := e.registry.HasConflict(seq, id); conflict {
				return &command.ConflictError{Sequence: seq, OwnerID: owner}
			}
		}
		settings, err := e.loadSettings(ctx)
		if err != nil {
			return err
		}
		s := settings[id]
		s.Keybinding = &seq
		settings[id] = s
		if err := e.saveSettings(ctx, settings); err != nil {
			return err
		}
		return e.RebuildKeybindings(ctx, rc)

	case "favorite":
		var pin bool
		switch value {
		case "true":
			pin = true
		case "false":
			pin = false
		default:
			return &command.ValidationError{Reason: "favorite expects true or false"}
		}
		ids, err := e.loadFavorites(ctx)
		if err != nil {
			return err
		}
		next := ids[:0]
		present := false
		for _, fid := range ids {
			if fid == id {
				present = true
				if !pin {
					continue
				}
			}
			next = append(next, fid)
		}
		if pin && !present {
			next = append(next, id)
		}
		return e.saveFavorites(ctx, next)

	default:
		return &command.ValidationError{Reason: "unknown setting " + setting}
	}
}
