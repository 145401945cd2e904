// Package palette wires the command palette together: catalog resolution,
// keybinding matching, usage ranking, navigation, and dispatch behind one
// engine type. Hosts construct an Engine around a catalog and drive the
// public operations from their front end.
package palette

import (
	"context"
	"regexp"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/internal/dispatch"
	"github.com/oakwood-commons/cmdk/internal/keybind"
	"github.com/oakwood-commons/cmdk/internal/nav"
	"github.com/oakwood-commons/cmdk/internal/resolver"
	"github.com/oakwood-commons/cmdk/internal/storage"
	"github.com/oakwood-commons/cmdk/internal/usage"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

const (
	// maxRecents caps the recents section of the root page so that ranked
	// commands beyond it still surface inside the score-sorted suggestions.
	maxRecents = 5

	// maxSettingValueLen bounds a single persisted setting value.
	maxSettingValueLen = 256
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// CatalogFunc produces the current command tree. It is invoked per
// operation so dynamic catalogs stay fresh.
type CatalogFunc func(ctx context.Context, rc *command.RunContext) ([]command.Node, error)

// Engine is the composition root of the palette.
type Engine struct {
	catalog CatalogFunc
	store   storage.Store
	log     logr.Logger
	now     func() time.Time
	perms   dispatch.PermissionChecker

	ledger     *usage.Ledger
	resolver   *resolver.Resolver
	registry   *keybind.Registry
	matcher    *keybind.Matcher
	dispatcher *dispatch.Dispatcher
	stack      *nav.Stack

	timerFactory keybind.TimerFactory
	bound        bool
	notify       func(commandID string, err error)
}

// Option customizes engine construction.
type Option func(*Engine)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(s storage.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the time source. Used by tests with a fake clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPermissionChecker sets the external permission oracle.
func WithPermissionChecker(p dispatch.PermissionChecker) Option {
	return func(e *Engine) { e.perms = p }
}

// WithTimerFactory overrides the chord timeout timer. Used by tests.
func WithTimerFactory(tf keybind.TimerFactory) Option {
	return func(e *Engine) { e.timerFactory = tf }
}

// New assembles an engine around catalog.
func New(catalog CatalogFunc, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		log:     logr.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = storage.NewMemoryStore()
	}

	e.ledger = usage.NewLedger(e.store, e.log, e.now)
	e.resolver = resolver.New(e.log)
	e.registry = keybind.NewRegistry()

	var mopts []keybind.MatcherOption
	if e.timerFactory != nil {
		mopts = append(mopts, keybind.WithTimerFactory(e.timerFactory))
	}
	e.matcher = keybind.NewMatcher(e.registry, e.log, e.chordResolved, mopts...)

	e.dispatcher = dispatch.New(e.resolveNode, e.perms, e.ledger, e.log)
	e.stack = nav.NewStack(e, e.log)
	return e
}

// Ledger exposes the usage ledger for maintenance and reporting.
func (e *Engine) Ledger() *usage.Ledger {
	return e.ledger
}

// Stack exposes the navigation stack to the front end.
func (e *Engine) Stack() *nav.Stack {
	return e.stack
}

// OnKeybindingResolved registers a callback fired after a chord timeout
// executed (or failed to execute) a pending command. The callback runs on
// the timer goroutine.
func (e *Engine) OnKeybindingResolved(fn func(commandID string, err error)) {
	e.notify = fn
}

func (e *Engine) resolveNode(ctx context.Context, id string, rc *command.RunContext) (command.Node, error) {
	nodes, err := e.catalog(ctx, rc)
	if err != nil {
		return command.Node{}, err
	}
	return e.resolver.Resolve(ctx, nodes, id, rc)
}

// chordResolved is the matcher's timeout callback: the shorter binding of
// an ambiguous chord fires once the extension window closes.
func (e *Engine) chordResolved(commandID string) {
	ctx := context.Background()
	rc := &command.RunContext{Sender: "keybinding"}
	err := e.dispatcher.Execute(ctx, commandID, rc, nil, nil)
	if err != nil {
		e.log.Error(err, "chord-resolved command failed", "command", commandID)
	}
	if e.notify != nil {
		e.notify(commandID, err)
	}
}

// PageFor implements nav.Provider: it projects one group's children into a
// page, locating the group by path so lookups survive catalog rebuilds.
func (e *Engine) PageFor(ctx context.Context, id string, parentPath []string, rc *command.RunContext) (nav.PageContent, error) {
	nodes, err := e.catalog(ctx, rc)
	if err != nil {
		return nav.PageContent{}, err
	}
	overrides, favorites, err := e.loadState(ctx)
	if err != nil {
		return nav.PageContent{}, err
	}
	opts := resolver.SuggestOptions{Overrides: overrides, Favorites: favorites, ParentPath: parentPath}

	if id == resolver.RootID {
		return nav.PageContent{Suggestions: e.resolver.ToSuggestions(ctx, nodes, rc, "", opts)}, nil
	}

	group, err := e.resolver.ResolveByPath(ctx, nodes, parentPath, id, rc)
	if err != nil {
		return nav.PageContent{}, err
	}
	if group.Kind != command.KindGroup || group.Children == nil {
		return nav.PageContent{}, &command.ValidationError{Reason: "command " + id + " has no children to open"}
	}
	children, err := group.Children(ctx, rc)
	if err != nil {
		return nav.PageContent{}, err
	}

	defaults := make(map[string]string)
	for i := range children {
		c := &children[i]
		if c.Kind == command.KindInput && c.Input != nil && c.Input.Default != "" {
			defaults[c.Input.Field] = c.Input.Default
		}
	}

	childOpts := opts
	childOpts.ParentPath = append(append([]string(nil), parentPath...), id)
	parent := e.resolver.ToSuggestions(ctx, []command.Node{group}, rc, "", opts)
	content := nav.PageContent{
		Suggestions:   e.resolver.ToSuggestions(ctx, children, rc, "", childOpts),
		InputDefaults: defaults,
	}
	if len(parent) == 1 {
		content.Parent = &parent[0]
	}
	return content, nil
}

// RebuildKeybindings recomputes the sequence registry from catalog
// defaults overlaid with persisted per-command overrides. An override is
// authoritative: nil keeps the default, empty string clears the binding.
// Duplicate sequences keep the first owner in catalog order.
func (e *Engine) RebuildKeybindings(ctx context.Context, rc *command.RunContext) error {
	nodes, err := e.catalog(ctx, rc)
	if err != nil {
		return err
	}
	overrides, err := e.loadSettings(ctx)
	if err != nil {
		return err
	}

	bindings := make(map[string]string)
	e.resolver.Walk(ctx, nodes, rc, func(n command.Node, _ []string, _ string, _ []string) {
		if n.Kind != command.KindAction && n.Kind != command.KindSubmit {
			return
		}
		seq := n.DefaultKeybinding
		if ov, ok := overrides[n.ID]; ok && ov.Keybinding != nil {
			seq = *ov.Keybinding
		}
		if seq == "" {
			return
		}
		seq = keybind.NormalizeSequence(seq)
		if owner, taken := bindings[seq]; taken {
			e.log.V(1).Info("duplicate keybinding ignored",
				"sequence", seq, "owner", owner, "command", n.ID)
			return
		}
		bindings[seq] = n.ID
	})

	e.registry.Rebuild(bindings)
	e.bound = true
	return nil
}

func (e *Engine) ensureBindings(ctx context.Context, rc *command.RunContext) error {
	if e.bound {
		return nil
	}
	return e.RebuildKeybindings(ctx, rc)
}

func validateID(id string) error {
	if !idPattern.MatchString(id) {
		return &command.ValidationError{Reason: "malformed command id"}
	}
	return nil
}
