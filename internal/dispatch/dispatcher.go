// Package dispatch is the thin glue between a resolved command and its
// effect: permission preconditions, invocation with panic containment, and
// usage reporting.
package dispatch

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// ResolveFunc locates a node by id for the current catalog.
type ResolveFunc func(ctx context.Context, id string, rc *command.RunContext) (command.Node, error)

// PermissionChecker answers whether a declared permission is currently
// granted. It is an external collaborator; the engine never prompts.
type PermissionChecker interface {
	Granted(ctx context.Context, permission string) (bool, error)
}

// GrantAll is the default checker: every permission is considered granted.
type GrantAll struct{}

// Granted always reports true.
func (GrantAll) Granted(context.Context, string) (bool, error) { return true, nil }

// UsageRecorder receives successful executions. Satisfied by usage.Ledger.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, id string, parentNames []string) error
}

// Dispatcher executes resolved commands.
type Dispatcher struct {
	resolve ResolveFunc
	perms   PermissionChecker
	usage   UsageRecorder
	log     logr.Logger
}

// New returns a dispatcher. perms may be nil (defaults to GrantAll); usage
// may be nil to disable recording.
func New(resolve ResolveFunc, perms PermissionChecker, usage UsageRecorder, log logr.Logger) *Dispatcher {
	if perms == nil {
		perms = GrantAll{}
	}
	return &Dispatcher{resolve: resolve, perms: perms, usage: usage, log: log}
}

// Execute resolves id and runs its effect. Declared permissions are
// verified first and missing ones fail fast as a PermissionError naming
// exactly what is absent. Effect failures, including contained panics,
// come back as an ExecutionError; they are logged and never retried. On
// success the usage ledger records the run (with parentNames as the
// breadcrumb at time of use) unless the node opts out.
func (d *Dispatcher) Execute(ctx context.Context, id string, rc *command.RunContext, formValues map[string]string, parentNames []string) error {
	n, err := d.resolve(ctx, id, rc)
	if err != nil {
		return err
	}

	switch n.Kind {
	case command.KindAction, command.KindSubmit:
	case command.KindGroup, command.KindInput, command.KindDisplay:
		return &command.ValidationError{Reason: fmt.Sprintf("command %q is a %s and cannot be executed", id, n.Kind)}
	}

	if len(n.Permissions) > 0 {
		var missing []string
		for _, p := range n.Permissions {
			granted, err := d.perms.Granted(ctx, p)
			if err != nil {
				return &command.ExecutionError{ID: id, Err: fmt.Errorf("permission query for %q: %w", p, err)}
			}
			if !granted {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			return &command.PermissionError{ID: id, Missing: missing}
		}
	}

	effect := n.Run
	// A held modifier key selects that modifier's effect when the node
	// declares one.
	for i := range n.ModifierActions {
		ma := &n.ModifierActions[i]
		if ma.Run != nil && rc.HasModifier(ma.Modifier) {
			effect = ma.Run
			break
		}
	}
	if effect == nil {
		return &command.ValidationError{Reason: fmt.Sprintf("command %q has no effect", id)}
	}

	if err := d.invoke(ctx, effect, rc, formValues); err != nil {
		execErr := &command.ExecutionError{ID: id, Err: err}
		d.log.Error(err, "command effect failed", "command", id)
		return execErr
	}

	if d.usage != nil && !n.SkipUsage {
		if err := d.usage.RecordUsage(ctx, id, parentNames); err != nil {
			// Recording is best effort; the command itself succeeded.
			d.log.Error(err, "recording usage failed", "command", id)
		}
	}
	return nil
}

// invoke runs the effect with panic containment so a misbehaving command
// cannot take down the engine.
func (d *Dispatcher) invoke(ctx context.Context, effect command.EffectFunc, rc *command.RunContext, formValues map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in command effect: %v", r)
		}
	}()
	return effect(ctx, rc, formValues)
}
