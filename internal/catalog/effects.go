package catalog

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// effectFor maps a declarative effect name to a builtin EffectFunc. The
// hosting shell registers richer effects programmatically; these cover the
// demo catalog.
func effectFor(name string, log logr.Logger) (command.EffectFunc, error) {
	switch name {
	case "", "noop":
		return func(context.Context, *command.RunContext, map[string]string) error {
			return nil
		}, nil

	case "log":
		return func(_ context.Context, rc *command.RunContext, formValues map[string]string) error {
			query := ""
			if rc != nil {
				query = rc.Query
			}
			log.Info("command executed", "query", query, "formValues", formValues)
			return nil
		}, nil

	case "clipboard-copy":
		// Copies the "text" form field, falling back to the active query.
		return func(_ context.Context, rc *command.RunContext, formValues map[string]string) error {
			text := formValues["text"]
			if text == "" && rc != nil {
				text = rc.Query
			}
			if text == "" {
				return fmt.Errorf("nothing to copy")
			}
			if err := clipboard.WriteAll(text); err != nil {
				return fmt.Errorf("writing clipboard: %w", err)
			}
			return nil
		}, nil

	case "fail":
		// Deliberate failure, used to exercise error surfacing.
		return func(context.Context, *command.RunContext, map[string]string) error {
			return fmt.Errorf("this command always fails")
		}, nil

	default:
		return nil, fmt.Errorf("unknown effect %q", name)
	}
}
