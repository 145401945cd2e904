// Package command defines the command catalog data model: the node tagged
// union, execution context, UI-ready suggestion projection, and the error
// taxonomy shared by the engine components.
package command

import "context"

// Kind tags a Node variant. The set is closed; every consumption site
// switches exhaustively over it.
type Kind int

const (
	// KindAction is an executable command with an effect.
	KindAction Kind = iota
	// KindGroup holds children produced asynchronously; selecting it opens
	// a new page.
	KindGroup
	// KindInput is one field of a parameter form.
	KindInput
	// KindSubmit is the submit action of a parameter form.
	KindSubmit
	// KindDisplay is informational and non-executable.
	KindDisplay
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindGroup:
		return "group"
	case KindInput:
		return "input"
	case KindSubmit:
		return "submit"
	case KindDisplay:
		return "display"
	}
	return "unknown"
}

// TextFunc resolves a display property against an execution context.
// Static values are constant functions so resolution is uniform.
type TextFunc func(ctx context.Context, rc *RunContext) (string, error)

// Static wraps a constant string as a TextFunc.
func Static(s string) TextFunc {
	return func(context.Context, *RunContext) (string, error) {
		return s, nil
	}
}

// EffectFunc is a command's effect. formValues carries pending parameter
// values when the command is the submit action of a form.
type EffectFunc func(ctx context.Context, rc *RunContext, formValues map[string]string) error

// ChildrenFunc produces a group's children. Children are fetched fresh on
// every call; callers must not hold node references across calls.
type ChildrenFunc func(ctx context.Context, rc *RunContext) ([]Node, error)

// ModifierAction declares an alternate effect triggered by holding a
// modifier key while running the command. Actions with an empty resolved
// label are not surfaced.
type ModifierAction struct {
	Modifier string // one of "alt", "cmd", "ctrl", "shift"
	Label    TextFunc
	Run      EffectFunc
}

// InputSpec describes one field of a parameter form.
type InputSpec struct {
	Field       string
	Placeholder string
	Default     string
}

// Node is one entry of the command catalog. Which fields are meaningful
// depends on Kind; the zero value of the rest is ignored.
//
// IDs are stable and unique within their parent's child list, not globally.
type Node struct {
	ID          string
	Kind        Kind
	Name        TextFunc
	Description TextFunc
	Icon        TextFunc
	Color       TextFunc
	Keywords    []string
	Permissions []string

	// Action and submit nodes.
	Run                EffectFunc
	DefaultKeybinding  string
	Confirm            bool
	RemainOpen         bool
	SkipUsage          bool
	NoCustomKeybinding bool
	CustomActions      bool
	ModifierActions    []ModifierAction

	// Group nodes.
	Children        ChildrenFunc
	DeepSearch      bool
	DynamicChildren bool

	// Input nodes.
	Input *InputSpec
}

// ResolveName evaluates the node's name, tolerating a nil TextFunc.
func (n *Node) ResolveName(ctx context.Context, rc *RunContext) (string, error) {
	if n.Name == nil {
		return n.ID, nil
	}
	return n.Name(ctx, rc)
}
