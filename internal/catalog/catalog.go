// Package catalog builds command trees: either declaratively from a YAML
// file (static labels or CEL expressions for dynamic ones) or from the
// builtin demo set. The hosting shell normally supplies its own tree
// programmatically; this package is the reference producer.
package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/cmdk/internal/expr"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

// nodeSpec is the YAML shape of one catalog entry.
type nodeSpec struct {
	ID              string `yaml:"id"`
	Type            string `yaml:"type"`
	Name            string `yaml:"name"`
	NameExpr        string `yaml:"nameExpr"`
	Description     string `yaml:"description"`
	DescriptionExpr string `yaml:"descriptionExpr"`
	Icon            string `yaml:"icon"`
	Color           string `yaml:"color"`

	Keywords    []string `yaml:"keywords"`
	Permissions []string `yaml:"permissions"`

	Keybinding         string `yaml:"keybinding"`
	Confirm            bool   `yaml:"confirm"`
	RemainOpen         bool   `yaml:"remainOpen"`
	SkipUsage          bool   `yaml:"skipUsage"`
	NoCustomKeybinding bool   `yaml:"noCustomKeybinding"`
	Effect             string `yaml:"effect"`

	DeepSearch      bool       `yaml:"deepSearch"`
	DynamicChildren bool       `yaml:"dynamicChildren"`
	Children        []nodeSpec `yaml:"children"`

	Field       string `yaml:"field"`
	Placeholder string `yaml:"placeholder"`
	Default     string `yaml:"default"`
}

type catalogFile struct {
	Commands []nodeSpec `yaml:"commands"`
}

// LoadFile reads and parses a YAML catalog.
func LoadFile(path string, eval *expr.Evaluator, log logr.Logger) ([]command.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}
	return Parse(data, eval, log)
}

// Parse builds a command tree from YAML catalog bytes.
func Parse(data []byte, eval *expr.Evaluator, log logr.Logger) ([]command.Node, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return buildNodes(file.Commands, eval, log)
}

func buildNodes(specs []nodeSpec, eval *expr.Evaluator, log logr.Logger) ([]command.Node, error) {
	nodes := make([]command.Node, 0, len(specs))
	for i := range specs {
		n, err := buildNode(&specs[i], eval, log)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func buildNode(spec *nodeSpec, eval *expr.Evaluator, log logr.Logger) (command.Node, error) {
	if spec.ID == "" {
		return command.Node{}, fmt.Errorf("catalog entry missing id")
	}

	n := command.Node{
		ID:                 spec.ID,
		Name:               textFor(spec.Name, spec.NameExpr, eval),
		Description:        textFor(spec.Description, spec.DescriptionExpr, eval),
		Keywords:           spec.Keywords,
		Permissions:        spec.Permissions,
		DefaultKeybinding:  spec.Keybinding,
		Confirm:            spec.Confirm,
		RemainOpen:         spec.RemainOpen,
		SkipUsage:          spec.SkipUsage,
		NoCustomKeybinding: spec.NoCustomKeybinding,
		DeepSearch:         spec.DeepSearch,
		DynamicChildren:    spec.DynamicChildren,
	}
	if spec.Icon != "" {
		n.Icon = command.Static(spec.Icon)
	}
	if spec.Color != "" {
		n.Color = command.Static(spec.Color)
	}

	switch spec.Type {
	case "action", "":
		n.Kind = command.KindAction
		effect, err := effectFor(spec.Effect, log)
		if err != nil {
			return command.Node{}, fmt.Errorf("command %q: %w", spec.ID, err)
		}
		n.Run = effect

	case "group":
		n.Kind = command.KindGroup
		children, err := buildNodes(spec.Children, eval, log)
		if err != nil {
			return command.Node{}, err
		}
		n.Children = func(context.Context, *command.RunContext) ([]command.Node, error) {
			return children, nil
		}

	case "input":
		n.Kind = command.KindInput
		n.Input = &command.InputSpec{
			Field:       spec.Field,
			Placeholder: spec.Placeholder,
			Default:     spec.Default,
		}
		if n.Input.Field == "" {
			n.Input.Field = spec.ID
		}

	case "submit":
		n.Kind = command.KindSubmit
		effect, err := effectFor(spec.Effect, log)
		if err != nil {
			return command.Node{}, fmt.Errorf("command %q: %w", spec.ID, err)
		}
		n.Run = effect

	case "display":
		n.Kind = command.KindDisplay

	default:
		return command.Node{}, fmt.Errorf("command %q: unknown type %q", spec.ID, spec.Type)
	}
	return n, nil
}

// textFor prefers a CEL expression over a static label; a missing evaluator
// degrades CEL entries to their raw source rather than failing the load.
func textFor(static, exprSrc string, eval *expr.Evaluator) command.TextFunc {
	if exprSrc != "" && eval != nil {
		return eval.Text(exprSrc)
	}
	if exprSrc != "" {
		return command.Static(exprSrc)
	}
	if static == "" {
		return nil
	}
	return command.Static(static)
}
