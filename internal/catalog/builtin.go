package catalog

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

// Builtin returns the demo catalog used when no catalog file is supplied.
// It exercises every node kind: plain actions with keybindings, a
// deep-search group, a parameter form, and a display row.
func Builtin(log logr.Logger) []command.Node {
	noop := func(context.Context, *command.RunContext, map[string]string) error { return nil }

	return []command.Node{
		{
			ID:                "new-tab",
			Kind:              command.KindAction,
			Name:              command.Static("New tab"),
			Icon:              command.Static("+"),
			Keywords:          []string{"tab", "open"},
			DefaultKeybinding: "cmd t",
			Run:               noop,
		},
		{
			ID:                "close-tab",
			Kind:              command.KindAction,
			Name:              command.Static("Close tab"),
			Keywords:          []string{"tab", "close"},
			DefaultKeybinding: "cmd w",
			Permissions:       []string{"tabs"},
			Run:               noop,
			ModifierActions: []command.ModifierAction{
				{
					Modifier: "shift",
					Label:    command.Static("Close other tabs"),
					Run:      noop,
				},
			},
		},
		{
			ID:         "bookmarks",
			Kind:       command.KindGroup,
			Name:       command.Static("Bookmarks"),
			Icon:       command.Static("★"),
			Keywords:   []string{"bookmark", "favorite"},
			DeepSearch: true,
			Children: func(context.Context, *command.RunContext) ([]command.Node, error) {
				return []command.Node{
					{
						ID:   "bookmark-all",
						Kind: command.KindAction,
						Name: command.Static("Bookmark all tabs"),
						Run:  noop,
					},
					{
						ID:   "bookmark-manager",
						Kind: command.KindGroup,
						Name: command.Static("Bookmark manager"),
						Children: func(context.Context, *command.RunContext) ([]command.Node, error) {
							return []command.Node{
								{
									ID:   "export-bookmarks",
									Kind: command.KindAction,
									Name: command.Static("Export bookmarks"),
									Run:  noop,
								},
							}, nil
						},
					},
				}, nil
			},
		},
		{
			ID:       "copy-text",
			Kind:     command.KindGroup,
			Name:     command.Static("Copy text to clipboard"),
			Keywords: []string{"clipboard", "copy"},
			Children: func(context.Context, *command.RunContext) ([]command.Node, error) {
				return []command.Node{
					{
						ID:   "text",
						Kind: command.KindInput,
						Name: command.Static("Text"),
						Input: &command.InputSpec{
							Field:       "text",
							Placeholder: "Text to copy",
						},
					},
					{
						ID:   "copy-submit",
						Kind: command.KindSubmit,
						Name: command.Static("Copy"),
						Run: func(_ context.Context, _ *command.RunContext, formValues map[string]string) error {
							text := formValues["text"]
							if text == "" {
								return fmt.Errorf("nothing to copy")
							}
							if err := clipboard.WriteAll(text); err != nil {
								return fmt.Errorf("writing clipboard: %w", err)
							}
							return nil
						},
					},
				}, nil
			},
		},
		{
			ID:          "clear-history",
			Kind:        command.KindAction,
			Name:        command.Static("Clear browsing history"),
			Keywords:    []string{"history", "privacy"},
			Permissions: []string{"history"},
			Confirm:     true,
			Run: func(context.Context, *command.RunContext, map[string]string) error {
				log.Info("history cleared")
				return nil
			},
		},
		{
			ID:        "version",
			Kind:      command.KindDisplay,
			Name:      command.Static("cmdk · command palette engine"),
			SkipUsage: true,
		},
	}
}
