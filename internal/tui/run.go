package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/pkg/palette"
)

// Run starts the palette TUI and blocks until it exits. Chord timeouts
// resolved by the engine are forwarded into the program loop so the model
// can drop its pending hint.
func Run(ctx context.Context, engine *palette.Engine, log logr.Logger, noColor bool, opts ...tea.ProgramOption) error {
	m := NewModel(engine, log, noColor)

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	prog := tea.NewProgram(&m, opts...)

	engine.OnKeybindingResolved(func(commandID string, err error) {
		prog.Send(ChordResolvedMsg{CommandID: commandID, Err: err})
	})

	_, err := prog.Run()
	return err
}
