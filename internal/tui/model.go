// Package tui is the terminal front end of the palette: a Bubble Tea model
// that renders the navigation stack and routes keystrokes between the
// search field and the keybinding matcher.
package tui

import (
	"context"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/internal/keybind"
	"github.com/oakwood-commons/cmdk/internal/search"
	"github.com/oakwood-commons/cmdk/pkg/command"
	"github.com/oakwood-commons/cmdk/pkg/palette"
)

type mode int

const (
	modeBrowse mode = iota
	modeConfirm
	modeEditField
	modeBindKey
)

// Model is the root Bubble Tea model.
type Model struct {
	engine *palette.Engine
	log    logr.Logger

	search    textinput.Model
	width     int
	height    int
	noColor   bool
	styles    styles

	mode     mode
	selected int

	// filtered is the flat row list currently on screen. At the root with
	// an empty query it is favorites + recents + suggestions and the two
	// counts mark the section boundaries.
	filtered []command.Suggestion
	favCount int
	recCount int
	deepPool []command.Suggestion

	status      string
	statusIsErr bool

	chordPending  bool
	confirmTarget *command.Suggestion
	editField     string
	editInput     textinput.Model
	captureID     string
	captured      []string
}

// rootLoadedMsg carries the freshly built root page content.
type rootLoadedMsg struct {
	commands palette.Commands
	err      error
}

// pageMsg reports a completed push, pop, or refresh.
type pageMsg struct {
	err error
}

// execDoneMsg reports a finished command execution.
type execDoneMsg struct {
	id   string
	err  error
	quit bool
}

// ChordResolvedMsg is injected from outside the program loop when a chord
// timeout executed a pending command.
type ChordResolvedMsg struct {
	CommandID string
	Err       error
}

// NewModel builds the root model around an assembled engine.
func NewModel(engine *palette.Engine, log logr.Logger, noColor bool) Model {
	in := textinput.New()
	in.Placeholder = "Type a command or search..."
	in.Focus()

	edit := textinput.New()

	return Model{
		engine:    engine,
		log:       log,
		search:    in,
		editInput: edit,
		noColor:   noColor,
		styles:    newStyles(noColor),
		width:     80,
		height:    24,
	}
}

func (m *Model) runContext() *command.RunContext {
	return &command.RunContext{
		Query:  m.search.Value(),
		Sender: "palette",
	}
}

// Init loads the root page and starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadRoot(), textinput.Blink)
}

func (m *Model) loadRoot() tea.Cmd {
	engine := m.engine
	rc := m.runContext()
	return func() tea.Msg {
		commands, err := engine.GetCommands(context.Background(), rc)
		return rootLoadedMsg{commands: commands, err: err}
	}
}

func (m *Model) pushPage(id string) tea.Cmd {
	engine := m.engine
	rc := m.runContext()
	return func() tea.Msg {
		return pageMsg{err: engine.Stack().Push(context.Background(), id, rc)}
	}
}

func (m *Model) refreshTop() tea.Cmd {
	engine := m.engine
	rc := m.runContext()
	return func() tea.Msg {
		return pageMsg{err: engine.Stack().RefreshTop(context.Background(), rc)}
	}
}

// reloadCurrent re-fetches whatever page is on screen after a setting
// mutation so favorites and keybinding hints reflect the persisted state.
func (m *Model) reloadCurrent() tea.Cmd {
	if m.engine.Stack().Depth() > 1 {
		return m.refreshTop()
	}
	return m.loadRoot()
}

func (m *Model) toggleFavorite() (tea.Model, tea.Cmd) {
	if m.selected >= len(m.filtered) {
		return m, nil
	}
	s := m.filtered[m.selected]
	value := "true"
	if s.Favorited {
		value = "false"
	}
	if err := m.engine.UpdateCommandSetting(context.Background(), s.ID, "favorite", value, m.runContext()); err != nil {
		m.setError(err)
		return m, nil
	}
	if s.Favorited {
		m.status = "unpinned " + s.ID
	} else {
		m.status = "pinned " + s.ID
	}
	m.statusIsErr = false
	return m, m.reloadCurrent()
}

func (m *Model) execute(s command.Suggestion, quit bool) tea.Cmd {
	engine := m.engine
	rc := m.runContext()
	top := engine.Stack().Top()

	var formValues map[string]string
	if s.Kind == command.KindSubmit {
		formValues = top.FormValues
	}
	var parentNames []string
	if top.Parent != nil {
		parentNames = append(parentNames, top.Parent.Name)
	}

	return func() tea.Msg {
		err := engine.ExecuteCommand(context.Background(), s.ID, rc, formValues, parentNames)
		return execDoneMsg{id: s.ID, err: err, quit: quit && err == nil}
	}
}

// Update is the message loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.SetWidth(msg.Width - 4)
		return m, nil

	case rootLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.deepPool = msg.commands.DeepSearchItems
		m.refilter()
		return m, nil

	case pageMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.selected = 0
		m.search.SetValue(m.engine.Stack().Top().SearchValue)
		m.refilter()
		return m, nil

	case execDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.status = "ran " + msg.id
		m.statusIsErr = false
		if msg.quit {
			return m, tea.Quit
		}
		return m, m.loadRoot()

	case ChordResolvedMsg:
		m.chordPending = false
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.status = "ran " + msg.CommandID
			m.statusIsErr = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeEditField:
		return m.handleEditKey(msg)
	case modeBindKey:
		return m.handleBindKey(msg)
	}

	key := msg.String()
	switch key {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.engine.Stack().UpdateSearch("")
			m.refilter()
			return m, nil
		}
		if m.engine.Stack().Depth() > 1 {
			if _, err := m.engine.Stack().Pop(); err != nil {
				m.setError(err)
				return m, nil
			}
			m.selected = 0
			m.search.SetValue(m.engine.Stack().Top().SearchValue)
			m.refilter()
			return m, nil
		}
		return m, tea.Quit

	case "up", "ctrl+p":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.selected < len(m.filtered)-1 {
			m.selected++
		}
		return m, nil

	case "enter":
		return m.activate()

	// ctrl+f and ctrl+b are reserved by the host for the selected row's
	// settings and are never forwarded to the sequence matcher.
	case "ctrl+f":
		return m.toggleFavorite()

	case "ctrl+b":
		if m.selected < len(m.filtered) {
			m.BindKeybinding(m.filtered[m.selected].ID)
		}
		return m, nil
	}

	// Modifier combos, and every stroke while a chord is pending, go to the
	// sequence matcher rather than the search field.
	if stroke, route := strokeFromKey(key, m.chordPending); route {
		return m, m.feedStroke(stroke)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.engine.Stack().UpdateSearch(m.search.Value())
	m.selected = 0
	m.refilter()
	return m, cmd
}

func (m *Model) feedStroke(stroke keybind.Stroke) tea.Cmd {
	res, err := m.engine.ExecuteKeybinding(context.Background(), stroke, m.runContext())
	if err != nil {
		m.setError(err)
		m.chordPending = false
		return nil
	}
	m.chordPending = res.Pending
	if res.Executed {
		m.status = "ran " + res.CommandID
		m.statusIsErr = false
		return m.loadRoot()
	}
	return nil
}

func (m *Model) activate() (tea.Model, tea.Cmd) {
	if m.selected >= len(m.filtered) {
		return m, nil
	}
	s := m.filtered[m.selected]

	switch s.Kind {
	case command.KindGroup:
		return m, m.pushPage(s.ID)

	case command.KindInput:
		m.mode = modeEditField
		m.editField = s.ID
		m.editInput.SetValue(m.engine.Stack().Top().FormValues[fieldFor(s)])
		m.editInput.Placeholder = s.Description
		m.editInput.Focus()
		m.engine.Stack().SuppressSearch(true)
		return m, textinput.Blink

	case command.KindDisplay:
		m.status = s.Description
		m.statusIsErr = false
		return m, nil
	}

	if s.Confirm {
		m.mode = modeConfirm
		m.confirmTarget = &s
		return m, nil
	}
	return m, m.execute(s, !s.RemainOpen)
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		target := m.confirmTarget
		m.mode = modeBrowse
		m.confirmTarget = nil
		if target == nil {
			return m, nil
		}
		return m, m.execute(*target, !target.RemainOpen)
	case "esc", "n":
		m.mode = modeBrowse
		m.confirmTarget = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.engine.Stack().SetFormValue(m.editFieldName(), m.editInput.Value())
		m.leaveEdit()
		return m, nil
	case "esc":
		m.leaveEdit()
		return m, nil
	}
	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

func (m *Model) editFieldName() string {
	for _, s := range m.filtered {
		if s.ID == m.editField {
			return fieldFor(s)
		}
	}
	return m.editField
}

func (m *Model) leaveEdit() {
	m.mode = modeBrowse
	m.editField = ""
	m.editInput.SetValue("")
	m.engine.Stack().SuppressSearch(false)
}

// BindKeybinding switches the model into capture mode for the command's
// custom keybinding. Strokes accumulate until enter commits them.
func (m *Model) BindKeybinding(commandID string) {
	m.mode = modeBindKey
	m.captureID = commandID
	m.captured = nil
}

func (m *Model) handleBindKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		m.mode = modeBrowse
		m.captureID = ""
		m.captured = nil
		return m, nil
	case "backspace":
		if len(m.captured) > 0 {
			m.captured = m.captured[:len(m.captured)-1]
		}
		return m, nil
	case "enter":
		id := m.captureID
		seq := keybind.JoinSequence(m.captured)
		m.mode = modeBrowse
		m.captureID = ""
		m.captured = nil
		if err := m.engine.UpdateCommandSetting(context.Background(), id, "keybinding", seq, m.runContext()); err != nil {
			m.setError(err)
			return m, nil
		}
		if seq == "" {
			m.status = "cleared keybinding for " + id
		} else {
			m.status = "bound " + seq + " to " + id
		}
		m.statusIsErr = false
		return m, m.reloadCurrent()
	}
	if stroke, ok := parseStroke(key); ok {
		m.captured = append(m.captured, stroke.Normalize())
	}
	return m, nil
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusIsErr = true
}

// refilter recomputes the visible rows from the stack top and the query.
func (m *Model) refilter() {
	top := m.engine.Stack().Top()
	query := strings.TrimSpace(m.search.Value())

	m.favCount = 0
	m.recCount = 0

	if query == "" {
		rows := make([]command.Suggestion, 0, len(top.Favorites)+len(top.Recents)+len(top.Suggestions))
		rows = append(rows, top.Favorites...)
		rows = append(rows, top.Recents...)
		rows = append(rows, top.Suggestions...)
		m.filtered = rows
		m.favCount = len(top.Favorites)
		m.recCount = len(top.Recents)
	} else {
		pool := top.Suggestions
		if m.engine.Stack().Depth() == 1 && len(m.deepPool) > 0 {
			pool = append(append([]command.Suggestion(nil), pool...), m.deepPool...)
			pool = dedupeByID(pool)
		}
		m.filtered = search.Filter(pool, query)
	}

	if m.selected >= len(m.filtered) {
		m.selected = 0
	}
}

func dedupeByID(in []command.Suggestion) []command.Suggestion {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func fieldFor(s command.Suggestion) string {
	if s.Field != "" {
		return s.Field
	}
	return s.ID
}
