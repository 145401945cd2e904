package tui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/cmdk/internal/keybind"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

type styles struct {
	breadcrumb lipgloss.Style
	section    lipgloss.Style
	selected   lipgloss.Style
	normal     lipgloss.Style
	hint       lipgloss.Style
	errText    lipgloss.Style
	status     lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			breadcrumb: plain,
			section:    plain,
			selected:   plain.Bold(true),
			normal:     plain,
			hint:       plain,
			errText:    plain,
			status:     plain,
		}
	}
	return styles{
		breadcrumb: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		section:    lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true),
		selected:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		normal:     lipgloss.NewStyle(),
		hint:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		errText:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		status:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

// View renders the palette as a full-screen alt-screen view.
func (m *Model) View() tea.View {
	v := tea.NewView(m.content())
	v.AltScreen = true
	return v
}

func (m *Model) content() string {
	var b strings.Builder

	b.WriteString(m.styles.breadcrumb.Render(m.breadcrumb()))
	b.WriteString("\n")

	if m.mode == modeEditField {
		b.WriteString("  " + m.editInput.View())
	} else {
		b.WriteString("› " + m.search.View())
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderRows())
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) breadcrumb() string {
	top := m.engine.Stack().Top()
	if top.Parent == nil {
		return "Home"
	}
	return "Home › " + top.Parent.DisplayName()
}

// renderRows windows the row list around the selection, exactly like a
// scroll viewport, and prefixes section headers at the root.
func (m *Model) renderRows() string {
	maxVisible := m.height - 7
	if maxVisible < 3 {
		maxVisible = 3
	}

	start := 0
	if m.selected >= maxVisible {
		start = m.selected - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(m.filtered) {
		end = len(m.filtered)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if header := m.sectionHeader(i); header != "" {
			b.WriteString(m.styles.section.Render(header))
			b.WriteString("\n")
		}
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString(m.styles.hint.Render("  no matching commands"))
		b.WriteString("\n")
	}
	return b.String()
}

// sectionHeader returns the section title owed just before row i. Headers
// only exist at the root with an empty query.
func (m *Model) sectionHeader(i int) string {
	if m.favCount == 0 && m.recCount == 0 {
		return ""
	}
	switch i {
	case 0:
		if m.favCount > 0 {
			return "Favorites"
		}
		if m.recCount > 0 {
			return "Recents"
		}
		return "Suggestions"
	case m.favCount:
		if m.recCount > 0 {
			return "Recents"
		}
		return "Suggestions"
	case m.favCount + m.recCount:
		return "Suggestions"
	}
	return ""
}

func (m *Model) renderRow(i int) string {
	s := m.filtered[i]

	cursor := "  "
	style := m.styles.normal
	if i == m.selected {
		cursor = "▸ "
		style = m.styles.selected
	}

	label := s.DisplayName()
	if s.Icon != "" {
		label = s.Icon + " " + label
	}
	if s.Kind == command.KindGroup {
		label += " ›"
	}
	if s.Kind == command.KindInput {
		value := m.engine.Stack().Top().FormValues[fieldFor(s)]
		if value == "" {
			value = "…"
		}
		label += ": " + value
	}
	if s.Favorited {
		label = "★ " + label
	}

	hint := s.Keybinding
	avail := m.width - 4
	if avail < 20 {
		avail = 20
	}
	label = runewidth.Truncate(label, avail-runewidth.StringWidth(hint)-2, "…")

	line := cursor + style.Render(label)
	if hint != "" {
		pad := avail - runewidth.StringWidth(label) - runewidth.StringWidth(hint)
		if pad < 1 {
			pad = 1
		}
		line += strings.Repeat(" ", pad) + m.styles.hint.Render(hint)
	}
	return line
}

func (m *Model) footer() string {
	switch m.mode {
	case modeConfirm:
		name := ""
		if m.confirmTarget != nil {
			name = m.confirmTarget.Name
		}
		return m.styles.status.Render("Run " + name + "? enter to confirm, esc to cancel")
	case modeEditField:
		return m.styles.status.Render("enter to set field, esc to cancel")
	case modeBindKey:
		seq := keybind.JoinSequence(m.captured)
		if seq == "" {
			seq = "…"
		}
		return m.styles.status.Render("new keybinding: " + seq + "  (enter to save, backspace to undo, esc to cancel)")
	}

	if m.chordPending {
		return m.styles.status.Render("chord pending…")
	}
	if m.status != "" {
		if m.statusIsErr {
			return m.styles.errText.Render(m.status)
		}
		return m.styles.status.Render(m.status)
	}
	return m.styles.hint.Render("↑/↓ select · enter run · ctrl+f pin · ctrl+b bind · esc back")
}
