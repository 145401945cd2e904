package tui

import (
	"strings"

	"github.com/oakwood-commons/cmdk/internal/keybind"
)

// modifierTokens are the Bubble Tea key-string prefixes treated as
// modifiers when splitting a combo like "ctrl+shift+k".
var modifierTokens = map[string]bool{
	"ctrl":  true,
	"alt":   true,
	"shift": true,
	"cmd":   true,
	"super": true,
	"meta":  true,
}

// parseStroke splits a Bubble Tea key string into a matcher stroke.
func parseStroke(key string) (keybind.Stroke, bool) {
	parts := strings.Split(key, "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return keybind.Stroke{}, false
	}
	s := keybind.Stroke{Key: parts[len(parts)-1]}
	for _, p := range parts[:len(parts)-1] {
		if !modifierTokens[strings.ToLower(p)] {
			return keybind.Stroke{}, false
		}
		s.Modifiers = append(s.Modifiers, p)
	}
	return s, true
}

// strokeFromKey decides whether a keystroke belongs to the sequence
// matcher. Combos with a non-shift modifier always do; bare keys do only
// while a chord is pending, so plain typing stays with the search field.
func strokeFromKey(key string, chordPending bool) (keybind.Stroke, bool) {
	s, ok := parseStroke(key)
	if !ok {
		return keybind.Stroke{}, false
	}
	if chordPending {
		return s, true
	}
	for _, mod := range s.Modifiers {
		if strings.ToLower(mod) != "shift" {
			return s, true
		}
	}
	return keybind.Stroke{}, false
}
