// Package keybind normalizes physical key chords, keeps the registry of
// stroke sequences, and disambiguates multi-stroke keybindings under a
// timeout.
package keybind

import (
	"sort"
	"strings"
)

// Stroke is one physical key-down event with its modifier set, as reported
// by the hosting shell.
type Stroke struct {
	Key       string
	Modifiers []string
}

// Normalize renders a stroke in canonical token form: lower-cased modifier
// tokens in alphabetical order followed by the primary key, space-joined.
// "K" + [cmd] and "k" + [CMD] normalize identically.
func (s Stroke) Normalize() string {
	mods := make([]string, 0, len(s.Modifiers))
	seen := make(map[string]bool, len(s.Modifiers))
	for _, m := range s.Modifiers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		mods = append(mods, m)
	}
	sort.Strings(mods)
	return strings.Join(append(mods, strings.ToLower(strings.TrimSpace(s.Key))), " ")
}

// sequenceSeparator joins strokes into a sequence string, e.g. "cmd k, g".
const sequenceSeparator = ", "

// JoinSequence joins already-normalized strokes into a sequence string.
func JoinSequence(strokes []string) string {
	return strings.Join(strokes, sequenceSeparator)
}

// NormalizeSequence parses a user- or catalog-authored sequence ("Cmd K, g")
// into canonical form ("cmd k, g"). Each comma-separated part is one
// stroke whose last token is the primary key.
func NormalizeSequence(seq string) string {
	parts := strings.Split(seq, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		st := Stroke{
			Key:       tokens[len(tokens)-1],
			Modifiers: tokens[:len(tokens)-1],
		}
		normalized = append(normalized, st.Normalize())
	}
	return JoinSequence(normalized)
}
