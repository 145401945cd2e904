package tui

import (
	"testing"

	"github.com/oakwood-commons/cmdk/internal/keybind"
)

func TestParseStroke(t *testing.T) {
	cases := []struct {
		key  string
		want keybind.Stroke
		ok   bool
	}{
		{"k", keybind.Stroke{Key: "k"}, true},
		{"ctrl+k", keybind.Stroke{Key: "k", Modifiers: []string{"ctrl"}}, true},
		{"ctrl+shift+k", keybind.Stroke{Key: "k", Modifiers: []string{"ctrl", "shift"}}, true},
		{"enter", keybind.Stroke{Key: "enter"}, true},
		{"ctrl+", keybind.Stroke{}, false},
		{"", keybind.Stroke{}, false},
	}
	for _, tc := range cases {
		got, ok := parseStroke(tc.key)
		if ok != tc.ok {
			t.Fatalf("parseStroke(%q) ok = %v, want %v", tc.key, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if got.Key != tc.want.Key {
			t.Errorf("parseStroke(%q) key = %q, want %q", tc.key, got.Key, tc.want.Key)
		}
		if len(got.Modifiers) != len(tc.want.Modifiers) {
			t.Fatalf("parseStroke(%q) modifiers = %v, want %v", tc.key, got.Modifiers, tc.want.Modifiers)
		}
		for i := range got.Modifiers {
			if got.Modifiers[i] != tc.want.Modifiers[i] {
				t.Errorf("parseStroke(%q) modifiers = %v, want %v", tc.key, got.Modifiers, tc.want.Modifiers)
			}
		}
	}
}

func TestStrokeRouting(t *testing.T) {
	if _, ok := strokeFromKey("g", false); ok {
		t.Error("bare key must stay with the search field when no chord is pending")
	}
	if _, ok := strokeFromKey("g", true); !ok {
		t.Error("bare key must reach the matcher while a chord is pending")
	}
	if _, ok := strokeFromKey("ctrl+k", false); !ok {
		t.Error("modified combo must always reach the matcher")
	}
	if _, ok := strokeFromKey("shift+g", false); ok {
		t.Error("shift alone is typing, not a command stroke")
	}
	if _, ok := strokeFromKey("ctrl+shift+p", false); !ok {
		t.Error("shift alongside another modifier is a command stroke")
	}
}
