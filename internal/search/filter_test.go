package search

import (
	"testing"

	"github.com/oakwood-commons/cmdk/pkg/command"
)

func named(id, name string, keywords ...string) command.Suggestion {
	return command.Suggestion{ID: id, Name: name, Keywords: keywords}
}

func ids(in []command.Suggestion) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.ID
	}
	return out
}

func TestFilterEmptyQueryReturnsInput(t *testing.T) {
	in := []command.Suggestion{named("a", "New Tab"), named("b", "Close Tab")}
	out := Filter(in, "   ")
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("Filter(empty) = %v", ids(out))
	}
}

func TestFilterTierOrdering(t *testing.T) {
	in := []command.Suggestion{
		named("substr", "Reopen Tab Closed"),  // "tab" mid-word? no: word prefix
		named("fuzzy", "Tap Dance"),           // edit distance 1 from "tab"
		named("exact", "Tab"),                 // exact
		named("prefix", "Tab Manager"),        // prefix
		named("miss", "Bookmarks"),            // no match
		named("wordpfx", "Close Tabs"),        // word prefix
		named("contains", "Printable Output"), // substring "tab" in "printable"
	}
	out := Filter(in, "tab")
	got := ids(out)

	want := []string{"exact", "prefix", "substr", "wordpfx", "contains", "fuzzy"}
	if len(got) != len(want) {
		t.Fatalf("Filter = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Filter = %v, want %v", got, want)
		}
	}
}

func TestFilterStableWithinTier(t *testing.T) {
	in := []command.Suggestion{
		named("one", "Tab One"),
		named("two", "Tab Two"),
		named("three", "Tab Three"),
	}
	out := Filter(in, "tab")
	got := ids(out)
	for i, want := range []string{"one", "two", "three"} {
		if got[i] != want {
			t.Fatalf("order not preserved within tier: %v", got)
		}
	}
}

func TestFilterMatchesKeywordsAndBreadcrumb(t *testing.T) {
	s := named("open-all", "Open All", "bookmarks")
	if out := Filter([]command.Suggestion{s}, "book"); len(out) != 1 {
		t.Fatal("keyword match missed")
	}

	crumbed := command.Suggestion{ID: "import", Name: "Import", ParentName: "Bookmark Manager"}
	if out := Filter([]command.Suggestion{crumbed}, "manager"); len(out) != 1 {
		t.Fatal("breadcrumb match missed")
	}
}

func TestFilterCaseInsensitive(t *testing.T) {
	in := []command.Suggestion{named("a", "New Tab")}
	if out := Filter(in, "NEW"); len(out) != 1 {
		t.Fatal("query case must not matter")
	}
}

func TestFilterFuzzyThreshold(t *testing.T) {
	in := []command.Suggestion{named("a", "clipboard")}
	if out := Filter(in, "clipbord"); len(out) != 1 {
		t.Fatal("one dropped letter should still match")
	}
	if out := Filter(in, "zzzzzz"); len(out) != 0 {
		t.Fatal("unrelated query must miss")
	}
}
