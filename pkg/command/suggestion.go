package command

// ActionType identifies a derived suggestion action.
type ActionType string

const (
	ActionToggleFavorite  ActionType = "toggle_favorite"
	ActionRun             ActionType = "run"
	ActionOpen            ActionType = "open"
	ActionModifier        ActionType = "modifier"
	ActionSetKeybinding   ActionType = "set_keybinding"
	ActionResetKeybinding ActionType = "reset_keybinding"
)

// SuggestionAction is one entry of a suggestion's action list. Modifier is
// set only for ActionModifier entries.
type SuggestionAction struct {
	Type     ActionType
	Label    string
	Modifier string
}

// Suggestion is a fully resolved, UI-ready projection of a Node for one
// execution context. Suggestions are recomputed per request and never
// persisted.
//
// ParentName is set when the node is surfaced out of its hierarchical
// context (favorites, recents, deep search) so the UI can render a
// breadcrumb; it stays empty for plain top-down listings.
type Suggestion struct {
	ID          string
	Kind        Kind
	Name        string
	ParentName  string
	Description string
	Icon        string
	Color       string
	Keywords    []string
	Actions     []SuggestionAction
	Favorited   bool
	Keybinding  string
	Confirm     bool
	RemainOpen  bool
	ParentPath  []string
	// Field is set for input suggestions: the form key the field writes.
	Field string
}

// DisplayName joins the breadcrumb pair for flat renderings: "Parent › Name"
// when a parent name is attached, the plain name otherwise.
func (s Suggestion) DisplayName() string {
	if s.ParentName == "" {
		return s.Name
	}
	return s.ParentName + " › " + s.Name
}
