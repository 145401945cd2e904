// Package nav maintains the ordered stack of palette pages as the user
// drills into nested command groups. Each frame keeps its own search text,
// breadcrumb parent, ancestor id path, and pending form values; only the
// top frame is mutable.
package nav

import (
	"context"
	"errors"
	"sync"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/internal/resolver"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

var (
	// ErrBusy is returned when a push arrives while another push or refresh
	// is outstanding. The second request is rejected, not queued.
	ErrBusy = errors.New("navigation busy")
	// ErrAtRoot is returned when popping the root frame.
	ErrAtRoot = errors.New("already at root")
)

// Page is one frame of the stack.
//
// The first frame always has ID "root" and an empty ParentPath; every
// deeper frame's ParentPath is its parent's path plus its own id, so
// len(ParentPath) == depth-1 and the frame's child list can be relocated by
// path after a full catalog reconstruction.
type Page struct {
	ID          string
	Favorites   []command.Suggestion
	Recents     []command.Suggestion
	Suggestions []command.Suggestion
	SearchValue string
	Parent      *command.Suggestion
	ParentPath  []string
	FormValues  map[string]string
}

// PageContent is what a Provider returns for one group: the projected
// children, the suggestion that was entered to reach the frame, and default
// values contributed by input fields among the children.
type PageContent struct {
	Suggestions   []command.Suggestion
	Parent        *command.Suggestion
	InputDefaults map[string]string
}

// Provider fetches page content by (parentPath, id), never by object
// identity, so lookups survive catalog reconstruction.
type Provider interface {
	PageFor(ctx context.Context, id string, parentPath []string, rc *command.RunContext) (PageContent, error)
}

// Stack is the navigation stack. All mutation goes through one mutex; a
// single-flight flag additionally rejects overlapping push/refresh
// requests, which may suspend in the Provider.
type Stack struct {
	provider Provider
	log      logr.Logger

	mu             sync.Mutex
	pages          []Page
	inFlight       bool
	searchSuppress bool
}

// NewStack returns a stack holding only the root frame.
func NewStack(provider Provider, log logr.Logger) *Stack {
	return &Stack{
		provider: provider,
		log:      log,
		pages: []Page{{
			ID:         resolver.RootID,
			FormValues: map[string]string{},
		}},
	}
}

// Depth returns the number of frames.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Top returns a copy of the top frame.
func (s *Stack) Top() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[len(s.pages)-1]
}

// SetRootContent replaces the root frame's result lists (used after a
// GetCommands round trip).
func (s *Stack) SetRootContent(favorites, recents, suggestions []command.Suggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[0].Favorites = favorites
	s.pages[0].Recents = recents
	s.pages[0].Suggestions = suggestions
}

// Push fetches the children of id relative to the current top frame and
// pushes a new frame with empty search text and form values pre-filled from
// input-field defaults. A push while another push or refresh is outstanding
// returns ErrBusy.
func (s *Stack) Push(ctx context.Context, id string, rc *command.RunContext) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	s.inFlight = true
	top := s.pages[len(s.pages)-1]
	s.mu.Unlock()

	content, err := s.provider.PageFor(ctx, id, top.ParentPath, rc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return err
	}

	formValues := make(map[string]string, len(content.InputDefaults))
	for field, def := range content.InputDefaults {
		formValues[field] = def
	}
	s.pages = append(s.pages, Page{
		ID:          id,
		Suggestions: content.Suggestions,
		Parent:      content.Parent,
		ParentPath:  append(append([]string(nil), top.ParentPath...), id),
		FormValues:  formValues,
	})
	return nil
}

// Pop removes the top frame and returns the restored parent frame, whose
// previously-stored search text comes back with it. Popping the root frame
// fails with ErrAtRoot. A pop while a push or refresh is suspended in the
// provider returns ErrBusy; the outstanding operation snapshotted the top
// frame it is appending relative to.
func (s *Stack) Pop() (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return Page{}, ErrBusy
	}
	if len(s.pages) <= 1 {
		return s.pages[0], ErrAtRoot
	}
	s.pages = s.pages[:len(s.pages)-1]
	return s.pages[len(s.pages)-1], nil
}

// UpdateSearch mutates the top frame's search text. It reports false while
// a programmatic input reset is in flight, so UI-driven and engine-driven
// search changes cannot feed back into each other.
func (s *Stack) UpdateSearch(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchSuppress {
		return false
	}
	s.pages[len(s.pages)-1].SearchValue = text
	return true
}

// SuppressSearch toggles suppression of UpdateSearch around programmatic
// input resets.
func (s *Stack) SuppressSearch(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchSuppress = on
}

// SetFormValue records a typed parameter value on the top frame.
func (s *Stack) SetFormValue(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	top := &s.pages[len(s.pages)-1]
	if top.FormValues == nil {
		top.FormValues = map[string]string{}
	}
	top.FormValues[field] = value
}

// RefreshTop re-fetches the top frame's children in place (after a mutation
// such as toggling a favorite) without changing stack depth. Newly
// appearing input defaults are merged under any values the user has already
// typed.
func (s *Stack) RefreshTop(ctx context.Context, rc *command.RunContext) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	s.inFlight = true
	top := s.pages[len(s.pages)-1]
	s.mu.Unlock()

	parentPath := top.ParentPath
	if top.ID != resolver.RootID && len(parentPath) > 0 {
		// The stored path includes the frame's own id; the provider wants
		// the ancestors of the frame's group.
		parentPath = parentPath[:len(parentPath)-1]
	}
	content, err := s.provider.PageFor(ctx, top.ID, parentPath, rc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return err
	}

	cur := &s.pages[len(s.pages)-1]
	cur.Suggestions = content.Suggestions
	if content.Parent != nil {
		cur.Parent = content.Parent
	}
	if cur.FormValues == nil {
		cur.FormValues = map[string]string{}
	}
	for field, def := range content.InputDefaults {
		if _, typed := cur.FormValues[field]; !typed {
			cur.FormValues[field] = def
		}
	}
	return nil
}
