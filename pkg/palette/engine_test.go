package palette

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/cmdk/internal/keybind"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

// effectLog counts effect invocations per command id.
type effectLog struct {
	mu    sync.Mutex
	count map[string]int
}

func newEffectLog() *effectLog {
	return &effectLog{count: map[string]int{}}
}

func (e *effectLog) effect(id string) command.EffectFunc {
	return func(context.Context, *command.RunContext, map[string]string) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.count[id]++
		return nil
	}
}

func (e *effectLog) calls(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count[id]
}

func staticChildren(children ...command.Node) command.ChildrenFunc {
	return func(context.Context, *command.RunContext) ([]command.Node, error) {
		return children, nil
	}
}

func testCatalog(log *effectLog) CatalogFunc {
	nodes := []command.Node{
		{
			ID: "new-tab", Kind: command.KindAction, Name: command.Static("New Tab"),
			DefaultKeybinding: "cmd t", Run: log.effect("new-tab"),
		},
		{
			ID: "close-tab", Kind: command.KindAction, Name: command.Static("Close Tab"),
			Permissions: []string{"tabs"}, Run: log.effect("close-tab"),
		},
		{
			ID: "bookmarks", Kind: command.KindGroup, Name: command.Static("Bookmarks"),
			DeepSearch: true,
			Children: staticChildren(
				command.Node{ID: "open-all", Kind: command.KindAction, Name: command.Static("Open All"), Run: log.effect("open-all")},
				command.Node{
					ID: "manager", Kind: command.KindGroup, Name: command.Static("Bookmark Manager"),
					Children: staticChildren(
						command.Node{ID: "import", Kind: command.KindAction, Name: command.Static("Import Bookmarks"), Run: log.effect("import")},
					),
				},
			),
		},
		{
			ID: "copy-text", Kind: command.KindGroup, Name: command.Static("Copy Text"),
			Children: staticChildren(
				command.Node{
					ID: "text", Kind: command.KindInput, Name: command.Static("Text"),
					Input: &command.InputSpec{Field: "text", Default: "hello"},
				},
				command.Node{ID: "copy-submit", Kind: command.KindSubmit, Name: command.Static("Copy"), Run: log.effect("copy-submit")},
			),
		},
	}
	return func(context.Context, *command.RunContext) ([]command.Node, error) {
		return nodes, nil
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *effectLog) {
	t.Helper()
	log := newEffectLog()
	base := []Option{WithClock(func() time.Time {
		return time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	})}
	return New(testCatalog(log), append(base, opts...)...), log
}

func TestGetCommandsSections(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.UpdateCommandSetting(ctx, "open-all", "favorite", "true", nil))
	require.NoError(t, e.ExecuteCommand(ctx, "new-tab", nil, nil, nil))

	out, err := e.GetCommands(ctx, nil)
	require.NoError(t, err)

	require.Len(t, out.Favorites, 1)
	assert.Equal(t, "open-all", out.Favorites[0].ID)
	assert.Equal(t, "Bookmarks", out.Favorites[0].ParentName, "nested favorite carries a breadcrumb")
	assert.True(t, out.Favorites[0].Favorited)

	require.Len(t, out.Recents, 1)
	assert.Equal(t, "new-tab", out.Recents[0].ID)

	for _, s := range out.Suggestions {
		assert.NotEqual(t, "new-tab", s.ID, "recents are excluded from suggestions")
		assert.NotEqual(t, "open-all", s.ID, "favorites are excluded from suggestions")
	}

	deepIDs := map[string]bool{}
	for _, s := range out.DeepSearchItems {
		deepIDs[s.ID] = true
	}
	assert.True(t, deepIDs["import"], "deep search flattens nested actions")
}

func TestRecentsAreCapped(t *testing.T) {
	log := newEffectLog()
	var nodes []command.Node
	for i := 0; i < maxRecents+3; i++ {
		id := fmt.Sprintf("cmd-%02d", i)
		nodes = append(nodes, command.Node{
			ID: id, Kind: command.KindAction, Name: command.Static(id), Run: log.effect(id),
		})
	}
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := New(
		func(context.Context, *command.RunContext) ([]command.Node, error) { return nodes, nil },
		WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()

	for i := range nodes {
		// Spread usage so later commands score higher.
		for j := 0; j <= i; j++ {
			require.NoError(t, e.ExecuteCommand(ctx, nodes[i].ID, nil, nil, nil))
		}
	}

	out, err := e.GetCommands(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, out.Recents, maxRecents)

	// Everything used but not among the top recents surfaces in the
	// score-sorted suggestions instead of disappearing.
	assert.Len(t, out.Suggestions, 3)
	assert.Equal(t, "cmd-02", out.Suggestions[0].ID)
}

func TestExecuteCommandValidatesID(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.ExecuteCommand(context.Background(), "../../etc/passwd", nil, nil, nil)
	var ve *command.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestExecuteCommandPermissionDenied(t *testing.T) {
	e, log := newTestEngine(t, WithPermissionChecker(denyAll{}))

	err := e.ExecuteCommand(context.Background(), "close-tab", nil, nil, nil)
	var pe *command.PermissionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"tabs"}, pe.Missing)
	assert.Zero(t, log.calls("close-tab"))
}

type denyAll struct{}

func (denyAll) Granted(context.Context, string) (bool, error) { return false, nil }

func TestExecuteKeybindingImmediate(t *testing.T) {
	e, log := newTestEngine(t)
	ctx := context.Background()

	res, err := e.ExecuteKeybinding(ctx, keybind.Stroke{Key: "t", Modifiers: []string{"cmd"}}, nil)
	require.NoError(t, err)
	assert.True(t, res.Executed)
	assert.Equal(t, "new-tab", res.CommandID)
	assert.Equal(t, 1, log.calls("new-tab"))

	st, ok, err := e.Ledger().Stats(ctx, "new-tab")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, st.TotalUsage)
}

func TestExecuteKeybindingUnmatched(t *testing.T) {
	e, _ := newTestEngine(t)

	res, err := e.ExecuteKeybinding(context.Background(), keybind.Stroke{Key: "z"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Executed)
	assert.False(t, res.Pending)
}

func TestChordResolvedByTimeout(t *testing.T) {
	log := newEffectLog()
	nodes := []command.Node{
		{ID: "line-start", Kind: command.KindAction, Name: command.Static("Line Start"), DefaultKeybinding: "g", Run: log.effect("line-start")},
		{ID: "top", Kind: command.KindAction, Name: command.Static("Top"), DefaultKeybinding: "g, g", Run: log.effect("top")},
	}

	var fired func()
	e := New(
		func(context.Context, *command.RunContext) ([]command.Node, error) { return nodes, nil },
		WithTimerFactory(func(_ time.Duration, fn func()) func() {
			fired = fn
			return func() {}
		}),
	)

	var resolved []string
	done := make(chan struct{}, 1)
	e.OnKeybindingResolved(func(id string, err error) {
		require.NoError(t, err)
		resolved = append(resolved, id)
		done <- struct{}{}
	})

	res, err := e.ExecuteKeybinding(context.Background(), keybind.Stroke{Key: "g"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Pending)

	require.NotNil(t, fired)
	fired()
	<-done
	assert.Equal(t, []string{"line-start"}, resolved)
	assert.Equal(t, 1, log.calls("line-start"))
	assert.Zero(t, log.calls("top"))
}

func TestChordResolvedByCompletion(t *testing.T) {
	log := newEffectLog()
	nodes := []command.Node{
		{ID: "line-start", Kind: command.KindAction, Name: command.Static("Line Start"), DefaultKeybinding: "g", Run: log.effect("line-start")},
		{ID: "top", Kind: command.KindAction, Name: command.Static("Top"), DefaultKeybinding: "g, g", Run: log.effect("top")},
	}
	e := New(func(context.Context, *command.RunContext) ([]command.Node, error) { return nodes, nil })
	ctx := context.Background()

	res, err := e.ExecuteKeybinding(ctx, keybind.Stroke{Key: "g"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Pending)

	res, err = e.ExecuteKeybinding(ctx, keybind.Stroke{Key: "g"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Executed)
	assert.Equal(t, "top", res.CommandID)
	assert.Equal(t, 1, log.calls("top"))
	assert.Zero(t, log.calls("line-start"))
}

func TestUpdateKeybindingConflict(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	err := e.UpdateCommandSetting(ctx, "close-tab", "keybinding", "CMD T", nil)
	var ce *command.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "new-tab", ce.OwnerID)
	assert.Equal(t, "cmd t", ce.Sequence)
}

func TestUpdateKeybindingRebindsAndRebuilds(t *testing.T) {
	e, log := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.UpdateCommandSetting(ctx, "close-tab", "keybinding", "ctrl w", nil))

	owner, conflict, err := e.CheckKeybindingConflict(ctx, "ctrl w", "other", nil)
	require.NoError(t, err)
	assert.True(t, conflict)
	assert.Equal(t, "close-tab", owner)

	res, err := e.ExecuteKeybinding(ctx, keybind.Stroke{Key: "w", Modifiers: []string{"ctrl"}}, nil)
	require.NoError(t, err)
	require.True(t, res.Executed, "rebound keybinding did not resolve: %+v", res)
	assert.Equal(t, "close-tab", res.CommandID)
	assert.Equal(t, 1, log.calls("close-tab"))
}

func TestUpdateKeybindingClearedByEmptyValue(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.UpdateCommandSetting(ctx, "new-tab", "keybinding", "", nil))

	res, err := e.ExecuteKeybinding(ctx, keybind.Stroke{Key: "t", Modifiers: []string{"cmd"}}, nil)
	require.NoError(t, err)
	assert.False(t, res.Executed, "cleared binding must not fire")
}

func TestUpdateSettingValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var ve *command.ValidationError
	assert.ErrorAs(t, e.UpdateCommandSetting(ctx, "new-tab", "theme", "dark", nil), &ve)
	assert.ErrorAs(t, e.UpdateCommandSetting(ctx, "new-tab", "favorite", "maybe", nil), &ve)
	assert.ErrorAs(t, e.UpdateCommandSetting(ctx, "bad id!", "favorite", "true", nil), &ve)

	var nf *command.NotFoundError
	assert.ErrorAs(t, e.UpdateCommandSetting(ctx, "ghost", "keybinding", "cmd g", nil), &nf)
}

func TestFavoriteToggleRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.UpdateCommandSetting(ctx, "new-tab", "favorite", "true", nil))
	out, err := e.GetCommands(ctx, nil)
	require.NoError(t, err)
	require.Len(t, out.Favorites, 1)

	require.NoError(t, e.UpdateCommandSetting(ctx, "new-tab", "favorite", "false", nil))
	out, err = e.GetCommands(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Favorites)
}

func TestPushPrefillsFormDefaultsThroughProvider(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Stack().Push(ctx, "copy-text", nil))
	top := e.Stack().Top()
	assert.Equal(t, "hello", top.FormValues["text"])
	require.NotNil(t, top.Parent)
	assert.Equal(t, "Copy Text", top.Parent.Name)
}

func TestGetChildren(t *testing.T) {
	e, _ := newTestEngine(t)

	out, err := e.GetChildren(context.Background(), "bookmarks", nil, nil)
	require.NoError(t, err)
	assert.True(t, out.OpensPage)
	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, "open-all", out.Suggestions[0].ID)
	assert.Equal(t, "manager", out.Suggestions[1].ID)

	out, err = e.GetChildren(context.Background(), "new-tab", nil, nil)
	require.NoError(t, err)
	assert.False(t, out.OpensPage, "actions have no children page")
	assert.Empty(t, out.Suggestions)
}
