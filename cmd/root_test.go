package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/cmdk/pkg/settings"
)

func resetRootCmdState() {
	catalogPath = ""
	stateDir = ""
	noColor = false
	debug = false

	rootCmd.SetArgs(nil)
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
	})
	statsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
	})
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetRootCmdState()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, settings.CliBinaryName)
	assert.Contains(t, out, settings.VersionInformation.BuildVersion)
}

func TestStatsEmptyLedgerJSON(t *testing.T) {
	out, err := runCLI(t, "stats", "-o", "json", "--state-dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestStatsReportsSeededUsage(t *testing.T) {
	dir := t.TempDir()

	// Seed the ledger through a real engine sharing the state directory.
	params := settings.NewCliParams()
	params.StateDir = dir
	engine, err := buildEngine(logr.Discard(), params)
	require.NoError(t, err)
	require.NoError(t, engine.ExecuteCommand(context.Background(), "new-tab", nil, nil, nil))

	out, err := runCLI(t, "stats", "--state-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "id: new-tab")
	assert.Contains(t, out, "uses: 1")

	out, err = runCLI(t, "stats", "-o", "json", "--state-dir", dir)
	require.NoError(t, err)
	var rows []statsRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "new-tab", rows[0].ID)
	assert.Greater(t, rows[0].Score, 0.0)
}

func TestStatsTOMLOutput(t *testing.T) {
	dir := t.TempDir()
	params := settings.NewCliParams()
	params.StateDir = dir
	engine, err := buildEngine(logr.Discard(), params)
	require.NoError(t, err)
	require.NoError(t, engine.ExecuteCommand(context.Background(), "close-tab", nil, nil, nil))

	out, err := runCLI(t, "stats", "-o", "toml", "--state-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "[[commands]]")
	assert.Contains(t, out, "id = 'close-tab'")
}

func TestStatsRejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, "stats", "-o", "xml", "--state-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestBuildEngineLoadsCatalogFile(t *testing.T) {
	params := settings.NewCliParams()
	params.CatalogPath = filepath.Join("..", "examples", "catalog.yaml")
	params.StateDir = t.TempDir()

	engine, err := buildEngine(logr.Discard(), params)
	require.NoError(t, err)

	out, err := engine.GetCommands(context.Background(), nil)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, s := range out.Suggestions {
		ids[s.ID] = true
	}
	assert.True(t, ids["new-tab"])
	assert.True(t, ids["bookmarks"])
}

func TestBuildEngineMissingCatalogFile(t *testing.T) {
	params := settings.NewCliParams()
	params.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := buildEngine(logr.Discard(), params)
	require.Error(t, err)
}
