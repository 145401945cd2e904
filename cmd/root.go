package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/cmdk/internal/catalog"
	"github.com/oakwood-commons/cmdk/internal/expr"
	"github.com/oakwood-commons/cmdk/internal/storage"
	"github.com/oakwood-commons/cmdk/internal/tui"
	"github.com/oakwood-commons/cmdk/pkg/command"
	"github.com/oakwood-commons/cmdk/pkg/logger"
	"github.com/oakwood-commons/cmdk/pkg/palette"
	"github.com/oakwood-commons/cmdk/pkg/settings"
)

var (
	catalogPath string
	stateDir    string
	noColor     bool
	debug       bool

	rootCtx context.Context
)

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName,
	Short: "cmdk is a keyboard-driven command palette for the terminal",
	Long: "cmdk opens a searchable command palette over a YAML catalog:\n" +
		"fuzzy search, nested command pages, parameter forms, per-command\n" +
		"keybindings with multi-stroke chords, and usage-based ranking.",
	Example: "\n  cmdk\n  cmdk --catalog commands.yaml\n  cmdk --state-dir ~/.local/state/cmdk\n  cmdk stats -o json\n",
	Args:    cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		var level int8 = 0
		if debug {
			level = -1
		}
		lgr := logger.Get(level)
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())
		rootCtx = logger.WithLogger(context.Background(), lgr)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("cmdk needs an interactive terminal; pipe-friendly output is available via 'cmdk stats'")
		}

		lgr := logger.FromContext(rootCtx)
		params := cliParams()
		ctx := settings.IntoContext(rootCtx, params)

		engine, err := buildEngine(*lgr, params)
		if err != nil {
			return err
		}
		return tui.Run(ctx, engine, *lgr, params.NoColor)
	},
}

func cliParams() *settings.Run {
	params := settings.NewCliParams()
	params.CatalogPath = catalogPath
	params.StateDir = stateDir
	params.NoColor = noColor
	params.Debug = debug
	if debug {
		params.MinLogLevel = -1
	}
	return params
}

// buildEngine assembles the palette engine from CLI parameters: catalog
// nodes (file or builtin demo), the persistent store, and the logger.
func buildEngine(lgr logr.Logger, params *settings.Run) (*palette.Engine, error) {
	eval, err := expr.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("initializing expression evaluator: %w", err)
	}

	var nodes []command.Node
	if params.CatalogPath != "" {
		nodes, err = catalog.LoadFile(params.CatalogPath, eval, lgr)
		if err != nil {
			return nil, err
		}
	} else {
		nodes = catalog.Builtin(lgr)
	}

	store, err := openStore(params.StateDir)
	if err != nil {
		return nil, err
	}

	engine := palette.New(
		func(context.Context, *command.RunContext) ([]command.Node, error) {
			return nodes, nil
		},
		palette.WithLogger(lgr),
		palette.WithStore(store),
	)
	return engine, nil
}

// openStore opens the persistent state directory, defaulting to the XDG
// state home so usage survives between runs.
func openStore(dir string) (storage.Store, error) {
	if dir == "" {
		dir = defaultStateDir()
	}
	if dir == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewFileStore(dir)
}

func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, settings.CliBinaryName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", settings.CliBinaryName)
	}
	return ""
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to a YAML command catalog (default: builtin demo catalog)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory for usage/settings state (default: XDG state home)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print build version information",
	Run: func(cmd *cobra.Command, _ []string) {
		v := settings.VersionInformation
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built %s)\n",
			settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
