package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/cmdk/pkg/logger"
)

var (
	statsOutput  string
	statsCleanup bool
)

// statsRow is the exportable shape of one command's usage record.
type statsRow struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	Uses      int       `json:"uses" yaml:"uses" toml:"uses"`
	LastUsed  time.Time `json:"lastUsed" yaml:"lastUsed" toml:"lastUsed"`
	Score     float64   `json:"score" yaml:"score" toml:"score"`
	UsedUnder []string  `json:"usedUnder,omitempty" yaml:"usedUnder,omitempty" toml:"usedUnder,omitempty"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show command usage statistics",
	Long:  "stats prints the persisted usage ledger with live ranking scores, highest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		lgr := logger.FromContext(rootCtx)
		params := cliParams()

		engine, err := buildEngine(*lgr, params)
		if err != nil {
			return err
		}
		ledger := engine.Ledger()
		ctx := cmd.Context()

		if statsCleanup {
			if err := ledger.Cleanup(ctx); err != nil {
				return err
			}
		}

		all, err := ledger.All(ctx)
		if err != nil {
			return err
		}
		scores, err := ledger.Scores(ctx)
		if err != nil {
			return err
		}

		rows := make([]statsRow, 0, len(all))
		for id, st := range all {
			rows = append(rows, statsRow{
				ID:        id,
				Uses:      st.TotalUsage,
				LastUsed:  st.LastUsed,
				Score:     scores[id],
				UsedUnder: st.ParentNames,
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Score != rows[j].Score {
				return rows[i].Score > rows[j].Score
			}
			return rows[i].ID < rows[j].ID
		})

		out := cmd.OutOrStdout()
		switch statsOutput {
		case "yaml":
			data, err := yaml.Marshal(rows)
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(data))
		case "json":
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		case "toml":
			data, err := toml.Marshal(map[string][]statsRow{"commands": rows})
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(data))
		default:
			return fmt.Errorf("invalid --output value %q (expected yaml, json, or toml)", statsOutput)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "yaml", "output format: yaml|json|toml")
	statsCmd.Flags().BoolVar(&statsCleanup, "cleanup", false, "prune entries unused beyond the retention window before printing")
}
