package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show conversation store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()

		stats, err := store.GetStats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		out := newWriter()
		if out.JSON() {
			return out.Write(stats)
		}
		return out.Table(
			[]string{"SCHEMA", "ACTIVE", "COMMITTED", "ROLLED BACK", "ABANDONED", "TOTAL"},
			[][]string{{
				fmt.Sprint(stats.SchemaVersion),
				fmt.Sprint(stats.Active),
				fmt.Sprint(stats.Committed),
				fmt.Sprint(stats.RolledBack),
				fmt.Sprint(stats.Abandoned),
				fmt.Sprint(stats.Total),
			}},
		)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
