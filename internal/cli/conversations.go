package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/flowtx/internal/db"
	"github.com/Dicklesworthstone/flowtx/internal/output"
	"github.com/Dicklesworthstone/flowtx/pkg/persist"
)

var (
	flagListAll       bool
	flagListLimit     int
	flagGCThresholdMm int
	flagGCDryRun      bool
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Inspect and maintain conversation records",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()

		limit := flagListLimit
		if limit <= 0 {
			if cfg, err := loadConfig(); err == nil {
				limit = cfg.Conversations.ListLimit
			} else {
				limit = 50
			}
		}

		var convs []*db.Conversation
		if flagListAll {
			convs, err = store.ListConversations(limit)
		} else {
			convs, err = store.ListActiveConversations()
		}
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}

		return newWriter().Table(output.ConversationHeaders, output.ConversationRows(convs))
	},
}

var conversationsGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reap stale conversation records",
	Long: `Reap conversation records with no recent activity.

A conversation record goes stale when its owning process exits between
requests without ending the conversation. Reaped records are marked
abandoned; their units of work died with the owning connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()

		threshold := time.Duration(flagGCThresholdMm) * time.Minute
		if flagGCThresholdMm <= 0 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			threshold = time.Duration(cfg.Conversations.StaleThresholdMins) * time.Minute
		}

		res, err := persist.GarbageCollectStaleConversations(store, persist.GCOptions{
			Threshold: threshold,
			DryRun:    flagGCDryRun,
		})
		if err != nil {
			return fmt.Errorf("collecting stale conversations: %w", err)
		}

		return newWriter().Write(map[string]any{
			"stale":   len(res.Conversations),
			"ended":   len(res.EndedIDs),
			"skipped": len(res.SkippedIDs),
			"dry_run": flagGCDryRun,
		})
	},
}

func init() {
	conversationsListCmd.Flags().BoolVar(&flagListAll, "all", false, "include ended conversations")
	conversationsListCmd.Flags().IntVar(&flagListLimit, "limit", 0, "max records to list (default from config)")

	conversationsGCCmd.Flags().IntVar(&flagGCThresholdMm, "threshold", 0, "staleness threshold in minutes (default from config)")
	conversationsGCCmd.Flags().BoolVar(&flagGCDryRun, "dry-run", false, "report stale conversations without ending them")

	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsGCCmd)
	rootCmd.AddCommand(conversationsCmd)
}
