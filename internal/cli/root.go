// Package cli implements the flowtx command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/flowtx/internal/config"
	"github.com/Dicklesworthstone/flowtx/internal/db"
	"github.com/Dicklesworthstone/flowtx/internal/output"
	"github.com/Dicklesworthstone/flowtx/internal/utils"
)

var (
	flagProject string
	flagDB      string
	flagConfig  string
	flagOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "flowtx",
	Short: "Inspect and maintain flowtx conversation state",
	Long: `flowtx manages the persistence-session-per-conversation store.

Conversations are multi-request flow executions; each one marked as a
persistence context holds a unit of work that commits or rolls back when
the conversation ends. The store keeps an audit record per conversation.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level := os.Getenv("FLOWTX_LOG_LEVEL"); level == "" {
			if cfg, err := loadConfig(); err == nil {
				utils.SetDefaultLogger(utils.InitLogger(utils.LoggerOptions{
					Level:           cfg.Log.Level,
					Output:          os.Stderr,
					ReportTimestamp: true,
				}))
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the conversation store database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "text", "output format (text|json)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func projectPath() (string, error) {
	if flagProject != "" {
		return filepath.Abs(flagProject)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return cwd, nil
}

func loadConfig() (config.Config, error) {
	project, err := projectPath()
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(config.LoadOptions{
		ProjectDir: project,
		ConfigPath: flagConfig,
	})
}

// openStore opens the conversation store, honoring --db, then config, then
// the project default.
func openStore() (*db.DB, error) {
	if flagDB != "" {
		return db.OpenAndMigrate(flagDB)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.DatabasePath != "" {
		return db.OpenAndMigrate(cfg.Storage.DatabasePath)
	}

	project, err := projectPath()
	if err != nil {
		return nil, err
	}
	return db.OpenProjectDB(project)
}

func newWriter() *output.Writer {
	return output.New(output.Format(flagOutput))
}
