package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/flowtx/internal/registry"
)

var flagFlowsDir string

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Inspect flow definitions",
}

var flowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flow definitions in the registry directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := flagFlowsDir
		if dir == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			project, err := projectPath()
			if err != nil {
				return err
			}
			dir = cfg.Flows.Dir
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(project, dir)
			}
		}

		reg := registry.New(dir)
		if err := reg.Load(); err != nil {
			return fmt.Errorf("loading flow definitions: %w", err)
		}

		rows := make([][]string, 0, reg.Len())
		for _, def := range reg.List() {
			persistent, _ := def.Attributes.GetBool("persistenceContext")
			rows = append(rows, []string{
				def.ID,
				strconv.FormatBool(persistent),
				strconv.Itoa(def.States()),
			})
		}
		return newWriter().Table([]string{"FLOW", "PERSISTENCE", "STATES"}, rows)
	},
}

func init() {
	flowsListCmd.Flags().StringVar(&flagFlowsDir, "dir", "", "flow definitions directory (default from config)")

	flowsCmd.AddCommand(flowsListCmd)
	rootCmd.AddCommand(flowsCmd)
}
