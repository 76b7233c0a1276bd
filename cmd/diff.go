package cmd

import (
	"db-pour/internal/engine"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare tables, columns and row counts of both files without writing",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := LoadConfig()
		if err != nil {
			return err
		}

		report, err := engine.Diff(cmd.Context(), fc.EngineConfig())
		if err != nil {
			return err
		}

		engine.WriteDiff(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(diffCmd)
}
