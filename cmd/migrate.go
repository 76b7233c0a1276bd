package cmd

import (
	"fmt"
	"log"
	"time"

	"db-pour/internal/engine"
	"db-pour/internal/schema"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	tables       []string
	dryRun       bool
	showProgress bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Back up the destination and copy all shared tables into it",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := LoadConfig()
		if err != nil {
			return err
		}

		// Filter tables strategy:
		// 1. Check CLI flag --tables
		// 2. If empty, config migrate.tables
		// 3. If both empty, process all common tables.
		if len(tables) > 0 {
			fc.Migrate.Tables = tables
		}

		cfg := fc.EngineConfig()
		cfg.DryRun = dryRun
		out := cmd.OutOrStdout()

		log.Printf("Using Dialect: %s\n", cfg.Driver)
		if cfg.DryRun {
			log.Println("[SIMULATION] Dry-Run Mode Active: No data will be written.")
		}

		engine.WriteHeader(out, cfg.SourcePath, cfg.DestPath)

		var bar *uiprogress.Bar
		opts := engine.RunOptions{
			OnBackup: func(path string) {
				engine.WriteBackup(out, path)
			},
			OnTables: func(sets schema.TableSets, excluded []string) {
				engine.WriteTableSets(out, sets, excluded)
				engine.WriteMigrationStart(out, cfg.DryRun)

				names := pendingTables(sets.Common, excluded)
				if showProgress && len(names) > 0 {
					uiprogress.Start()
					bar = uiprogress.AddBar(len(names)).AppendCompleted().PrependElapsed()
					bar.PrependFunc(func(b *uiprogress.Bar) string {
						name := ""
						if n := b.Current(); n > 0 && n <= len(names) {
							name = names[n-1]
						}
						return fmt.Sprintf("%-24s", name)
					})
				}
			},
			OnTable: func(res engine.TableResult) {
				if bar != nil {
					bar.Incr()
					return
				}
				engine.WriteTableLine(out, res)
			},
		}

		start := time.Now()
		report, err := engine.Run(cmd.Context(), cfg, opts)

		if bar != nil {
			uiprogress.Stop()
		}

		if err != nil {
			if report != nil && report.Backup != "" {
				fmt.Fprintf(out, "\nMigration aborted. Backup saved as: %s\n", report.Backup)
			}
			return err
		}

		engine.WriteSummary(out, report)
		log.Printf("Migration Done! Time Elapsed: %s", time.Since(start))

		if fc.Migrate.Strict && !report.OK() {
			return fmt.Errorf("%w: %d tables", engine.ErrVerificationFailed, len(report.Mismatches()))
		}
		return nil
	},
}

// pendingTables returns the common tables the run will copy, in copy order.
func pendingTables(common, excluded []string) []string {
	skip := make(map[string]bool, len(excluded))
	for _, t := range excluded {
		skip[t] = true
	}
	names := make([]string, 0, len(common))
	for _, t := range common {
		if !skip[t] {
			names = append(names, t)
		}
	}
	return names
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	// CLI Flags
	migrateCmd.Flags().String("backup-prefix", "", "Backup file name prefix (overrides config)")
	migrateCmd.Flags().String("backup-dir", "", "Directory for the backup file (default: next to the destination)")
	migrateCmd.Flags().Bool("strict", false, "Exit with an error when any row count does not match")
	migrateCmd.Flags().Duration("busy-timeout", 0, "How long to wait on a locked database before failing")
	migrateCmd.Flags().StringSliceVarP(&tables, "tables", "t", []string{}, "Only migrate these common tables (comma-separated)")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be copied without taking a backup or writing")
	migrateCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar instead of one line per table")

	viper.BindPFlag("backup.prefix", migrateCmd.Flags().Lookup("backup-prefix"))
	viper.BindPFlag("backup.dir", migrateCmd.Flags().Lookup("backup-dir"))
	viper.BindPFlag("migrate.strict", migrateCmd.Flags().Lookup("strict"))
	viper.BindPFlag("migrate.busy_timeout", migrateCmd.Flags().Lookup("busy-timeout"))
	// Slice flags are not bound; precedence is handled in RunE: Flag > Config > All.
}
