package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags "-X db-pour/cmd.Version=...".
var Version = "dev"

var (
	cfgFile    string
	sourcePath string
	destPath   string
)

var RootCmd = &cobra.Command{
	Use:   "db-pour",
	Short: "Copy rows between two SQLite files with drifting schemas",
	Long: `
     _ _                                
  __| | |__        _ __   ___  _   _ _ __ 
 / _' | '_ \ ____ | '_ \ / _ \| | | | '__|
| (_| | |_) |____|| |_) | (_) | |_| | |   
 \__,_|_.__/      | .__/ \___/ \__,_|_|   
                  |_|                     

DB POUR - copies every table both SQLite files share from the source into
the destination, keeps destination-only columns at their defaults, leaves
one-sided tables alone, and verifies the row counts.
`,
	SilenceUsage: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Define flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-pour.yaml)")
	RootCmd.PersistentFlags().StringVar(&sourcePath, "source", "", "source database file (rows are read from here)")
	RootCmd.PersistentFlags().StringVar(&destPath, "dest", "", "destination database file (rows are replaced here)")

	// Bind flags to viper
	viper.BindPFlag("source.path", RootCmd.PersistentFlags().Lookup("source"))
	viper.BindPFlag("destination.path", RootCmd.PersistentFlags().Lookup("dest"))

	// Defaults (fallback if no config/flag)
	viper.SetDefault("source.path", "cms-serv1db.db")
	viper.SetDefault("destination.path", "cms.db")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("backup.prefix", "cms_backup")
	viper.SetDefault("backup.dir", "")
	viper.SetDefault("migrate.tables", []string{})
	viper.SetDefault("migrate.strict", false)
	viper.SetDefault("migrate.busy_timeout", "0s")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			exePath := filepath.Dir(ex)
			viper.AddConfigPath(exePath)
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-pour")
		viper.SetConfigType("yaml")
	}

	// DBPOUR_SOURCE_PATH, DBPOUR_BACKUP_PREFIX, ...
	viper.SetEnvPrefix("dbpour")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
