package cmd

import (
	"fmt"
	"time"

	"db-pour/internal/backup"
	"db-pour/internal/engine"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type DriverConfig struct {
	Driver string `mapstructure:"driver"`
}

type BackupConfig struct {
	Prefix string `mapstructure:"prefix"`
	Dir    string `mapstructure:"dir"`
}

type MigrateConfig struct {
	Tables      []string      `mapstructure:"tables"`
	Strict      bool          `mapstructure:"strict"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// FileConfig mirrors db-pour.yaml.
type FileConfig struct {
	Source      DBConfig      `mapstructure:"source"`
	Destination DBConfig      `mapstructure:"destination"`
	Database    DriverConfig  `mapstructure:"database"`
	Backup      BackupConfig  `mapstructure:"backup"`
	Migrate     MigrateConfig `mapstructure:"migrate"`
}

// LoadConfig resolves flags, environment, config file and defaults into one value.
func LoadConfig() (*FileConfig, error) {
	var fc FileConfig
	if err := viper.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &fc, nil
}

// EngineConfig converts the file layout into what the engine runs on.
func (fc *FileConfig) EngineConfig() engine.Config {
	return engine.Config{
		SourcePath: fc.Source.Path,
		DestPath:   fc.Destination.Path,
		Driver:     fc.Database.Driver,
		Backup: backup.Options{
			Prefix: fc.Backup.Prefix,
			Dir:    fc.Backup.Dir,
		},
		Tables:      fc.Migrate.Tables,
		BusyTimeout: fc.Migrate.BusyTimeout,
	}
}
