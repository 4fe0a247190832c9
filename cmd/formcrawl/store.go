package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/formcrawl/internal/config"
	"github.com/nao1215/formcrawl/internal/database"
)

// addStoreFlags adds the flags that select the configuration file and the
// result database.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .formcrawl in current or home directory)")
	cmd.Flags().String("db-driver", config.DefaultDBDriver,
		"Result database driver: sqlite or postgres")
	cmd.Flags().String("db-dsn", "",
		"PostgreSQL connection string (required with --db-driver postgres)")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
}

// loadStoreConfig reads the configuration file and the database flags into
// cfg. Database flags given on the command line win over the file.
func loadStoreConfig(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	// If the user explicitly specified a config file path, error if not found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f)
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	flags := []struct {
		name string
		dst  *string
	}{
		{"db-driver", &cfg.DBDriver},
		{"db-dsn", &cfg.DBDSN},
		{"db-dir", &cfg.DBDir},
	}
	for _, f := range flags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		*f.dst, err = cmd.Flags().GetString(f.name)
		if err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the result database selected by cfg. Reading commands
// pass create=false so that a missing SQLite file is reported instead of
// silently created.
func openStore(cfg *config.Config, create bool) (*database.CrawlDB, error) {
	db, err := database.Open(cfg.DBDir, database.Options{
		Driver:            cfg.DBDriver,
		DSN:               cfg.DBDSN,
		CreateIfNotExists: create,
		EnableWAL:         true,
	})
	if errors.Is(err, database.ErrDatabaseNotExist) {
		return nil, fmt.Errorf("%w (run formcrawl crawl first)", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
