// Command moviectl inspects and edits the movie collection from a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amaumene/moviecollection/internal/app"
	"github.com/amaumene/moviecollection/internal/config"
	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/repository"
	"github.com/amaumene/moviecollection/internal/storage"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile string
	backend    string
	dataDir    string
	dsn        string
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "moviectl",
		Short:         "Manage the movie collection database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", os.Getenv("CONFIG_FILE"), "Path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "Storage backend: bolt or postgres")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory holding the bolt database")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "PostgreSQL connection string")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newListCmd(flags),
		newAddCmd(flags),
		newDeleteCmd(flags),
		newSeedCmd(flags),
	)
	return root
}

// loadConfig reads the configuration and applies command line overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Read(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.backend != "" {
		cfg.StorageBackend = f.backend
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.dsn != "" {
		cfg.DatabaseURL = f.dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withUnitOfWork opens the configured backend, runs fn with a fresh unit of
// work and closes the backend afterwards.
func (f *globalFlags) withUnitOfWork(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.LogLevel = "warn"
	if err := app.SetupLogging(cfg); err != nil {
		return err
	}
	log.SetOutput(os.Stderr)

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
		}
	}()

	return fn(repository.NewUnitOfWork(storage.NewContext(backend)))
}
