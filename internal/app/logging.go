package app

import (
	"fmt"
	"os"

	"github.com/amaumene/moviecollection/internal/config"
	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger from cfg.
func SetupLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	log.SetOutput(os.Stdout)
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
