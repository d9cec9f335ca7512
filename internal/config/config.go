package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDataDir           = "."
	defaultServerPort        = "0.0.0.0:3000"
	defaultStorageBackend    = BackendBolt
	defaultDBMaxConns        = 10
	defaultDBMaxConnIdleTime = 15 * time.Minute
	defaultShutdownTimeout   = 10 * time.Second
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
	defaultDBFilePermissions = 0666
)

const (
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

type Config struct {
	DataDir           string        `yaml:"data_dir"`
	ServerPort        string        `yaml:"server_port"`
	StorageBackend    string        `yaml:"storage_backend"`
	DatabaseURL       string        `yaml:"database_url"`
	DBMaxConns        int32         `yaml:"db_max_conns"`
	DBMaxConnIdleTime time.Duration `yaml:"db_max_conn_idle_time"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	DBFilePermissions os.FileMode   `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		DataDir:           defaultDataDir,
		ServerPort:        defaultServerPort,
		StorageBackend:    defaultStorageBackend,
		DBMaxConns:        defaultDBMaxConns,
		DBMaxConnIdleTime: defaultDBMaxConnIdleTime,
		ShutdownTimeout:   defaultShutdownTimeout,
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
		DBFilePermissions: defaultDBFilePermissions,
	}
}

// Load reads the configuration named by CONFIG_FILE, if any, applies the
// environment and validates the result.
func Load() (*Config, error) {
	cfg, err := Read(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment. The result is not validated.
func Read(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the keys present in the YAML file at path.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.DataDir = getEnvOrDefault("DATA_DIR", c.DataDir)
	c.ServerPort = getEnvOrDefault("SERVER_PORT", c.ServerPort)
	c.StorageBackend = getEnvOrDefault("STORAGE_BACKEND", c.StorageBackend)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)

	if value := os.Getenv("DB_MAX_CONNS"); value != "" {
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONNS %q: %w", value, err)
		}
		c.DBMaxConns = int32(n)
	}
	if value := os.Getenv("DB_MAX_CONN_IDLE_TIME"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONN_IDLE_TIME %q: %w", value, err)
		}
		c.DBMaxConnIdleTime = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendBolt:
		if c.DataDir == "" {
			return fmt.Errorf("data directory must not be empty")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("required environment variable missing: DATABASE_URL")
		}
		if c.DBMaxConns <= 0 {
			return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) DBPath() string {
	return c.DataDir + "/data.db"
}
