package studio

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is loaded from an optional YAML file, then overridden by
// environment variables, so a checked-in config works locally and env vars
// win in scripted runs.
type Config struct {
	Port              string        `yaml:"port"`
	StoreDriver       string        `yaml:"storeDriver"` // sqlite, mysql or memory
	SQLitePath        string        `yaml:"sqlitePath"`
	MySQLDSN          string        `yaml:"mysqlDSN"`
	IngestBaseURL     string        `yaml:"ingestBaseURL"`
	MattingBaseURL    string        `yaml:"mattingBaseURL"`
	ThumbnailWidth    int           `yaml:"thumbnailWidth"`
	QueueTickInterval time.Duration `yaml:"queueTickInterval"`
	MaxRetries        int           `yaml:"maxRetries"`
}

func defaultConfig() Config {
	return Config{
		Port:              "8090",
		StoreDriver:       "sqlite",
		SQLitePath:        "matting-studio.db",
		IngestBaseURL:     "http://localhost:8080",
		MattingBaseURL:    "http://localhost:8080",
		ThumbnailWidth:    200,
		QueueTickInterval: 100 * time.Millisecond,
		MaxRetries:        3,
	}
}

// LoadConfig reads STUDIO_CONFIG_PATH (if set and present) and applies env
// overrides on top of the defaults.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("STUDIO_CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("STUDIO_PORT", cfg.Port)
	cfg.StoreDriver = getEnv("STUDIO_STORE_DRIVER", cfg.StoreDriver)
	cfg.SQLitePath = getEnv("STUDIO_SQLITE_PATH", cfg.SQLitePath)
	cfg.MySQLDSN = getEnv("STUDIO_MYSQL_DSN", cfg.MySQLDSN)
	cfg.IngestBaseURL = getEnv("STUDIO_INGEST_URL", cfg.IngestBaseURL)
	cfg.MattingBaseURL = getEnv("STUDIO_MATTING_URL", cfg.MattingBaseURL)
	cfg.QueueTickInterval = getDurationEnv("STUDIO_QUEUE_TICK_INTERVAL", cfg.QueueTickInterval)

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}
