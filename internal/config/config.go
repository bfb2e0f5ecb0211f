package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
	HTTPPort string
	DataPath string
	// DBPath, when set, receives a SQLite copy of every CSV load. Empty
	// disables the copy.
	DBPath          string
	OrgLabel        string
	EnableWatcher   bool
	EventQueueSize  int
	EventTimeoutSec int
	ChartWidth      int
	ChartHeight     int
	StrictConfig    bool
}

type fileConfig struct {
	HTTPPort      string `json:"http_port" yaml:"http_port"`
	DataPath      string `json:"data_path" yaml:"data_path"`
	DBPath        string `json:"db_path" yaml:"db_path"`
	OrgLabel      string `json:"org_label" yaml:"org_label"`
	EnableWatcher *bool  `json:"enable_watcher" yaml:"enable_watcher"`
	Chart         struct {
		Width  int `json:"width" yaml:"width"`
		Height int `json:"height" yaml:"height"`
	} `json:"chart" yaml:"chart"`
}

var defaultConfigPath = filepath.Join("config", "config.yaml")

const (
	defaultPort            = ":8000"
	defaultDataPath        = "data/checklists.csv"
	defaultOrgLabel        = "Boston Fire Department Totals"
	minEventQueueSize      = 1
	defaultEventQueueSize  = 64
	maxEventQueueSize      = 1024
	defaultEventTimeoutSec = 10
	defaultChartWidth      = 960
	defaultChartHeight     = 500
	minChartSize           = 200
	maxChartSize           = 4096
)

// Load reads configuration from an optional .env file, an optional YAML/JSON
// file at CONFIG_PATH and the environment, in increasing precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		EventQueueSize:  defaultEventQueueSize,
		EventTimeoutSec: defaultEventTimeoutSec,
		StrictConfig:    parseBoolEnv("STRICT_CONFIG"),
	}

	explicitPath := os.Getenv("CONFIG_PATH") != ""
	configPath := getEnv("CONFIG_PATH", defaultConfigPath)
	fileCfg, fileErr := loadFileConfig(configPath)
	switch {
	case fileErr == nil:
	case errors.Is(fileErr, os.ErrNotExist) && !explicitPath:
		// the default file is optional
	case cfg.StrictConfig && !errors.Is(fileErr, os.ErrNotExist):
		return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
	default:
		log.Printf("config: load failed path=%s err=%v (using defaults)", configPath, fileErr)
	}

	cfg.DataPath = firstNonEmpty(os.Getenv("DATA_PATH"), fileCfg.DataPath, defaultDataPath)
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath)
	cfg.OrgLabel = firstNonEmpty(os.Getenv("ORG_LABEL"), fileCfg.OrgLabel, defaultOrgLabel)

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	cfg.EnableWatcher = true
	if fileCfg.EnableWatcher != nil {
		cfg.EnableWatcher = *fileCfg.EnableWatcher
	}
	cfg.EnableWatcher = parseBoolEnvDefault("ENABLE_WATCHER", cfg.EnableWatcher)

	if v, ok, err := parseIntEnv("EVENT_QUEUE_SIZE"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid EVENT_QUEUE_SIZE: %w", err)
		}
		log.Printf("config: invalid EVENT_QUEUE_SIZE: %v (using default %d)", err, defaultEventQueueSize)
	} else if ok {
		cfg.EventQueueSize = clampInt(v, minEventQueueSize, maxEventQueueSize)
		if cfg.EventQueueSize != v {
			log.Printf("config: EVENT_QUEUE_SIZE clamped to %d (was %d)", cfg.EventQueueSize, v)
		}
	}

	if v, ok, err := parseIntEnv("EVENT_TIMEOUT_SEC"); err != nil {
		return cfg, fmt.Errorf("invalid EVENT_TIMEOUT_SEC: %w", err)
	} else if ok {
		if v <= 0 {
			return cfg, fmt.Errorf("EVENT_TIMEOUT_SEC must be positive")
		}
		cfg.EventTimeoutSec = v
	}

	cfg.ChartWidth = chartSize("CHART_WIDTH", fileCfg.Chart.Width, defaultChartWidth)
	cfg.ChartHeight = chartSize("CHART_HEIGHT", fileCfg.Chart.Height, defaultChartHeight)

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config: validation failed: %v (continuing)", err)
	}

	log.Printf("config: data=%s db=%s port=%s watcher=%t queue=%d", cfg.DataPath, cfg.DBPath, cfg.HTTPPort, cfg.EnableWatcher, cfg.EventQueueSize)
	return cfg, nil
}

// EventTimeout returns the per-event deadline as a duration.
func (c Config) EventTimeout() time.Duration {
	return time.Duration(c.EventTimeoutSec) * time.Second
}

func chartSize(key string, fileVal, def int) int {
	v := def
	if fileVal > 0 {
		v = fileVal
	}
	if n, ok, err := parseIntEnv(key); err != nil {
		log.Printf("config: invalid %s: %v (using %d)", key, err, v)
	} else if ok {
		v = n
	}
	return clampInt(v, minChartSize, maxChartSize)
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataPath) == "" {
		return errors.New("DATA_PATH is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" || cfg.HTTPPort == ":" {
		return errors.New("HTTP_PORT is required")
	}
	if strings.TrimSpace(cfg.OrgLabel) == "" {
		return errors.New("ORG_LABEL must not be blank")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
