package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

const (
	defaultAddr         = ":8080"
	defaultDataDirName  = ".copilot"
	defaultModelID      = "deepseek-chat"
	defaultSkillTTL     = 5 * time.Minute
	defaultQueueName    = "copilot"
	defaultConcurrency  = 4
	defaultRequestLimit = 2 * time.Minute
)

type Config struct {
	Addr           string        `yaml:"addr"`
	Debug          bool          `yaml:"debug"`
	DataDir        string        `yaml:"data_dir"`
	SkillsDir      string        `yaml:"skills_dir"`
	DefaultModel   string        `yaml:"default_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Queue     QueueConfig     `yaml:"queue"`
	Providers ProvidersConfig `yaml:"providers"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	SkillTTL time.Duration `yaml:"skill_ttl"`
}

type QueueConfig struct {
	RedisURL    string `yaml:"redis_url"`
	Name        string `yaml:"name"`
	Concurrency int    `yaml:"concurrency"`
}

type ProvidersConfig struct {
	DeepSeekAPIKey   string `yaml:"deepseek_api_key"`
	ByteDanceAPIKey  string `yaml:"byte_dance_api_key"`
	MoonshotAPIKey   string `yaml:"moonshot_api_key"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
}

// Load reads an optional YAML file, then a .env file in the working
// directory, then applies environment overrides. path may be empty.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Addr, "COPILOT_ADDR")
	setFromEnv(&cfg.DataDir, "COPILOT_DATA_DIR")
	setFromEnv(&cfg.SkillsDir, "COPILOT_SKILLS_DIR")
	setFromEnv(&cfg.DefaultModel, "COPILOT_DEFAULT_MODEL")
	setFromEnv(&cfg.Storage.DSN, "DB_URL")
	setFromEnv(&cfg.Cache.RedisURL, "REDIS_URL")
	setFromEnv(&cfg.Queue.RedisURL, "REDIS_URL")
	setFromEnv(&cfg.Providers.DeepSeekAPIKey, "DEEPSEEK_API_KEY")
	setFromEnv(&cfg.Providers.ByteDanceAPIKey, "BYTE_DANCE_API_KEY")
	setFromEnv(&cfg.Providers.MoonshotAPIKey, "MOONSHOT_API_KEY")
	setFromEnv(&cfg.Providers.OpenRouterAPIKey, "OPENROUTER_API_KEY")

	if v := strings.TrimSpace(os.Getenv("COPILOT_DEBUG")); v == "1" || strings.EqualFold(v, "true") {
		cfg.Debug = true
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) error {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(homeDir, defaultDataDirName)
	}
	if strings.TrimSpace(cfg.SkillsDir) == "" {
		cfg.SkillsDir = filepath.Join(cfg.DataDir, "skills")
	}

	if strings.TrimSpace(cfg.DefaultModel) == "" {
		cfg.DefaultModel = defaultModelID
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestLimit
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "":
		cfg.Storage.Driver = DriverBolt
	case DriverBolt:
	case DriverPostgres:
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage driver %s requires a dsn", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}

	if cfg.Cache.SkillTTL <= 0 {
		cfg.Cache.SkillTTL = defaultSkillTTL
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = defaultQueueName
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = defaultConcurrency
	}

	return nil
}
