package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/lehigh-university-libraries/ocrloader/internal/dataset"
	"github.com/lehigh-university-libraries/ocrloader/internal/models"
	"github.com/lehigh-university-libraries/ocrloader/internal/sink"
	"gopkg.in/yaml.v3"
)

const (
	EnvSupabaseURL = "SUPABASE_URL"
	EnvServiceKey  = "SUPABASE_SERVICE_ROLE_KEY"
	EnvHFToken     = "HF_TOKEN"
	EnvRedisURL    = "REDIS_URL"
	EnvDatabaseURL = "DATABASE_URL"
	EnvConfigPath  = "OCRLOADER_CONFIG"

	DefaultBucket        = "ocr-images"
	DefaultCount         = 500 // Also the largest batch a run may request
	DefaultDelay         = 500 * time.Millisecond
	DefaultProgressEvery = 10
)

var ErrMissingCredentials = errors.New("please set SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY environment variables")

type DatasetConfig struct {
	Repo          string `yaml:"repo" validate:"required"`
	Config        string `yaml:"config" validate:"required"`
	Split         string `yaml:"split" validate:"required"`
	Path          string `yaml:"path"` // Local file or shard directory; skips the download
	CacheDir      string `yaml:"cacheDir"`
	ForceDownload bool   `yaml:"forceDownload"`
	HubURL        string `yaml:"hubURL" validate:"omitempty,url"`
	Token         string `yaml:"-"`
}

type UploadConfig struct {
	Bucket        string        `yaml:"bucket" validate:"required"`
	PublicBucket  bool          `yaml:"publicBucket"`
	Count         int           `yaml:"count" validate:"gte=0,lte=500"`
	Delay         time.Duration `yaml:"delay" validate:"gte=0"`
	ProgressEvery int           `yaml:"progressEvery" validate:"gte=1"`
	Resume        bool          `yaml:"resume"`
	ResetJournal  bool          `yaml:"-"`
	ReportPath    string        `yaml:"report"`
}

type SinkConfig struct {
	Kind        string `yaml:"kind" validate:"oneof=rest postgres sqlite"`
	Table       string `yaml:"table" validate:"required"`
	SQLitePath  string `yaml:"sqlitePath"`
	DatabaseURL string `yaml:"-"`
}

// Config is the full loader configuration
type Config struct {
	SupabaseURL string        `yaml:"-"`
	ServiceKey  string        `yaml:"-"`
	RedisURL    string        `yaml:"-"`
	Dataset     DatasetConfig `yaml:"dataset"`
	Upload      UploadConfig  `yaml:"upload"`
	Sink        SinkConfig    `yaml:"sink"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Repo:     dataset.DefaultRepo,
			Config:   dataset.DefaultConfig,
			Split:    dataset.DefaultSplit,
			CacheDir: dataset.DefaultCacheDir,
			HubURL:   dataset.DefaultHubURL,
		},
		Upload: UploadConfig{
			Bucket:        DefaultBucket,
			PublicBucket:  true,
			Count:         DefaultCount,
			Delay:         DefaultDelay,
			ProgressEvery: DefaultProgressEvery,
		},
		Sink: SinkConfig{
			Kind:  sink.KindREST,
			Table: models.DefaultTable,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// configPath, and the environment, in that order of precedence.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	config.applyEnv()

	return config, nil
}

func (c *Config) applyEnv() {
	c.SupabaseURL = strings.TrimSpace(os.Getenv(EnvSupabaseURL))
	c.ServiceKey = strings.TrimSpace(os.Getenv(EnvServiceKey))
	c.RedisURL = os.Getenv(EnvRedisURL)
	c.Dataset.Token = os.Getenv(EnvHFToken)
	c.Sink.DatabaseURL = os.Getenv(EnvDatabaseURL)
}

// Validate checks credentials first so a missing secret fails before anything else
func (c *Config) Validate() error {
	if c.SupabaseURL == "" || c.ServiceKey == "" {
		return ErrMissingCredentials
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Sink.Kind {
	case sink.KindPostgres:
		if c.Sink.DatabaseURL == "" {
			return fmt.Errorf("invalid configuration: sink %s requires %s", c.Sink.Kind, EnvDatabaseURL)
		}
	case sink.KindSQLite:
		if c.Sink.SQLitePath == "" {
			return fmt.Errorf("invalid configuration: sink %s requires sqlitePath", c.Sink.Kind)
		}
	}

	if c.Upload.Resume && c.RedisURL == "" {
		return fmt.Errorf("invalid configuration: resume requires %s", EnvRedisURL)
	}

	return nil
}
