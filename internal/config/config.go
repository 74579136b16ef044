package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "JOURNALSYNC_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	databaseDriverEnv  = "DATABASE_DRIVER"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	mlAPIKeyEnv        = "ML_API_KEY"
	genAIAPIKeyEnv     = "GENAI_API_KEY"
	providerEnv        = "ANALYSIS_PROVIDER"
	logLevelEnv        = "LOG_LEVEL"
	httpAddrEnv        = "HTTP_ADDR"
	schedulerEnv       = "SCHEDULER_ENABLED"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Cache      CacheConfig      `yaml:"cache"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	ML         MLConfig         `yaml:"ml"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
}

// LoggingConfig controls the slog handler and optional rotating log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// HTTPConfig describes the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often maintenance jobs run.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	SweepAge time.Duration  `yaml:"sweepAge"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// AnalysisConfig tunes the background analysis pool.
type AnalysisConfig struct {
	Provider     string        `yaml:"provider"`
	Workers      int           `yaml:"workers"`
	QueueSize    int           `yaml:"queueSize"`
	Timeout      time.Duration `yaml:"timeout"`
	SweepBatch   int           `yaml:"sweepBatch"`
	KeywordCount int           `yaml:"keywordCount"`
}

// CacheConfig controls the provider result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// ClusteringConfig mirrors the clustering engine thresholds.
type ClusteringConfig struct {
	Threshold      float64 `yaml:"threshold"`
	MinClusterSize int     `yaml:"minClusterSize"`
	MaxEntries     int     `yaml:"maxEntries"`
	UseEmbeddings  bool    `yaml:"useEmbeddings"`
}

// AlertsConfig mirrors the alert detector thresholds.
type AlertsConfig struct {
	Lookback         time.Duration `yaml:"lookback"`
	BurnoutThreshold int           `yaml:"burnoutThreshold"`
	SystemicMembers  int           `yaml:"systemicMembers"`
	CriticalMembers  int           `yaml:"criticalMembers"`
	BurnoutLexicon   []string      `yaml:"burnoutLexicon"`
}

// MLConfig describes the inference service integration.
type MLConfig struct {
	InferenceURL string        `yaml:"inferenceUrl"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AnthropicConfig defines how to contact the Anthropic Messages API.
type AnthropicConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	MaxTokens    int    `yaml:"maxTokens"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// EmbeddingConfig enables vector embeddings through the Gemini API.
type EmbeddingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
	TaskType string `yaml:"taskType"`
}

// Load reads .env, the YAML file named by JOURNALSYNC_CONFIG (if any) and
// applies environment overrides.
func Load() (Config, error) {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit YAML path; an empty path means defaults only.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Fields absent from the file keep their defaults.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "pq", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Clustering.Threshold <= 0 || c.Clustering.Threshold > 1 {
		errs = append(errs, fmt.Errorf("clustering.threshold must be in (0, 1], got %v", c.Clustering.Threshold))
	}
	if c.Clustering.MinClusterSize < 2 {
		errs = append(errs, fmt.Errorf("clustering.minClusterSize must be at least 2, got %d", c.Clustering.MinClusterSize))
	}
	if c.Analysis.Workers <= 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must be positive, got %d", c.Analysis.Workers))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive when the scheduler is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(anthropicAPIKeyEnv); v != "" {
		c.Anthropic.APIKey = v
	}

	if v := os.Getenv(mlAPIKeyEnv); v != "" {
		c.ML.APIKey = v
	}

	if v := os.Getenv(genAIAPIKeyEnv); v != "" {
		c.Embedding.APIKey = v
	}

	if v := os.Getenv(providerEnv); v != "" {
		c.Analysis.Provider = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(schedulerEnv); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Scheduler.Enabled = enabled
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    4 << 20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:journalsync.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: 15 * time.Minute,
			SweepAge: 10 * time.Minute,
			Timezone: defaultTimezone,
			location: tz,
		},
		Analysis: AnalysisConfig{
			Provider:     "heuristic",
			Workers:      4,
			QueueSize:    256,
			Timeout:      10 * time.Second,
			SweepBatch:   50,
			KeywordCount: 5,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "",
			TTL:     24 * time.Hour,
		},
		Clustering: ClusteringConfig{
			Threshold:      0.7,
			MinClusterSize: 3,
			MaxEntries:     500,
		},
		Alerts: AlertsConfig{
			Lookback:         7 * 24 * time.Hour,
			BurnoutThreshold: 3,
			SystemicMembers:  15,
			CriticalMembers:  30,
		},
		ML: MLConfig{InferenceURL: "", APIKey: "", Timeout: 15 * time.Second},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "",
			Timeout:      20 * time.Second,
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 512,
		},
		Embedding: EmbeddingConfig{
			Enabled:  false,
			Model:    "gemini-embedding-001",
			TaskType: "CLUSTERING",
		},
	}
}
