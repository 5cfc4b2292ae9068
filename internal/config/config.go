package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration derived from environment variables,
// with source endpoints optionally overridden by a YAML file.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
	Sources   SourcesConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig describes the Postgres connection.
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnectTimeout     time.Duration
}

// AuthConfig holds the shared secret for the trigger/telemetry endpoints.
// An empty secret is allowed at load time; handlers reject requests with a
// configuration error until it is set.
type AuthConfig struct {
	CronSecret string
}

// LLMConfig configures the classification/summarization collaborator.
type LLMConfig struct {
	APIKey            string
	Model             string
	RequestTimeout    time.Duration
	RequestsPerMinute int
}

// PipelineConfig holds aggregation pipeline tunables.
type PipelineConfig struct {
	FetchTimeout          time.Duration
	ItemRetentionDays     int
	SnapshotRetentionDays int
}

// SchedulerConfig controls the optional in-process trigger loop.
type SchedulerConfig struct {
	Enabled       bool
	CheckInterval time.Duration
}

// FeedConfig describes one RSS/Atom feed to poll.
type FeedConfig struct {
	URL      string `yaml:"url"`
	Source   string `yaml:"source"`
	Category string `yaml:"category"`
}

// GitHubSourcesConfig describes the GitHub-backed sources.
type GitHubSourcesConfig struct {
	SearchQuery   string `yaml:"searchQuery"`
	ChangelogRepo string `yaml:"changelogRepo"`
	AwesomeRepo   string `yaml:"awesomeRepo"`
	Token         string `yaml:"-"`
}

// SourcesConfig lists the content sources one aggregation run polls.
type SourcesConfig struct {
	Query           string              `yaml:"query"`
	Subreddits      []string            `yaml:"subreddits"`
	Feeds           []FeedConfig        `yaml:"feeds"`
	YouTubeChannels []string            `yaml:"youtubeChannels"`
	NewsIndexURL    string              `yaml:"newsIndexUrl"`
	GitHub          GitHubSourcesConfig `yaml:"github"`
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultMaxConnections     = 20
	defaultMaxIdleConnections = 5
	defaultConnMaxLifetime    = 5 * time.Minute
	defaultConnectTimeout     = 10 * time.Second

	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTimeout        = 30 * time.Second
	defaultRequestsPerMinute = 30

	defaultFetchTimeout          = 12 * time.Second
	defaultItemRetentionDays     = 90
	defaultSnapshotRetentionDays = 365

	defaultSchedulerInterval = 15 * time.Minute

	sourcesConfigEnv = "PULSE_SOURCES_CONFIG"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL:                os.Getenv("DATABASE_URL"),
			MaxConnections:     defaultMaxConnections,
			MaxIdleConnections: defaultMaxIdleConnections,
			ConnMaxLifetime:    defaultConnMaxLifetime,
			ConnectTimeout:     defaultConnectTimeout,
		},
		Auth: AuthConfig{
			CronSecret: os.Getenv("CRON_SECRET"),
		},
		LLM: LLMConfig{
			APIKey:            os.Getenv("OPENAI_API_KEY"),
			Model:             getEnv("OPENAI_MODEL", defaultLLMModel),
			RequestTimeout:    defaultLLMTimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Pipeline: PipelineConfig{
			FetchTimeout:          defaultFetchTimeout,
			ItemRetentionDays:     defaultItemRetentionDays,
			SnapshotRetentionDays: defaultSnapshotRetentionDays,
		},
		Scheduler: SchedulerConfig{
			Enabled:       false,
			CheckInterval: defaultSchedulerInterval,
		},
		Sources: defaultSources(),
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("ITEM_RETENTION_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ITEM_RETENTION_DAYS: %w", err)
		}
		cfg.Pipeline.ItemRetentionDays = n
	}

	if v := os.Getenv("SNAPSHOT_RETENTION_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SNAPSHOT_RETENTION_DAYS: %w", err)
		}
		cfg.Pipeline.SnapshotRetentionDays = n
	}

	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEDULER_ENABLED: must be a boolean")
		}
		cfg.Scheduler.Enabled = enabled
	}

	if v := os.Getenv("SCHEDULER_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEDULER_INTERVAL_SECONDS: %w", err)
		}
		cfg.Scheduler.CheckInterval = d
	}

	cfg.Sources.GitHub.Token = os.Getenv("GITHUB_TOKEN")

	if path := os.Getenv(sourcesConfigEnv); path != "" {
		if err := loadSourcesFile(path, &cfg.Sources); err != nil {
			return Config{}, fmt.Errorf("invalid sources config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// loadSourcesFile overlays YAML-declared sources on top of the defaults.
func loadSourcesFile(path string, sources *SourcesConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fileSources SourcesConfig
	if err := yaml.Unmarshal(raw, &fileSources); err != nil {
		return err
	}

	if fileSources.Query != "" {
		sources.Query = fileSources.Query
	}
	if len(fileSources.Subreddits) > 0 {
		sources.Subreddits = fileSources.Subreddits
	}
	if len(fileSources.Feeds) > 0 {
		sources.Feeds = fileSources.Feeds
	}
	if len(fileSources.YouTubeChannels) > 0 {
		sources.YouTubeChannels = fileSources.YouTubeChannels
	}
	if fileSources.NewsIndexURL != "" {
		sources.NewsIndexURL = fileSources.NewsIndexURL
	}
	if fileSources.GitHub.SearchQuery != "" {
		sources.GitHub.SearchQuery = fileSources.GitHub.SearchQuery
	}
	if fileSources.GitHub.ChangelogRepo != "" {
		sources.GitHub.ChangelogRepo = fileSources.GitHub.ChangelogRepo
	}
	if fileSources.GitHub.AwesomeRepo != "" {
		sources.GitHub.AwesomeRepo = fileSources.GitHub.AwesomeRepo
	}

	return nil
}

func defaultSources() SourcesConfig {
	return SourcesConfig{
		Query:      "claude code",
		Subreddits: []string{"ClaudeAI", "ClaudeCode"},
		Feeds: []FeedConfig{
			{URL: "https://www.anthropic.com/news/rss.xml", Source: "anthropic", Category: "feature"},
		},
		YouTubeChannels: nil,
		NewsIndexURL:    "https://www.anthropic.com/news",
		GitHub: GitHubSourcesConfig{
			SearchQuery:   "claude-code",
			ChangelogRepo: "anthropics/claude-code",
			AwesomeRepo:   "hesreallyhim/awesome-claude-code",
		},
	}
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
