// Package config loads and validates scanner configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/seo"
)

// EnvPrefix prefixes every environment override, e.g. SEOSCAN_SERVER_PORT.
const EnvPrefix = "SEOSCAN"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Registry RegistryConfig    `mapstructure:"registry"`
	Fetcher  FetcherConfig     `mapstructure:"fetcher"`
	Scan     ScanConfig        `mapstructure:"scan"`
	Rubric   seo.RubricConfig  `mapstructure:"rubric"`
	Ranking  seo.RankingConfig `mapstructure:"ranking"`
	Session  SessionConfig     `mapstructure:"session"`
	Export   ExportConfig      `mapstructure:"export"`
	Logging  LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ScanRunners     int           `mapstructure:"scan_runners"`
	QueueDepth      int           `mapstructure:"queue_depth"`
	ScanTimeout     time.Duration `mapstructure:"scan_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// RegistryConfig controls the entity registry client.
type RegistryConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	IndustryCode string        `mapstructure:"industry_code"`
	PageSize     int           `mapstructure:"page_size"`
	MaxPages     int           `mapstructure:"max_pages"`
	PageDelay    time.Duration `mapstructure:"page_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

// FetcherConfig controls page retrieval and website probing.
type FetcherConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
	TLD          string        `mapstructure:"tld"`
}

// ScanConfig controls the analysis pool.
type ScanConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	SequentialDelay time.Duration `mapstructure:"sequential_delay"`
	MaxTargets      int           `mapstructure:"max_targets"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Store         string        `mapstructure:"store"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// ExportConfig selects export destinations for finished scans.
type ExportConfig struct {
	Format        string `mapstructure:"format"`
	Dir           string `mapstructure:"dir"`
	Prefix        string `mapstructure:"prefix"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Load builds a Config from an optional .env file, an optional config file
// and SEOSCAN_* environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.scan_runners", 2)
	v.SetDefault("server.queue_depth", 16)
	v.SetDefault("server.scan_timeout", 30*time.Minute)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("registry.base_url", "https://data.brreg.no/enhetsregisteret/api/enheter")
	v.SetDefault("registry.industry_code", "55")
	v.SetDefault("registry.page_size", 50)
	v.SetDefault("registry.max_pages", 10)
	v.SetDefault("registry.page_delay", 500*time.Millisecond)
	v.SetDefault("registry.timeout", 30*time.Second)
	v.SetDefault("registry.max_attempts", 3)
	v.SetDefault("registry.retry_delay", 250*time.Millisecond)

	v.SetDefault("fetcher.timeout", 15*time.Second)
	v.SetDefault("fetcher.probe_timeout", 5*time.Second)
	v.SetDefault("fetcher.max_body_bytes", 10<<20)
	v.SetDefault("fetcher.tld", "no")

	v.SetDefault("scan.concurrency", 5)
	v.SetDefault("scan.sequential_delay", time.Second)
	v.SetDefault("scan.max_targets", 30)

	rubric := seo.DefaultRubricConfig()
	v.SetDefault("rubric.https_points", rubric.HTTPSPoints)
	v.SetDefault("rubric.title.min", rubric.Title.Min)
	v.SetDefault("rubric.title.max", rubric.Title.Max)
	v.SetDefault("rubric.title.full", rubric.Title.Full)
	v.SetDefault("rubric.title.partial", rubric.Title.Partial)
	v.SetDefault("rubric.meta_description.min", rubric.MetaDescription.Min)
	v.SetDefault("rubric.meta_description.max", rubric.MetaDescription.Max)
	v.SetDefault("rubric.meta_description.full", rubric.MetaDescription.Full)
	v.SetDefault("rubric.meta_description.partial", rubric.MetaDescription.Partial)
	v.SetDefault("rubric.h1_points", rubric.H1Points)
	v.SetDefault("rubric.h1_multiple_points", rubric.H1MultiplePoints)
	v.SetDefault("rubric.image_alt_points", rubric.ImageAltPoints)
	v.SetDefault("rubric.no_images_points", rubric.NoImagesPoints)
	v.SetDefault("rubric.viewport_points", rubric.ViewportPoints)
	v.SetDefault("rubric.open_graph_points", rubric.OpenGraphPoints)
	v.SetDefault("rubric.open_graph_partial_points", rubric.OpenGraphPartialPoints)
	v.SetDefault("rubric.open_graph_min_tags", rubric.OpenGraphMinTags)
	v.SetDefault("rubric.page_size_points", rubric.PageSizePoints)
	v.SetDefault("rubric.page_size_partial_points", rubric.PageSizePartialPoints)
	v.SetDefault("rubric.page_size_small_kb", rubric.PageSizeSmallKB)
	v.SetDefault("rubric.page_size_large_kb", rubric.PageSizeLargeKB)
	v.SetDefault("rubric.structured_data_points", rubric.StructuredDataPoints)
	v.SetDefault("rubric.canonical_points", rubric.CanonicalPoints)

	ranking := seo.DefaultRankingConfig()
	v.SetDefault("ranking.weakness_weight", ranking.WeaknessWeight)
	v.SetDefault("ranking.size_weight", ranking.SizeWeight)
	v.SetDefault("ranking.employee_multiplier", ranking.EmployeeMultiplier)
	v.SetDefault("ranking.size_cap", ranking.SizeCap)

	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("export.format", "both")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.postgres_table", "seo_results")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ScanRunners <= 0 {
		return fmt.Errorf("server.scan_runners must be > 0")
	}
	if c.Server.QueueDepth < 0 {
		return fmt.Errorf("server.queue_depth must be >= 0")
	}
	if c.Registry.PageSize <= 0 || c.Registry.MaxPages <= 0 {
		return fmt.Errorf("registry.page_size and registry.max_pages must be > 0")
	}
	if c.Registry.PageDelay < 0 {
		return fmt.Errorf("registry.page_delay must be >= 0")
	}
	if c.Fetcher.Timeout <= 0 || c.Fetcher.ProbeTimeout <= 0 {
		return fmt.Errorf("fetcher.timeout and fetcher.probe_timeout must be > 0")
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be > 0")
	}
	if c.Scan.SequentialDelay < 0 {
		return fmt.Errorf("scan.sequential_delay must be >= 0")
	}
	if err := c.Rubric.Validate(); err != nil {
		return err
	}
	if err := c.Ranking.Validate(); err != nil {
		return err
	}
	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr must be set for the redis store")
		}
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.Session.Store)
	}
	if c.Export.PubSubTopic != "" && c.Export.PubSubProject == "" {
		return fmt.Errorf("export.pubsub_project must be set when export.pubsub_topic is")
	}
	return nil
}
