// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the index
// files, query term extraction, search limits and every optional backend
// (Postgres, Redis, Kafka) used by the command line tools and the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Lengths  LengthsConfig  `yaml:"lengths"`
	Query    QueryConfig    `yaml:"query"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimitPerMinute caps API requests per client address; 0 disables.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// IndexConfig locates the dictionary, postings and vector length files and
// declares the byte order the postings producer used.
type IndexConfig struct {
	DictionaryPath string `yaml:"dictionaryPath"`
	PostingsPath   string `yaml:"postingsPath"`
	LengthsPath    string `yaml:"lengthsPath"`
	ByteOrder      string `yaml:"byteOrder"`
}

// LengthsConfig selects where the vector length table is loaded from.
type LengthsConfig struct {
	Source string `yaml:"source"`
	Table  string `yaml:"table"`
}

// QueryConfig controls the query term extractor.
type QueryConfig struct {
	IgnoreStopwords bool   `yaml:"ignoreStopwords"`
	IgnoreSingles   bool   `yaml:"ignoreSingles"`
	CaseFold        bool   `yaml:"caseFold"`
	Stemmer         string `yaml:"stemmer"`
}

// SearchConfig controls result limits and batch execution.
type SearchConfig struct {
	TopLimit     int  `yaml:"topLimit"`
	DefaultLimit int  `yaml:"defaultLimit"`
	MaxResults   int  `yaml:"maxResults"`
	Workers      int  `yaml:"workers"`
	RecordTime   bool `yaml:"recordTime"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	QueryEvents string `yaml:"queryEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig turns per-query phase spans on or off.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the reference search behaviour: top 10
// results, stopword and single-character filtering on, Porter stemming,
// little-endian postings and sequential query evaluation.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			LengthsPath: "vector_squares_sum",
			ByteOrder:   "little",
		},
		Lengths: LengthsConfig{
			Source: "file",
			Table:  "vector_lengths",
		},
		Query: QueryConfig{
			IgnoreStopwords: true,
			IgnoreSingles:   true,
			CaseFold:        true,
			Stemmer:         "porter",
		},
		Search: SearchConfig{
			TopLimit:     10,
			DefaultLimit: 10,
			MaxResults:   100,
			Workers:      1,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				QueryEvents: "query-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Index.ByteOrder) {
	case "little", "big":
	default:
		return fmt.Errorf("index.byteOrder must be little or big, got %q", c.Index.ByteOrder)
	}
	switch c.Query.Stemmer {
	case "porter", "snowball", "none":
	default:
		return fmt.Errorf("query.stemmer must be porter, snowball or none, got %q", c.Query.Stemmer)
	}
	switch c.Lengths.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("lengths.source must be file or postgres, got %q", c.Lengths.Source)
	}
	if c.Search.TopLimit < 1 {
		return fmt.Errorf("search.topLimit must be positive, got %d", c.Search.TopLimit)
	}
	if c.Search.DefaultLimit < 1 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search limits invalid: defaultLimit=%d maxResults=%d",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rateLimitPerMinute must not be negative, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be positive, got %d", c.Search.Workers)
	}
	return nil
}

// applyEnvOverrides reads RR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RR_INDEX_DICTIONARY"); v != "" {
		cfg.Index.DictionaryPath = v
	}
	if v := os.Getenv("RR_INDEX_POSTINGS"); v != "" {
		cfg.Index.PostingsPath = v
	}
	if v := os.Getenv("RR_INDEX_LENGTHS"); v != "" {
		cfg.Index.LengthsPath = v
	}
	if v := os.Getenv("RR_INDEX_BYTE_ORDER"); v != "" {
		cfg.Index.ByteOrder = v
	}
	if v := os.Getenv("RR_LENGTHS_SOURCE"); v != "" {
		cfg.Lengths.Source = v
	}
	if v := os.Getenv("RR_QUERY_STEMMER"); v != "" {
		cfg.Query.Stemmer = v
	}
	if v := os.Getenv("RR_QUERY_IGNORE_STOPWORDS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Query.IgnoreStopwords = b
		}
	}
	if v := os.Getenv("RR_QUERY_IGNORE_SINGLES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Query.IgnoreSingles = b
		}
	}
	if v := os.Getenv("RR_SEARCH_TOP_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.TopLimit = n
		}
	}
	if v := os.Getenv("RR_SEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Workers = n
		}
	}
	if v := os.Getenv("RR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
