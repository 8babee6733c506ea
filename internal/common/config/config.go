// internal/common/config/config.go
package config

import (
	"fmt"

	"hr-query-engine/internal/query/querycontext"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Query         QueryConfig             `mapstructure:"query"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	Schema         string `mapstructure:"schema"`
	EmbeddingTable string `mapstructure:"embedding_table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
	Index      string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// APIsConfig holds settings for the hosted model services.
type APIsConfig struct {
	GenAI struct {
		Provider   string `mapstructure:"provider"` // openai | azure; empty disables the LLM path
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		APIVersion string `mapstructure:"api_version"`
		Model      string `mapstructure:"model"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"genai"`

	Embedding struct {
		Provider   string `mapstructure:"provider"` // openai | gemini; empty disables vectors
		APIKey     string `mapstructure:"api_key"`
		Model      string `mapstructure:"model"`
		Dimensions int    `mapstructure:"dimensions"`
	} `mapstructure:"embedding"`
}

// QueryConfig tunes the query engine.
type QueryConfig struct {
	Cache struct {
		Backend  string `mapstructure:"backend"` // memory | redis | tiered | none
		TTL      int    `mapstructure:"ttl"`     // seconds
		Capacity int    `mapstructure:"capacity"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"cache"`

	StoreBackend    string `mapstructure:"store_backend"`  // memory | postgres
	SearchBackend   string `mapstructure:"search_backend"` // memory | elasticsearch | pgvector | none
	DefaultLimit    int    `mapstructure:"default_limit"`
	MaxLimit        int    `mapstructure:"max_limit"`
	SearchTopK      int    `mapstructure:"search_top_k"`
	History         int    `mapstructure:"analytics_history"`
	EntityLibrary   string `mapstructure:"entity_library"`
	FixturePath     string `mapstructure:"fixture_path"`
	MaxRetries      int    `mapstructure:"max_retries"`
	WarmUpOnStart   bool   `mapstructure:"warm_up_on_start"`
	PrimaryTimeout  int    `mapstructure:"primary_timeout"`  // milliseconds
	FallbackTimeout int    `mapstructure:"fallback_timeout"` // milliseconds
	StoreTimeout    int    `mapstructure:"store_timeout"`    // milliseconds
	SearchTimeout   int    `mapstructure:"search_timeout"`   // milliseconds
	LLMTimeout      int    `mapstructure:"llm_timeout"`      // milliseconds

	Thresholds querycontext.ThresholdPolicy `mapstructure:"thresholds"`
}

// NotificationConfig holds settings for error alerts.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
