// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	storeBackends  = []string{"memory", "postgres"}
	searchBackends = []string{"memory", "elasticsearch", "pgvector", "none"}
	cacheBackends  = []string{"memory", "redis", "tiered", "none"}
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like QUERY_CACHE_BACKEND
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1️⃣ LOAD BASE CONFIG
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2️⃣ LOAD ENV CONFIG
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one.
// Messages go to stderr so stdout stays clean for the MCP transport.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // for tests in test/e2e/
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Fprintf(os.Stderr, "loaded .env from: %s\n", path)
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty := func(target *string, keys ...string) {
		if *target != "" {
			return
		}
		for _, k := range keys {
			if val := os.Getenv(k); val != "" {
				*target = val
				return
			}
		}
	}

	setIfEmpty(&cfg.APIs.GenAI.APIKey, "GENAI_API_KEY", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY")
	setIfEmpty(&cfg.APIs.GenAI.BaseURL, "AZURE_OPENAI_ENDPOINT")
	setIfEmpty(&cfg.APIs.Embedding.APIKey, "EMBEDDING_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY")

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD")

	setIfEmpty(&cfg.Notifications.SNS.TopicARN, "SNS_ALERT_TOPIC_ARN")
	setIfEmpty(&cfg.Notifications.SNS.Region, "AWS_REGION")
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "hr-query-engine"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 45000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.Schema == "" {
		cfg.Database.Postgres.Schema = "hr"
	}
	if cfg.Database.Postgres.EmbeddingTable == "" {
		cfg.Database.Postgres.EmbeddingTable = "employee_embeddings"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "hr-employees"
	}

	// Query defaults
	q := &cfg.Query
	if q.Cache.Backend == "" {
		q.Cache.Backend = "memory"
	}
	if q.Cache.TTL == 0 {
		q.Cache.TTL = 300
	}
	if q.Cache.Capacity == 0 {
		q.Cache.Capacity = 1000
	}
	if q.Cache.Prefix == "" {
		q.Cache.Prefix = "hr-query:cache:"
	}
	if q.StoreBackend == "" {
		q.StoreBackend = "memory"
	}
	if q.SearchBackend == "" {
		q.SearchBackend = "memory"
	}
	if q.DefaultLimit == 0 {
		q.DefaultLimit = 100
	}
	if q.MaxLimit == 0 {
		q.MaxLimit = 100
	}
	if q.SearchTopK == 0 {
		q.SearchTopK = 10
	}
	if q.History == 0 {
		q.History = 1000
	}
	if q.FixturePath == "" {
		q.FixturePath = "configs/fixtures/employees.json"
	}
	if q.MaxRetries == 0 {
		q.MaxRetries = 3
	}
	if q.PrimaryTimeout == 0 {
		q.PrimaryTimeout = 30000
	}
	if q.FallbackTimeout == 0 {
		q.FallbackTimeout = 10000
	}
	if q.StoreTimeout == 0 {
		q.StoreTimeout = 10000
	}
	if q.SearchTimeout == 0 {
		q.SearchTimeout = 10000
	}
	if q.LLMTimeout == 0 {
		q.LLMTimeout = 15000
	}
	q.Thresholds = q.Thresholds.WithDefaults()

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Worker defaults
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// API defaults
	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 60000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 2
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

// validateConfig checks only the settings the selected backends need.
func validateConfig(cfg *Config) error {
	q := cfg.Query
	if !oneOf(q.StoreBackend, storeBackends) {
		return fmt.Errorf("query.store_backend %q must be one of %v", q.StoreBackend, storeBackends)
	}
	if !oneOf(q.SearchBackend, searchBackends) {
		return fmt.Errorf("query.search_backend %q must be one of %v", q.SearchBackend, searchBackends)
	}
	if !oneOf(q.Cache.Backend, cacheBackends) {
		return fmt.Errorf("query.cache.backend %q must be one of %v", q.Cache.Backend, cacheBackends)
	}
	if q.DefaultLimit > q.MaxLimit {
		return fmt.Errorf("query.default_limit (%d) must not exceed query.max_limit (%d)", q.DefaultLimit, q.MaxLimit)
	}
	if q.Cache.TTL < 0 || q.Cache.Capacity < 0 {
		return fmt.Errorf("query.cache.ttl and query.cache.capacity must be positive")
	}

	if q.StoreBackend == "postgres" || q.SearchBackend == "pgvector" {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if q.SearchBackend == "pgvector" && cfg.APIs.Embedding.Provider == "" {
		return fmt.Errorf("apis.embedding.provider is required for the pgvector search backend")
	}
	if q.SearchBackend == "elasticsearch" && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if (q.Cache.Backend == "redis" || q.Cache.Backend == "tiered") && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if q.StoreBackend == "memory" && q.FixturePath == "" {
		return fmt.Errorf("query.fixture_path is required for the memory store backend")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required")
	}

	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
