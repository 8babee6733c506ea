package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: hr-query-engine\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Query.Cache.Backend)
	assert.Equal(t, 300, cfg.Query.Cache.TTL)
	assert.Equal(t, 100, cfg.Query.DefaultLimit)
	assert.Equal(t, 100, cfg.Query.MaxLimit)
	assert.Equal(t, 10, cfg.Query.SearchTopK)
	assert.Equal(t, 1000, cfg.Query.History)
	assert.Equal(t, 20.0, cfg.Query.Thresholds.LeaveMaximum)
	assert.Equal(t, 3.0, cfg.Query.Thresholds.EngagementLow)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "hr-query-engine", cfg.Tracing.ServiceName)
}

func TestLoadFromFile_ThresholdOverride(t *testing.T) {
	path := writeConfig(t, `
query:
  thresholds:
    leave_maximum: 25
    performance_high: 4.5
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.Query.Thresholds.LeaveMaximum)
	assert.Equal(t, 4.5, cfg.Query.Thresholds.PerformanceHigh)
	assert.Equal(t, 5.0, cfg.Query.Thresholds.LeaveMinimum)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("HR_TEST_REDIS", "localhost:6390")
	path := writeConfig(t, `
database:
  redis:
    address: ${HR_TEST_REDIS}
query:
  cache:
    backend: tiered
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6390", cfg.Database.Redis.Address)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "postgres store needs host",
			body:    "query:\n  store_backend: postgres\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "elasticsearch search needs address",
			body:    "query:\n  search_backend: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses or url is required",
		},
		{
			name:    "redis cache needs address",
			body:    "query:\n  cache:\n    backend: redis\n",
			wantErr: "database.redis.address is required",
		},
		{
			name:    "pgvector needs an embedder",
			body:    "database:\n  postgres:\n    host: db\n    database: hr\n    user: hr\nquery:\n  search_backend: pgvector\n",
			wantErr: "apis.embedding.provider is required",
		},
		{
			name:    "camunda enabled needs broker",
			body:    "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "unknown backend",
			body:    "query:\n  store_backend: mongo\n",
			wantErr: "query.store_backend",
		},
		{
			name:    "default above max",
			body:    "query:\n  default_limit: 200\n  max_limit: 50\n",
			wantErr: "must not exceed",
		},
		{
			name: "memory backends need nothing else",
			body: "query:\n  store_backend: memory\n  search_backend: memory\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, "1.5s", GetDuration(1500).String())
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"process-hr-query": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "process-hr-query").MaxJobsActive)
	assert.Equal(t, 3, GetWorkerConfig(cfg, "other").MaxRetries)
	assert.False(t, IsWorkerEnabled(cfg, "process-hr-query"))
	assert.True(t, IsWorkerEnabled(cfg, "other"))
}
