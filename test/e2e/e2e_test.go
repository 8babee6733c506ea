// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hr-query-engine/internal/api"
	"hr-query-engine/internal/app"
	"hr-query-engine/internal/common/config"
	"hr-query-engine/internal/mcpserver"
	"hr-query-engine/internal/models"
	processhrquery "hr-query-engine/internal/workers/hr-query/process-hr-query"
)

// The fixture has 24 employees spread round-robin over IT, HR, Sales,
// Finance and AI, so every department holds five or four people.
const itEmployees = 5

func buildApp(t *testing.T, mutate func(cfg *config.Config)) *app.App {
	t.Helper()

	cfg, err := config.LoadFromFile("../../configs/config.yaml")
	require.NoError(t, err)

	cfg.Query.FixturePath = "../../configs/fixtures/employees.json"
	cfg.APIs.GenAI.Provider = ""
	cfg.APIs.Embedding.Provider = ""
	cfg.Tracing.ServiceName = ""
	cfg.Tracing.JaegerEndpoint = ""
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestEngine_FixtureQueries(t *testing.T) {
	a := buildApp(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		query  string
		intent models.QueryType
		check  func(t *testing.T, env *models.Envelope)
	}{
		{
			name:   "department count",
			query:  "How many employees work in IT?",
			intent: models.QueryTypeCount,
			check: func(t *testing.T, env *models.Envelope) {
				assert.Equal(t, itEmployees, env.Count)
				assert.Equal(t, []string{"IT"}, env.Entities.Departments)
			},
		},
		{
			name:   "top performers",
			query:  "Show top 5 performers",
			intent: models.QueryTypeRanking,
			check: func(t *testing.T, env *models.Envelope) {
				assert.LessOrEqual(t, len(env.Results), 5)
				assert.NotEmpty(t, env.Results)
			},
		},
		{
			name:   "certification search",
			query:  "Find employees with AWS certification",
			intent: "",
			check: func(t *testing.T, env *models.Envelope) {
				assert.NotEmpty(t, env.Results)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := a.Engine.ProcessQuery(ctx, tt.query)

			require.NotNil(t, env)
			assert.NotEqual(t, models.StatusError, env.Status, env.Error)
			if tt.intent != "" {
				assert.Equal(t, tt.intent, env.Intent)
			}
			assert.NotEmpty(t, env.Response)
			tt.check(t, env)
		})
	}
}

func TestEngine_EmptyQueryIsError(t *testing.T) {
	a := buildApp(t, nil)

	env := a.Engine.ProcessQuery(context.Background(), "   ")

	assert.Equal(t, models.StatusError, env.Status)
	assert.True(t, strings.HasPrefix(env.Response, "I apologize"))
	assert.NotEmpty(t, env.Suggestions)
}

func TestHTTPAPI_QueryAndCache(t *testing.T) {
	a := buildApp(t, nil)
	srv := httptest.NewServer(api.NewHandler(a.Engine, "e2e", a.APILogger()).Routes())
	defer srv.Close()

	ask := func() models.Envelope {
		body, _ := json.Marshal(api.QueryRequest{Query: "How many employees work in IT?"})
		resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var env models.Envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		return env
	}

	first := ask()
	assert.Equal(t, itEmployees, first.Count)
	assert.False(t, first.CacheHit)

	second := ask()
	assert.Equal(t, itEmployees, second.Count)
	assert.True(t, second.CacheHit)

	resp, err := http.Get(srv.URL + "/api/v1/cache/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, float64(1), stats["hits"])
}

func TestTieredCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	a := buildApp(t, func(cfg *config.Config) {
		cfg.Query.Cache.Backend = "tiered"
		cfg.Database.Redis.Address = mr.Addr()
	})
	ctx := context.Background()

	env := a.Engine.ProcessQuery(ctx, "How many employees work in IT?")
	require.Equal(t, models.StatusSuccess, env.Status)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "hr-query:cache:"))

	again := a.Engine.ProcessQuery(ctx, "How many employees work in IT?")
	assert.True(t, again.CacheHit)
}

func TestMCPTool_AskHR(t *testing.T) {
	a := buildApp(t, nil)
	tools := mcpserver.NewTools(a.Engine, a.MCPLogger())

	var req mcp.CallToolRequest
	req.Params.Name = mcpserver.ToolAsk
	req.Params.Arguments = map[string]interface{}{"query": "How many employees work in IT?"}

	res, err := tools.HandleAsk(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)

	answer, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, answer.Text, "5")
}

func TestWorker_ProcessHRQuery(t *testing.T) {
	a := buildApp(t, nil)
	h := processhrquery.NewHandler(processhrquery.LoadConfig(0), a.Engine, a.WorkerLogger())

	out, err := h.Execute(context.Background(), &processhrquery.Input{
		Question: "How many employees work in IT?",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, out.Status)
	assert.NotEmpty(t, out.Answer)
	require.NotNil(t, out.Envelope)
	assert.Equal(t, itEmployees, out.Envelope.Count)
}
