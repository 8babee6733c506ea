package app

import (
	"hr-query-engine/internal/api"
	"hr-query-engine/internal/common/llm"
	"hr-query-engine/internal/common/logger"
	"hr-query-engine/internal/mcpserver"
	"hr-query-engine/internal/query/cache"
	"hr-query-engine/internal/query/engine"
	"hr-query-engine/internal/query/intent"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
	"hr-query-engine/internal/query/response"
	"hr-query-engine/internal/query/router"
	"hr-query-engine/internal/query/search"
	"hr-query-engine/internal/query/store"
	processhrquery "hr-query-engine/internal/workers/hr-query/process-hr-query"
)

// Logger adapters for packages that declare their own Logger interfaces
type engineLogger struct {
	logger.Logger
}

func (a *engineLogger) With(fields map[string]interface{}) engine.Logger {
	return &engineLogger{a.Logger.With(fields)}
}

type intentLogger struct {
	logger.Logger
}

func (a *intentLogger) With(fields map[string]interface{}) intent.Logger {
	return &intentLogger{a.Logger.With(fields)}
}

type contextLogger struct {
	logger.Logger
}

func (a *contextLogger) With(fields map[string]interface{}) querycontext.Logger {
	return &contextLogger{a.Logger.With(fields)}
}

type pipelineLogger struct {
	logger.Logger
}

func (a *pipelineLogger) With(fields map[string]interface{}) pipeline.Logger {
	return &pipelineLogger{a.Logger.With(fields)}
}

type routerLogger struct {
	logger.Logger
}

func (a *routerLogger) With(fields map[string]interface{}) router.Logger {
	return &routerLogger{a.Logger.With(fields)}
}

type responseLogger struct {
	logger.Logger
}

func (a *responseLogger) With(fields map[string]interface{}) response.Logger {
	return &responseLogger{a.Logger.With(fields)}
}

type storeLogger struct {
	logger.Logger
}

func (a *storeLogger) With(fields map[string]interface{}) store.Logger {
	return &storeLogger{a.Logger.With(fields)}
}

type searchLogger struct {
	logger.Logger
}

func (a *searchLogger) With(fields map[string]interface{}) search.Logger {
	return &searchLogger{a.Logger.With(fields)}
}

type cacheLogger struct {
	logger.Logger
}

func (a *cacheLogger) With(fields map[string]interface{}) cache.Logger {
	return &cacheLogger{a.Logger.With(fields)}
}

type llmLogger struct {
	logger.Logger
}

func (a *llmLogger) With(fields map[string]interface{}) llm.Logger {
	return &llmLogger{a.Logger.With(fields)}
}

type apiLogger struct {
	logger.Logger
}

func (a *apiLogger) With(fields map[string]interface{}) api.Logger {
	return &apiLogger{a.Logger.With(fields)}
}

type mcpLogger struct {
	logger.Logger
}

func (a *mcpLogger) With(fields map[string]interface{}) mcpserver.Logger {
	return &mcpLogger{a.Logger.With(fields)}
}

type workerLogger struct {
	logger.Logger
}

func (a *workerLogger) With(fields map[string]interface{}) processhrquery.Logger {
	return &workerLogger{a.Logger.With(fields)}
}

func (a *App) APILogger() api.Logger               { return &apiLogger{a.Log} }
func (a *App) MCPLogger() mcpserver.Logger         { return &mcpLogger{a.Log} }
func (a *App) WorkerLogger() processhrquery.Logger { return &workerLogger{a.Log} }
