package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hr-query-engine/internal/api"
	"hr-query-engine/internal/app"
	"hr-query-engine/internal/common/camunda"
	"hr-query-engine/internal/common/config"
	processhrquery "hr-query-engine/internal/workers/hr-query/process-hr-query"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on server.address. When camunda.enabled is set the
process-hr-query job worker is registered with the Zeebe gateway too.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, zapLog, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer zapLog.Sync()
	defer a.Close()

	cfg := a.Config

	if cfg.Query.WarmUpOnStart {
		go a.Engine.WarmUp(ctx, nil)
	}

	if cfg.Camunda.Enabled {
		stopWorker, err := startQueryWorker(ctx, a, zapLog)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	handler := api.NewHandler(a.Engine, cfg.App.Version, a.APILogger())
	server := api.NewServer(handler, api.ServerConfig{
		Address:         cfg.Server.Address,
		ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
	}, a.APILogger())

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}
	zapLog.Info("hr-query stopped gracefully")
	return nil
}

// startQueryWorker connects to Zeebe and opens the process-hr-query job worker.
func startQueryWorker(ctx context.Context, a *app.App, zapLog *zap.Logger) (func(), error) {
	cfg := a.Config
	wcfg := config.GetWorkerConfig(cfg, processhrquery.TaskType)
	if !wcfg.Enabled {
		zapLog.Info("worker disabled", zap.String("taskType", processhrquery.TaskType))
		return func() {}, nil
	}

	client, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("zeebe client failed: %w", err)
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	timeout := config.GetDuration(wcfg.Timeout)
	handler := processhrquery.NewHandler(processhrquery.LoadConfig(timeout), a.Engine, a.WorkerLogger())
	w := camunda.NewWorker(client.GetClient(), processhrquery.TaskType, wcfg.MaxJobsActive, timeout, handler, zapLog)
	w.Start()

	return func() {
		w.Stop()
		if err := client.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}, nil
}
