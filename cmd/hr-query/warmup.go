package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup [question...]",
	Short: "Prime the result cache with common questions",
	Long: `Answer each question once so later requests hit the cache. Without
arguments a built-in list of common questions is used. Only useful with a
shared (redis or tiered) cache backend.`,
	RunE: runWarmup,
}

func runWarmup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, zapLog, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer zapLog.Sync()
	defer a.Close()

	rep := a.Engine.WarmUp(ctx, args)
	stats := a.Engine.CacheStats()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d warmed, %d failed\n", color.GreenString("warm-up:"), rep.Warmed, rep.Failed)
	fmt.Fprintf(out, "%s backend=%s size=%d\n", color.CyanString("cache:"), stats.Backend, stats.Size)
	return nil
}
