package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hr-query-engine/internal/models"
)

var (
	askJSON    bool
	askFilters map[string]string
	askRows    int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the result",
	Long: `Answer one natural-language question.

Examples:
  hr-query ask "How many employees work in IT?"
  hr-query ask "Show top 5 performers" --filter department=Sales
  hr-query ask "Average salary by department" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full result envelope as JSON")
	askCmd.Flags().StringToStringVarP(&askFilters, "filter", "f", nil, "Entity override, e.g. department=IT or limit=5")
	askCmd.Flags().IntVar(&askRows, "rows", 5, "Number of result rows to print")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, zapLog, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer zapLog.Sync()
	defer a.Close()

	env := a.Engine.ProcessQueryWithFilters(ctx, strings.Join(args, " "), filterArgs(askFilters))

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	printEnvelope(out, env, askRows)
	if env.Status == models.StatusError {
		return fmt.Errorf("query %s failed", env.QueryID)
	}
	return nil
}

// filterArgs turns numeric flag values into numbers so limit overrides apply.
func filterArgs(in map[string]string) map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if n, err := strconv.Atoi(v); err == nil {
			out[k] = n
			continue
		}
		if strings.Contains(v, ",") {
			parts := strings.Split(v, ",")
			list := make([]interface{}, 0, len(parts))
			for _, p := range parts {
				list = append(list, strings.TrimSpace(p))
			}
			out[k] = list
			continue
		}
		out[k] = v
	}
	return out
}

func printEnvelope(w io.Writer, env *models.Envelope, rows int) {
	status := color.New(color.FgGreen, color.Bold)
	switch env.Status {
	case models.StatusSuccessFallback:
		status = color.New(color.FgYellow, color.Bold)
	case models.StatusError:
		status = color.New(color.FgRed, color.Bold)
	}

	status.Fprintf(w, "[%s] ", env.Status)
	fmt.Fprintln(w, env.Response)

	dim := color.New(color.Faint)
	dim.Fprintf(w, "intent=%s source=%s count=%d confidence=%.2f time=%.1fms cache_hit=%t\n",
		env.Intent, env.DataSource, env.Count, env.Confidence, env.ExecutionTimeMs, env.CacheHit)

	if env.Error != "" {
		color.New(color.FgRed).Fprintf(w, "error: %s\n", env.Error)
	}

	shown := env.Results
	if len(env.Aggregates) > 0 {
		shown = env.Aggregates
	}
	if rows >= 0 && len(shown) > rows {
		shown = shown[:rows]
	}
	for i, r := range shown {
		b, _ := json.Marshal(r)
		fmt.Fprintf(w, "  %s %s\n", color.CyanString("%d.", i+1), b)
	}

	if len(env.Suggestions) > 0 {
		color.New(color.FgBlue).Fprintln(w, "Try:")
		for _, s := range env.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}
