package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-compare/internal/evaluation"
	"github.com/giantswarm/llm-compare/internal/results"
	"github.com/giantswarm/llm-compare/internal/runner"
)

func newRunCmd() *cobra.Command {
	var (
		models  []string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <use-case>",
		Short: "Compare models on a use case and print the report",
		Long: `Run every test case of a use case against the selected models, score the
answers with the judge model and print the aggregated comparison.

Provider credentials are read from OPENAI_API_KEY and ANTHROPIC_API_KEY.`,
		Example: `  llm-compare run coding-behavior --model gpt-5-mini --model claude-sonnet-4-20250514`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			catalogDir := catalogDirFlag(cmd)
			a, err := newApp(ctx, catalogDir, envconfig.OsLookuper())
			if err != nil {
				return err
			}

			cfg, err := a.service.Submit(ctx, evaluation.SubmitRequest{UseCaseID: args[0], Models: models})
			if err != nil {
				return err
			}
			seq, err := a.service.Execute(ctx, cfg.ID, evaluation.SubmitRequest{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var report *results.EvaluationResults
			for ev, err := range seq {
				if err != nil {
					return fmt.Errorf("evaluation failed: %w", err)
				}
				switch data := ev.Data.(type) {
				case runner.Progress:
					fmt.Fprintf(out, "  [%d/%d] %s: %s\n", data.CurrentTest, data.TotalTests, data.CurrentModel, data.Status)
				case runner.ResponseData:
					if data.Response.Failed() {
						fmt.Fprintf(out, "    %s failed: %s\n", data.ModelID, data.Response.Error)
					}
				case results.EvaluationResults:
					report = &data
				}
			}
			if report == nil {
				return fmt.Errorf("evaluation %s ended without results", cfg.ID)
			}

			fmt.Fprintln(out)
			if err := writeReport(out, a.catalog, *report); err != nil {
				return err
			}

			if output != "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write results: %w", err)
				}
				fmt.Fprintf(out, "\nResults written to %s\n", output)
			}

			slog.Info("evaluation complete", "run_id", report.ID, "winner", report.Summary.Winner)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model id to compare (repeat for up to 3 models)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the full results as JSON to this file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout for the run (e.g. 10m). 0 means no timeout")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
