package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/results"
)

// newTable creates a markdown-style table with left aligned cells.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// writeReport renders the aggregated comparison: one row per model with its
// overall score, latency and per-dimension averages, then one row per test
// with the judge comparison, then the recommendation.
func writeReport(w io.Writer, cat *catalog.Catalog, report results.EvaluationResults) error {
	fmt.Fprintf(w, "## %s\n\n", report.UseCaseName)

	headers := []string{"Model", "Overall", "Avg latency"}
	for _, d := range cat.Dimensions() {
		headers = append(headers, d.DisplayName)
	}
	models := newTable(w, headers)
	for _, id := range report.Models {
		mr, ok := report.ByModel[id]
		if !ok {
			continue
		}
		row := []string{
			mr.DisplayName,
			fmt.Sprintf("%.1f", mr.OverallScore),
			fmt.Sprintf("%.0fms", mr.AverageLatencyMs),
		}
		for _, d := range cat.Dimensions() {
			row = append(row, fmt.Sprintf("%.1f", mr.DimensionScores[d.Name]))
		}
		if err := models.Append(row); err != nil {
			return fmt.Errorf("failed to append model row: %w", err)
		}
	}
	if err := models.Render(); err != nil {
		return fmt.Errorf("failed to render model table: %w", err)
	}

	fmt.Fprintln(w)
	tests := newTable(w, []string{"Test", "Category", "Comparison"})
	for _, tr := range report.ByTest {
		comparison := tr.Comparison
		if comparison == "" {
			comparison = "-"
		}
		if err := tests.Append([]string{tr.TestCase.Name, tr.TestCase.Category, comparison}); err != nil {
			return fmt.Errorf("failed to append test row: %w", err)
		}
	}
	if err := tests.Render(); err != nil {
		return fmt.Errorf("failed to render test table: %w", err)
	}

	fmt.Fprintf(w, "\nRecommendation: %s\n", report.Recommendation)
	return nil
}
