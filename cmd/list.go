package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-compare/internal/catalog"
)

func newListCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List use cases, models and scoring dimensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogDir := catalogDirFlag(cmd)
			cat, err := catalog.Load(catalogDir)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			p := catalog.Provider(provider)
			if provider != "" && !p.Valid() {
				return fmt.Errorf("unsupported provider %q", provider)
			}
			return writeCatalog(cmd.OutOrStdout(), cat, p)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Only list models served by this provider (openai, anthropic)")

	return cmd
}

// writeCatalog prints the catalog. A non-empty provider restricts the models table.
func writeCatalog(w io.Writer, cat *catalog.Catalog, provider catalog.Provider) error {
	fmt.Fprintf(w, "Use cases:\n\n")
	useCases := newTable(w, []string{"ID", "Name", "Tests", "Description"})
	for _, uc := range cat.UseCases() {
		if err := useCases.Append([]string{uc.ID, uc.Name, strconv.Itoa(len(uc.TestCases)), uc.Description}); err != nil {
			return err
		}
	}
	if err := useCases.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nModels:\n\n")
	models := newTable(w, []string{"ID", "Name", "Provider"})
	listed := cat.Models()
	if provider != "" {
		listed = cat.ModelsByProvider(provider)
	}
	for _, m := range listed {
		if err := models.Append([]string{m.ModelID, m.DisplayName, string(m.Provider)}); err != nil {
			return err
		}
	}
	if err := models.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nDimensions:\n\n")
	dims := newTable(w, []string{"Name", "Display name", "Description"})
	for _, d := range cat.Dimensions() {
		if err := dims.Append([]string{d.Name, d.DisplayName, d.Description}); err != nil {
			return err
		}
	}
	return dims.Render()
}
