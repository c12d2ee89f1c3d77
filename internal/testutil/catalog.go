package testutil

import (
	"testing"

	"github.com/giantswarm/llm-compare/internal/catalog"
)

// Model ids of the catalog returned by NewCatalog.
const (
	ModelA = "model-a"
	ModelB = "model-b"
	ModelC = "model-c"
	ModelD = "model-d"
)

// NewCatalog returns a small catalog with four models spread across both
// providers and one use case "sample" of two test cases.
func NewCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()

	dims := []catalog.Dimension{
		{Name: "instruction_following", DisplayName: "Instruction Following", Description: "Follows the instructions."},
		{Name: "output_structure", DisplayName: "Output Structure", Description: "Produces the requested format."},
		{Name: "reasoning_quality", DisplayName: "Reasoning Quality", Description: "Reasons soundly."},
	}
	models := []catalog.ModelDescriptor{
		{Provider: catalog.ProviderOpenAI, ModelID: ModelA, DisplayName: "Model A"},
		{Provider: catalog.ProviderAnthropic, ModelID: ModelB, DisplayName: "Model B"},
		{Provider: catalog.ProviderOpenAI, ModelID: ModelC, DisplayName: "Model C"},
		{Provider: catalog.ProviderAnthropic, ModelID: ModelD, DisplayName: "Model D"},
	}
	useCases := []catalog.UseCase{{
		ID:          "sample",
		Name:        "Sample",
		Description: "Two small test cases",
		TestCases: []catalog.TestCase{
			{
				ID:               "t-1",
				Category:         "format",
				Name:             "JSON output",
				Prompt:           "Return {\"ok\": true}",
				ExpectedBehavior: "Exactly the JSON object",
				Dimensions:       []string{"instruction_following", "output_structure"},
			},
			{
				ID:               "t-2",
				Category:         "reasoning",
				Name:             "Arithmetic",
				Prompt:           "What is 17 * 3?",
				SystemPrompt:     "Answer briefly.",
				ExpectedBehavior: "51",
				Dimensions:       []string{"reasoning_quality"},
			},
		},
	}}

	c, err := catalog.New(dims, models, useCases)
	if err != nil {
		t.Fatalf("building test catalog: %v", err)
	}
	return c
}
