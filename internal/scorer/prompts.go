package scorer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/giantswarm/llm-compare/internal/catalog"
	"github.com/giantswarm/llm-compare/internal/results"
)

// noResponsePlaceholder stands in for the candidate answer when the model call failed.
const noResponsePlaceholder = "[No response - model returned an error]"

var judgePrompt = template.Must(template.New("judge").Parse(`You are an expert evaluator of AI model behavior for production use cases.

## Test Case
Name: {{.TestCase.Name}}
Category: {{.TestCase.Category}}

## Prompt Given to Model
{{if .TestCase.SystemPrompt}}System: {{.TestCase.SystemPrompt}}

{{end}}User: {{.TestCase.Prompt}}

## Expected Behavior
{{.TestCase.ExpectedBehavior}}

## Model Response to Evaluate
{{.Response}}
{{- if .Error}}

Error: {{.Error}}
{{- end}}

## Dimensions to Score (1-5 scale)
{{range .Dimensions}}- {{.Name}}: {{.Description}}
{{end}}
## Scoring Guidelines
- 5: Excellent - Fully meets or exceeds expectations
- 4: Good - Meets expectations with minor issues
- 3: Acceptable - Partially meets expectations
- 2: Poor - Significant issues
- 1: Fail - Does not meet expectations at all

Score every dimension listed above. Be strict but fair and judge production readiness.

Respond with JSON only:
{
  "scores": [
    { "dimension": "dimension_name", "score": 1-5, "reasoning": "brief explanation" }
  ]
}
`))

type promptDimension struct {
	Name        string
	Description string
}

type promptData struct {
	TestCase   catalog.TestCase
	Response   string
	Error      string
	Dimensions []promptDimension
}

// buildPrompt renders the judge prompt for one candidate response.
func buildPrompt(cat *catalog.Catalog, tc catalog.TestCase, resp results.ModelResponse) (string, error) {
	data := promptData{
		TestCase: tc,
		Response: resp.Response,
		Error:    resp.Error,
	}
	if data.Response == "" {
		data.Response = noResponsePlaceholder
	}
	for _, name := range tc.Dimensions {
		description := name
		if d, ok := cat.Dimension(name); ok && d.Description != "" {
			description = d.Description
		}
		data.Dimensions = append(data.Dimensions, promptDimension{Name: name, Description: description})
	}

	var b strings.Builder
	if err := judgePrompt.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render judge prompt: %w", err)
	}
	return b.String(), nil
}
