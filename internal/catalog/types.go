package catalog

// Provider identifies the API family a model is served from.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// Dimension is a qualitative axis the judge scores on a 1-5 scale.
type Dimension struct {
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"display_name" json:"displayName"`
	Description string `yaml:"description" json:"description"`
}

// ModelDescriptor is a static catalog entry for a selectable model.
type ModelDescriptor struct {
	Provider    Provider `yaml:"provider" json:"provider"`
	ModelID     string   `yaml:"model_id" json:"modelId"`
	DisplayName string   `yaml:"display_name" json:"displayName"`
	Description string   `yaml:"description" json:"description"`
}

// TestCase is one prompt with its expected behavior and the dimensions to score.
type TestCase struct {
	ID               string   `yaml:"id" json:"id"`
	Category         string   `yaml:"category" json:"category"`
	Name             string   `yaml:"name" json:"name"`
	Prompt           string   `yaml:"prompt" json:"prompt"`
	SystemPrompt     string   `yaml:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
	ExpectedBehavior string   `yaml:"expected_behavior" json:"expectedBehavior"`
	Dimensions       []string `yaml:"dimensions" json:"dimensions"`
}

// UseCase groups an ordered list of test cases under one scenario.
type UseCase struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Icon        string     `yaml:"icon,omitempty" json:"icon,omitempty"`
	IsNew       bool       `yaml:"is_new,omitempty" json:"isNew,omitempty"`
	TestCases   []TestCase `yaml:"test_cases" json:"testCases"`
}
