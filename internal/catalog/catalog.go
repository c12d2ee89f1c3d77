package catalog

import "fmt"

// Catalog is the immutable set of dimensions, models and use cases known to the service.
// It is safe for concurrent use once loaded.
type Catalog struct {
	dimensions []Dimension
	models     []ModelDescriptor
	useCases   []UseCase

	dimensionByName map[string]Dimension
	modelByID       map[string]ModelDescriptor
	useCaseByID     map[string]UseCase
}

// New builds a catalog from the given entries and validates cross references:
// every model has a supported provider, IDs are unique, and every dimension
// referenced by a test case exists in the dimension list.
func New(dimensions []Dimension, models []ModelDescriptor, useCases []UseCase) (*Catalog, error) {
	c := &Catalog{
		dimensions:      dimensions,
		models:          models,
		useCases:        useCases,
		dimensionByName: make(map[string]Dimension, len(dimensions)),
		modelByID:       make(map[string]ModelDescriptor, len(models)),
		useCaseByID:     make(map[string]UseCase, len(useCases)),
	}

	for _, d := range dimensions {
		if d.Name == "" {
			return nil, fmt.Errorf("dimension with empty name")
		}
		if _, dup := c.dimensionByName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate dimension %q", d.Name)
		}
		c.dimensionByName[d.Name] = d
	}

	for _, m := range models {
		if m.ModelID == "" {
			return nil, fmt.Errorf("model with empty model_id")
		}
		if !m.Provider.Valid() {
			return nil, fmt.Errorf("model %q has unsupported provider %q", m.ModelID, m.Provider)
		}
		if _, dup := c.modelByID[m.ModelID]; dup {
			return nil, fmt.Errorf("duplicate model %q", m.ModelID)
		}
		c.modelByID[m.ModelID] = m
	}

	for _, uc := range useCases {
		if uc.ID == "" {
			return nil, fmt.Errorf("use case with empty id")
		}
		if _, dup := c.useCaseByID[uc.ID]; dup {
			return nil, fmt.Errorf("duplicate use case %q", uc.ID)
		}
		if len(uc.TestCases) == 0 {
			return nil, fmt.Errorf("use case %q has no test cases", uc.ID)
		}
		for _, tc := range uc.TestCases {
			if len(tc.Dimensions) == 0 {
				return nil, fmt.Errorf("test case %q in use case %q has no dimensions", tc.ID, uc.ID)
			}
			for _, dim := range tc.Dimensions {
				if _, ok := c.dimensionByName[dim]; !ok {
					return nil, &UnknownDimensionError{UseCase: uc.ID, TestCase: tc.ID, Dimension: dim}
				}
			}
		}
		c.useCaseByID[uc.ID] = uc
	}

	return c, nil
}

// Dimensions returns the canonical dimensions in catalog order.
func (c *Catalog) Dimensions() []Dimension {
	return c.dimensions
}

// DimensionNames returns the canonical dimension tags in catalog order.
func (c *Catalog) DimensionNames() []string {
	names := make([]string, 0, len(c.dimensions))
	for _, d := range c.dimensions {
		names = append(names, d.Name)
	}
	return names
}

// Dimension looks up a dimension by tag.
func (c *Catalog) Dimension(name string) (Dimension, bool) {
	d, ok := c.dimensionByName[name]
	return d, ok
}

// Models returns all model descriptors in catalog order.
func (c *Catalog) Models() []ModelDescriptor {
	return c.models
}

// Model looks up a model descriptor by model identifier.
func (c *Catalog) Model(id string) (ModelDescriptor, bool) {
	m, ok := c.modelByID[id]
	return m, ok
}

// ModelDisplayName returns the display name for a model, or the id itself
// when the model is not in the catalog.
func (c *Catalog) ModelDisplayName(id string) string {
	if m, ok := c.modelByID[id]; ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return id
}

// ModelsByProvider returns the catalog models served by the given provider.
func (c *Catalog) ModelsByProvider(p Provider) []ModelDescriptor {
	var out []ModelDescriptor
	for _, m := range c.models {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// UseCases returns all use cases in catalog order.
func (c *Catalog) UseCases() []UseCase {
	return c.useCases
}

// UseCase looks up a use case by id.
func (c *Catalog) UseCase(id string) (UseCase, bool) {
	uc, ok := c.useCaseByID[id]
	return uc, ok
}

// UnknownDimensionError is returned when a test case references a dimension
// that is not part of the catalog.
type UnknownDimensionError struct {
	UseCase   string
	TestCase  string
	Dimension string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("test case %q in use case %q references unknown dimension %q", e.TestCase, e.UseCase, e.Dimension)
}
