package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed all:data
var embeddedData embed.FS

const (
	dimensionsFile = "dimensions.yaml"
	modelsFile     = "models.yaml"
	useCasesDir    = "use-cases"
)

// Load builds the catalog from the embedded data. When externalDir is set,
// use case files found in <externalDir>/use-cases are merged in: a use case
// with the same id as an embedded one replaces it, new ids are appended.
// An external models.yaml or dimensions.yaml replaces the embedded list.
func Load(externalDir string) (*Catalog, error) {
	// Use path.Join (not filepath.Join) because embed.FS always uses forward slashes.
	embedded, err := fs.Sub(embeddedData, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded catalog: %w", err)
	}

	var dimensions []Dimension
	if err := readYAML(embedded, dimensionsFile, &dimensions); err != nil {
		return nil, err
	}
	var models []ModelDescriptor
	if err := readYAML(embedded, modelsFile, &models); err != nil {
		return nil, err
	}
	useCases, err := loadUseCases(embedded)
	if err != nil {
		return nil, err
	}

	if externalDir != "" {
		info, err := os.Stat(externalDir)
		if err != nil {
			return nil, fmt.Errorf("catalog directory %q: %w", externalDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("catalog directory %q is not a directory", externalDir)
		}
		external := os.DirFS(externalDir)

		var extDimensions []Dimension
		if ok, err := readOptionalYAML(external, dimensionsFile, &extDimensions); err != nil {
			return nil, err
		} else if ok {
			dimensions = extDimensions
		}
		var extModels []ModelDescriptor
		if ok, err := readOptionalYAML(external, modelsFile, &extModels); err != nil {
			return nil, err
		} else if ok {
			models = extModels
		}

		extra, err := loadUseCases(external)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		useCases = mergeUseCases(useCases, extra)
	}

	return New(dimensions, models, useCases)
}

func loadUseCases(fsys fs.FS) ([]UseCase, error) {
	entries, err := fs.ReadDir(fsys, useCasesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", useCasesDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	// Files carry a numeric prefix for ordering ("01-coding-behavior.yaml");
	// the use case id comes from the file content.
	sort.Strings(names)

	useCases := make([]UseCase, 0, len(names))
	for _, name := range names {
		var uc UseCase
		if err := readYAML(fsys, path.Join(useCasesDir, name), &uc); err != nil {
			return nil, err
		}
		useCases = append(useCases, uc)
	}
	return useCases, nil
}

func mergeUseCases(base, extra []UseCase) []UseCase {
	merged := make([]UseCase, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, uc := range merged {
		index[uc.ID] = i
	}
	for _, uc := range extra {
		if i, ok := index[uc.ID]; ok {
			merged[i] = uc
			continue
		}
		index[uc.ID] = len(merged)
		merged = append(merged, uc)
	}
	return merged
}

func readYAML(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func readOptionalYAML(fsys fs.FS, name string, out any) (bool, error) {
	if _, err := fs.Stat(fsys, name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return true, readYAML(fsys, name, out)
}
