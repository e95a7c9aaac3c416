package analyzer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTaxonomyFile loads a taxonomy override from a YAML file. Sections the
// file omits keep their built-in defaults.
func LoadTaxonomyFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	var spec TaxonomySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy YAML: %w", err)
	}

	tax, err := NewTaxonomy(&spec)
	if err != nil {
		return nil, fmt.Errorf("taxonomy validation failed: %w", err)
	}

	return tax, nil
}
