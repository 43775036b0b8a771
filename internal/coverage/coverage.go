// Package coverage defines the required-coverage configuration: which
// example formats and metadata sources must appear for each case tag
// before a corpus counts as complete. The requirement set is explicit and
// test-visible rather than inferred from example counts.
package coverage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is the coverage requirement set for a run.
type Spec struct {
	Version int            `yaml:"version"`
	Cases   []CaseCoverage `yaml:"cases"`
}

// CaseCoverage lists what must be observed for one case tag.
type CaseCoverage struct {
	Case            string   `yaml:"case"`
	RequiredFormats []string `yaml:"required_formats"`
	RequiredSources []string `yaml:"required_sources"`
}

// Default returns the built-in requirement set: support bot datasets must
// draw examples from every source bucket, operator quality datasets must
// exercise both correction formats.
func Default() Spec {
	return Spec{
		Version: 1,
		Cases: []CaseCoverage{
			{
				Case:            "support_bot",
				RequiredSources: []string{"tickets", "faq_paraphrase", "corner"},
			},
			{
				Case:            "operator_quality",
				RequiredFormats: []string{"single_utterance_correction", "dialog_last_turn_correction"},
			},
		},
	}
}

// ForCase returns the coverage requirements for a case tag.
func (spec Spec) ForCase(name string) (CaseCoverage, bool) {
	for _, entry := range spec.Cases {
		if entry.Case == name {
			return entry, true
		}
	}
	return CaseCoverage{}, false
}

// Load reads, parses, and validates a coverage file.
func Load(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read coverage file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML coverage spec, rejecting unknown fields and
// multiple documents.
func Parse(data []byte) (Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return Spec{}, fmt.Errorf("parse coverage: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Spec{}, fmt.Errorf("parse coverage: multiple YAML documents are not supported")
		}
		return Spec{}, fmt.Errorf("parse coverage: %w", err)
	}
	if err := validate(spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func validate(spec Spec) error {
	if spec.Version != 1 {
		return fmt.Errorf("coverage: unsupported version %d", spec.Version)
	}
	seen := map[string]struct{}{}
	for i, entry := range spec.Cases {
		name := strings.TrimSpace(entry.Case)
		if name == "" {
			return fmt.Errorf("coverage: cases[%d].case is required", i)
		}
		if _, exists := seen[name]; exists {
			return fmt.Errorf("coverage: duplicate case %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
