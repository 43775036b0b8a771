// Package config holds run configuration and its validation. Values come
// from CLI flags and the environment; this package only checks them.
package config

import (
	"fmt"
	"strings"
)

// Providers lists the supported generation backends.
var Providers = []string{"gemini", "openai"}

// Config is the full configuration of one generation run.
type Config struct {
	// InputPath is the source document to generate from.
	InputPath string
	// OutPath is the artifact output directory.
	OutPath string
	// Seed feeds deterministic choices such as variation assignment.
	Seed int64

	// Target counts per stage.
	NUseCases       int
	NTestCasesPerUC int
	NExamplesPerTC  int

	Provider    string
	Model       string
	APIKey      string
	Temperature float64

	// CoveragePath optionally overrides the built-in coverage spec.
	CoveragePath string
}

// Default returns the configuration a run starts from before flags and
// environment are applied.
func Default() Config {
	return Config{
		NUseCases:       8,
		NTestCasesPerUC: 5,
		NExamplesPerTC:  2,
		Provider:        "gemini",
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
	}
}

// Validate checks the configuration for a generation run.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return fmt.Errorf("config: input path is required")
	}
	if strings.TrimSpace(cfg.OutPath) == "" {
		return fmt.Errorf("config: output path is required")
	}
	if cfg.NUseCases < 1 {
		return fmt.Errorf("config: use case count must be >= 1, got %d", cfg.NUseCases)
	}
	if cfg.NTestCasesPerUC < 1 {
		return fmt.Errorf("config: test cases per use case must be >= 1, got %d", cfg.NTestCasesPerUC)
	}
	if cfg.NExamplesPerTC < 1 {
		return fmt.Errorf("config: examples per test case must be >= 1, got %d", cfg.NExamplesPerTC)
	}
	valid := false
	for _, provider := range Providers {
		if cfg.Provider == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("config: unsupported provider %q (supported: %s)", cfg.Provider, strings.Join(Providers, ", "))
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("config: model is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("config: api key is required (set GEMINI_API_KEY or OPENAI_API_KEY)")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("config: temperature must be in [0, 2], got %g", cfg.Temperature)
	}
	return nil
}
