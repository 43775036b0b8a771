package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Default()
	cfg.InputPath = "/tmp/doc.md"
	cfg.OutPath = "/tmp/out"
	cfg.APIKey = "key"
	return cfg
}

// TestDefault verifies the built-in starting configuration.
func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.NUseCases != 8 || cfg.NTestCasesPerUC != 5 || cfg.NExamplesPerTC != 2 {
		t.Fatalf("unexpected counts: %+v", cfg)
	}
	if cfg.Provider != "gemini" || cfg.Model == "" {
		t.Fatalf("unexpected backend defaults: %+v", cfg)
	}
	if cfg.Temperature != 0.7 {
		t.Fatalf("unexpected temperature: %g", cfg.Temperature)
	}
}

// TestValidateAccepts verifies a fully populated configuration passes.
func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestValidateRejects verifies each invalid field is caught.
func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing input", func(c *Config) { c.InputPath = "" }, "input path"},
		{"missing out", func(c *Config) { c.OutPath = "  " }, "output path"},
		{"zero use cases", func(c *Config) { c.NUseCases = 0 }, "use case count"},
		{"zero test cases", func(c *Config) { c.NTestCasesPerUC = 0 }, "test cases per use case"},
		{"zero examples", func(c *Config) { c.NExamplesPerTC = 0 }, "examples per test case"},
		{"bad provider", func(c *Config) { c.Provider = "claude" }, "unsupported provider"},
		{"missing model", func(c *Config) { c.Model = "" }, "model"},
		{"missing key", func(c *Config) { c.APIKey = "" }, "api key"},
		{"temperature low", func(c *Config) { c.Temperature = -0.1 }, "temperature"},
		{"temperature high", func(c *Config) { c.Temperature = 2.5 }, "temperature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

// TestValidateOpenAIProvider verifies the second provider is accepted.
func TestValidateOpenAIProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Provider = "openai"
	cfg.Model = "gpt-4o-mini"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
