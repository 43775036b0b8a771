package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"casegen/internal/config"
	"casegen/internal/coverage"
	"casegen/internal/llm"
	"casegen/internal/pipeline"
)

// runGenerate builds the handler for the generate command.
func runGenerate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		cfg := config.Default()
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		input := flags.String("input", "", "Path to the source document")
		out := flags.String("out", "", "Output directory for artifacts")
		seed := flags.Int64("seed", 42, "Random seed")
		flags.IntVar(&cfg.NUseCases, "n-use-cases", cfg.NUseCases, "Target number of use cases")
		flags.IntVar(&cfg.NTestCasesPerUC, "n-test-cases-per-uc", cfg.NTestCasesPerUC, "Test cases per use case")
		flags.IntVar(&cfg.NExamplesPerTC, "n-examples-per-tc", cfg.NExamplesPerTC, "Examples per test case")
		flags.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM provider (gemini or openai)")
		flags.StringVar(&cfg.Model, "model", cfg.Model, "Model name")
		flags.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
		coveragePath := flags.String("coverage", "", "Path to a coverage spec (default: built-in)")
		noColor := flags.Bool("no-color", false, "Disable colored output")
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		loadDotEnv()
		cfg.InputPath = absPath(*input)
		cfg.OutPath = absPath(*out)
		cfg.Seed = *seed
		cfg.CoveragePath = *coveragePath
		cfg.APIKey = resolveAPIKey(cfg.Provider)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitUsage
		}

		cov, err := loadCoverage(cfg.CoveragePath)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		ctx := context.Background()
		gen, err := llm.New(ctx, llm.Config{
			Provider:    cfg.Provider,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		deps := pipeline.Deps{
			Gen: gen,
			Progress: func(format string, args ...any) {
				fmt.Fprintf(stdout, format+"\n", args...)
			},
		}
		result, err := pipeline.Run(ctx, cfg, cov, deps)
		if err != nil {
			if errors.Is(err, pipeline.ErrValidationFailed) {
				renderReport(stdout, result.Report, *noColor)
				return ExitError
			}
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		renderReport(stdout, result.Report, *noColor)
		if result.RunID != "" {
			fmt.Fprintf(stdout, "Run %s complete: %s\n", result.RunID, cfg.OutPath)
		} else {
			fmt.Fprintf(stdout, "Run already complete: %s\n", cfg.OutPath)
		}
		return ExitOK
	}
}

func loadCoverage(path string) (coverage.Spec, error) {
	if path == "" {
		return coverage.Default(), nil
	}
	return coverage.Load(path)
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
