// Package pipeline orchestrates a generation run: it derives the resume
// point from the artifacts already on disk, drives the generation stages
// through the remaining work, validates the finished corpus, and commits
// the results atomically with a write-once manifest.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"casegen/internal/config"
	"casegen/internal/contract"
	"casegen/internal/corpus"
	"casegen/internal/coverage"
	"casegen/internal/llm"
	"casegen/internal/stage"
)

// Version is the generator version recorded in run manifests.
const Version = "casegen/0.1.0"

// ErrValidationFailed means generation finished but the corpus did not
// pass validation; the dataset was not committed.
var ErrValidationFailed = errors.New("generated corpus failed validation")

// Deps injects the pipeline's external dependencies. Zero fields get
// production defaults.
type Deps struct {
	Gen      llm.Generator
	Now      func() time.Time
	NewRunID func() (string, error)
	Progress func(format string, args ...any)
}

// Result summarizes a completed run.
type Result struct {
	// StartState is where the run resumed from.
	StartState State
	// RunID is set when this run wrote the manifest.
	RunID  string
	Report corpus.Report

	UseCases  int
	Policies  int
	TestCases int
	Examples  int
}

var stateRank = map[State]int{
	StateNotStarted:   0,
	StateExtracted:    1,
	StateTestCased:    2,
	StateDatasetBuilt: 3,
}

func (s State) reached(other State) bool {
	return stateRank[s] >= stateRank[other]
}

// Run executes the pipeline from whatever state the output directory is
// in. Completed stages are loaded from disk and cost no generation
// calls. The dataset is committed only after the whole corpus validates,
// and the manifest is written once, when the run first completes.
func Run(ctx context.Context, cfg config.Config, cov coverage.Spec, deps Deps) (Result, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = NewRunID
	}
	progress := deps.Progress
	if progress == nil {
		progress = func(string, ...any) {}
	}

	doc, err := stage.LoadDocument(cfg.InputPath)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(cfg.OutPath, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	start := DeriveState(cfg.OutPath)
	result := Result{StartState: start}
	progress("resuming from state %s", start)

	runner := &stage.Runner{Gen: deps.Gen, Config: cfg, Progress: deps.Progress}

	var useCases []contract.UseCase
	var policies []contract.Policy
	if start.reached(StateExtracted) {
		progress("extraction: loading saved artifacts")
		if useCases, err = contract.LoadUseCases(cfg.OutPath); err != nil {
			return result, err
		}
		if policies, err = contract.LoadPolicies(cfg.OutPath); err != nil {
			return result, err
		}
	} else {
		progress("extraction: starting")
		useCases, policies, err = runner.Extract(ctx, doc)
		if err != nil {
			return result, err
		}
		if err := contract.SaveUseCases(cfg.OutPath, useCases); err != nil {
			return result, err
		}
		if err := contract.SavePolicies(cfg.OutPath, policies); err != nil {
			return result, err
		}
	}
	result.UseCases = len(useCases)
	result.Policies = len(policies)

	var testCases []contract.TestCase
	if start.reached(StateTestCased) {
		progress("test cases: loading saved artifacts")
		if testCases, err = contract.LoadTestCases(cfg.OutPath); err != nil {
			return result, err
		}
	} else {
		progress("test cases: starting")
		testCases, err = runner.TestCases(ctx, useCases, policies)
		if err != nil {
			return result, err
		}
		if err := contract.SaveTestCases(cfg.OutPath, testCases); err != nil {
			return result, err
		}
	}
	result.TestCases = len(testCases)

	var examples []contract.DatasetExample
	if start.reached(StateDatasetBuilt) {
		progress("dataset: loading saved artifacts")
		if examples, err = contract.LoadExamples(cfg.OutPath); err != nil {
			return result, err
		}
	} else {
		progress("dataset: starting")
		examples, err = runner.Dataset(ctx, useCases, policies, testCases)
		if err != nil {
			return result, err
		}
	}
	result.Examples = len(examples)

	report, err := validateSet(useCases, policies, testCases, examples, doc, cov)
	if err != nil {
		return result, err
	}
	result.Report = report
	if !report.OK() {
		return result, ErrValidationFailed
	}

	if !start.reached(StateDatasetBuilt) {
		if err := contract.SaveExamples(cfg.OutPath, examples); err != nil {
			return result, err
		}
	}

	runID, err := writeManifestOnce(cfg, deps)
	if err != nil {
		return result, err
	}
	result.RunID = runID
	return result, nil
}

// validateSet runs the corpus validator over in-memory artifacts.
func validateSet(useCases []contract.UseCase, policies []contract.Policy, testCases []contract.TestCase, examples []contract.DatasetExample, doc stage.Document, cov coverage.Spec) (corpus.Report, error) {
	set := corpus.Set{}
	var err error
	if set.UseCases, err = rawList(useCases); err != nil {
		return corpus.Report{}, err
	}
	if set.Policies, err = rawList(policies); err != nil {
		return corpus.Report{}, err
	}
	if set.TestCases, err = rawList(testCases); err != nil {
		return corpus.Report{}, err
	}
	if set.Examples, err = rawList(examples); err != nil {
		return corpus.Report{}, err
	}
	return corpus.ValidateCorpus(set, corpus.Options{Lines: doc.Lines, Coverage: cov}), nil
}

func rawList[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal artifact: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}

// writeManifestOnce writes the run manifest if the directory does not
// have one yet. An existing manifest belongs to the run that completed
// first and is never overwritten.
func writeManifestOnce(cfg config.Config, deps Deps) (string, error) {
	path := filepath.Join(cfg.OutPath, contract.FileManifest)
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %s: %w", contract.FileManifest, err)
	}
	runID, err := deps.NewRunID()
	if err != nil {
		return "", fmt.Errorf("new run id: %w", err)
	}
	manifest := contract.RunManifest{
		RunID:            runID,
		InputPath:        cfg.InputPath,
		OutPath:          cfg.OutPath,
		Seed:             cfg.Seed,
		Timestamp:        deps.Now().UTC().Format(time.RFC3339),
		GeneratorVersion: Version,
		LLM: contract.LLMInfo{
			Provider:    cfg.Provider,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		},
	}
	if err := contract.SaveManifest(cfg.OutPath, manifest); err != nil {
		return "", err
	}
	return runID, nil
}
