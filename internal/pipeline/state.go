package pipeline

import (
	"casegen/internal/contract"
)

// State is how far a run in an output directory has progressed. It is
// derived purely from the artifact files on disk; there is no separate
// state file to drift out of sync.
type State string

const (
	StateNotStarted   State = "NOT_STARTED"
	StateExtracted    State = "EXTRACTED"
	StateTestCased    State = "TEST_CASED"
	StateDatasetBuilt State = "DATASET_BUILT"
)

// DeriveState inspects an output directory and returns the resume point.
// A stage counts as done only when its artifact files load cleanly under
// the data contract: a missing, corrupt, or contract-invalid file means
// the stage is redone from scratch and the file overwritten. Extraction
// additionally needs both of its files, so a lone use_cases.json or
// policies.json from an interrupted commit is also redone.
func DeriveState(dir string) State {
	if !loads(dir, contract.LoadUseCases) || !loads(dir, contract.LoadPolicies) {
		return StateNotStarted
	}
	if !loads(dir, contract.LoadTestCases) {
		return StateExtracted
	}
	if !loads(dir, contract.LoadExamples) {
		return StateTestCased
	}
	return StateDatasetBuilt
}

func loads[T any](dir string, load func(string) ([]T, error)) bool {
	_, err := load(dir)
	return err == nil
}
