package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persisted artifact file names inside an output directory.
const (
	FileUseCases  = "use_cases.json"
	FilePolicies  = "policies.json"
	FileTestCases = "test_cases.json"
	FileDataset   = "dataset.json"
	FileManifest  = "run_manifest.json"
)

// ArtifactFiles lists the cross-referenced artifact files, in pipeline
// order. The manifest is deliberately excluded: it is write-once metadata
// and plays no role in resume decisions.
var ArtifactFiles = []string{FileUseCases, FilePolicies, FileTestCases, FileDataset}

// LoadRawList reads an artifact file and returns its records undecoded.
// Both the canonical wrapper form {"key": [...]} and a bare array are
// accepted, matching what earlier generator versions wrote.
func LoadRawList(path, key string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return UnwrapList(data, key)
}

// UnwrapList extracts the record list from wrapper-object or bare-array
// artifact payloads.
func UnwrapList(data []byte, key string) ([]json.RawMessage, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err == nil {
		inner, ok := wrapper[key]
		if !ok {
			return nil, fmt.Errorf("missing wrapper key %q", key)
		}
		var records []json.RawMessage
		if err := json.Unmarshal(inner, &records); err != nil {
			return nil, fmt.Errorf("wrapper key %q must hold an array: %w", key, err)
		}
		return records, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("artifact must be {%q: [...]} or a bare array: %w", key, err)
	}
	return records, nil
}

// LoadUseCases reads and validates use_cases.json from an output directory.
func LoadUseCases(dir string) ([]UseCase, error) {
	records, err := LoadRawList(filepath.Join(dir, FileUseCases), "use_cases")
	if err != nil {
		return nil, err
	}
	useCases := make([]UseCase, 0, len(records))
	for i, raw := range records {
		uc, err := DecodeUseCase(raw)
		if err != nil {
			return nil, fmt.Errorf("use_cases[%d]: %w", i, err)
		}
		useCases = append(useCases, uc)
	}
	return useCases, nil
}

// LoadPolicies reads and validates policies.json from an output directory.
func LoadPolicies(dir string) ([]Policy, error) {
	records, err := LoadRawList(filepath.Join(dir, FilePolicies), "policies")
	if err != nil {
		return nil, err
	}
	policies := make([]Policy, 0, len(records))
	for i, raw := range records {
		policy, err := DecodePolicy(raw)
		if err != nil {
			return nil, fmt.Errorf("policies[%d]: %w", i, err)
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

// LoadTestCases reads and validates test_cases.json from an output directory.
func LoadTestCases(dir string) ([]TestCase, error) {
	records, err := LoadRawList(filepath.Join(dir, FileTestCases), "test_cases")
	if err != nil {
		return nil, err
	}
	testCases := make([]TestCase, 0, len(records))
	for i, raw := range records {
		tc, err := DecodeTestCase(raw)
		if err != nil {
			return nil, fmt.Errorf("test_cases[%d]: %w", i, err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, nil
}

// LoadExamples reads and validates dataset.json from an output directory.
func LoadExamples(dir string) ([]DatasetExample, error) {
	records, err := LoadRawList(filepath.Join(dir, FileDataset), "examples")
	if err != nil {
		return nil, err
	}
	examples := make([]DatasetExample, 0, len(records))
	for i, raw := range records {
		example, err := DecodeExample(raw)
		if err != nil {
			return nil, fmt.Errorf("dataset[%d]: %w", i, err)
		}
		examples = append(examples, example)
	}
	return examples, nil
}

// LoadManifest reads and validates run_manifest.json from an output directory.
func LoadManifest(dir string) (RunManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileManifest))
	if err != nil {
		return RunManifest{}, fmt.Errorf("read %s: %w", FileManifest, err)
	}
	return DecodeManifest(data)
}

// SaveUseCases writes use_cases.json atomically.
func SaveUseCases(dir string, useCases []UseCase) error {
	return saveJSON(filepath.Join(dir, FileUseCases), UseCasesFile{UseCases: useCases})
}

// SavePolicies writes policies.json atomically.
func SavePolicies(dir string, policies []Policy) error {
	return saveJSON(filepath.Join(dir, FilePolicies), PoliciesFile{Policies: policies})
}

// SaveTestCases writes test_cases.json atomically.
func SaveTestCases(dir string, testCases []TestCase) error {
	return saveJSON(filepath.Join(dir, FileTestCases), TestCasesFile{TestCases: testCases})
}

// SaveExamples writes dataset.json atomically.
func SaveExamples(dir string, examples []DatasetExample) error {
	return saveJSON(filepath.Join(dir, FileDataset), DatasetFile{Examples: examples})
}

// SaveManifest writes run_manifest.json atomically.
func SaveManifest(dir string, manifest RunManifest) error {
	return saveJSON(filepath.Join(dir, FileManifest), manifest)
}

// saveJSON commits a payload atomically: the bytes are written to a
// temporary file in the destination directory and renamed into place, so
// an interrupted run never leaves a half-written artifact behind.
func saveJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return nil
}
