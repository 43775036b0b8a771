package contract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSaveLoadRoundTrip verifies artifacts survive a save and load.
func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	useCases := []UseCase{validUseCase()}
	if err := SaveUseCases(dir, useCases); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadUseCases(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "uc_1" {
		t.Fatalf("unexpected round trip result: %+v", loaded)
	}
}

// TestSaveWritesWrapperObject verifies the canonical wrapper file shape.
func TestSaveWritesWrapperObject(t *testing.T) {
	dir := t.TempDir()
	if err := SavePolicies(dir, []Policy{validPolicy()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FilePolicies))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := wrapper["policies"]; !ok {
		t.Fatalf("expected wrapper key policies, got %v", wrapper)
	}
}

// TestUnwrapListBareArray verifies bare arrays are accepted.
func TestUnwrapListBareArray(t *testing.T) {
	records, err := UnwrapList([]byte(`[{"a": 1}, {"b": 2}]`), "use_cases")
	if err != nil {
		t.Fatalf("expected bare array to be accepted, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

// TestUnwrapListMissingKey verifies a wrapper without the key is rejected.
func TestUnwrapListMissingKey(t *testing.T) {
	if _, err := UnwrapList([]byte(`{"policies": []}`), "use_cases"); err == nil {
		t.Fatalf("expected error for missing wrapper key")
	}
}

// TestUnwrapListNonArrayValue verifies the wrapper key must hold an array.
func TestUnwrapListNonArrayValue(t *testing.T) {
	if _, err := UnwrapList([]byte(`{"use_cases": {"id": "uc_1"}}`), "use_cases"); err == nil {
		t.Fatalf("expected error for non-array wrapper value")
	}
}

// TestLoadUseCasesReportsRecordIndex verifies invalid records name their index.
func TestLoadUseCasesReportsRecordIndex(t *testing.T) {
	dir := t.TempDir()
	payload := `{"use_cases": [
		{"id": "uc_1", "case": "support_bot", "name": "ok", "description": "d",
		 "evidence": [{"source_file": "doc.md", "line_start": 1, "line_end": 1, "quote": "q"}]},
		{"id": "wrong", "case": "support_bot", "name": "bad"}
	]}`
	if err := os.WriteFile(filepath.Join(dir, FileUseCases), []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadUseCases(dir)
	if err == nil {
		t.Fatalf("expected error for invalid record")
	}
	if got := err.Error(); !strings.Contains(got, "use_cases[1]") {
		t.Fatalf("expected index in error, got %q", got)
	}
}

// TestSaveLeavesNoTempFiles verifies the atomic commit cleans up after itself.
func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := SaveManifest(dir, RunManifest{
		RunID:            "r",
		InputPath:        "i",
		OutPath:          "o",
		Timestamp:        "t",
		GeneratorVersion: "v",
		LLM:              LLMInfo{Provider: "gemini", Model: "m"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != FileManifest {
		t.Fatalf("expected only %s, got %v", FileManifest, entries)
	}
}
