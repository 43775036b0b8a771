package stage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"casegen/internal/config"
	"casegen/internal/llm"
)

// scriptedGen replays canned responses keyed by wrapper key.
type scriptedGen struct {
	byKey map[string][]string
	calls map[string]int
}

func newScriptedGen() *scriptedGen {
	return &scriptedGen{byKey: map[string][]string{}, calls: map[string]int{}}
}

func (g *scriptedGen) script(key string, responses ...string) {
	g.byKey[key] = append(g.byKey[key], responses...)
}

func (g *scriptedGen) Generate(_ context.Context, req llm.Request) ([]json.RawMessage, error) {
	i := g.calls[req.WrapperKey]
	g.calls[req.WrapperKey]++
	responses := g.byKey[req.WrapperKey]
	if i >= len(responses) {
		i = len(responses) - 1
	}
	return llm.DecodeRecords(responses[i], req.WrapperKey)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.NUseCases = 2
	cfg.NTestCasesPerUC = 2
	cfg.NExamplesPerTC = 1
	return cfg
}

func testRunner(gen llm.Generator) *Runner {
	return &Runner{Gen: gen, Config: testConfig()}
}

func writeTempDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}
