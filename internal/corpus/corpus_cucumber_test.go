//go:build cucumber

package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
)

// TestCorpusValidationScenarios runs the corpus validation feature
// scenarios.
func TestCorpusValidationScenarios(t *testing.T) {
	featurePath := filepath.Join("..", "..", "spec", "features", "validation", "corpus.feature")
	suite := godog.TestSuite{
		Name:                "corpus-validation",
		ScenarioInitializer: InitializeCorpusScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{featurePath},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeCorpusScenario wires steps for corpus validation scenarios.
func InitializeCorpusScenario(ctx *godog.ScenarioContext) {
	state := &corpusScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a corpus with (\d+) use cases$`, state.givenCorpus)
	ctx.Step(`^two use cases share the identifier "([^"]+)"$`, state.givenDuplicateID)
	ctx.Step(`^a test case references the unknown policy "([^"]+)"$`, state.givenUnknownPolicy)
	ctx.Step(`^every example draws from the source "([^"]+)"$`, state.givenSingleSource)
	ctx.Step(`^I validate the corpus$`, state.whenValidate)
	ctx.Step(`^the report is clean$`, state.thenClean)
	ctx.Step(`^the report has a "([^"]+)" finding$`, state.thenFinding)
}

type corpusScenarioState struct {
	fixture *fixture
	report  Report
}

// reset clears scenario state.
func (s *corpusScenarioState) reset() {
	s.fixture = nil
	s.report = Report{}
}

// givenCorpus builds a fixture trimmed to the requested use case count.
func (s *corpusScenarioState) givenCorpus(count int) error {
	f := validFixture()
	if count > len(f.useCases) {
		return fmt.Errorf("fixture holds at most %d use cases", len(f.useCases))
	}
	kept := map[string]struct{}{}
	for _, uc := range f.useCases[:count] {
		kept[uc.ID] = struct{}{}
	}
	f.useCases = f.useCases[:count]
	testCases := f.testCases[:0:0]
	for _, tc := range f.testCases {
		if _, ok := kept[tc.UseCaseID]; ok {
			testCases = append(testCases, tc)
		}
	}
	f.testCases = testCases
	examples := f.examples[:0:0]
	for _, ex := range f.examples {
		if _, ok := kept[ex.UseCaseID]; ok {
			examples = append(examples, ex)
		}
	}
	f.examples = examples
	s.fixture = f
	return nil
}

// givenDuplicateID makes the second use case repeat an identifier.
func (s *corpusScenarioState) givenDuplicateID(id string) error {
	if len(s.fixture.useCases) < 2 {
		return fmt.Errorf("need at least two use cases")
	}
	s.fixture.useCases[1].ID = id
	return nil
}

// givenUnknownPolicy points the first test case at a missing policy.
func (s *corpusScenarioState) givenUnknownPolicy(id string) error {
	if len(s.fixture.testCases) == 0 {
		return fmt.Errorf("need at least one test case")
	}
	s.fixture.testCases[0].PolicyIDs = []string{id}
	return nil
}

// givenSingleSource collapses every example onto one source bucket.
func (s *corpusScenarioState) givenSingleSource(source string) error {
	for i := range s.fixture.examples {
		s.fixture.examples[i].Metadata["source"] = source
	}
	return nil
}

// whenValidate runs the validator over the scenario corpus.
func (s *corpusScenarioState) whenValidate() error {
	set, err := s.buildSet()
	if err != nil {
		return err
	}
	s.report = ValidateCorpus(set, defaultOptions())
	return nil
}

// thenClean asserts an empty report.
func (s *corpusScenarioState) thenClean() error {
	if !s.report.OK() {
		return fmt.Errorf("expected clean report, got %v", s.report.Errors)
	}
	return nil
}

// thenFinding asserts at least one finding with the given rule.
func (s *corpusScenarioState) thenFinding(rule string) error {
	for _, finding := range s.report.Errors {
		if finding.Rule == Rule(rule) {
			return nil
		}
	}
	return fmt.Errorf("no %q finding in %v", rule, s.report.Errors)
}

func (s *corpusScenarioState) buildSet() (Set, error) {
	set := Set{}
	var err error
	if set.UseCases, err = marshalRaw(s.fixture.useCases); err != nil {
		return Set{}, err
	}
	if set.Policies, err = marshalRaw(s.fixture.policies); err != nil {
		return Set{}, err
	}
	if set.TestCases, err = marshalRaw(s.fixture.testCases); err != nil {
		return Set{}, err
	}
	if set.Examples, err = marshalRaw(s.fixture.examples); err != nil {
		return Set{}, err
	}
	return set, nil
}

func marshalRaw[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
