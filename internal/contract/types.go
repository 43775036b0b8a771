// Package contract defines the artifact data contract: the shape of every
// record the pipeline produces, the wrapper files they are persisted in,
// and structural validation for both.
package contract

// Kind names an artifact record type.
type Kind string

const (
	KindUseCase  Kind = "use_case"
	KindPolicy   Kind = "policy"
	KindTestCase Kind = "test_case"
	KindExample  Kind = "example"
	KindManifest Kind = "run_manifest"
)

// PolicyTypes is the closed set of allowed policy types.
var PolicyTypes = []string{"must", "must_not", "escalate", "style", "format"}

// ExampleFormats is the set of conversational shapes examples may take.
var ExampleFormats = []string{
	"single_turn_qa",
	"single_utterance_correction",
	"dialog_last_turn_correction",
}

// Evidence grounds an extracted claim in the source document. Line numbers
// are 1-based and inclusive; line_start == line_end == 0 is the "no
// specific location" sentinel.
type Evidence struct {
	SourceFile string `json:"source_file"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
	Quote      string `json:"quote"`
}

// Sentinel reports whether the evidence carries no specific location.
func (ev Evidence) Sentinel() bool {
	return ev.LineStart == 0 && ev.LineEnd == 0
}

// UseCase is a business scenario an agent must handle.
type UseCase struct {
	ID          string     `json:"id"`
	Case        string     `json:"case"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Evidence    []Evidence `json:"evidence"`
}

// Policy is a rule the agent's responses must satisfy.
type Policy struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Case      string     `json:"case"`
	Statement string     `json:"statement"`
	Evidence  []Evidence `json:"evidence"`
}

// TestCase is a parameterized scenario instance tied to one use case.
type TestCase struct {
	ID         string         `json:"id"`
	Case       string         `json:"case"`
	UseCaseID  string         `json:"use_case_id"`
	Parameters map[string]any `json:"parameters"`
	PolicyIDs  []string       `json:"policy_ids"`
}

// Message is a single turn inside an example input.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DatasetExample is a concrete input/expected-output record derived from a
// test case.
type DatasetExample struct {
	ID                 string         `json:"id"`
	Case               string         `json:"case"`
	Format             string         `json:"format"`
	UseCaseID          string         `json:"use_case_id"`
	TestCaseID         string         `json:"test_case_id"`
	Input              map[string]any `json:"input"`
	ExpectedOutput     string         `json:"expected_output"`
	EvaluationCriteria []string       `json:"evaluation_criteria"`
	PolicyIDs          []string       `json:"policy_ids"`
	Metadata           map[string]any `json:"metadata"`
}

// LLMInfo records the generation backend a run used.
type LLMInfo struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// RunManifest records how an output directory was produced. It is written
// once, after a run completes, and never read back for resume decisions.
type RunManifest struct {
	RunID            string  `json:"run_id"`
	InputPath        string  `json:"input_path"`
	OutPath          string  `json:"out_path"`
	Seed             int64   `json:"seed"`
	Timestamp        string  `json:"timestamp"`
	GeneratorVersion string  `json:"generator_version"`
	LLM              LLMInfo `json:"llm"`
}

// Wrapper types matching the persisted artifact file structure.

type UseCasesFile struct {
	UseCases []UseCase `json:"use_cases"`
}

type PoliciesFile struct {
	Policies []Policy `json:"policies"`
}

type TestCasesFile struct {
	TestCases []TestCase `json:"test_cases"`
}

type DatasetFile struct {
	Examples []DatasetExample `json:"examples"`
}
