// Package corpus validates a generated artifact set as a whole: record
// schemas, identifier uniqueness, cross-references between artifacts,
// minimum counts, coverage requirements, and evidence honesty. All
// problems are collected into a single report rather than stopping at the
// first one.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"casegen/internal/contract"
	"casegen/internal/coverage"
	"casegen/internal/evidence"
)

// Rule names the validation rule a finding belongs to.
type Rule string

const (
	RuleSchema            Rule = "schema"
	RuleDuplicateID       Rule = "duplicate_id"
	RuleDanglingReference Rule = "dangling_reference"
	RuleMinCount          Rule = "min_count"
	RuleCoverageGap       Rule = "coverage_gap"
	RuleEvidence          Rule = "evidence"
)

// Corpus-wide minimums. A dataset below these thresholds is too thin to
// evaluate an agent against.
const (
	MinUseCases       = 5
	MinPolicies       = 5
	MinPolicyTypes    = 2
	MinTestCasesPerUC = 3
	MinExamplesPerTC  = 1
)

// ValidationError is one finding against the corpus.
type ValidationError struct {
	ArtifactKind contract.Kind
	ArtifactID   string
	Rule         Rule
	Detail       string
}

// Error renders the finding as "kind id: rule: detail".
func (err ValidationError) Error() string {
	id := err.ArtifactID
	if id == "" {
		id = "(corpus)"
	}
	return fmt.Sprintf("%s %s: %s: %s", err.ArtifactKind, id, err.Rule, err.Detail)
}

// Stats summarizes the record counts of a validated corpus.
type Stats struct {
	UseCases  int
	Policies  int
	TestCases int
	Examples  int
}

// Report is the full outcome of a corpus validation pass.
type Report struct {
	Errors []ValidationError
	Stats  Stats
}

// OK reports whether the corpus passed every check.
func (report Report) OK() bool {
	return len(report.Errors) == 0
}

// Set holds the raw artifact records of one output directory. Records are
// kept undecoded so that schema failures surface as findings instead of
// aborting the pass.
type Set struct {
	UseCases  []json.RawMessage
	Policies  []json.RawMessage
	TestCases []json.RawMessage
	Examples  []json.RawMessage
	Manifest  json.RawMessage
}

// Options configures a validation pass.
type Options struct {
	// Lines is the source document the evidence cites. When nil,
	// evidence checks are skipped.
	Lines []string
	// Coverage is the requirement set for the coverage_gap rule.
	Coverage coverage.Spec
}

type checker struct {
	opts   Options
	errors []ValidationError
}

func (ch *checker) add(kind contract.Kind, id string, rule Rule, detail string) {
	ch.errors = append(ch.errors, ValidationError{
		ArtifactKind: kind,
		ArtifactID:   id,
		Rule:         rule,
		Detail:       detail,
	})
}

// ValidateCorpus runs every rule over the artifact set and returns the
// collected findings. The pass never stops early: a corpus with ten
// problems yields ten findings.
func ValidateCorpus(set Set, opts Options) Report {
	ch := &checker{opts: opts}

	useCases := decodeAll(ch, contract.KindUseCase, set.UseCases, contract.DecodeUseCase)
	policies := decodeAll(ch, contract.KindPolicy, set.Policies, contract.DecodePolicy)
	testCases := decodeAll(ch, contract.KindTestCase, set.TestCases, contract.DecodeTestCase)
	examples := decodeAll(ch, contract.KindExample, set.Examples, contract.DecodeExample)
	if set.Manifest != nil {
		if _, err := contract.DecodeManifest(set.Manifest); err != nil {
			ch.add(contract.KindManifest, "", RuleSchema, err.Error())
		}
	}

	ucByID := ch.indexUseCases(useCases)
	polByID := ch.indexPolicies(policies)
	tcByID := ch.indexTestCases(testCases)
	ch.checkExampleIDs(examples)

	ch.checkMinCounts(useCases, policies, testCases, examples, ucByID, tcByID)
	ch.checkReferences(testCases, examples, ucByID, polByID, tcByID)
	ch.checkMessageShapes(examples)
	ch.checkCoverage(useCases, examples)
	ch.checkEvidence(useCases, policies)

	return Report{
		Errors: ch.errors,
		Stats: Stats{
			UseCases:  len(set.UseCases),
			Policies:  len(set.Policies),
			TestCases: len(set.TestCases),
			Examples:  len(set.Examples),
		},
	}
}

// ValidateDirectory loads the artifact files from an output directory and
// validates them. Missing files are reported as findings, not I/O errors:
// a partially generated directory is an invalid corpus, not a crash.
func ValidateDirectory(dir string, opts Options) (Report, error) {
	ch := &checker{}
	set := Set{}

	load := func(kind contract.Kind, name, key string) []json.RawMessage {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			ch.add(kind, "", RuleSchema, fmt.Sprintf("%s: file missing", name))
			return nil
		}
		records, err := contract.LoadRawList(path, key)
		if err != nil {
			ch.add(kind, "", RuleSchema, err.Error())
			return nil
		}
		return records
	}

	set.UseCases = load(contract.KindUseCase, contract.FileUseCases, "use_cases")
	set.Policies = load(contract.KindPolicy, contract.FilePolicies, "policies")
	set.TestCases = load(contract.KindTestCase, contract.FileTestCases, "test_cases")
	set.Examples = load(contract.KindExample, contract.FileDataset, "examples")

	manifestPath := filepath.Join(dir, contract.FileManifest)
	if data, err := os.ReadFile(manifestPath); err == nil {
		set.Manifest = data
	} else if !os.IsNotExist(err) {
		return Report{}, fmt.Errorf("read %s: %w", contract.FileManifest, err)
	} else {
		ch.add(contract.KindManifest, "", RuleSchema, fmt.Sprintf("%s: file missing", contract.FileManifest))
	}

	report := ValidateCorpus(set, opts)
	report.Errors = append(ch.errors, report.Errors...)
	return report, nil
}

// decodeAll validates each raw record, reporting schema findings and
// returning the records that decoded cleanly. Later rules run only over
// the clean records so one malformed record does not cascade.
func decodeAll[T any](ch *checker, kind contract.Kind, records []json.RawMessage, decode func(json.RawMessage) (T, error)) []T {
	out := make([]T, 0, len(records))
	for i, raw := range records {
		value, err := decode(raw)
		if err != nil {
			ch.add(kind, rawID(raw), RuleSchema, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		out = append(out, value)
	}
	return out
}

// rawID best-effort extracts the id field of an undecodable record so the
// finding still names it.
func rawID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.ID
}

func (ch *checker) indexUseCases(useCases []contract.UseCase) map[string]contract.UseCase {
	index := make(map[string]contract.UseCase, len(useCases))
	for _, uc := range useCases {
		if _, dup := index[uc.ID]; dup {
			ch.add(contract.KindUseCase, uc.ID, RuleDuplicateID, "id occurs more than once")
			continue
		}
		index[uc.ID] = uc
	}
	return index
}

func (ch *checker) indexPolicies(policies []contract.Policy) map[string]contract.Policy {
	index := make(map[string]contract.Policy, len(policies))
	for _, policy := range policies {
		if _, dup := index[policy.ID]; dup {
			ch.add(contract.KindPolicy, policy.ID, RuleDuplicateID, "id occurs more than once")
			continue
		}
		index[policy.ID] = policy
	}
	return index
}

func (ch *checker) indexTestCases(testCases []contract.TestCase) map[string]contract.TestCase {
	index := make(map[string]contract.TestCase, len(testCases))
	for _, tc := range testCases {
		if _, dup := index[tc.ID]; dup {
			ch.add(contract.KindTestCase, tc.ID, RuleDuplicateID, "id occurs more than once")
			continue
		}
		index[tc.ID] = tc
	}
	return index
}

func (ch *checker) checkExampleIDs(examples []contract.DatasetExample) {
	seen := make(map[string]struct{}, len(examples))
	for _, example := range examples {
		if _, dup := seen[example.ID]; dup {
			ch.add(contract.KindExample, example.ID, RuleDuplicateID, "id occurs more than once")
			continue
		}
		seen[example.ID] = struct{}{}
	}
}

func (ch *checker) checkMinCounts(useCases []contract.UseCase, policies []contract.Policy, testCases []contract.TestCase, examples []contract.DatasetExample, ucByID map[string]contract.UseCase, tcByID map[string]contract.TestCase) {
	if len(useCases) < MinUseCases {
		ch.add(contract.KindUseCase, "", RuleMinCount,
			fmt.Sprintf("need at least %d use cases, have %d", MinUseCases, len(useCases)))
	}
	if len(policies) < MinPolicies {
		ch.add(contract.KindPolicy, "", RuleMinCount,
			fmt.Sprintf("need at least %d policies, have %d", MinPolicies, len(policies)))
	}

	types := map[string]struct{}{}
	for _, policy := range policies {
		types[policy.Type] = struct{}{}
	}
	if len(policies) > 0 && len(types) < MinPolicyTypes {
		ch.add(contract.KindPolicy, "", RuleMinCount,
			fmt.Sprintf("need at least %d distinct policy types, have %d", MinPolicyTypes, len(types)))
	}

	perUC := map[string]int{}
	for _, tc := range testCases {
		perUC[tc.UseCaseID]++
	}
	for id := range ucByID {
		if perUC[id] < MinTestCasesPerUC {
			ch.add(contract.KindUseCase, id, RuleMinCount,
				fmt.Sprintf("need at least %d test cases, have %d", MinTestCasesPerUC, perUC[id]))
		}
	}

	perTC := map[string]int{}
	for _, example := range examples {
		perTC[example.TestCaseID]++
	}
	for id := range tcByID {
		if perTC[id] < MinExamplesPerTC {
			ch.add(contract.KindTestCase, id, RuleMinCount,
				fmt.Sprintf("need at least %d examples, have %d", MinExamplesPerTC, perTC[id]))
		}
	}
}

func (ch *checker) checkReferences(testCases []contract.TestCase, examples []contract.DatasetExample, ucByID map[string]contract.UseCase, polByID map[string]contract.Policy, tcByID map[string]contract.TestCase) {
	for _, tc := range testCases {
		if _, ok := ucByID[tc.UseCaseID]; !ok {
			ch.add(contract.KindTestCase, tc.ID, RuleDanglingReference,
				fmt.Sprintf("use_case_id %q does not exist", tc.UseCaseID))
		}
		for _, id := range tc.PolicyIDs {
			if _, ok := polByID[id]; !ok {
				ch.add(contract.KindTestCase, tc.ID, RuleDanglingReference,
					fmt.Sprintf("policy_id %q does not exist", id))
			}
		}
	}
	for _, example := range examples {
		if _, ok := ucByID[example.UseCaseID]; !ok {
			ch.add(contract.KindExample, example.ID, RuleDanglingReference,
				fmt.Sprintf("use_case_id %q does not exist", example.UseCaseID))
		}
		tc, tcOK := tcByID[example.TestCaseID]
		if !tcOK {
			ch.add(contract.KindExample, example.ID, RuleDanglingReference,
				fmt.Sprintf("test_case_id %q does not exist", example.TestCaseID))
		} else if tc.UseCaseID != example.UseCaseID {
			ch.add(contract.KindExample, example.ID, RuleDanglingReference,
				fmt.Sprintf("use_case_id %q disagrees with test case %s (%q)", example.UseCaseID, tc.ID, tc.UseCaseID))
		}
		for _, id := range example.PolicyIDs {
			if _, ok := polByID[id]; !ok {
				ch.add(contract.KindExample, example.ID, RuleDanglingReference,
					fmt.Sprintf("policy_id %q does not exist", id))
			}
		}
	}
}

// checkMessageShapes enforces the conversation shape each format implies.
// These rules span the input payload and the format field, so they live
// here rather than in the per-record schema check.
func (ch *checker) checkMessageShapes(examples []contract.DatasetExample) {
	for _, example := range examples {
		messages, ok := exampleMessages(example)
		if !ok {
			ch.add(contract.KindExample, example.ID, RuleSchema,
				"input.messages must be a list of {role, content} objects")
			continue
		}
		if len(messages) == 0 {
			ch.add(contract.KindExample, example.ID, RuleSchema, "input.messages must not be empty")
			continue
		}
		for i, msg := range messages {
			if strings.TrimSpace(msg.Role) == "" || strings.TrimSpace(msg.Content) == "" {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					fmt.Sprintf("input.messages[%d] needs a role and non-empty content", i))
			}
		}
		switch example.Format {
		case "single_turn_qa":
			if len(messages) != 1 || messages[0].Role != "user" {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					"single_turn_qa requires exactly one user message")
			}
		case "single_utterance_correction":
			if len(messages) != 1 || messages[0].Role != "operator" {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					"single_utterance_correction requires exactly one operator message")
			}
		case "dialog_last_turn_correction":
			if len(messages) < 2 {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					"dialog_last_turn_correction requires at least two messages")
			}
			if len(messages) > 0 && messages[len(messages)-1].Role != "operator" {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					"dialog_last_turn_correction requires the final message to be from the operator")
			}
			target, present := targetMessageIndex(example)
			if !present {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					"dialog_last_turn_correction requires input.target_message_index")
			} else if target != len(messages)-1 {
				ch.add(contract.KindExample, example.ID, RuleSchema,
					fmt.Sprintf("target_message_index %d must point at the final message (%d)", target, len(messages)-1))
			}
		}
	}
}

func exampleMessages(example contract.DatasetExample) ([]contract.Message, bool) {
	raw, ok := example.Input["messages"]
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var messages []contract.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

func targetMessageIndex(example contract.DatasetExample) (int, bool) {
	raw, ok := example.Input["target_message_index"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// checkCoverage verifies the required formats and metadata sources for
// each case tag that carries requirements. Requirements for a case absent
// from the corpus are not enforced.
func (ch *checker) checkCoverage(useCases []contract.UseCase, examples []contract.DatasetExample) {
	cases := map[string]struct{}{}
	for _, uc := range useCases {
		cases[uc.Case] = struct{}{}
	}
	for _, example := range examples {
		cases[example.Case] = struct{}{}
	}

	formats := map[string]map[string]struct{}{}
	sources := map[string]map[string]struct{}{}
	for _, example := range examples {
		if formats[example.Case] == nil {
			formats[example.Case] = map[string]struct{}{}
			sources[example.Case] = map[string]struct{}{}
		}
		formats[example.Case][example.Format] = struct{}{}
		if src, ok := example.Metadata["source"].(string); ok && src != "" {
			sources[example.Case][src] = struct{}{}
		}
	}

	for caseName := range cases {
		required, ok := ch.opts.Coverage.ForCase(caseName)
		if !ok {
			continue
		}
		for _, format := range required.RequiredFormats {
			if _, present := formats[caseName][format]; !present {
				ch.add(contract.KindExample, "", RuleCoverageGap,
					fmt.Sprintf("case %q has no example with format %q", caseName, format))
			}
		}
		for _, source := range required.RequiredSources {
			if _, present := sources[caseName][source]; !present {
				ch.add(contract.KindExample, "", RuleCoverageGap,
					fmt.Sprintf("case %q has no example with metadata source %q", caseName, source))
			}
		}
	}
}

func (ch *checker) checkEvidence(useCases []contract.UseCase, policies []contract.Policy) {
	if ch.opts.Lines == nil {
		return
	}
	for _, uc := range useCases {
		for i, ev := range uc.Evidence {
			if err := evidence.Verify(ev, ch.opts.Lines); err != nil {
				ch.add(contract.KindUseCase, uc.ID, RuleEvidence,
					fmt.Sprintf("evidence[%d]: %v", i, err))
			}
		}
	}
	for _, policy := range policies {
		for i, ev := range policy.Evidence {
			if err := evidence.Verify(ev, ch.opts.Lines); err != nil {
				ch.add(contract.KindPolicy, policy.ID, RuleEvidence,
					fmt.Sprintf("evidence[%d]: %v", i, err))
			}
		}
	}
}
