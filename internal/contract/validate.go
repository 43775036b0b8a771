package contract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Issue captures a single structural problem with a record field.
type Issue struct {
	Field  string
	Reason string
}

// SchemaError reports the structural problems found in one record.
type SchemaError struct {
	Kind   Kind
	Issues []Issue
}

// Error renders all issues as a single readable message.
func (err *SchemaError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return fmt.Sprintf("%s: invalid record", err.Kind)
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Reason))
	}
	return fmt.Sprintf("%s: %s", err.Kind, strings.Join(parts, "; "))
}

type issueCollector struct {
	issues []Issue
}

func (collector *issueCollector) add(field, reason string) {
	collector.issues = append(collector.issues, Issue{Field: field, Reason: reason})
}

func (collector *issueCollector) result(kind Kind) error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &SchemaError{Kind: kind, Issues: collector.issues}
}

// ValidateRecord decodes and structurally validates a raw record of the
// given kind. It is a pure function of its input: no other artifacts are
// consulted. The returned value is one of the record types of this
// package; the returned error, when non-nil, is a *SchemaError.
func ValidateRecord(kind Kind, raw json.RawMessage) (any, error) {
	switch kind {
	case KindUseCase:
		return DecodeUseCase(raw)
	case KindPolicy:
		return DecodePolicy(raw)
	case KindTestCase:
		return DecodeTestCase(raw)
	case KindExample:
		return DecodeExample(raw)
	case KindManifest:
		return DecodeManifest(raw)
	default:
		return nil, &SchemaError{Kind: kind, Issues: []Issue{{Field: "kind", Reason: fmt.Sprintf("unknown artifact kind %q", kind)}}}
	}
}

// DecodeUseCase unmarshals and validates a single use case record.
func DecodeUseCase(raw json.RawMessage) (UseCase, error) {
	var uc UseCase
	if err := json.Unmarshal(raw, &uc); err != nil {
		return UseCase{}, decodeError(KindUseCase, err)
	}
	if err := CheckUseCase(uc); err != nil {
		return UseCase{}, err
	}
	return uc, nil
}

// DecodePolicy unmarshals and validates a single policy record.
func DecodePolicy(raw json.RawMessage) (Policy, error) {
	var policy Policy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return Policy{}, decodeError(KindPolicy, err)
	}
	if err := CheckPolicy(policy); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// DecodeTestCase unmarshals and validates a single test case record.
func DecodeTestCase(raw json.RawMessage) (TestCase, error) {
	var tc TestCase
	if err := json.Unmarshal(raw, &tc); err != nil {
		return TestCase{}, decodeError(KindTestCase, err)
	}
	if err := CheckTestCase(tc); err != nil {
		return TestCase{}, err
	}
	return tc, nil
}

// DecodeExample unmarshals and validates a single dataset example record.
func DecodeExample(raw json.RawMessage) (DatasetExample, error) {
	var example DatasetExample
	if err := json.Unmarshal(raw, &example); err != nil {
		return DatasetExample{}, decodeError(KindExample, err)
	}
	if err := CheckExample(example); err != nil {
		return DatasetExample{}, err
	}
	return example, nil
}

// DecodeManifest unmarshals and validates a run manifest.
func DecodeManifest(raw json.RawMessage) (RunManifest, error) {
	var manifest RunManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return RunManifest{}, decodeError(KindManifest, err)
	}
	if err := CheckManifest(manifest); err != nil {
		return RunManifest{}, err
	}
	return manifest, nil
}

// CheckUseCase validates an already-decoded use case.
func CheckUseCase(uc UseCase) error {
	collector := &issueCollector{}
	checkID(collector, "id", uc.ID, "uc_")
	checkRequired(collector, "case", uc.Case)
	checkRequired(collector, "name", uc.Name)
	checkEvidenceList(collector, uc.Evidence)
	return collector.result(KindUseCase)
}

// CheckPolicy validates an already-decoded policy.
func CheckPolicy(policy Policy) error {
	collector := &issueCollector{}
	checkID(collector, "id", policy.ID, "pol_")
	checkEnum(collector, "type", policy.Type, PolicyTypes)
	checkRequired(collector, "case", policy.Case)
	checkRequired(collector, "statement", policy.Statement)
	checkEvidenceList(collector, policy.Evidence)
	return collector.result(KindPolicy)
}

// CheckTestCase validates an already-decoded test case.
func CheckTestCase(tc TestCase) error {
	collector := &issueCollector{}
	checkID(collector, "id", tc.ID, "tc_")
	checkRequired(collector, "case", tc.Case)
	checkID(collector, "use_case_id", tc.UseCaseID, "uc_")
	if len(tc.PolicyIDs) == 0 {
		collector.add("policy_ids", "must include at least one entry")
	}
	for i, id := range tc.PolicyIDs {
		if strings.TrimSpace(id) == "" {
			collector.add(fmt.Sprintf("policy_ids[%d]", i), "is required")
		}
	}
	return collector.result(KindTestCase)
}

// CheckExample validates an already-decoded dataset example. Conversation
// shape rules that depend on the format (message roles, target index) are
// cross-cutting and live in the corpus validator, not here.
func CheckExample(example DatasetExample) error {
	collector := &issueCollector{}
	checkID(collector, "id", example.ID, "ex_")
	checkRequired(collector, "case", example.Case)
	checkEnum(collector, "format", example.Format, ExampleFormats)
	checkID(collector, "use_case_id", example.UseCaseID, "uc_")
	checkID(collector, "test_case_id", example.TestCaseID, "tc_")
	if example.Input == nil {
		collector.add("input", "is required")
	}
	if len(example.EvaluationCriteria) == 0 {
		collector.add("evaluation_criteria", "must include at least one entry")
	}
	if len(example.PolicyIDs) == 0 {
		collector.add("policy_ids", "must include at least one entry")
	}
	return collector.result(KindExample)
}

// CheckManifest validates an already-decoded run manifest.
func CheckManifest(manifest RunManifest) error {
	collector := &issueCollector{}
	checkRequired(collector, "run_id", manifest.RunID)
	checkRequired(collector, "input_path", manifest.InputPath)
	checkRequired(collector, "out_path", manifest.OutPath)
	checkRequired(collector, "timestamp", manifest.Timestamp)
	checkRequired(collector, "generator_version", manifest.GeneratorVersion)
	checkRequired(collector, "llm.provider", manifest.LLM.Provider)
	checkRequired(collector, "llm.model", manifest.LLM.Model)
	return collector.result(KindManifest)
}

// CheckEvidence validates a single evidence entry.
func CheckEvidence(ev Evidence) error {
	collector := &issueCollector{}
	checkEvidenceEntry(collector, "", ev)
	return collector.result(KindUseCase)
}

func checkEvidenceList(collector *issueCollector, evidence []Evidence) {
	if len(evidence) == 0 {
		collector.add("evidence", "must include at least one entry")
		return
	}
	for i, ev := range evidence {
		checkEvidenceEntry(collector, fmt.Sprintf("evidence[%d].", i), ev)
	}
}

func checkEvidenceEntry(collector *issueCollector, prefix string, ev Evidence) {
	if strings.TrimSpace(ev.SourceFile) == "" {
		collector.add(prefix+"source_file", "is required")
	}
	if strings.TrimSpace(ev.Quote) == "" {
		collector.add(prefix+"quote", "is required")
	}
	if ev.Sentinel() {
		return
	}
	if ev.LineStart < 1 {
		collector.add(prefix+"line_start", "must be >= 1")
	}
	if ev.LineEnd < ev.LineStart {
		collector.add(prefix+"line_end", fmt.Sprintf("must be >= line_start (%d > %d)", ev.LineStart, ev.LineEnd))
	}
}

func checkRequired(collector *issueCollector, field, value string) {
	if strings.TrimSpace(value) == "" {
		collector.add(field, "is required")
	}
}

func checkID(collector *issueCollector, field, value, prefix string) {
	if strings.TrimSpace(value) == "" {
		collector.add(field, "is required")
		return
	}
	if !strings.HasPrefix(value, prefix) {
		collector.add(field, fmt.Sprintf("must start with %q", prefix))
	}
}

func checkEnum(collector *issueCollector, field, value string, allowed []string) {
	if strings.TrimSpace(value) == "" {
		collector.add(field, "is required")
		return
	}
	for _, candidate := range allowed {
		if value == candidate {
			return
		}
	}
	collector.add(field, fmt.Sprintf("unsupported value %q", value))
}

func decodeError(kind Kind, err error) error {
	return &SchemaError{Kind: kind, Issues: []Issue{{Field: "record", Reason: err.Error()}}}
}
