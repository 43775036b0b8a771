package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"casegen/internal/contract"
	"casegen/internal/llm"
)

// supportSources is the source rotation for support bot examples.
var supportSources = []string{"tickets", "faq_paraphrase", "corner"}

// fallbackCriteria tops evaluation criteria up to three entries.
var fallbackCriteria = []string{
	"Response is relevant",
	"Response follows policies",
	"Response matches the expected tone",
}

type rawExample struct {
	Input              map[string]any `json:"input"`
	ExpectedOutput     string         `json:"expected_output"`
	EvaluationCriteria []string       `json:"evaluation_criteria"`
	Metadata           map[string]any `json:"metadata"`
}

// formatFor picks the example format from the case type and test case
// position: support bot runs are all single-turn QA, operator quality
// runs alternate between the two correction formats.
func formatFor(caseType string, tcIndex int) string {
	if caseType == CaseSupportBot {
		return "single_turn_qa"
	}
	if tcIndex%2 == 0 {
		return "single_utterance_correction"
	}
	return "dialog_last_turn_correction"
}

// Dataset runs the third stage: each test case is expanded into concrete
// dataset examples with inputs, expected outputs, and evaluation
// criteria.
func (r *Runner) Dataset(ctx context.Context, useCases []contract.UseCase, policies []contract.Policy, testCases []contract.TestCase) ([]contract.DatasetExample, error) {
	ucByID := make(map[string]contract.UseCase, len(useCases))
	for _, uc := range useCases {
		ucByID[uc.ID] = uc
	}
	polByID := make(map[string]contract.Policy, len(policies))
	for _, policy := range policies {
		polByID[policy.ID] = policy
	}

	var all []contract.DatasetExample
	counter := 1
	for tcIndex, tc := range testCases {
		uc, ok := ucByID[tc.UseCaseID]
		if !ok {
			continue
		}
		format := formatFor(tc.Case, tcIndex)
		r.progressf("generating examples for %s (%s)", tc.ID, format)

		statements := make([]string, 0, len(tc.PolicyIDs))
		for _, pid := range tc.PolicyIDs {
			if policy, ok := polByID[pid]; ok {
				statements = append(statements, fmt.Sprintf("- %s: %s", policy.ID, policy.Statement))
			}
		}

		req := llm.Request{
			System:     datasetSystemPrompt,
			Prompt:     examplePrompt(r.Config.NExamplesPerTC, uc, tc, format, statements),
			WrapperKey: "examples",
		}
		var batch []contract.DatasetExample
		err := r.generate(ctx, "dataset", req, func(records []json.RawMessage) (int, error) {
			batch = batch[:0]
			next := counter
			for _, raw := range records {
				if len(batch) == r.Config.NExamplesPerTC {
					break
				}
				if err := checkRaw(exampleSchema, raw); err != nil {
					continue
				}
				var rec rawExample
				if err := json.Unmarshal(raw, &rec); err != nil {
					continue
				}
				example := buildExample(rec, tc, format, next)
				if err := contract.CheckExample(example); err != nil {
					continue
				}
				batch = append(batch, example)
				next++
			}
			return len(batch), nil
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		counter += len(batch)
	}
	r.progressf("generated %d examples", len(all))
	return all, nil
}

// buildExample normalizes one raw model record into a dataset example:
// criteria are topped up to three, support bot examples rotate through
// the source buckets, every example is tagged split=test, and correction
// formats get their target message index. Source rotation follows the
// corpus-wide sequence number so every bucket is reached even when each
// test case yields fewer examples than there are buckets.
func buildExample(rec rawExample, tc contract.TestCase, format string, seq int) contract.DatasetExample {
	input := rec.Input
	if input == nil {
		input = map[string]any{}
	}

	criteria := rec.EvaluationCriteria
	for _, fallback := range fallbackCriteria {
		if len(criteria) >= 3 {
			break
		}
		criteria = append(criteria, fallback)
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if tc.Case == CaseSupportBot {
		metadata["source"] = supportSources[(seq-1)%len(supportSources)]
	}
	metadata["split"] = "test"

	switch format {
	case "single_utterance_correction":
		input["target_message_index"] = 0
	case "dialog_last_turn_correction":
		if messages, ok := input["messages"].([]any); ok {
			input["target_message_index"] = len(messages) - 1
		}
	}

	return contract.DatasetExample{
		ID:                 fmt.Sprintf("ex_%d", seq),
		Case:               tc.Case,
		Format:             format,
		UseCaseID:          tc.UseCaseID,
		TestCaseID:         tc.ID,
		Input:              input,
		ExpectedOutput:     rec.ExpectedOutput,
		EvaluationCriteria: criteria,
		PolicyIDs:          tc.PolicyIDs,
		Metadata:           metadata,
	}
}
