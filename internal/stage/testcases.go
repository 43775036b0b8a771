package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"casegen/internal/contract"
	"casegen/internal/llm"
)

// variationAxes lists the parameter axes test cases vary over, per case
// type.
var variationAxes = map[string][]string{
	CaseSupportBot: {
		"tone", "has_order_id", "requires_account", "language", "abuse", "garbage",
	},
	CaseOperatorQuality: {
		"punctuation_errors", "slang", "medical_terms", "escalation_needed", "emoji",
	},
}

type rawTestCase struct {
	Parameters map[string]any `json:"parameters"`
	PolicyIDs  []string       `json:"policy_ids"`
}

// TestCases runs the second stage: for each use case the model proposes
// parameterized test cases over the variation axes. Policy references
// are filtered to the extracted policy set; a test case that names none
// falls back to the first two policies so every test case verifies
// something.
func (r *Runner) TestCases(ctx context.Context, useCases []contract.UseCase, policies []contract.Policy) ([]contract.TestCase, error) {
	if len(useCases) == 0 {
		return nil, &Error{Stage: "test_cases", Kind: KindCapability, Err: fmt.Errorf("no use cases to generate from")}
	}
	caseType := useCases[0].Case
	axes := variationAxes[caseType]
	if axes == nil {
		axes = variationAxes[CaseSupportBot]
	}

	policyIDs := make([]string, 0, len(policies))
	known := make(map[string]struct{}, len(policies))
	for _, policy := range policies {
		policyIDs = append(policyIDs, policy.ID)
		known[policy.ID] = struct{}{}
	}

	var all []contract.TestCase
	counter := 1
	for _, uc := range useCases {
		r.progressf("generating test cases for %s: %s", uc.ID, uc.Name)
		req := llm.Request{
			System:     testCaseSystemPrompt,
			Prompt:     testCasePrompt(r.Config.NTestCasesPerUC, uc, caseType, axes, policyIDs),
			WrapperKey: "test_cases",
		}
		var batch []contract.TestCase
		err := r.generate(ctx, "test_cases", req, func(records []json.RawMessage) (int, error) {
			batch = batch[:0]
			next := counter
			for _, raw := range records {
				if len(batch) == r.Config.NTestCasesPerUC {
					break
				}
				if err := checkRaw(testCaseSchema, raw); err != nil {
					continue
				}
				var rec rawTestCase
				if err := json.Unmarshal(raw, &rec); err != nil {
					continue
				}
				pids := filterPolicyIDs(rec.PolicyIDs, known)
				if len(pids) == 0 && len(policyIDs) > 0 {
					pids = policyIDs[:min(2, len(policyIDs))]
				}
				params := rec.Parameters
				if params == nil {
					params = map[string]any{}
				}
				tc := contract.TestCase{
					ID:         fmt.Sprintf("tc_%d", next),
					Case:       caseType,
					UseCaseID:  uc.ID,
					Parameters: params,
					PolicyIDs:  pids,
				}
				if err := contract.CheckTestCase(tc); err != nil {
					continue
				}
				batch = append(batch, tc)
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
	r.progressf("generated %d test cases", len(all))
	return all, nil
}

func filterPolicyIDs(ids []string, known map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
