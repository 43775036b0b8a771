package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"casegen/internal/contract"
	"casegen/internal/llm"
)

type rawEvidence struct {
	SourceFile string `json:"source_file"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
	Quote      string `json:"quote"`
}

type rawUseCase struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Evidence    []rawEvidence `json:"evidence"`
}

type rawPolicy struct {
	Type      string        `json:"type"`
	Statement string        `json:"statement"`
	Evidence  []rawEvidence `json:"evidence"`
}

// Extract runs the extraction stage: the document is classified, then use
// cases and policies are pulled out of it with line-cited evidence.
func (r *Runner) Extract(ctx context.Context, doc Document) ([]contract.UseCase, []contract.Policy, error) {
	caseType := DetectCase(doc)
	r.progressf("detected case type: %s", caseType)
	numbered := doc.Numbered()

	r.progressf("extracting use cases")
	useCases, err := r.extractUseCases(ctx, doc, numbered, caseType)
	if err != nil {
		return nil, nil, err
	}
	r.progressf("extracted %d use cases", len(useCases))

	r.progressf("extracting policies")
	policies, err := r.extractPolicies(ctx, doc, numbered, caseType)
	if err != nil {
		return nil, nil, err
	}
	r.progressf("extracted %d policies", len(policies))

	return useCases, policies, nil
}

func (r *Runner) extractUseCases(ctx context.Context, doc Document, numbered, caseType string) ([]contract.UseCase, error) {
	req := llm.Request{
		System:     extractSystemPrompt,
		Prompt:     useCasePrompt(r.Config.NUseCases, caseType, doc.Name, numbered),
		WrapperKey: "use_cases",
	}
	var useCases []contract.UseCase
	err := r.generate(ctx, "extract_use_cases", req, func(records []json.RawMessage) (int, error) {
		useCases = useCases[:0]
		for _, raw := range records {
			if len(useCases) == r.Config.NUseCases {
				break
			}
			if err := checkRaw(useCaseSchema, raw); err != nil {
				continue
			}
			var rec rawUseCase
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			uc := contract.UseCase{
				ID:          fmt.Sprintf("uc_%d", len(useCases)+1),
				Case:        caseType,
				Name:        rec.Name,
				Description: rec.Description,
				Evidence:    clampEvidence(rec.Evidence, doc),
			}
			if err := contract.CheckUseCase(uc); err != nil {
				continue
			}
			useCases = append(useCases, uc)
		}
		return len(useCases), nil
	})
	if err != nil {
		return nil, err
	}
	return useCases, nil
}

func (r *Runner) extractPolicies(ctx context.Context, doc Document, numbered, caseType string) ([]contract.Policy, error) {
	req := llm.Request{
		System:     extractSystemPrompt,
		Prompt:     policyPrompt(caseType, doc.Name, numbered),
		WrapperKey: "policies",
	}
	var policies []contract.Policy
	err := r.generate(ctx, "extract_policies", req, func(records []json.RawMessage) (int, error) {
		policies = policies[:0]
		for _, raw := range records {
			if err := checkRaw(policySchema, raw); err != nil {
				continue
			}
			var rec rawPolicy
			if err := json.Unmarshal(raw, &rec); err != nil {
				continue
			}
			polType := rec.Type
			if !validPolicyType(polType) {
				polType = "must"
			}
			policy := contract.Policy{
				ID:        fmt.Sprintf("pol_%d", len(policies)+1),
				Type:      polType,
				Case:      caseType,
				Statement: rec.Statement,
				Evidence:  clampEvidence(rec.Evidence, doc),
			}
			if err := contract.CheckPolicy(policy); err != nil {
				continue
			}
			policies = append(policies, policy)
		}
		return len(policies), nil
	})
	if err != nil {
		return nil, err
	}
	return policies, nil
}

func validPolicyType(polType string) bool {
	for _, candidate := range contract.PolicyTypes {
		if polType == candidate {
			return true
		}
	}
	return false
}

// clampEvidence repairs model-cited evidence against the real document:
// line ranges are clamped into bounds, and quotes that do not occur in
// the claimed range are replaced by the actual text of that range. The
// model is unreliable about offsets; the document is the ground truth.
func clampEvidence(entries []rawEvidence, doc Document) []contract.Evidence {
	if len(entries) == 0 {
		return []contract.Evidence{{SourceFile: doc.Name, LineStart: 1, LineEnd: 1, Quote: "N/A"}}
	}
	out := make([]contract.Evidence, 0, len(entries))
	for _, entry := range entries {
		lineStart := entry.LineStart
		if lineStart < 1 {
			lineStart = 1
		}
		if lineStart > len(doc.Lines) {
			lineStart = len(doc.Lines)
		}
		lineEnd := entry.LineEnd
		if lineEnd > len(doc.Lines) {
			lineEnd = len(doc.Lines)
		}
		if lineEnd < lineStart {
			lineEnd = lineStart
		}
		actual := strings.Join(doc.Lines[lineStart-1:lineEnd], "\n")
		quote := strings.TrimSpace(entry.Quote)
		if quote == "" || !strings.Contains(actual, quote) {
			quote = strings.TrimSpace(actual)
		}
		if quote == "" {
			quote = strings.TrimSpace(entry.Quote)
		}
		out = append(out, contract.Evidence{
			SourceFile: doc.Name,
			LineStart:  lineStart,
			LineEnd:    lineEnd,
			Quote:      quote,
		})
	}
	return out
}
