package stage

import (
	"encoding/json"
	"fmt"
	"strings"

	"casegen/internal/contract"
)

const (
	extractSystemPrompt = "You are an expert business analyst. You extract structured data from documents. " +
		"Always respond with valid JSON only."
	testCaseSystemPrompt = "You are a QA engineer generating test cases for LLM agent testing. " +
		"Always respond with valid JSON only."
	datasetSystemPrompt = "You are a dataset generator creating realistic test examples for LLM agent evaluation. " +
		"Always respond with valid JSON only."
)

func useCasePrompt(n int, caseType, sourceFile, numbered string) string {
	return fmt.Sprintf(`Analyze the following business requirements document and extract all distinct business use cases (scenarios).
The document has numbered lines for reference.

Document type: %s

DOCUMENT:
%s

Extract exactly %d use cases. For each use case provide:
- name: short name of the use case
- description: detailed description of what the use case covers
- evidence: array of objects with:
  - source_file: %q
  - line_start: starting line number in the document
  - line_end: ending line number
  - quote: exact quote from the document that supports this use case

Return a JSON object with key "use_cases" containing an array of use case objects.
`, caseType, numbered, n, sourceFile)
}

func policyPrompt(caseType, sourceFile, numbered string) string {
	return fmt.Sprintf(`Analyze the following business requirements document and extract all constraints, rules, and policies.

Document type: %s

DOCUMENT:
%s

Extract at least 8 policies. For each policy provide:
- type: one of "must", "must_not", "escalate", "style", "format"
  - "must": something the agent/operator MUST do
  - "must_not": something the agent/operator MUST NOT do
  - "escalate": conditions requiring escalation to a human or supervisor
  - "style": tone, language, communication style requirements
  - "format": formatting, structure requirements for responses
- statement: clear statement of the policy/rule
- evidence: array of objects with:
  - source_file: %q
  - line_start: starting line number in the document
  - line_end: ending line number
  - quote: exact quote from the document

Return a JSON object with key "policies" containing an array of policy objects.
`, caseType, numbered, sourceFile)
}

func testCasePrompt(n int, uc contract.UseCase, caseType string, axes, policyIDs []string) string {
	axesJSON, _ := json.Marshal(axes)
	idsJSON, _ := json.Marshal(policyIDs)
	return fmt.Sprintf(`Generate exactly %d test cases for the following use case.

Use Case:
- ID: %s
- Name: %s
- Description: %s
- Case type: %s

Available variation axes: %s

Available policy IDs: %s

For each test case:
- Assign unique parameter combinations using the variation axes
- Select 1-4 relevant policy_ids that this test case should verify
- Make test cases diverse, covering normal, edge, and adversarial scenarios

%s

Return a JSON object with key "test_cases" containing an array of objects:
- parameters: dict mapping axis names to values
- policy_ids: array of relevant policy IDs from the available list
`, n, uc.ID, uc.Name, uc.Description, caseType, axesJSON, idsJSON, axesDescription(caseType))
}

func axesDescription(caseType string) string {
	if caseType == CaseSupportBot {
		return `Axis values for support_bot:
- tone: "polite", "neutral", "angry", "confused"
- has_order_id: true/false, whether the user provides an order ID
- requires_account: true/false, whether the scenario requires account access
- language: "native", "mixed" for the language of the user message
- abuse: true/false, whether the user uses abusive language
- garbage: true/false, whether the input is nonsensical or random text`
	}
	return `Axis values for operator_quality:
- punctuation_errors: "none", "minor", "major" for the level of punctuation errors in operator text
- slang: true/false, whether the operator uses informal or slang language
- medical_terms: "correct", "incorrect", "missing" for the accuracy of medical terminology
- escalation_needed: true/false, whether the situation requires escalation
- emoji: "none", "appropriate", "excessive" for the emoji usage level`
}

func examplePrompt(n int, uc contract.UseCase, tc contract.TestCase, format string, policyStatements []string) string {
	paramsJSON, _ := json.MarshalIndent(tc.Parameters, "", "  ")
	base := fmt.Sprintf(`Generate exactly %d realistic test examples for LLM agent evaluation.

Use Case: %s
Description: %s
Case type: %s
Format: %s

Test parameters:
%s

Relevant policies:
%s
`, n, uc.Name, uc.Description, tc.Case, format, paramsJSON, strings.Join(policyStatements, "\n"))

	switch format {
	case "single_turn_qa":
		base += `
Each example should have:
- input: object with "messages" array containing a single message with role "user" and content (a user question or request)
- expected_output: the ideal assistant response
- evaluation_criteria: array of 3+ specific criteria to evaluate the response quality
- metadata: object (can be empty)

The user messages should be realistic, with typos, informal language, or varying levels of detail based on the test parameters.
`
	case "single_utterance_correction":
		base += `
Each example should have:
- input: object with "messages" array containing a single message with role "operator" and content (an operator message that may contain errors)
- expected_output: the corrected version of the operator's message
- evaluation_criteria: array of 3+ specific criteria for evaluating the correction
- metadata: object (can be empty)

The operator messages should reflect the test parameters (punctuation errors, slang, etc.).
`
	case "dialog_last_turn_correction":
		base += `
Each example should have:
- input: object with "messages" array containing 3-5 messages alternating between "user" and "operator" roles, where the LAST message is from the operator and may contain errors
- expected_output: the corrected version of the LAST operator message only
- evaluation_criteria: array of 3+ specific criteria for evaluating the correction
- metadata: object (can be empty)

The dialog should be realistic and contextually coherent. Errors should be in the last operator message.
`
	}

	base += `
Return a JSON object with key "examples" containing an array of example objects.
`
	return base
}
