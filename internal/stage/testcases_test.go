package stage

import (
	"context"
	"testing"

	"casegen/internal/contract"
)

func extractedFixture() ([]contract.UseCase, []contract.Policy) {
	evidence := []contract.Evidence{{SourceFile: "doc.md", LineStart: 1, LineEnd: 1, Quote: "# Support bot"}}
	useCases := []contract.UseCase{
		{ID: "uc_1", Case: CaseSupportBot, Name: "Order status", Description: "d", Evidence: evidence},
	}
	policies := []contract.Policy{
		{ID: "pol_1", Type: "must", Case: CaseSupportBot, Statement: "s1", Evidence: evidence},
		{ID: "pol_2", Type: "must_not", Case: CaseSupportBot, Statement: "s2", Evidence: evidence},
		{ID: "pol_3", Type: "style", Case: CaseSupportBot, Statement: "s3", Evidence: evidence},
	}
	return useCases, policies
}

// TestTestCasesSequencedAcrossUseCases verifies global sequential ids.
func TestTestCasesSequencedAcrossUseCases(t *testing.T) {
	useCases, policies := extractedFixture()
	useCases = append(useCases, contract.UseCase{
		ID: "uc_2", Case: CaseSupportBot, Name: "Refunds", Description: "d", Evidence: useCases[0].Evidence,
	})
	gen := newScriptedGen()
	gen.script("test_cases",
		`{"test_cases": [
			{"parameters": {"tone": "polite"}, "policy_ids": ["pol_1"]},
			{"parameters": {"tone": "angry"}, "policy_ids": ["pol_2"]}
		]}`,
		`{"test_cases": [
			{"parameters": {"tone": "neutral"}, "policy_ids": ["pol_3"]},
			{"parameters": {"tone": "confused"}, "policy_ids": ["pol_1", "pol_3"]}
		]}`,
	)

	testCases, err := testRunner(gen).TestCases(context.Background(), useCases, policies)
	if err != nil {
		t.Fatalf("test cases: %v", err)
	}
	if len(testCases) != 4 {
		t.Fatalf("expected 4 test cases, got %d", len(testCases))
	}
	wantIDs := []string{"tc_1", "tc_2", "tc_3", "tc_4"}
	for i, tc := range testCases {
		if tc.ID != wantIDs[i] {
			t.Fatalf("expected id %s, got %s", wantIDs[i], tc.ID)
		}
	}
	if testCases[2].UseCaseID != "uc_2" {
		t.Fatalf("expected tc_3 to belong to uc_2, got %s", testCases[2].UseCaseID)
	}
}

// TestTestCasesFiltersUnknownPolicies verifies the reference filter and
// the first-two fallback.
func TestTestCasesFiltersUnknownPolicies(t *testing.T) {
	useCases, policies := extractedFixture()
	gen := newScriptedGen()
	gen.script("test_cases", `{"test_cases": [
		{"parameters": {"tone": "polite"}, "policy_ids": ["pol_1", "pol_99"]},
		{"parameters": {"tone": "angry"}, "policy_ids": ["pol_404"]}
	]}`)

	testCases, err := testRunner(gen).TestCases(context.Background(), useCases, policies)
	if err != nil {
		t.Fatalf("test cases: %v", err)
	}
	if len(testCases) != 2 {
		t.Fatalf("expected 2 test cases, got %d", len(testCases))
	}
	if len(testCases[0].PolicyIDs) != 1 || testCases[0].PolicyIDs[0] != "pol_1" {
		t.Fatalf("expected unknown ids filtered, got %v", testCases[0].PolicyIDs)
	}
	if len(testCases[1].PolicyIDs) != 2 || testCases[1].PolicyIDs[0] != "pol_1" || testCases[1].PolicyIDs[1] != "pol_2" {
		t.Fatalf("expected first-two fallback, got %v", testCases[1].PolicyIDs)
	}
}

// TestTestCasesCapsPerUseCase verifies extra records are dropped.
func TestTestCasesCapsPerUseCase(t *testing.T) {
	useCases, policies := extractedFixture()
	gen := newScriptedGen()
	gen.script("test_cases", `{"test_cases": [
		{"parameters": {"a": 1}, "policy_ids": ["pol_1"]},
		{"parameters": {"a": 2}, "policy_ids": ["pol_1"]},
		{"parameters": {"a": 3}, "policy_ids": ["pol_1"]}
	]}`)

	testCases, err := testRunner(gen).TestCases(context.Background(), useCases, policies)
	if err != nil {
		t.Fatalf("test cases: %v", err)
	}
	if len(testCases) != 2 {
		t.Fatalf("expected cap at 2 test cases, got %d", len(testCases))
	}
}

// TestTestCasesRequiresUseCases verifies the empty input guard.
func TestTestCasesRequiresUseCases(t *testing.T) {
	_, policies := extractedFixture()
	if _, err := testRunner(newScriptedGen()).TestCases(context.Background(), nil, policies); err == nil {
		t.Fatalf("expected error for empty use case list")
	}
}
