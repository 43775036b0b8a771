package evidence

import (
	"errors"
	"testing"

	"casegen/internal/contract"
)

var docLines = []string{
	"# Support bot requirements",
	"",
	"The bot must greet the user politely",
	"and answer order status questions.",
	"Refunds are escalated to a human.",
}

func verifyKind(t *testing.T, ev contract.Evidence, want Kind) {
	t.Helper()
	err := Verify(ev, docLines)
	if err == nil {
		t.Fatalf("expected %s error", want)
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if verr.Kind != want {
		t.Fatalf("expected kind %s, got %s", want, verr.Kind)
	}
}

// TestVerifyExactQuote verifies a quote found at its claimed location passes.
func TestVerifyExactQuote(t *testing.T) {
	ev := contract.Evidence{SourceFile: "doc.md", LineStart: 3, LineEnd: 3, Quote: "greet the user"}
	if err := Verify(ev, docLines); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
}

// TestVerifyWhitespaceTolerance verifies re-wrapped quotes still match.
func TestVerifyWhitespaceTolerance(t *testing.T) {
	ev := contract.Evidence{
		SourceFile: "doc.md",
		LineStart:  3,
		LineEnd:    4,
		Quote:      "greet the user politely\n   and answer   order status",
	}
	if err := Verify(ev, docLines); err != nil {
		t.Fatalf("expected whitespace-normalized match, got %v", err)
	}
}

// TestVerifyLocationMismatch verifies a quote present elsewhere fails with location_mismatch.
func TestVerifyLocationMismatch(t *testing.T) {
	ev := contract.Evidence{SourceFile: "doc.md", LineStart: 1, LineEnd: 2, Quote: "order status"}
	verifyKind(t, ev, KindLocationMismatch)
}

// TestVerifyOutOfRange verifies ranges past the document fail with out_of_range.
func TestVerifyOutOfRange(t *testing.T) {
	ev := contract.Evidence{SourceFile: "doc.md", LineStart: 4, LineEnd: 99, Quote: "order status"}
	verifyKind(t, ev, KindOutOfRange)
}

// TestVerifySentinelSearchesWholeDocument verifies the 0,0 range searches everywhere.
func TestVerifySentinelSearchesWholeDocument(t *testing.T) {
	ev := contract.Evidence{SourceFile: "doc.md", Quote: "escalated to a human"}
	if err := Verify(ev, docLines); err != nil {
		t.Fatalf("expected sentinel match, got %v", err)
	}
	ev.Quote = "never written anywhere"
	verifyKind(t, ev, KindQuoteNotFound)
}

// TestVerifyEmptyQuotePasses verifies an empty quote is not checked.
func TestVerifyEmptyQuotePasses(t *testing.T) {
	ev := contract.Evidence{SourceFile: "doc.md", LineStart: 1, LineEnd: 1, Quote: "   "}
	if err := Verify(ev, docLines); err != nil {
		t.Fatalf("expected empty quote to pass, got %v", err)
	}
}

// TestSplitLines verifies line splitting semantics.
func TestSplitLines(t *testing.T) {
	lines := SplitLines("a\r\nb\nc\n")
	if len(lines) != 3 || lines[0] != "a" || lines[1] != "b" || lines[2] != "c" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

// TestNormalize verifies whitespace collapsing.
func TestNormalize(t *testing.T) {
	if got := Normalize("  a \t b\n\nc  "); got != "a b c" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
