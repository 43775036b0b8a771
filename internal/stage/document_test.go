package stage

import (
	"strings"
	"testing"
)

// TestNumbered verifies the numbered-line rendering.
func TestNumbered(t *testing.T) {
	doc := Document{Name: "doc.md", Lines: []string{"first", "second"}}
	got := doc.Numbered()
	want := "   1 | first\n   2 | second"
	if got != want {
		t.Fatalf("unexpected numbering:\n%q\nwant\n%q", got, want)
	}
}

// TestDetectCaseSupport verifies support documents are classified.
func TestDetectCaseSupport(t *testing.T) {
	doc := Document{Lines: []string{
		"The bot handles order and delivery questions,",
		"refund requests, and FAQ lookups from tickets.",
	}}
	if got := DetectCase(doc); got != CaseSupportBot {
		t.Fatalf("expected support_bot, got %s", got)
	}
}

// TestDetectCaseQuality verifies operator quality documents are classified.
func TestDetectCaseQuality(t *testing.T) {
	doc := Document{Lines: []string{
		"Review operator messages in the clinic chat for quality:",
		"punctuation, medical terminology, and escalation handling.",
	}}
	if got := DetectCase(doc); got != CaseOperatorQuality {
		t.Fatalf("expected operator_quality, got %s", got)
	}
}

// TestDetectCaseTieGoesToSupport verifies ties pick support_bot.
func TestDetectCaseTieGoesToSupport(t *testing.T) {
	doc := Document{Lines: []string{"nothing matches here"}}
	if got := DetectCase(doc); got != CaseSupportBot {
		t.Fatalf("expected tie to pick support_bot, got %s", got)
	}
}

// TestLoadDocument verifies documents load with stripped line endings.
func TestLoadDocument(t *testing.T) {
	path := writeTempDoc(t, "a\r\nb\n")
	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Lines) != 2 || doc.Lines[0] != "a" || doc.Lines[1] != "b" {
		t.Fatalf("unexpected lines: %q", doc.Lines)
	}
	if strings.Contains(doc.Name, "/") {
		t.Fatalf("expected base name, got %q", doc.Name)
	}
}
