package coverage

import "testing"

// TestDefaultSpec verifies the built-in requirement set.
func TestDefaultSpec(t *testing.T) {
	spec := Default()
	support, ok := spec.ForCase("support_bot")
	if !ok {
		t.Fatalf("expected support_bot coverage")
	}
	if len(support.RequiredSources) != 3 {
		t.Fatalf("expected 3 required sources, got %v", support.RequiredSources)
	}
	quality, ok := spec.ForCase("operator_quality")
	if !ok {
		t.Fatalf("expected operator_quality coverage")
	}
	if len(quality.RequiredFormats) != 2 {
		t.Fatalf("expected 2 required formats, got %v", quality.RequiredFormats)
	}
	if _, ok := spec.ForCase("other"); ok {
		t.Fatalf("expected no coverage for unknown case")
	}
}

// TestParseValid verifies a well-formed coverage file parses.
func TestParseValid(t *testing.T) {
	data := []byte(`version: 1
cases:
  - case: support_bot
    required_sources: [tickets, corner]
`)
	spec, err := Parse(data)
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	entry, ok := spec.ForCase("support_bot")
	if !ok || len(entry.RequiredSources) != 2 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

// TestParseUnknownField verifies unknown fields are rejected.
func TestParseUnknownField(t *testing.T) {
	data := []byte(`version: 1
cases: []
extra: true
`)
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected parse error for unknown field")
	}
}

// TestParseRejectsMultipleDocs verifies multiple YAML docs are rejected.
func TestParseRejectsMultipleDocs(t *testing.T) {
	data := []byte("version: 1\ncases: []\n---\nversion: 1\ncases: []\n")
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected parse error for multiple documents")
	}
}

// TestParseDuplicateCase verifies duplicate case entries are rejected.
func TestParseDuplicateCase(t *testing.T) {
	data := []byte(`version: 1
cases:
  - case: support_bot
  - case: support_bot
`)
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected parse error for duplicate case")
	}
}

// TestParseBadVersion verifies unsupported versions are rejected.
func TestParseBadVersion(t *testing.T) {
	data := []byte("version: 2\ncases: []\n")
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected parse error for version 2")
	}
}
