package stage

import (
	"fmt"
	"path/filepath"
	"strings"

	"casegen/internal/evidence"
)

// Document is the loaded source document a run generates from.
type Document struct {
	// Name is the base file name, used in evidence source_file fields.
	Name string
	// Lines holds the document content, 1-based when cited.
	Lines []string
}

// LoadDocument reads a source document from disk.
func LoadDocument(path string) (Document, error) {
	lines, err := evidence.ReadLines(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: filepath.Base(path), Lines: lines}, nil
}

// Numbered renders the document with 1-based line numbers so the model
// can cite line ranges.
func (doc Document) Numbered() string {
	var sb strings.Builder
	for i, line := range doc.Lines {
		fmt.Fprintf(&sb, "%4d | %s\n", i+1, line)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Case tags.
const (
	CaseSupportBot      = "support_bot"
	CaseOperatorQuality = "operator_quality"
)

var supportSignals = []string{"faq", "ticket", "order", "delivery", "refund", "return", "cart"}
var qualitySignals = []string{"quality", "operator", "review", "correction", "punctuation", "medical", "clinic"}

// DetectCase classifies the document as a support bot spec or an operator
// quality spec by keyword score. Ties go to support_bot.
func DetectCase(doc Document) string {
	lower := strings.ToLower(strings.Join(doc.Lines, "\n"))
	supportScore := 0
	for _, signal := range supportSignals {
		if strings.Contains(lower, signal) {
			supportScore++
		}
	}
	qualityScore := 0
	for _, signal := range qualitySignals {
		if strings.Contains(lower, signal) {
			qualityScore++
		}
	}
	if supportScore >= qualityScore {
		return CaseSupportBot
	}
	return CaseOperatorQuality
}
