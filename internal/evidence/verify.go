// Package evidence decides whether a claimed evidence entry is honest
// about the source document: the quoted text must actually occur within
// the claimed line range, tolerating whitespace re-wrapping.
package evidence

import (
	"fmt"
	"strings"

	"casegen/internal/contract"
)

// Kind classifies an evidence verification failure.
type Kind string

const (
	KindQuoteNotFound    Kind = "quote_not_found"
	KindLocationMismatch Kind = "location_mismatch"
	KindOutOfRange       Kind = "out_of_range"
)

// Error reports a failed evidence check.
type Error struct {
	Kind   Kind
	Detail string
}

// Error renders the failure kind and detail.
func (err *Error) Error() string {
	if err.Detail == "" {
		return string(err.Kind)
	}
	return fmt.Sprintf("%s: %s", err.Kind, err.Detail)
}

// Verify checks one evidence entry against the document lines. The
// sentinel range 0,0 means "no specific location": the quote only has to
// occur somewhere in the document. Any returned error is a *Error.
//
// LLM-produced citations are unreliable about exact offsets, so the check
// is substring-after-normalization: strict enough to catch fabricated
// evidence, tolerant of incidental re-wrapping.
func Verify(ev contract.Evidence, lines []string) error {
	quote := Normalize(ev.Quote)
	if quote == "" {
		return nil
	}
	if ev.Sentinel() {
		if !strings.Contains(Normalize(strings.Join(lines, "\n")), quote) {
			return &Error{Kind: KindQuoteNotFound, Detail: "quote does not occur in the document"}
		}
		return nil
	}
	if ev.LineStart < 1 || ev.LineEnd > len(lines) {
		return &Error{
			Kind:   KindOutOfRange,
			Detail: fmt.Sprintf("line range %d-%d out of bounds (document has %d lines)", ev.LineStart, ev.LineEnd, len(lines)),
		}
	}
	window := Normalize(strings.Join(lines[ev.LineStart-1:ev.LineEnd], "\n"))
	if !strings.Contains(window, quote) {
		return &Error{
			Kind:   KindLocationMismatch,
			Detail: fmt.Sprintf("quote does not match lines %d-%d", ev.LineStart, ev.LineEnd),
		}
	}
	return nil
}

// Normalize collapses whitespace runs to single spaces and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
