package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"casegen/internal/corpus"
)

// renderReport prints a validation report: the per-kind record counts,
// then every finding, then the verdict.
func renderReport(w io.Writer, report corpus.Report, noColor bool) {
	stats := fmt.Sprintf("Use cases: %d | Policies: %d | Test cases: %d | Examples: %d",
		report.Stats.UseCases, report.Stats.Policies, report.Stats.TestCases, report.Stats.Examples)
	fmt.Fprintln(w, stylize(stats, noColor, lipgloss.Color("242")))

	for _, finding := range report.Errors {
		fmt.Fprintln(w, stylize("  "+finding.Error(), noColor, lipgloss.Color("160")))
	}

	if report.OK() {
		fmt.Fprintln(w, stylize("Validation OK", noColor, lipgloss.Color("35")))
		return
	}
	fmt.Fprintln(w, stylize(fmt.Sprintf("Validation failed: %d errors", len(report.Errors)), noColor, lipgloss.Color("160")))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
