package evidence

import (
	"fmt"
	"os"
	"strings"
)

// ReadLines loads a source document as an ordered sequence of 1-based
// lines, with trailing line endings stripped.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return SplitLines(string(data)), nil
}

// SplitLines splits document content into lines, stripping \r\n and \n
// endings. A trailing newline does not produce a final empty line.
func SplitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	raw := strings.Split(content, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
