package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Run ids name the manifest of a completed generation run and sort by
// completion time: a UTC timestamp second plus a random hex suffix that
// keeps concurrent runs distinct.
const (
	runIDTimeLayout  = "20060102T150405Z"
	runIDSuffixBytes = 6
)

// NewRunID returns a fresh run identifier.
func NewRunID() (string, error) {
	return newRunID(time.Now(), rand.Reader)
}

func newRunID(now time.Time, r io.Reader) (string, error) {
	buf := make([]byte, runIDSuffixBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("run id: %w", err)
	}
	return now.UTC().Format(runIDTimeLayout) + "-" + hex.EncodeToString(buf), nil
}
