// Package stage implements the three generation stages of a run:
// extraction of use cases and policies from the source document, test
// case generation, and dataset example generation. Each stage prompts
// the model, discards records that fail the raw-record schema, and
// retries within a bounded budget before failing the run.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"casegen/internal/config"
	"casegen/internal/llm"
)

// ErrorKind separates records that came back malformed from a model that
// could not produce anything usable at all.
type ErrorKind string

const (
	KindSchema     ErrorKind = "schema"
	KindCapability ErrorKind = "capability"
)

// Error is a stage failure after the attempt budget is exhausted.
type Error struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (err *Error) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", err.Stage, err.Kind, err.Err)
}

func (err *Error) Unwrap() error { return err.Err }

// maxAttempts bounds how many times a stage re-prompts after an attempt
// yields no usable records.
const maxAttempts = 3

// Runner holds the shared dependencies of the generation stages.
type Runner struct {
	Gen    llm.Generator
	Config config.Config
	// Progress, when set, receives human-readable progress lines.
	Progress func(format string, args ...any)
}

func (r *Runner) progressf(format string, args ...any) {
	if r.Progress != nil {
		r.Progress(format, args...)
	}
}

// generate runs one prompt with the stage attempt budget. accept
// inspects the response records and returns how many were usable; an
// attempt with zero usable records is retried. The final error is a
// *Error classifying the failure.
func (r *Runner) generate(ctx context.Context, stageName string, req llm.Request, accept func(records []json.RawMessage) (int, error)) error {
	var lastErr error
	kind := KindCapability
	for attempt := 0; attempt < maxAttempts; attempt++ {
		records, err := r.Gen.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			lastErr = err
			kind = KindCapability
			continue
		}
		used, err := accept(records)
		if err != nil {
			lastErr = err
			kind = KindSchema
			continue
		}
		if used == 0 {
			lastErr = fmt.Errorf("no usable records in response of %d", len(records))
			kind = KindSchema
			continue
		}
		return nil
	}
	return &Error{Stage: stageName, Kind: kind, Err: lastErr}
}
