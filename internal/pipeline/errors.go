// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// FinishPreviousSteps is the guard message shown when a branch is entered
// before the aggregate dimensions exist.
const FinishPreviousSteps = "Please finish the previous steps first."

// ErrBusy is returned when a stage is triggered while another stage of the
// same session is still running.
var ErrBusy = errors.New("another stage of this session is running")

// GuardError reports a pipeline invariant that blocked a stage. The session
// state is left untouched.
type GuardError struct {
	Stage   Stage
	Message string
}

func (e *GuardError) Error() string { return e.Message }

func guard(stage Stage, format string, args ...any) *GuardError {
	return &GuardError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// IsGuard reports whether err is, or wraps, a GuardError.
func IsGuard(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}

// PartialBatchFailure reports the items of a fan-out that failed while the
// rest of the batch completed. Failed items contribute an empty or
// placeholder result.
type PartialBatchFailure struct {
	Stage    Stage
	Total    int
	Failures map[string]error
}

func (e *PartialBatchFailure) Error() string {
	keys := slices.Sorted(maps.Keys(e.Failures))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, e.Failures[k])
	}
	return fmt.Sprintf("%s: %d of %d items failed: %s", e.Stage, len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the item errors to errors.Is and errors.As.
func (e *PartialBatchFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, k := range slices.Sorted(maps.Keys(e.Failures)) {
		errs = append(errs, e.Failures[k])
	}
	return errs
}

func partial(stage Stage, total int, failures map[string]error) error {
	if len(failures) == 0 {
		return nil
	}
	return &PartialBatchFailure{Stage: stage, Total: total, Failures: failures}
}
