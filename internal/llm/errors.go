// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated reports a missing or rejected provider credential.
// Callers surface it without retrying.
var ErrUnauthenticated = errors.New("unauthenticated: missing or invalid API key")

// ErrEmptyResult reports a stage that produced nothing usable, usually
// because the model output did not parse. It is a soft failure: the session
// continues and the stage can be re-run.
var ErrEmptyResult = errors.New("stage produced an empty result")

// ProviderError wraps a network, rate-limit, or server failure from a model
// or embedding provider. The call can be re-triggered; no state was changed.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SchemaParseError reports model output that did not decode into the
// requested schema. Stages recover by substituting an empty result.
type SchemaParseError struct {
	Raw string
	Err error
}

func (e *SchemaParseError) Error() string {
	raw := e.Raw
	if len(raw) > 120 {
		raw = raw[:117] + "..."
	}
	return fmt.Sprintf("parsing model output %q: %v", raw, e.Err)
}

func (e *SchemaParseError) Unwrap() error { return e.Err }

// IsSchemaParse reports whether err is, or wraps, a SchemaParseError.
func IsSchemaParse(err error) bool {
	var spe *SchemaParseError
	return errors.As(err, &spe)
}
