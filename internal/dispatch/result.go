// Package dispatch invokes bound remote operations through the tool-calling
// boundary: it validates parameters against the command schema, classifies
// boundary failures, and applies the retry policy.
package dispatch

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies the outcome of a dispatch.
type Kind string

const (
	KindSuccess          Kind = "success"
	KindInvalidParameter Kind = "invalid_parameter"
	KindTimeout          Kind = "timeout"
	KindRateLimited      Kind = "rate_limited"
	KindUnauthorized     Kind = "unauthorized"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindRemoteInternal   Kind = "remote_internal"
)

// Retryable reports whether a failure of this kind may be retried.
// Only transient outcomes qualify.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindRateLimited
}

// Result is the transient outcome of one dispatch: either a success payload
// or a classified error. It is never persisted.
type Result struct {
	Kind       Kind            `json:"kind"`
	Operation  string          `json:"operation,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Message    string          `json:"message,omitempty"`
	RetryAfter time.Duration   `json:"retryAfter,omitempty"`
	Attempts   int             `json:"attempts,omitempty"`
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool { return r.Kind == KindSuccess }

// ToolError is a classified failure from the remote tool-calling boundary.
type ToolError struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool call failed (%s): %s", e.Kind, e.Message)
}
