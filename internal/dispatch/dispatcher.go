package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// ToolCaller is the remote tool-calling boundary: a named operation invoked
// with JSON-compatible parameters, returning opaque JSON. Failures must be
// reported as *ToolError so the dispatcher can classify them.
type ToolCaller interface {
	Call(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error)
}

// Policy is the declarative retry policy applied uniformly to every
// operation: which kinds retry is fixed (Kind.Retryable), the backoff shape
// and attempt cap live here.
type Policy struct {
	// MaxAttempts caps total attempts, first call included.
	MaxAttempts int
	// InitialBackoff seeds the exponential backoff when the boundary gives
	// no retry-after hint.
	InitialBackoff time.Duration
	// CallTimeout bounds each individual boundary call. It is deliberately
	// shorter than the backoff cap so one slow call cannot stall a
	// conversation.
	CallTimeout time.Duration
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		CallTimeout:    15 * time.Second,
	}
}

// Dispatcher validates parameters and invokes remote operations with the
// retry policy applied.
type Dispatcher struct {
	caller ToolCaller
	policy Policy
	log    *logging.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher over the given boundary.
func NewDispatcher(caller ToolCaller, policy Policy, log *logging.Logger) *Dispatcher {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	return &Dispatcher{
		caller: caller,
		policy: policy,
		log:    log.Sub("dispatch"),
		sleep:  sleepCtx,
	}
}

// Invoke validates the collected parameters against the command schema and
// calls the bound operation. Validation failure short-circuits without
// touching the boundary. Only Timeout and RateLimited outcomes are retried;
// an exhausted retry surfaces as the last observed kind.
func (d *Dispatcher) Invoke(ctx context.Context, def *command.Definition, raw map[string]string) Result {
	params, err := ValidateParams(def, raw)
	if err != nil {
		return Result{
			Kind:      KindInvalidParameter,
			Operation: def.Operation,
			Message:   err.Error(),
		}
	}

	backoff := d.policy.InitialBackoff
	var last Result

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		last = d.callOnce(ctx, def.Operation, params)
		last.Attempts = attempt

		if last.OK() || !last.Kind.Retryable() {
			return last
		}

		d.log.Warn().
			Str("operation", def.Operation).
			Str("kind", string(last.Kind)).
			Int("attempt", attempt).
			Msg("transient tool failure")

		if attempt == d.policy.MaxAttempts {
			break
		}

		wait := backoff
		if last.RetryAfter > 0 {
			wait = last.RetryAfter
		}
		if err := d.sleep(ctx, wait); err != nil {
			return last
		}
		backoff *= 2
	}

	return last
}

func (d *Dispatcher) callOnce(ctx context.Context, operation string, params map[string]any) Result {
	callCtx, cancel := context.WithTimeout(ctx, d.policy.CallTimeout)
	defer cancel()

	payload, err := d.caller.Call(callCtx, operation, params)
	if err == nil {
		return Result{Kind: KindSuccess, Operation: operation, Payload: payload}
	}

	var terr *ToolError
	if errors.As(err, &terr) {
		return Result{
			Kind:       terr.Kind,
			Operation:  operation,
			Message:    terr.Message,
			RetryAfter: terr.RetryAfter,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Kind: KindTimeout, Operation: operation, Message: "tool call timed out"}
	}
	return Result{Kind: KindRemoteInternal, Operation: operation, Message: err.Error()}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
