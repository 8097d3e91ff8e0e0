package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/types"
)

// RetryConfig tunes a [Retry] wrapper. Zero fields take the defaults noted
// per field.
type RetryConfig struct {
	// Timeout bounds every underlying call. Default 30s.
	Timeout time.Duration

	// Delay is the base wait before the single retry. Default 200ms.
	Delay time.Duration

	// Jitter is the maximum random addition to Delay. Default 300ms.
	Jitter time.Duration
}

// Retry implements [llm.Provider] around another provider, bounding each call
// with a timeout and retrying a transient failure exactly once after a
// jittered delay. Schema violations and caller cancellation are not
// transient and pass through unretried.
type Retry struct {
	next llm.Provider
	cfg  RetryConfig
}

var _ llm.Provider = (*Retry)(nil)

// NewRetry wraps next with timeout and single-retry behaviour.
func NewRetry(next llm.Provider, cfg RetryConfig) *Retry {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 200 * time.Millisecond
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = 300 * time.Millisecond
	}
	return &Retry{next: next, cfg: cfg}
}

// Complete forwards the request, retrying once on transient failure.
func (r *Retry) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return retryCall(ctx, r.cfg, func(callCtx context.Context) (*llm.CompletionResponse, error) {
		return r.next.Complete(callCtx, req)
	})
}

// CompleteStructured forwards the request, retrying once on transient
// failure.
func (r *Retry) CompleteStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	return retryCall(ctx, r.cfg, func(callCtx context.Context) (json.RawMessage, error) {
		return r.next.CompleteStructured(callCtx, req)
	})
}

// Capabilities delegates to the wrapped provider.
func (r *Retry) Capabilities() types.ModelCapabilities {
	return r.next.Capabilities()
}

func retryCall[R any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (R, error)) (R, error) {
	run := func() (R, error) {
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return fn(callCtx)
	}

	result, err := run()
	if err == nil || !transient(ctx, err) {
		return result, err
	}

	wait := cfg.Delay + rand.N(cfg.Jitter)
	slog.Debug("transient backend failure, retrying once", "wait", wait, "error", err)
	select {
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	case <-time.After(wait):
	}
	return run()
}

// transient reports whether err is worth one retry. Caller cancellation and
// schema violations are final.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, llm.ErrSchemaViolation)
}
