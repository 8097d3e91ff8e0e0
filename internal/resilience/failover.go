package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/types"
)

// ErrAllFailed is returned when every backend in a [Group] fails or is
// circuit-broken.
var ErrAllFailed = errors.New("resilience: all backends failed")

// member pairs a backend with its dedicated circuit breaker.
type member[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Group routes calls across a primary and any number of fallbacks of the same
// backend type. Each member has its own circuit breaker; members are tried in
// registration order and broken members are skipped.
type Group[T any] struct {
	members []member[T]
	breaker BreakerConfig
}

// NewGroup creates a group with primary as the first member. breaker is the
// per-member circuit breaker template; its Name field is replaced per member.
func NewGroup[T any](name string, primary T, breaker BreakerConfig) *Group[T] {
	g := &Group[T]{breaker: breaker}
	g.Add(name, primary)
	return g
}

// Add appends a fallback backend. Fallbacks are tried in the order added.
func (g *Group[T]) Add(name string, backend T) {
	cfg := g.breaker
	cfg.Name = name
	g.members = append(g.members, member[T]{
		name:    name,
		value:   backend,
		breaker: NewBreaker(cfg),
	})
}

// Over tries fn against each member in order until one succeeds. It is a
// package-level function because Go methods cannot introduce type parameters.
func Over[T, R any](g *Group[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range g.members {
		m := &g.members[i]
		var result R
		err := m.breaker.Do(func() error {
			var callErr error
			result, callErr = fn(m.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend, circuit open", "backend", m.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", m.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// LLMFailover implements [llm.Provider] across multiple backends with
// per-backend circuit breakers.
type LLMFailover struct {
	group *Group[llm.Provider]
}

var _ llm.Provider = (*LLMFailover)(nil)

// NewLLMFailover creates a failover provider with primary as the preferred
// backend.
func NewLLMFailover(name string, primary llm.Provider, breaker BreakerConfig) *LLMFailover {
	return &LLMFailover{group: NewGroup(name, primary, breaker)}
}

// AddFallback registers an additional backend, tried after all earlier ones.
func (f *LLMFailover) AddFallback(name string, p llm.Provider) {
	f.group.Add(name, p)
}

// Complete forwards to the first healthy backend.
func (f *LLMFailover) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Over(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CompleteStructured forwards to the first healthy backend. A schema
// violation does not trigger failover: the model answered, it just answered
// badly, and the caller's documented fallback applies.
func (f *LLMFailover) CompleteStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	var schemaErr error
	raw, err := Over(f.group, func(p llm.Provider) (json.RawMessage, error) {
		raw, callErr := p.CompleteStructured(ctx, req)
		if errors.Is(callErr, llm.ErrSchemaViolation) {
			schemaErr = callErr
			return nil, nil
		}
		return raw, callErr
	})
	if err != nil {
		return nil, err
	}
	if schemaErr != nil {
		return nil, schemaErr
	}
	return raw, nil
}

// Capabilities returns the primary's capabilities. Static metadata does not
// participate in failover.
func (f *LLMFailover) Capabilities() types.ModelCapabilities {
	if len(f.group.members) > 0 {
		return f.group.members[0].value.Capabilities()
	}
	return types.ModelCapabilities{}
}
