// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the requests the engine sends and to
// feed controlled responses without a live LLM backend. Responses can be
// scripted per call: Complete pops from CompleteResponses, CompleteStructured
// pops from StructuredResponses; when a queue is exhausted the corresponding
// static field is returned instead. All fields are safe to set before calling
// any method; mutating them during a concurrent call is the caller's
// responsibility.
//
// Example:
//
//	p := &mock.Provider{CompleteContent: "Let's begin."}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/types"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// StructuredCall records a single invocation of CompleteStructured.
type StructuredCall struct {
	// Ctx is the context passed to CompleteStructured.
	Ctx context.Context
	// Req is the StructuredRequest passed to CompleteStructured.
	Req llm.StructuredRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CompleteResponses is a queue of contents returned by successive Complete
	// calls. Once drained, CompleteContent is returned.
	CompleteResponses []string

	// CompleteContent is the static content returned by Complete when the
	// queue is empty.
	CompleteContent string

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// StructuredResponses is a queue of raw JSON payloads returned by
	// successive CompleteStructured calls. Once drained, StructuredPayload is
	// returned.
	StructuredResponses []json.RawMessage

	// StructuredPayload is the static payload returned by CompleteStructured
	// when the queue is empty. A nil payload yields `{}`.
	StructuredPayload json.RawMessage

	// StructuredErr, if non-nil, is returned as the error from CompleteStructured.
	StructuredErr error

	// StructuredErrs, if non-empty, is consumed one entry per call before
	// StructuredErr applies; nil entries mean "no error for this call". This
	// scripts transient failures for retry tests.
	StructuredErrs []error

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	// StructuredCalls records every invocation of CompleteStructured in order.
	StructuredCalls []StructuredCall
}

// Complete records the call and returns the next scripted content.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}

	content := p.CompleteContent
	if len(p.CompleteResponses) > 0 {
		content = p.CompleteResponses[0]
		p.CompleteResponses = p.CompleteResponses[1:]
	}
	return &llm.CompletionResponse{Content: content}, nil
}

// CompleteStructured records the call and returns the next scripted payload.
func (p *Provider) CompleteStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.StructuredCalls = append(p.StructuredCalls, StructuredCall{Ctx: ctx, Req: req})

	if len(p.StructuredErrs) > 0 {
		err := p.StructuredErrs[0]
		p.StructuredErrs = p.StructuredErrs[1:]
		if err != nil {
			return nil, err
		}
	} else if p.StructuredErr != nil {
		return nil, p.StructuredErr
	}

	payload := p.StructuredPayload
	if len(p.StructuredResponses) > 0 {
		payload = p.StructuredResponses[0]
		p.StructuredResponses = p.StructuredResponses[1:]
	}
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}
	return payload, nil
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelCapabilities
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.StructuredCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
