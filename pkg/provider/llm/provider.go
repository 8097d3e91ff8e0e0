// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI GPT-4o, an
// Anthropic model behind any-llm, or a local Ollama instance) and exposes a
// uniform interface for the Plenum meeting engine to perform free-text
// completions and schema-constrained completions without coupling to any
// specific SDK.
//
// Implementors must be safe for concurrent use: one provider instance is
// shared by every meeting running in the process.
package llm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/plenum-ai/plenum/pkg/types"
)

// ErrSchemaViolation is returned (possibly wrapped) by CompleteStructured when
// the model's output does not satisfy the declared schema. Callers are
// expected to treat it as a recoverable fault and substitute a safe fallback
// value rather than aborting the meeting.
var ErrSchemaViolation = errors.New("llm: output violates declared schema")

// Usage holds token accounting information returned by the LLM backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Provided as a
	// convenience; some providers return it directly rather than computing it
	// from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a free-text
// response. Callers should treat a zero-value request as invalid; at minimum
// Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []types.Message

	// Temperature controls output randomness in the range [0.0, 2.0]. Lower
	// values produce more deterministic outputs; higher values increase
	// creativity. The meeting engine derives this from the current stage.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// StructuredRequest carries a completion request whose output must match a
// declared JSON schema.
type StructuredRequest struct {
	// Messages is the ordered conversation history, as in CompletionRequest.
	Messages []types.Message

	// Temperature controls output randomness, as in CompletionRequest.
	Temperature float64

	// MaxTokens caps completion tokens. Zero means provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction.
	SystemPrompt string

	// SchemaName is a short identifier for the schema (e.g., "meeting_turn").
	// Some backends require a name for their structured-output mode.
	SchemaName string

	// Schema is the JSON Schema the output value must satisfy.
	Schema map[string]any
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// Each method should propagate context cancellation promptly: when ctx is
// cancelled the method must return as quickly as possible.
type Provider interface {
	// Complete sends req to the model and waits for the full free-text
	// response. Returns an error if the request fails or if ctx is cancelled
	// before the completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteStructured sends req to the model in constrained-output mode and
	// returns the raw JSON value. The value is guaranteed to be syntactically
	// valid JSON; whether it satisfies req.Schema depends on the backend —
	// providers with native structured output enforce the schema server-side,
	// others validate locally and return an error wrapping [ErrSchemaViolation]
	// on mismatch.
	CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)

	// Capabilities returns static metadata describing what this provider's
	// underlying model supports. The result is assumed to be constant for the
	// lifetime of the Provider instance.
	Capabilities() types.ModelCapabilities
}
