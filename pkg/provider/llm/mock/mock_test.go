package mock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/types"
)

func TestCompleteQueueThenStatic(t *testing.T) {
	t.Parallel()
	p := &Provider{
		CompleteResponses: []string{"first", "second"},
		CompleteContent:   "static",
	}

	for i, want := range []string{"first", "second", "static", "static"} {
		resp, err := p.Complete(context.Background(), llm.CompletionRequest{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.Content != want {
			t.Errorf("call %d content = %q, want %q", i, resp.Content, want)
		}
	}
}

func TestCompleteRecordsCalls(t *testing.T) {
	t.Parallel()
	p := &Provider{CompleteContent: "ok"}

	req := llm.CompletionRequest{
		SystemPrompt: "you chair a meeting",
		Temperature:  0.7,
		Messages:     []types.Message{{Role: "user", Content: "begin"}},
	}
	if _, err := p.Complete(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	if len(p.CompleteCalls) != 1 {
		t.Fatalf("recorded %d calls, want 1", len(p.CompleteCalls))
	}
	got := p.CompleteCalls[0].Req
	if got.SystemPrompt != req.SystemPrompt || got.Temperature != req.Temperature {
		t.Errorf("recorded request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "begin" {
		t.Errorf("recorded messages = %+v", got.Messages)
	}
}

func TestCompleteStructuredErrScripting(t *testing.T) {
	t.Parallel()
	transient := errors.New("boom")
	p := &Provider{
		StructuredErrs:    []error{transient, nil},
		StructuredPayload: json.RawMessage(`{"ok":true}`),
	}

	if _, err := p.CompleteStructured(context.Background(), llm.StructuredRequest{}); !errors.Is(err, transient) {
		t.Fatalf("first call error = %v, want scripted error", err)
	}
	raw, err := p.CompleteStructured(context.Background(), llm.StructuredRequest{})
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("payload = %s", raw)
	}
	if len(p.StructuredCalls) != 2 {
		t.Errorf("recorded %d structured calls, want 2", len(p.StructuredCalls))
	}
}

func TestCompleteStructuredNilPayloadYieldsEmptyObject(t *testing.T) {
	t.Parallel()
	p := &Provider{}
	raw, err := p.CompleteStructured(context.Background(), llm.StructuredRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{}` {
		t.Errorf("payload = %s, want {}", raw)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	p := &Provider{CompleteContent: "ok"}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.CompleteStructured(context.Background(), llm.StructuredRequest{}); err != nil {
		t.Fatal(err)
	}

	p.Reset()
	if len(p.CompleteCalls) != 0 || len(p.StructuredCalls) != 0 {
		t.Errorf("Reset() left %d/%d recorded calls", len(p.CompleteCalls), len(p.StructuredCalls))
	}
}
