package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/provider/llm/mock"
)

func retryCfg() RetryConfig {
	return RetryConfig{Timeout: time.Second, Delay: time.Millisecond, Jitter: time.Millisecond}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		StructuredErrs:    []error{errBoom, nil},
		StructuredPayload: []byte(`{"ok":true}`),
	}
	r := NewRetry(p, retryCfg())

	raw, err := r.CompleteStructured(context.Background(), llm.StructuredRequest{})
	if err != nil {
		t.Fatalf("CompleteStructured: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("payload = %s", raw)
	}
	if got := len(p.StructuredCalls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestRetryGivesUpAfterSecondFailure(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredErr: errBoom}
	r := NewRetry(p, retryCfg())

	if _, err := r.CompleteStructured(context.Background(), llm.StructuredRequest{}); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if got := len(p.StructuredCalls); got != 2 {
		t.Fatalf("calls = %d, want exactly 2", got)
	}
}

func TestRetrySkipsSchemaViolations(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredErr: llm.ErrSchemaViolation}
	r := NewRetry(p, retryCfg())

	if _, err := r.CompleteStructured(context.Background(), llm.StructuredRequest{}); !errors.Is(err, llm.ErrSchemaViolation) {
		t.Fatalf("err = %v", err)
	}
	if got := len(p.StructuredCalls); got != 1 {
		t.Fatalf("calls = %d, schema violations must not be retried", got)
	}
}

func TestRetryStopsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := &mock.Provider{CompleteErr: errBoom}
	r := NewRetry(p, retryCfg())

	cancel()
	if _, err := r.Complete(ctx, llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if got := len(p.CompleteCalls); got != 1 {
		t.Fatalf("calls = %d, cancelled calls must not be retried", got)
	}
}

func TestRetryComplete(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponses: []string{"hello"},
	}
	r := NewRetry(p, retryCfg())

	resp, err := r.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("content = %q", resp.Content)
	}
}
