package meeting

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/prompt"
	"github.com/plenum-ai/plenum/internal/roster"
)

// fakeAdapter is a scripted prompt.Adapter for engine tests. Generate is
// driven by the GenerateFunc hook; everything else returns fixed values.
type fakeAdapter struct {
	mu sync.Mutex

	// GenerateFunc produces the turn for each Generate call. Nil uses a
	// plain accepted exchange with a unique question.
	GenerateFunc func(n int, req prompt.TurnRequest) *dialog.Turn

	// Evals maps option text to scripted attribute scores. Missing texts
	// read neutral.
	Evals map[string]dialog.OptionEval

	GuidanceText string
	SummaryText  string
	FinalText    string

	generateCalls int
	planBriefs    []string
}

var _ prompt.Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) Plan(ctx context.Context, req prompt.PlanRequest) (dialog.PlanSpec, error) {
	if err := ctx.Err(); err != nil {
		return dialog.PlanSpec{}, err
	}
	f.mu.Lock()
	f.planBriefs = append(f.planBriefs, req.MemoryBrief)
	f.mu.Unlock()
	return dialog.PlanSpec{SpeechAct: "statement", Objective: "advance the stage"}, nil
}

func (f *fakeAdapter) Generate(ctx context.Context, req prompt.TurnRequest) (*dialog.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.generateCalls++
	n := f.generateCalls
	gen := f.GenerateFunc
	f.mu.Unlock()

	if gen != nil {
		return gen(n, req), nil
	}
	return plainTurn(n, req), nil
}

// plainTurn is an unremarkable accepted exchange with a unique question so
// the duplicate guard never fires.
func plainTurn(n int, req prompt.TurnRequest) *dialog.Turn {
	responder := ""
	for _, a := range req.Agents {
		if a != req.Agent {
			responder = a
			break
		}
	}
	return &dialog.Turn{
		Asker:     req.Agent,
		Question:  fmt.Sprintf("What about point %d?", n),
		Responder: responder,
		Message:   fmt.Sprintf("Here is thought number %d.", n),
		Reaction:  "accept",
	}
}

func (f *fakeAdapter) EvaluateOption(ctx context.Context, text string) (dialog.OptionEval, error) {
	if err := ctx.Err(); err != nil {
		return dialog.NeutralOptionEval(), err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev, ok := f.Evals[text]; ok {
		return ev, nil
	}
	return dialog.NeutralOptionEval(), nil
}

func (f *fakeAdapter) Guidance(ctx context.Context, req prompt.GuidanceRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.GuidanceText != "" {
		return f.GuidanceText, nil
	}
	return "Let's continue.", nil
}

func (f *fakeAdapter) Summarize(ctx context.Context, recent []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.SummaryText, nil
}

func (f *fakeAdapter) SummarizeMeeting(ctx context.Context, req prompt.FinalSummaryRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.FinalText != "" {
		return f.FinalText, nil
	}
	return "The meeting concluded.", nil
}

// newTestState builds a state over the default roster with a fixed seed.
func newTestState(t *testing.T) *State {
	t.Helper()
	return newState("pricing for product X", roster.Default(), Conditions{},
		rand.New(rand.NewPCG(11, 11)), nil)
}

// mixedStances sets stances so no consensus rule can fire.
func mixedStances(s *State) {
	s.stances["Alice"] = dialog.StanceFor
	s.stances["Bob"] = dialog.StanceAgainst
	s.stances["Charlie"] = dialog.StanceNeutral
	s.stances["Dana"] = dialog.StanceNeutral
}
