package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/observe"
	"github.com/plenum-ai/plenum/pkg/provider/llm"
	"github.com/plenum-ai/plenum/pkg/types"
)

// Candidate-selection weights.
const (
	heuristicWeight = 0.7
	criticWeight    = 0.3
)

// defaultCandidates is how many turn candidates are generated per agent step.
const defaultCandidates = 3

// LLM is the production [Adapter]. One LLM value may serve many concurrent
// meetings; its fallback randomness is guarded by a mutex while meeting-level
// determinism lives in the engine's own seeded state.
type LLM struct {
	provider     llm.Provider
	candidates   int
	metrics      *observe.Metrics
	providerName string

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Adapter = (*LLM)(nil)

// Option configures an [LLM].
type Option func(*LLM)

// WithCandidates overrides the number of turn candidates generated per step.
func WithCandidates(k int) Option {
	return func(l *LLM) {
		if k > 0 {
			l.candidates = k
		}
	}
}

// WithRand overrides the fallback random source. Intended for tests.
func WithRand(rng *rand.Rand) Option {
	return func(l *LLM) { l.rng = rng }
}

// WithMetrics instruments every backend call with latency, request, and error
// metrics, labelled with the given provider name.
func WithMetrics(m *observe.Metrics, provider string) Option {
	return func(l *LLM) {
		l.metrics = m
		l.providerName = provider
	}
}

// NewLLM returns an adapter backed by the given provider.
func NewLLM(p llm.Provider, opts ...Option) *LLM {
	l := &LLM{
		provider:   p,
		candidates: defaultCandidates,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// complete wraps Provider.Complete with call instrumentation for a role.
func (l *LLM) complete(ctx context.Context, role string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := l.provider.Complete(ctx, req)
	l.record(ctx, role, start, err)
	return resp, err
}

// completeStructured wraps Provider.CompleteStructured with call
// instrumentation for a role.
func (l *LLM) completeStructured(ctx context.Context, role string, req llm.StructuredRequest) (json.RawMessage, error) {
	start := time.Now()
	raw, err := l.provider.CompleteStructured(ctx, req)
	l.record(ctx, role, start, err)
	return raw, err
}

func (l *LLM) record(ctx context.Context, role string, start time.Time, err error) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordLLMDuration(ctx, role, time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
		l.metrics.RecordProviderError(ctx, l.providerName, role)
	}
	l.metrics.RecordProviderRequest(ctx, l.providerName, role, status)
}

// Plan picks the speech act and objective for the next utterance. On any
// provider or schema failure it falls back to the stage's first speech act.
func (l *LLM) Plan(ctx context.Context, req PlanRequest) (dialog.PlanSpec, error) {
	if err := ctx.Err(); err != nil {
		return dialog.PlanSpec{}, err
	}

	acts := dialog.SpeechActs[req.Stage]
	prompt := fmt.Sprintf(`You are planning a SHORT meeting utterance.
Agent: %s (%s)
Stage: %s
Stage brief: %s
Recent context: %s

Choose one speech act from [%s] and write a one-line objective for the utterance.`,
		req.Agent, req.Persona, req.Stage, dialog.StageBriefs[req.Stage],
		req.MemoryBrief, strings.Join(acts, ", "))

	raw, err := l.completeStructured(ctx, "plan", llm.StructuredRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: plannerTemperature,
		SchemaName:  "plan_spec",
		Schema:      planSchema(),
	})
	if err != nil {
		slog.Debug("planner fallback", "stage", req.Stage, "agent", req.Agent, "error", err)
		return fallbackPlan(req.Stage), ctx.Err()
	}
	var plan dialog.PlanSpec
	if err := json.Unmarshal(raw, &plan); err != nil || plan.SpeechAct == "" {
		return fallbackPlan(req.Stage), nil
	}
	return plan, nil
}

func fallbackPlan(stage dialog.Stage) dialog.PlanSpec {
	acts := dialog.SpeechActs[stage]
	act := "statement"
	if len(acts) > 0 {
		act = acts[0]
	}
	return dialog.PlanSpec{
		SpeechAct: act,
		Objective: "Contribute one concrete point toward the stage goal.",
	}
}

// Generate produces the agent's turn. It fans out candidate generations in
// parallel, scores each candidate 0.7 heuristic + 0.3 critic, and returns the
// argmax. When every candidate fails schema validation it returns the minimal
// safe turn so the meeting keeps moving.
func (l *LLM) Generate(ctx context.Context, req TurnRequest) (*dialog.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := buildTurnPrompt(req)
	temp := StageTemperature(req.Stage, req.Tuning)

	turns := make([]*dialog.Turn, l.candidates)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < l.candidates; i++ {
		g.Go(func() error {
			raw, err := l.completeStructured(gctx, "generate", llm.StructuredRequest{
				Messages:    []types.Message{{Role: "user", Content: prompt}},
				Temperature: temp,
				SchemaName:  "meeting_turn",
				Schema:      turnSchema(),
			})
			if err != nil {
				slog.Debug("candidate generation failed", "stage", req.Stage, "agent", req.Agent, "error", err)
				return nil
			}
			var t dialog.Turn
			if err := json.Unmarshal(raw, &t); err != nil {
				slog.Debug("candidate unmarshal failed", "stage", req.Stage, "error", err)
				return nil
			}
			turns[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var best *dialog.Turn
	bestScore := -1.0
	for _, t := range turns {
		if t == nil {
			continue
		}
		h := HeuristicScore(t.Message, req.Stage, req.RecentLines)
		c := l.criticScore(ctx, req, t.Message)
		if score := heuristicWeight*h + criticWeight*c; score > bestScore {
			best, bestScore = t, score
		}
	}
	if best == nil {
		return l.safeTurn(req), nil
	}
	return best, nil
}

// criticScore asks the zero-temperature critic for an overall rating. A
// failed call reads as 0.5 so a single bad critic response cannot sink an
// otherwise fine candidate.
func (l *LLM) criticScore(ctx context.Context, req TurnRequest, candidate string) float64 {
	recent := req.RecentLines
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	prompt := fmt.Sprintf(`You are a meeting dialogue critic. Rate the following candidate (0..1) on novelty, stage-fit, and usefulness, and give an overall 0..1.
Stage: %s
Persona: %s
Stage brief: %s
Recent lines: %s
Candidate: %s`,
		req.Stage, req.Persona, dialog.StageBriefs[req.Stage],
		strings.Join(recent, " | "), candidate)

	raw, err := l.completeStructured(ctx, "critic", llm.StructuredRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: criticTemperature,
		SchemaName:  "critic_score",
		Schema:      criticSchema(),
	})
	if err != nil {
		return 0.5
	}
	var sc dialog.CriticScore
	if err := json.Unmarshal(raw, &sc); err != nil {
		return 0.5
	}
	if sc.Overall < 0 {
		return 0
	}
	if sc.Overall > 1 {
		return 1
	}
	return sc.Overall
}

// safeTurn is the documented minimal turn used when no candidate survives.
func (l *LLM) safeTurn(req TurnRequest) *dialog.Turn {
	l.mu.Lock()
	responder := dialog.PickAlternate(l.rng, req.Agent, req.Agents)
	l.mu.Unlock()
	return &dialog.Turn{
		Asker:     req.Agent,
		Question:  req.Issue,
		Responder: responder,
		Message:   "Let's move on.",
		Reaction:  string(dialog.ReactionAccept),
		NextStage: string(req.Stage),
	}
}

// EvaluateOption scores an option text on the six criteria. On failure every
// attribute reads 0.5.
func (l *LLM) EvaluateOption(ctx context.Context, text string) (dialog.OptionEval, error) {
	if err := ctx.Err(); err != nil {
		return dialog.NeutralOptionEval(), err
	}

	prompt := fmt.Sprintf(`Rate this option on 0..1 (higher is better) for: cost (affordability), risk (safety), speed, fairness, innovation, consensus likelihood.
Option: %s`, text)

	raw, err := l.completeStructured(ctx, "analyst", llm.StructuredRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: analystTemperature,
		SchemaName:  "option_eval",
		Schema:      optionEvalSchema(),
	})
	if err != nil {
		slog.Debug("option evaluation fallback", "error", err)
		return dialog.NeutralOptionEval(), ctx.Err()
	}
	var ev dialog.OptionEval
	if err := json.Unmarshal(raw, &ev); err != nil {
		return dialog.NeutralOptionEval(), nil
	}
	return ev.Clamp(), nil
}

// Guidance produces the chair's short steering line. Failures surface as a
// fixed fallback so the loop always makes progress.
func (l *LLM) Guidance(ctx context.Context, req GuidanceRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	recent := req.Recent
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	prompt := fmt.Sprintf(`You are the Chair (%s).
Current stage: %s
Goal: %s
Issue: %s

Transcript so far (last %d turns):
%s

Give a short chair instruction (1-2 sentences) that pushes attendees closer to the goal of this stage.
Always be working to get the team to proceed towards the goal for the current stage.
Don't repeat yourself.
Be firm, fair and direct.`,
		req.Chair, req.Stage, dialog.StageGoals[req.Stage], req.Issue,
		len(recent), strings.Join(recent, " | "))

	resp, err := l.complete(ctx, "guidance", llm.CompletionRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: guidanceTemperature,
		MaxTokens:   160,
	})
	if err != nil {
		slog.Debug("chair guidance fallback", "stage", req.Stage, "error", err)
		return "Let's continue.", ctx.Err()
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "Let's continue.", nil
	}
	return text, nil
}

// Summarize condenses the recent dialogue into a running summary.
func (l *LLM) Summarize(ctx context.Context, recent []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prompt := "Summarize briefly the last part of the meeting:\n" + strings.Join(recent, "\n")
	resp, err := l.complete(ctx, "summary", llm.CompletionRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: summaryTemperature,
		MaxTokens:   240,
	})
	if err != nil {
		return "", fmt.Errorf("prompt: summarize: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// SummarizeMeeting renders the final meeting narrative.
func (l *LLM) SummarizeMeeting(ctx context.Context, req FinalSummaryRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	actions := "None"
	if len(req.Actions) > 0 {
		actions = "- " + strings.Join(req.Actions, "\n- ")
	}
	prompt := fmt.Sprintf(`You are a helpful meeting assistant. Summarize the following meeting:

Issue discussed: %s
Final decision: %s
Options overview:
%s

Actions raised:
%s

Meeting dialogue:
%s

Guidelines:
- Provide a concise narrative of how the conversation unfolded.
- Highlight the main concerns, options discussed, and key tradeoffs.
- Emphasize the role of the chair (%s) in directing the discussion.
- List all actions clearly at the end.
- End with the final decision.`,
		req.Issue, req.Decision, req.OptionsSummary, actions,
		strings.Join(req.Dialogue, "\n"), req.Chair)

	resp, err := l.complete(ctx, "summary", llm.CompletionRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("prompt: summarize meeting: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// buildTurnPrompt assembles the candidate-generation prompt from the memory
// pack and the plan.
func buildTurnPrompt(req TurnRequest) string {
	unresolved := "None"
	if len(req.Unresolved) > 0 {
		unresolved = strings.Join(req.Unresolved, "\n")
	}
	options := req.OptionsBrief
	if options == "" {
		options = "None"
	}
	return fmt.Sprintf(`Agent: %s
Persona: %s

Stage: %s -> Goal: %s
Stage micro-brief: %s
Chosen speech act: %s
Objective: %s

Issue: %s
Agents: %s

Recent dialogue (last %d turns):
%s

Unresolved questions: %s
Options on table: %s

Behavior Rules:
- Match your speech act and stage brief.
- Keep it short (<=2 sentences unless 'discuss').
- Do not impersonate the chair.
- Don't ask duplicate or similar questions.
- Build on the discussion answering questions, or adding to the discussion to progress the stage goal.

%s`,
		req.Agent, req.Persona,
		req.Stage, dialog.StageGoals[req.Stage], dialog.StageBriefs[req.Stage],
		req.Plan.SpeechAct, req.Plan.Objective,
		req.Issue, strings.Join(req.Agents, ", "),
		len(req.RecentLines), strings.Join(req.RecentLines, "\n"),
		unresolved, options,
		dialog.QualityChecklist)
}
