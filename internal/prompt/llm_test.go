package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/observe"
	"github.com/plenum-ai/plenum/pkg/provider/llm/mock"
)

var testAgents = []string{"Alice", "Bob", "Charlie", "Dana"}

func testAdapter(p *mock.Provider) *LLM {
	return NewLLM(p, WithRand(rand.New(rand.NewPCG(7, 7))))
}

func TestStageTemperature(t *testing.T) {
	t.Parallel()

	almost := func(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

	if got := StageTemperature(dialog.StageOptions, Tuning{}); !almost(got, 0.8) {
		t.Fatalf("options base = %v", got)
	}
	if got := StageTemperature(dialog.StageConfirm, Tuning{}); !almost(got, 0.2) {
		t.Fatalf("confirm base = %v", got)
	}
	if got := StageTemperature(dialog.StageDiscuss, Tuning{Formality: 1}); !almost(got, 0.5) {
		t.Fatalf("full formality on discuss = %v", got)
	}
	if got := StageTemperature(dialog.StageOptions, Tuning{CreativityMode: true}); !almost(got, 0.95) {
		t.Fatalf("creativity on options = %v", got)
	}
	if got := StageTemperature(dialog.StageDiscuss, Tuning{CreativityMode: true}); !almost(got, 0.7) {
		t.Fatalf("creativity must only affect options, got %v", got)
	}
	if got := StageTemperature(dialog.StageConfirm, Tuning{Formality: 1}); !almost(got, 0.1) {
		t.Fatalf("temperature floor broken: %v", got)
	}
}

func TestHeuristicScore(t *testing.T) {
	t.Parallel()

	t.Run("keywords and digits raise the score", func(t *testing.T) {
		t.Parallel()
		plain := HeuristicScore("something vague", dialog.StageOptions, nil)
		rich := HeuristicScore("option: we could plan a 3-month pilot proposal", dialog.StageOptions, nil)
		if rich <= plain {
			t.Fatalf("rich %v <= plain %v", rich, plain)
		}
	})

	t.Run("overlap with recent lines penalizes", func(t *testing.T) {
		t.Parallel()
		recent := []string{"we should cut the marketing budget for the quarter"}
		fresh := HeuristicScore("raising prices preserves margin instead", dialog.StageDiscuss, recent)
		echo := HeuristicScore("we should cut the marketing budget", dialog.StageDiscuss, recent)
		if echo >= fresh {
			t.Fatalf("echo %v >= fresh %v", echo, fresh)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		t.Parallel()
		line := "the the the the the the the the the the the the the the the"
		recent := []string{line, line, line, line, line, line}
		if got := HeuristicScore(line, dialog.StageIntroduce, recent); got < 0 {
			t.Fatalf("score = %v", got)
		}
	})
}

func TestGenerateSelectsBestCandidate(t *testing.T) {
	t.Parallel()

	weak := `{"asker":"Bob","question":"ok?","responder":"Alice","message":"ok","reaction":"accept"}`
	strong := `{"asker":"Bob","question":"shall we?","responder":"Alice","message":"Option: we could plan a 3-month pilot proposal with 2 stores","reaction":"accept"}`
	p := &mock.Provider{
		StructuredResponses: []json.RawMessage{
			json.RawMessage(weak),
			json.RawMessage(strong),
			json.RawMessage(weak),
		},
		// Critic calls drain after the candidate queue and rate everything
		// the same, so the heuristic decides.
		StructuredPayload: json.RawMessage(`{"novelty":0.5,"stage_fit":0.5,"usefulness":0.5,"overall":0.5}`),
	}

	turn, err := testAdapter(p).Generate(context.Background(), TurnRequest{
		Stage:  dialog.StageOptions,
		Agent:  "Bob",
		Agents: testAgents,
		Issue:  "pricing",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if turn.Message != "Option: we could plan a 3-month pilot proposal with 2 stores" {
		t.Fatalf("picked %q", turn.Message)
	}
	// 3 candidates + 3 critic calls.
	if got := len(p.StructuredCalls); got != 6 {
		t.Fatalf("structured calls = %d, want 6", got)
	}
}

func TestGenerateFallsBackToSafeTurn(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredErr: errors.New("backend down")}
	turn, err := testAdapter(p).Generate(context.Background(), TurnRequest{
		Stage:  dialog.StageDiscuss,
		Agent:  "Charlie",
		Agents: testAgents,
		Issue:  "pricing",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if turn.Asker != "Charlie" {
		t.Fatalf("asker = %q", turn.Asker)
	}
	if turn.Responder == "Charlie" || turn.Responder == "" {
		t.Fatalf("responder = %q", turn.Responder)
	}
	if turn.Message != "Let's move on." {
		t.Fatalf("message = %q", turn.Message)
	}
	if turn.Reaction != string(dialog.ReactionAccept) {
		t.Fatalf("reaction = %q", turn.Reaction)
	}
	if turn.NextStage != string(dialog.StageDiscuss) {
		t.Fatalf("next stage = %q", turn.NextStage)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &mock.Provider{}
	if _, err := testAdapter(p).Generate(ctx, TurnRequest{Stage: dialog.StageDiscuss, Agent: "Bob", Agents: testAgents}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(p.StructuredCalls) != 0 {
		t.Fatal("issued LLM calls after cancellation")
	}
}

func TestPlanFallback(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredErr: errors.New("backend down")}
	plan, err := testAdapter(p).Plan(context.Background(), PlanRequest{Stage: dialog.StageClarify, Agent: "Dana"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.SpeechAct != "question" {
		t.Fatalf("speech act = %q, want the stage's first act", plan.SpeechAct)
	}
	if plan.Objective == "" {
		t.Fatal("empty objective")
	}
}

func TestPlanUsesScriptedResponse(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredPayload: json.RawMessage(`{"speech_act":"steelman","objective":"restate Bob's point"}`)}
	plan, err := testAdapter(p).Plan(context.Background(), PlanRequest{Stage: dialog.StageDiscuss, Agent: "Dana"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.SpeechAct != "steelman" || plan.Objective != "restate Bob's point" {
		t.Fatalf("plan = %+v", plan)
	}
	if got := p.StructuredCalls[0].Req.Temperature; got != plannerTemperature {
		t.Fatalf("planner temperature = %v", got)
	}
}

func TestEvaluateOptionFallsBackToNeutral(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredErr: errors.New("backend down")}
	ev, err := testAdapter(p).EvaluateOption(context.Background(), "open a second store")
	if err != nil {
		t.Fatalf("EvaluateOption: %v", err)
	}
	if ev != dialog.NeutralOptionEval() {
		t.Fatalf("eval = %+v", ev)
	}
}

func TestEvaluateOptionClampsScores(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{StructuredPayload: json.RawMessage(`{"cost":1.4,"risk":-0.2,"speed":0.6,"fairness":0.5,"innovation":0.5,"consensus":0.5}`)}
	ev, err := testAdapter(p).EvaluateOption(context.Background(), "open a second store")
	if err != nil {
		t.Fatalf("EvaluateOption: %v", err)
	}
	if ev.Cost != 1 || ev.Risk != 0 {
		t.Fatalf("clamping broken: %+v", ev)
	}
}

func TestGuidanceFallback(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: errors.New("backend down")}
	line, err := testAdapter(p).Guidance(context.Background(), GuidanceRequest{Stage: dialog.StageDiscuss, Chair: "Alice"})
	if err != nil {
		t.Fatalf("Guidance: %v", err)
	}
	if line != "Let's continue." {
		t.Fatalf("line = %q", line)
	}
}

func TestSummarizeReturnsError(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteErr: errors.New("backend down")}
	if _, err := testAdapter(p).Summarize(context.Background(), []string{"[discuss] Bob: hi"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCallMetricsRecorded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })
	met, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ok := &mock.Provider{
		CompleteContent:   "Focus on pricing.",
		StructuredPayload: json.RawMessage(`{"speech_act":"question","objective":"probe costs"}`),
	}
	adapter := NewLLM(ok, WithMetrics(met, "scripted"))
	if _, err := adapter.Guidance(ctx, GuidanceRequest{Stage: dialog.StageDiscuss, Chair: "Alice"}); err != nil {
		t.Fatalf("Guidance: %v", err)
	}
	if _, err := adapter.Plan(ctx, PlanRequest{Stage: dialog.StageDiscuss, Agent: "Bob"}); err != nil {
		t.Fatalf("Plan: %v", err)
	}

	broken := &mock.Provider{StructuredErr: errors.New("backend down")}
	failing := NewLLM(broken, WithMetrics(met, "scripted"))
	if _, err := failing.Plan(ctx, PlanRequest{Stage: dialog.StageDiscuss, Agent: "Bob"}); err != nil {
		t.Fatalf("Plan fallback: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	find := func(name string) *metricdata.Metrics {
		for _, sm := range rm.ScopeMetrics {
			for i := range sm.Metrics {
				if sm.Metrics[i].Name == name {
					return &sm.Metrics[i]
				}
			}
		}
		return nil
	}

	dur := find("plenum.llm.duration")
	if dur == nil {
		t.Fatal("llm duration not collected")
	}
	hist, okType := dur.Data.(metricdata.Histogram[float64])
	if !okType {
		t.Fatalf("unexpected duration data type %T", dur.Data)
	}
	var samples uint64
	for _, dp := range hist.DataPoints {
		samples += dp.Count
	}
	if samples != 3 {
		t.Errorf("duration samples = %d, want 3", samples)
	}

	sumOf := func(name string) int64 {
		m := find(name)
		if m == nil {
			return 0
		}
		sum, okType := m.Data.(metricdata.Sum[int64])
		if !okType {
			t.Fatalf("unexpected %s data type %T", name, m.Data)
		}
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		return total
	}
	if got := sumOf("plenum.provider.requests"); got != 3 {
		t.Errorf("provider requests = %d, want 3", got)
	}
	if got := sumOf("plenum.provider.errors"); got != 1 {
		t.Errorf("provider errors = %d, want 1", got)
	}
}
