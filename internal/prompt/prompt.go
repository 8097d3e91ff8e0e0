// Package prompt turns meeting context into language-model calls. It owns the
// prompt templates, the per-stage temperature table, the structured-output
// schemas, and the candidate-selection pipeline (plan, generate K candidates,
// critic, heuristic rerank). The [Adapter] interface is what the meeting
// engine programs against; [LLM] is the production implementation and tests
// substitute scripted fakes.
package prompt

import (
	"context"

	"github.com/plenum-ai/plenum/internal/dialog"
)

// Temperatures for the fixed-role calls.
const (
	plannerTemperature  = 0.4
	criticTemperature   = 0.0
	analystTemperature  = 0.2
	guidanceTemperature = 0.2
	summaryTemperature  = 0.3
)

// stageTemperatures is the base creativity per stage.
var stageTemperatures = map[dialog.Stage]float64{
	dialog.StageIntroduce: 0.6,
	dialog.StageClarify:   0.3,
	dialog.StageDiscuss:   0.7,
	dialog.StageOptions:   0.8,
	dialog.StageEvaluate:  0.4,
	dialog.StageDecide:    0.3,
	dialog.StageConfirm:   0.2,
}

// Tuning carries the meeting conditions that shape prompting. Formality in
// [0, 1] lowers candidate temperatures; CreativityMode raises the temperature
// of the options stage.
type Tuning struct {
	Formality      float64
	CreativityMode bool
}

// StageTemperature returns the sampling temperature for candidate generation
// in the given stage under the given tuning. Formality subtracts up to 0.2;
// creativity mode adds 0.15 in the options stage. The result stays in
// [0.1, 1.0].
func StageTemperature(stage dialog.Stage, t Tuning) float64 {
	temp, ok := stageTemperatures[stage]
	if !ok {
		temp = 0.5
	}
	temp -= 0.2 * t.Formality
	if t.CreativityMode && stage == dialog.StageOptions {
		temp += 0.15
	}
	if temp < 0.1 {
		temp = 0.1
	}
	if temp > 1.0 {
		temp = 1.0
	}
	return temp
}

// PlanRequest is the input to [Adapter.Plan].
type PlanRequest struct {
	Stage       dialog.Stage
	Agent       string
	Persona     string
	MemoryBrief string
}

// TurnRequest is the input to [Adapter.Generate]. RecentLines are the last
// dialogue lines verbatim; Unresolved holds up to two open questions;
// OptionsBrief is the formatted option tally block.
type TurnRequest struct {
	Stage        dialog.Stage
	Agent        string
	Persona      string
	Issue        string
	Agents       []string
	Plan         dialog.PlanSpec
	RecentLines  []string
	Unresolved   []string
	OptionsBrief string
	Tuning       Tuning
}

// GuidanceRequest is the input to [Adapter.Guidance], the chair's free-text
// steering line.
type GuidanceRequest struct {
	Stage  dialog.Stage
	Chair  string
	Issue  string
	Recent []string
}

// FinalSummaryRequest is the input to [Adapter.SummarizeMeeting].
type FinalSummaryRequest struct {
	Issue          string
	Decision       string
	Chair          string
	Actions        []string
	OptionsSummary string
	Dialogue       []string
}

// Adapter abstracts the language model as the meeting engine needs it. The
// production implementation absorbs provider and schema failures into the
// documented fallback values; a non-nil error is returned only when ctx is
// done, so callers can distinguish cancellation from degradation.
type Adapter interface {
	// Plan picks a speech act and one-line objective for the next utterance.
	Plan(ctx context.Context, req PlanRequest) (dialog.PlanSpec, error)

	// Generate produces the agent's structured turn, already reranked across
	// candidates. On total failure it returns the minimal safe turn.
	Generate(ctx context.Context, req TurnRequest) (*dialog.Turn, error)

	// EvaluateOption scores an option text on the six criteria. On failure
	// every attribute reads 0.5.
	EvaluateOption(ctx context.Context, text string) (dialog.OptionEval, error)

	// Guidance produces the chair's short steering line. On failure it
	// returns "Let's continue." so the loop keeps making progress.
	Guidance(ctx context.Context, req GuidanceRequest) (string, error)

	// Summarize condenses the recent dialogue lines into a running summary.
	// Failure is reported so the caller can skip the summary line.
	Summarize(ctx context.Context, recent []string) (string, error)

	// SummarizeMeeting renders the final meeting narrative.
	SummarizeMeeting(ctx context.Context, req FinalSummaryRequest) (string, error)
}
