package meeting

import (
	"context"
	"strings"
	"testing"

	"github.com/plenum-ai/plenum/internal/dialog"
)

func lastLine(s *State) string {
	if len(s.dialogue) == 0 {
		return ""
	}
	return s.dialogue[len(s.dialogue)-1]
}

func TestChairAdvancesAtStageCap(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	mixedStances(s)
	s.stageTurns = 6

	s.chairStep(context.Background(), &fakeAdapter{})

	if !strings.Contains(lastLine(s), "We've had enough contributions here. Let's move on.") {
		t.Errorf("cap line missing, got %q", lastLine(s))
	}
	if s.stage != dialog.StageClarify {
		t.Errorf("stage = %s, want clarify", s.stage)
	}
	if s.stageTurns != 0 {
		t.Errorf("stageTurns = %d, want reset to 0", s.stageTurns)
	}
}

func TestChairAdvancesOnConsensus(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	// Default roster stances are all neutral: unanimity.
	s.chairStep(context.Background(), &fakeAdapter{})

	if !strings.Contains(lastLine(s), "It looks like we have consensus. Let's move forward.") {
		t.Errorf("consensus line missing, got %q", lastLine(s))
	}
	if s.stage != dialog.StageClarify {
		t.Errorf("stage = %s, want clarify", s.stage)
	}
}

func TestChairGuidance(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	mixedStances(s)
	ad := &fakeAdapter{GuidanceText: "Focus on pricing tiers first."}

	s.chairStep(context.Background(), ad)

	want := "[introduce] CHAIR (Alice): Focus on pricing tiers first."
	if lastLine(s) != want {
		t.Errorf("guidance line = %q, want %q", lastLine(s), want)
	}
	if s.stage != dialog.StageIntroduce {
		t.Errorf("stage changed to %s during guidance", s.stage)
	}
	if s.stageTurns != 1 || s.turn != 1 {
		t.Errorf("stageTurns = %d, turn = %d, want 1 and 1", s.stageTurns, s.turn)
	}
}

func TestChairDecideAdoptsBestOption(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	mixedStances(s)
	ctx := context.Background()
	s.registerOption(ctx, &fakeAdapter{}, "pilot in one region", "Bob")
	s.voteOption(ctx, "Alice", "O1", dialog.VoteSupport, "")
	s.voteOption(ctx, "Dana", "O1", dialog.VoteOppose, "")
	s.stage = dialog.StageDecide

	s.chairStep(ctx, &fakeAdapter{})

	if s.decision != "O1: pilot in one region" {
		t.Errorf("decision = %q, want O1: pilot in one region", s.decision)
	}
	if s.stage != dialog.StageConfirm {
		t.Errorf("stage = %s, want confirm", s.stage)
	}
	want := "Based on the votes, we'll adopt O1 (supporters=2, opponents=1, abstainers=0)."
	if !strings.Contains(lastLine(s), want) {
		t.Errorf("decision line = %q, want contains %q", lastLine(s), want)
	}
}

func TestChairDecideFallsBackToMajorityStance(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	s.stances["Alice"] = dialog.StanceFor
	s.stances["Bob"] = dialog.StanceFor
	s.stances["Charlie"] = dialog.StanceAgainst
	s.stances["Dana"] = dialog.StanceNeutral
	s.stage = dialog.StageDecide

	s.chairStep(context.Background(), &fakeAdapter{})

	if s.decision != "for" {
		t.Errorf("decision = %q, want majority stance \"for\"", s.decision)
	}
	if !strings.Contains(lastLine(s), "We don't have a clear option, so I'm calling it: decision = for.") {
		t.Errorf("fallback line = %q", lastLine(s))
	}
	if s.stage != dialog.StageConfirm {
		t.Errorf("stage = %s, want confirm", s.stage)
	}
}

func TestChairDecideKeepsExistingDecision(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	mixedStances(s)
	s.stage = dialog.StageDecide
	s.decision = "O1: pilot in one region"

	s.chairStep(context.Background(), &fakeAdapter{})

	if s.decision != "O1: pilot in one region" {
		t.Errorf("decision overwritten to %q", s.decision)
	}
	if s.stage != dialog.StageConfirm {
		t.Errorf("stage = %s, want confirm", s.stage)
	}
	if len(s.dialogue) != 0 {
		t.Errorf("unexpected dialogue lines: %q", s.dialogue)
	}
}

func TestChairConfirmCloses(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	mixedStances(s)
	s.stage = dialog.StageConfirm
	s.decision = "O1: pilot in one region"

	s.chairStep(context.Background(), &fakeAdapter{})

	want := "Thank you everyone. The meeting is concluded. Final decision: O1: pilot in one region."
	if !strings.Contains(lastLine(s), want) {
		t.Errorf("closing line = %q, want contains %q", lastLine(s), want)
	}
	if !s.terminal() {
		t.Error("meeting should be terminal after the closing line")
	}
}

func TestChairConfirmWithoutDecisionDecidesFirst(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	mixedStances(s)
	s.stage = dialog.StageConfirm

	s.chairStep(context.Background(), &fakeAdapter{})

	if s.decision == "" {
		t.Fatal("confirm without a decision should materialize one")
	}
	if !s.terminal() {
		t.Error("meeting should be terminal")
	}
}

func TestConsensusThresholdRule(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	s.stances["Alice"] = dialog.StanceNeutral
	s.stances["Bob"] = dialog.StanceNeutral
	s.stances["Charlie"] = dialog.StanceNeutral
	s.stances["Dana"] = dialog.StanceFor

	if s.consensusReached() {
		t.Error("unanimity rule should not fire on a 3/1 split")
	}
	s.cond.DecisionThreshold = 0.75
	if !s.consensusReached() {
		t.Error("threshold 0.75 should fire on a 3/4 share")
	}
	s.cond.DecisionThreshold = 0.8
	if s.consensusReached() {
		t.Error("threshold 0.8 should not fire on a 3/4 share")
	}
}

func TestMajorityStanceTieBreak(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	s.stances["Alice"] = dialog.StanceFor
	s.stances["Bob"] = dialog.StanceFor
	s.stances["Charlie"] = dialog.StanceAgainst
	s.stances["Dana"] = dialog.StanceAgainst

	if got := s.majorityStance(); got != dialog.StanceFor {
		t.Errorf("tie broke to %s, want for", got)
	}
}

func TestAdvanceStageNeverRegresses(t *testing.T) {
	t.Parallel()
	s := newTestState(t)
	s.stage = dialog.StageDiscuss

	s.advanceStage(dialog.StageClarify)
	if s.stage != dialog.StageOptions {
		t.Errorf("backward target moved stage to %s, want next stage options", s.stage)
	}

	s.advanceStage(dialog.StageDecide)
	if s.stage != dialog.StageDecide {
		t.Errorf("forward target moved stage to %s, want decide", s.stage)
	}
}
