package meeting

import (
	"context"
	"fmt"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/prompt"
)

// chairStep runs the chair's once-per-round control pass: enforce the stage
// turn budget, detect consensus, force a decision in the decide stage, wrap
// up in confirm, and otherwise steer with a short guidance line.
func (s *State) chairStep(ctx context.Context, ad prompt.Adapter) {
	stage := s.stage

	if s.stageTurns >= s.cond.stageCap(stage) {
		s.chairLine("We've had enough contributions here. Let's move on.")
		s.advanceStage()
		return
	}

	if stage != dialog.StageDecide && stage != dialog.StageConfirm && s.consensusReached() {
		s.chairLine("It looks like we have consensus. Let's move forward.")
		s.advanceStage()
		return
	}

	if stage == dialog.StageDecide {
		if s.decision == "" {
			s.chairDecide()
		}
		s.advanceStage(dialog.StageConfirm)
		return
	}

	if stage == dialog.StageConfirm {
		if s.decision == "" {
			// Confirm was reached by an explicit stage jump before any
			// decision existed.
			s.chairDecide()
		}
		s.chairLine(fmt.Sprintf("Thank you everyone. The meeting is concluded. Final decision: %s.", s.decision))
		return
	}

	line, err := ad.Guidance(ctx, prompt.GuidanceRequest{
		Stage:  stage,
		Chair:  s.chair,
		Issue:  s.issue,
		Recent: s.memoryTail(6),
	})
	if err != nil || line == "" {
		line = "Let's continue."
	}
	s.chairLine(line)

	s.stageTurns++
	s.turn++
}

// chairDecide records the decision the chair calls: the best option when any
// exist, otherwise the majority stance.
func (s *State) chairDecide() {
	if oid := s.bestOption(); oid != "" {
		opt := s.options[oid]
		s.decision = fmt.Sprintf("%s: %s", oid, opt.Text)
		s.chairLine(fmt.Sprintf("Based on the votes, we'll adopt %s (supporters=%d, opponents=%d, abstainers=%d).",
			oid, len(opt.Supporters), len(opt.Opponents), len(opt.Abstainers)))
		return
	}
	s.decision = string(s.majorityStance())
	s.chairLine(fmt.Sprintf("We don't have a clear option, so I'm calling it: decision = %s.", s.decision))
}

// memoryTail returns the last n dialogue lines.
func (s *State) memoryTail(n int) []string {
	if len(s.dialogue) > n {
		return s.dialogue[len(s.dialogue)-n:]
	}
	return s.dialogue
}
