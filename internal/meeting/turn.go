package meeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/prompt"
)

// agentStep executes one participant's full turn: plan, generate, sanitize,
// log the exchange, and apply every side effect (options, votes, stances,
// affinity, persuasion, metrics). The hard time guards at the top keep a
// stalled meeting moving toward a decision.
func (s *State) agentStep(ctx context.Context, ad prompt.Adapter, agent string) {
	stage := s.stage
	s.stageTurns++

	if s.stageTurns > 10 {
		s.chairLine("We've spent enough time here, let's move on.")
		s.advanceStage()
		return
	}
	if s.turn > s.cond.softDeadline() {
		s.appendLine(fmt.Sprintf("[%s] Time's up! Chair forces decision.", stage))
		if stage.Index() < dialog.StageDecide.Index() {
			s.stage = dialog.StageDecide
		}
		s.resetStageCounters()
		return
	}

	last, unresolved, optionsBrief := s.memoryPack(6)
	memoryBrief := fmt.Sprintf("Last lines: %s | Unresolved: %s | Options: %s",
		truncate(strings.Join(last, "\n"), 400),
		orNone(strings.Join(unresolved, "\n")),
		orNone(optionsBrief))

	plan, err := ad.Plan(ctx, prompt.PlanRequest{
		Stage:       stage,
		Agent:       agent,
		Persona:     s.personas[agent],
		MemoryBrief: memoryBrief,
	})
	if err != nil {
		return
	}

	turn, err := ad.Generate(ctx, prompt.TurnRequest{
		Stage:        stage,
		Agent:        agent,
		Persona:      s.personas[agent],
		Issue:        s.issue,
		Agents:       s.agents,
		Plan:         plan,
		RecentLines:  last,
		Unresolved:   unresolved,
		OptionsBrief: optionsBrief,
		Tuning:       s.cond.tuning(),
	})
	if err != nil {
		return
	}
	dialog.Sanitize(turn, s.agents, s.chair, agent, s.rng, stage)

	// Duplicate-question guard, keyed per stage and asker.
	dupKey := fmt.Sprintf("%s|%s|%s", stage, turn.Asker, strings.ToLower(strings.TrimSpace(turn.Question)))
	if _, seen := s.questionSeen[dupKey]; seen {
		s.chairLine("That's been asked already, let's move forward.")
		s.advanceStage()
		return
	}
	s.questionSeen[dupKey] = struct{}{}

	interrupter := s.maybeInterrupt(ctx, agent, turn.Responder)

	if turn.ActionItem != "" {
		if !s.hasAction(turn.ActionItem) {
			s.actions = append(s.actions, turn.ActionItem)
			s.appendLine(fmt.Sprintf("[%s] ACTION RAISED: %s", stage, turn.ActionItem))
			s.episodicLog(agent, "action", turn.ActionItem, nil)
			s.metrics.ActionsRaised = len(s.actions)
		}
		s.advanceStage()
		return
	}

	s.appendLine(fmt.Sprintf("[%s] %s asks %s: %s", stage, turn.Asker, turn.Responder, turn.Question))
	s.appendLine(fmt.Sprintf("[%s] %s: %s", stage, turn.Responder, turn.Message))
	s.appendLine(fmt.Sprintf("[%s] %s reacts: %s", stage, turn.Asker, turn.Reaction))

	s.episodicLog(turn.Asker, "question", turn.Question, nil)
	s.episodicLog(turn.Responder, "response", turn.Message, nil)
	s.episodicLog(turn.Asker, "reaction", turn.Reaction, nil)
	if turn.NegotiationOffer != "" {
		s.episodicLog(turn.Responder, "negotiation", turn.NegotiationOffer, nil)
	}

	s.metrics.TurnsPerStage[stage]++
	s.metrics.TurnsByAgent[turn.Asker]++
	s.metrics.TurnsByAgent[turn.Responder]++
	if s.obs != nil {
		s.obs.RecordTurn(ctx, string(stage), agent)
	}
	s.convoEdges = append(s.convoEdges, Edge{
		From:     turn.Asker,
		To:       turn.Responder,
		Stage:    stage,
		Question: turn.Question,
		Response: turn.Message,
		Reaction: turn.Reaction,
	})
	s.recentPairs = append(s.recentPairs, [2]string{turn.Asker, turn.Responder})
	if len(s.recentPairs) > 50 {
		s.recentPairs = s.recentPairs[len(s.recentPairs)-50:]
	}

	for name, st := range turn.StanceUpdates {
		if stance := dialog.Stance(st); stance.IsValid() {
			if _, known := s.stances[name]; known {
				s.stances[name] = stance
			}
		}
	}

	reaction := dialog.Reaction(turn.Reaction)
	switch reaction {
	case dialog.ReactionAccept:
		s.acceptsThisStage++
		s.logInteraction(turn.Asker, turn.Responder, +1)
		s.updateAffinity(turn.Asker, turn.Responder, +0.12)
	case dialog.ReactionDecline, dialog.ReactionRejectPropose:
		if s.acceptsThisStage > 0 {
			s.acceptsThisStage--
		}
		s.logInteraction(turn.Asker, turn.Responder, -1)
		s.updateAffinity(turn.Asker, turn.Responder, -0.12)
	}
	if s.acceptsThisStage >= 4 &&
		(stage == dialog.StageDiscuss || stage == dialog.StageOptions || stage == dialog.StageEvaluate) {
		s.chairLine("Let's hear a counterpoint before we proceed.")
		s.acceptsThisStage = 0
	}

	if turn.OptionProposal != "" {
		s.registerOption(ctx, ad, turn.OptionProposal, turn.Responder)
	}
	if turn.OptionVote != "" {
		s.voteOption(ctx, turn.Responder, turn.OptionRef, dialog.Vote(strings.ToLower(turn.OptionVote)), turn.OptionComment)
	}
	if (stage == dialog.StageEvaluate || stage == dialog.StageDecide) && len(s.options) > 0 {
		for _, a := range s.agents {
			s.autoVote(ctx, a)
		}
	}

	s.maybeShift(turn.Asker, turn.Responder)
	if interrupter != "" {
		s.maybeShift(interrupter, turn.Responder)
	}

	if turn.ChairDecision != "" {
		s.appendLine(fmt.Sprintf("[%s] CHAIR DECISION: %s", stage, turn.ChairDecision))
		s.chairUsed = true
	}

	if s.consensusReached() {
		s.appendLine(fmt.Sprintf("[%s] Consensus reached, moving to the next stage.", stage))
		s.advanceStage()
	} else if turn.EndStage {
		if next := dialog.Stage(turn.NextStage); next.IsValid() {
			s.advanceStage(next)
		}
	}

	s.turn++
	snapshot := make(map[string]dialog.Stance, len(s.stances))
	for k, v := range s.stances {
		snapshot[k] = v
	}
	s.stanceHistory = append(s.stanceHistory, snapshot)

	if s.stage == dialog.StageDecide && s.decision == "" {
		s.materializeDecision()
	}
}

// maybeInterrupt samples the interruption model: a third agent may cut in on
// the responder, capped at two interruptions per stage. Returns the
// interrupter's name or "".
func (s *State) maybeInterrupt(ctx context.Context, agent, responder string) string {
	if responder == agent || s.interruptionsThisStage >= 2 {
		return ""
	}
	var candidates []string
	for _, a := range s.agents {
		if a != agent && a != responder {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	cand := candidates[s.rng.IntN(len(candidates))]
	negAff := -s.affinityOf(cand, responder)
	if negAff < 0 {
		negAff = 0
	}
	p := s.cond.interruptionBase(s.stage) + 0.45*s.traits[cand].Interrupt + 0.25*negAff
	if p > 0.65 {
		p = 0.65
	}
	if s.rng.Float64() >= p {
		return ""
	}

	s.interruptionsThisStage++
	s.metrics.Interruptions++
	if s.obs != nil {
		s.obs.RecordInterruption(ctx, string(s.stage))
	}
	s.appendLine(fmt.Sprintf("[%s] (INTERRUPTION) %s cuts in while %s is speaking!", s.stage, cand, responder))
	s.chairLine("Let's take one at a time, please.")
	return cand
}

// materializeDecision records the decision in the decide stage: the best
// option when any exist, otherwise the majority stance.
func (s *State) materializeDecision() {
	if oid := s.bestOption(); oid != "" {
		opt := s.options[oid]
		s.decision = fmt.Sprintf("%s: %s", oid, opt.Text)
		s.appendLine(fmt.Sprintf(">>> DECISION: Adopt %s (supporters=%d, opponents=%d, abstainers=%d)",
			oid, len(opt.Supporters), len(opt.Opponents), len(opt.Abstainers)))
		return
	}
	s.decision = string(s.majorityStance())
	s.appendLine(fmt.Sprintf(">>> DECISION: %s (fallback to majority stance)", s.decision))
}

// hasAction reports whether the action item is already recorded.
func (s *State) hasAction(item string) bool {
	for _, a := range s.actions {
		if a == item {
			return true
		}
	}
	return false
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
