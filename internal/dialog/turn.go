package dialog

// Turn is the structured value a participant's generation call returns: one
// question, one answer, one reaction, plus any side effects the model wants
// to apply (stance updates, option proposals, votes, action items).
//
// A Turn arrives from the LLM untrusted; it must pass through [Sanitize]
// before any of its fields touch meeting state.
type Turn struct {
	// Asker is the participant posing the question.
	Asker string `json:"asker"`

	// Question is the utterance addressed to Responder.
	Question string `json:"question"`

	// Responder is the participant answering.
	Responder string `json:"responder"`

	// Message is the responder's answer.
	Message string `json:"message"`

	// Reaction is the asker's reaction: accept, reject+propose, or decline.
	Reaction string `json:"reaction"`

	// StanceUpdates maps participant names to new stances the model believes
	// changed this turn. Unknown names and invalid stances are dropped during
	// sanitation.
	StanceUpdates map[string]string `json:"stance_updates,omitempty"`

	// ChairDecision is a decision statement the chair wants recorded.
	ChairDecision string `json:"chair_decision,omitempty"`

	// EndStage signals that the current stage has served its purpose.
	EndStage bool `json:"end_stage"`

	// NextStage names the stage to move to when EndStage is set.
	NextStage string `json:"next_stage,omitempty"`

	// ActionItem is a concrete follow-up task raised during the turn.
	ActionItem string `json:"action_item,omitempty"`

	// OptionProposal is the text of a new option to register.
	OptionProposal string `json:"option_proposal,omitempty"`

	// OptionRef names an existing option id a vote applies to.
	OptionRef string `json:"option_ref,omitempty"`

	// OptionVote is "support", "oppose", or "abstain".
	OptionVote string `json:"option_vote,omitempty"`

	// OptionComment is an optional justification attached to the vote line.
	OptionComment string `json:"option_comment,omitempty"`

	// NegotiationOffer is a conditional concession ("I'll back O2 if...").
	NegotiationOffer string `json:"negotiation_offer,omitempty"`
}

// PlanSpec is the planner's output: which speech act to perform and a
// one-line objective for the utterance.
type PlanSpec struct {
	SpeechAct string `json:"speech_act"`
	Objective string `json:"objective"`
}

// CriticScore is the dialogue critic's rating of a candidate utterance.
// All fields are in [0, 1].
type CriticScore struct {
	Novelty    float64 `json:"novelty"`
	StageFit   float64 `json:"stage_fit"`
	Usefulness float64 `json:"usefulness"`
	Overall    float64 `json:"overall"`
}

// OptionEval holds the analyst's six attribute scores for an option, each in
// [0, 1] with higher meaning better (so "risk" reads as safety).
type OptionEval struct {
	Cost       float64 `json:"cost"`
	Risk       float64 `json:"risk"`
	Speed      float64 `json:"speed"`
	Fairness   float64 `json:"fairness"`
	Innovation float64 `json:"innovation"`
	Consensus  float64 `json:"consensus"`
}

// Neutral returns an OptionEval with every attribute at 0.5, the documented
// stand-in when the analyst call fails.
func NeutralOptionEval() OptionEval {
	return OptionEval{Cost: 0.5, Risk: 0.5, Speed: 0.5, Fairness: 0.5, Innovation: 0.5, Consensus: 0.5}
}

// Score returns the attribute value for c, or 0.5 for an unknown criterion.
func (e OptionEval) Score(c Criterion) float64 {
	switch c {
	case CriterionCost:
		return e.Cost
	case CriterionRisk:
		return e.Risk
	case CriterionSpeed:
		return e.Speed
	case CriterionFairness:
		return e.Fairness
	case CriterionInnovation:
		return e.Innovation
	case CriterionConsensus:
		return e.Consensus
	}
	return 0.5
}

// Clamp limits every attribute to [0, 1].
func (e OptionEval) Clamp() OptionEval {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	return OptionEval{
		Cost:       clamp(e.Cost),
		Risk:       clamp(e.Risk),
		Speed:      clamp(e.Speed),
		Fairness:   clamp(e.Fairness),
		Innovation: clamp(e.Innovation),
		Consensus:  clamp(e.Consensus),
	}
}
