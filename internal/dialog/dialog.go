// Package dialog defines the vocabulary of a Plenum meeting: the stage state
// machine, stances, decision criteria, per-stage briefs and speech acts, and
// the structured turn value types produced by the LLM together with the
// sanitation rules that make untrusted model output safe to apply to meeting
// state.
package dialog

// Stage is one of the seven discrete phases of the meeting state machine.
type Stage string

const (
	StageIntroduce Stage = "introduce"
	StageClarify   Stage = "clarify"
	StageDiscuss   Stage = "discuss"
	StageOptions   Stage = "options"
	StageEvaluate  Stage = "evaluate"
	StageDecide    Stage = "decide"
	StageConfirm   Stage = "confirm"
)

// Stages lists every stage in meeting order. The meeting always advances
// through a prefix of this sequence and never regresses.
var Stages = []Stage{
	StageIntroduce,
	StageClarify,
	StageDiscuss,
	StageOptions,
	StageEvaluate,
	StageDecide,
	StageConfirm,
}

// IsValid reports whether s is a recognised stage.
func (s Stage) IsValid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Index returns the position of s in [Stages], or -1 for an unknown stage.
func (s Stage) Index() int {
	for i, st := range Stages {
		if s == st {
			return i
		}
	}
	return -1
}

// Next returns the stage after s. The terminal confirm stage returns itself.
func (s Stage) Next() Stage {
	i := s.Index()
	if i < 0 || i+1 >= len(Stages) {
		return StageConfirm
	}
	return Stages[i+1]
}

// Stance is an agent's current position on the issue.
type Stance string

const (
	StanceAgainst Stance = "against"
	StanceNeutral Stance = "neutral"
	StanceFor     Stance = "for"
)

// StanceOrder lists stances from most opposed to most supportive. Persuasion
// moves a listener one step along this order toward the speaker's stance.
var StanceOrder = []Stance{StanceAgainst, StanceNeutral, StanceFor}

// IsValid reports whether s is a recognised stance.
func (s Stance) IsValid() bool {
	return s == StanceAgainst || s == StanceNeutral || s == StanceFor
}

// Criterion is one of the six decision criteria every option is scored on.
type Criterion string

const (
	CriterionCost       Criterion = "cost"
	CriterionRisk       Criterion = "risk"
	CriterionSpeed      Criterion = "speed"
	CriterionFairness   Criterion = "fairness"
	CriterionInnovation Criterion = "innovation"
	CriterionConsensus  Criterion = "consensus"
)

// Criteria lists the six decision criteria in canonical order.
var Criteria = []Criterion{
	CriterionCost,
	CriterionRisk,
	CriterionSpeed,
	CriterionFairness,
	CriterionInnovation,
	CriterionConsensus,
}

// Reaction is the asker's reaction to the responder's message.
type Reaction string

const (
	ReactionAccept        Reaction = "accept"
	ReactionRejectPropose Reaction = "reject+propose"
	ReactionDecline       Reaction = "decline"
)

// Vote is a participant's position on a specific option.
type Vote string

const (
	VoteSupport Vote = "support"
	VoteOppose  Vote = "oppose"
	VoteAbstain Vote = "abstain"
)

// IsValid reports whether v is a recognised vote.
func (v Vote) IsValid() bool {
	return v == VoteSupport || v == VoteOppose || v == VoteAbstain
}

// StageGoals describes what each stage is trying to achieve. Injected into
// chair guidance and candidate generation prompts.
var StageGoals = map[Stage]string{
	StageIntroduce: "Raise initial opinions and concerns about the issue.",
	StageClarify:   "Clarify misunderstandings or ambiguous points.",
	StageDiscuss:   "Debate the pros and cons openly.",
	StageOptions:   "Generate possible options for action.",
	StageEvaluate:  "Evaluate the strengths and weaknesses of the options.",
	StageDecide:    "Make a decision, aiming for consensus or majority.",
	StageConfirm:   "Confirm the decision and wrap up the discussion.",
}

// StageBriefs holds the per-stage micro-brief constraining how a participant
// should shape a single utterance.
var StageBriefs = map[Stage]string{
	StageIntroduce: "Be concise (<=2 sentences). Raise 1-2 distinct concerns or hopes.",
	StageClarify:   "Ask 1 pointed question or resolve a single ambiguity. Avoid restating prior questions.",
	StageDiscuss:   "Offer 1 pro and 1 con. If responding to a prior point, briefly STEELMAN it first.",
	StageOptions:   "Propose 1 concrete option with a short label; include 1 specific implementation detail.",
	StageEvaluate:  "Compare 2 options with 2 criteria (cost, risk, speed, fairness). If group is one-sided, play devil's advocate once.",
	StageDecide:    "State a preference and 1 justification; if undecided, ask for 1 missing fact.",
	StageConfirm:   "Restate the decision and 1 action item; check for final objections (yes/no).",
}

// SpeechActs lists the speech acts permitted per stage; the planner picks one.
var SpeechActs = map[Stage][]string{
	StageIntroduce: {"concern", "hope"},
	StageClarify:   {"question"},
	StageDiscuss:   {"argument", "counterargument", "steelman"},
	StageOptions:   {"propose_option"},
	StageEvaluate:  {"compare", "weigh", "devils_advocate"},
	StageDecide:    {"recommend", "commit", "ask_missing_fact"},
	StageConfirm:   {"summarize", "check-consent"},
}

// QualityChecklist is appended to generation prompts as a final self-check.
const QualityChecklist = `Before finalizing, ensure:
- It adds a NEW point vs last 6 turns.
- It matches the Stage micro-brief.
- If proposing an option: label + 1 concrete detail.
- If evaluating: compare at least 2 criteria briefly.
- <=2 sentences unless 'discuss' stage.`
