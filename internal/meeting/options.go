package meeting

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/prompt"
)

// Option is one named proposal in the registry. The three voter sets are
// pairwise disjoint at all times.
type Option struct {
	ID         string
	Text       string
	Proposer   string
	Supporters map[string]struct{}
	Opponents  map[string]struct{}
	Abstainers map[string]struct{}
	FirstStage dialog.Stage
	FirstTurn  int
	Attrs      dialog.OptionEval
}

// hasVoted reports whether the agent appears in any voter set.
func (o *Option) hasVoted(agent string) bool {
	if _, ok := o.Supporters[agent]; ok {
		return true
	}
	if _, ok := o.Opponents[agent]; ok {
		return true
	}
	_, ok := o.Abstainers[agent]
	return ok
}

// normalizeOptionText lower-cases and collapses whitespace for duplicate
// detection.
func normalizeOptionText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// registerOption registers a proposal. Duplicate texts merge into the
// existing option with an implicit supporting vote from the proposer; new
// texts are scored by the analyst (0.5 across the board when that call
// fails) and inserted with the proposer as sole supporter.
func (s *State) registerOption(ctx context.Context, ad prompt.Adapter, text, proposer string) string {
	norm := normalizeOptionText(text)
	for _, oid := range s.optionIDs() {
		opt := s.options[oid]
		if normalizeOptionText(opt.Text) == norm {
			s.appendLine(fmt.Sprintf("[%s] (duplicate) Referencing existing %s: %s", s.stage, oid, opt.Text))
			delete(opt.Opponents, proposer)
			delete(opt.Abstainers, proposer)
			opt.Supporters[proposer] = struct{}{}
			s.episodicLog(proposer, "vote", "support", map[string]string{"id": oid, "comment": "proposer implicit support"})
			return oid
		}
	}

	s.optionCounter++
	oid := fmt.Sprintf("O%d", s.optionCounter)
	attrs, err := ad.EvaluateOption(ctx, text)
	if err != nil {
		attrs = dialog.NeutralOptionEval()
	}
	trimmed := strings.TrimSpace(text)
	s.options[oid] = &Option{
		ID:         oid,
		Text:       trimmed,
		Proposer:   proposer,
		Supporters: map[string]struct{}{proposer: {}},
		Opponents:  make(map[string]struct{}),
		Abstainers: make(map[string]struct{}),
		FirstStage: s.stage,
		FirstTurn:  s.turn,
		Attrs:      attrs,
	}
	s.metrics.OptionsProposed++
	if s.obs != nil {
		s.obs.OptionsProposed.Add(ctx, 1)
	}
	s.appendLine(fmt.Sprintf("[%s] OPTION PROPOSED %s by %s: %s", s.stage, oid, proposer, trimmed))
	s.episodicLog(proposer, "option", trimmed, map[string]string{"id": oid})
	return oid
}

// resolveOptionRef maps a model-supplied option reference onto the registry:
// a known id is used as-is, anything else resolves to the most recently
// allocated option, and an empty registry yields "".
func (s *State) resolveOptionRef(ref string) string {
	if ref != "" {
		if _, ok := s.options[ref]; ok {
			return ref
		}
	}
	ids := s.optionIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// voteOption records a vote. The voter is first removed from all three sets
// so re-votes are idempotent. Unknown vote tokens count as abstain.
func (s *State) voteOption(ctx context.Context, voter, ref string, vote dialog.Vote, comment string) {
	oid := s.resolveOptionRef(ref)
	if oid == "" {
		s.appendLine(fmt.Sprintf("[%s] (vote ignored) No option available to vote on.", s.stage))
		return
	}
	if !vote.IsValid() {
		vote = dialog.VoteAbstain
	}

	opt := s.options[oid]
	delete(opt.Supporters, voter)
	delete(opt.Opponents, voter)
	delete(opt.Abstainers, voter)
	switch vote {
	case dialog.VoteSupport:
		opt.Supporters[voter] = struct{}{}
	case dialog.VoteOppose:
		opt.Opponents[voter] = struct{}{}
	default:
		opt.Abstainers[voter] = struct{}{}
	}

	s.metrics.VotesCast++
	if s.obs != nil {
		s.obs.RecordVote(ctx, string(vote))
	}
	line := fmt.Sprintf("[%s] VOTE %s -> %s: %s", s.stage, voter, oid, strings.ToUpper(string(vote)))
	if comment != "" {
		line += " - " + comment
	}
	s.appendLine(line)
	s.episodicLog(voter, "vote", string(vote), map[string]string{"id": oid, "comment": comment})
}

// bestOption returns the id of the leading option: most net support, then
// most supporters, then earliest proposal. Returns "" when no options exist.
func (s *State) bestOption() string {
	ids := s.optionIDs()
	if len(ids) == 0 {
		return ""
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := s.options[ids[i]], s.options[ids[j]]
		netA := len(a.Supporters) - len(a.Opponents)
		netB := len(b.Supporters) - len(b.Opponents)
		if netA != netB {
			return netA > netB
		}
		if len(a.Supporters) != len(b.Supporters) {
			return len(a.Supporters) > len(b.Supporters)
		}
		return a.FirstTurn < b.FirstTurn
	})
	return ids[0]
}

// agentWeights derives normalized criteria weights from an agent's goals.
// Unset criteria default to 0.3 for cost, risk, and speed and 0.2 for
// fairness, innovation, and consensus.
func agentWeights(goals map[dialog.Criterion]float64) map[dialog.Criterion]float64 {
	defaults := map[dialog.Criterion]float64{
		dialog.CriterionCost:       0.3,
		dialog.CriterionRisk:       0.3,
		dialog.CriterionSpeed:      0.3,
		dialog.CriterionFairness:   0.2,
		dialog.CriterionInnovation: 0.2,
		dialog.CriterionConsensus:  0.2,
	}
	w := make(map[dialog.Criterion]float64, len(dialog.Criteria))
	sum := 0.0
	for _, c := range dialog.Criteria {
		v, ok := goals[c]
		if !ok {
			v = defaults[c]
		}
		w[c] = v
		sum += v
	}
	if sum == 0 {
		sum = 1
	}
	for c := range w {
		w[c] /= sum
	}
	return w
}

// utilityFor returns the agent's weighted sum over the option's attributes.
func (s *State) utilityFor(agent, oid string) float64 {
	weights := agentWeights(s.goals[agent])
	attrs := s.options[oid].Attrs
	u := 0.0
	for _, c := range dialog.Criteria {
		u += weights[c] * attrs.Score(c)
	}
	return u
}

// autoVote casts a utility-driven vote for the agent on the most recent
// option, if they have not voted on it yet. Utility is adjusted by the
// agent's affinity toward the proposer; support at >= 0.55, oppose at
// <= 0.45, abstain between.
func (s *State) autoVote(ctx context.Context, agent string) {
	oid := s.resolveOptionRef("")
	if oid == "" {
		return
	}
	opt := s.options[oid]
	if opt.hasVoted(agent) {
		return
	}
	u := s.utilityFor(agent, oid) + 0.05*s.affinityOf(agent, opt.Proposer)
	vote := dialog.VoteAbstain
	switch {
	case u >= 0.55:
		vote = dialog.VoteSupport
	case u <= 0.45:
		vote = dialog.VoteOppose
	}
	s.voteOption(ctx, agent, oid, vote, "")
}

// optionIDs returns the option ids in allocation order.
func (s *State) optionIDs() []string {
	ids := make([]string, 0, len(s.options))
	for i := 1; i <= s.optionCounter; i++ {
		oid := fmt.Sprintf("O%d", i)
		if _, ok := s.options[oid]; ok {
			ids = append(ids, oid)
		}
	}
	return ids
}

// optionsBrief formats the one-line-per-option tally block injected into
// prompts.
func (s *State) optionsBrief() string {
	var b strings.Builder
	for _, oid := range s.optionIDs() {
		opt := s.options[oid]
		fmt.Fprintf(&b, "%s:%s (by %s) S=%d/O=%d/A=%d\n",
			oid, opt.Text, opt.Proposer,
			len(opt.Supporters), len(opt.Opponents), len(opt.Abstainers))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// OptionsSummary renders the final per-option report with tallies and the
// six attribute scores.
func (s *State) OptionsSummary() string {
	ids := s.optionIDs()
	if len(ids) == 0 {
		return "No explicit options were proposed."
	}
	lines := make([]string, 0, len(ids))
	for _, oid := range ids {
		opt := s.options[oid]
		a := opt.Attrs
		lines = append(lines, fmt.Sprintf(
			"%s: %s (by %s; S=%d, O=%d, A=%d; cost=%.2f, risk=%.2f, speed=%.2f, fair=%.2f, innov=%.2f, cons=%.2f)",
			oid, opt.Text, opt.Proposer,
			len(opt.Supporters), len(opt.Opponents), len(opt.Abstainers),
			a.Cost, a.Risk, a.Speed, a.Fairness, a.Innovation, a.Consensus))
	}
	return strings.Join(lines, "\n")
}
