package meeting

import (
	"fmt"
	"math"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/roster"
)

// Social model constants.
const (
	historyWindow   = 80
	decayHalfLife   = 12.0
	affinityOnShift = 0.06
	affinityOnMiss  = -0.02
)

// affinityOf returns the listener's affinity toward the speaker, zero when
// no interactions have happened yet.
func (s *State) affinityOf(listener, speaker string) float64 {
	return s.affinity[pair{listener, speaker}]
}

// updateAffinity applies an exponential moving average step:
// aff' = clamp(aff*0.9 + delta*0.1, -1, +1).
func (s *State) updateAffinity(listener, speaker string, delta float64) {
	k := pair{listener, speaker}
	s.affinity[k] = clamp(s.affinity[k]*0.9+delta*0.1, -1, 1)
}

// logInteraction appends a +1/-1 event to the listener's history of the
// speaker.
func (s *State) logInteraction(listener, speaker string, val int) {
	k := pair{listener, speaker}
	s.history[k] = append(s.history[k], interaction{turn: s.turn, val: val})
}

// decayedSupportBias summarises the listener's interaction history with the
// speaker as a weighted average in [-1, +1], where each event's weight halves
// every 12 turns. Only the last 80 events count.
func (s *State) decayedSupportBias(listener, speaker string) float64 {
	events := s.history[pair{listener, speaker}]
	if len(events) > historyWindow {
		events = events[len(events)-historyWindow:]
	}
	var num, den float64
	for _, e := range events {
		w := math.Pow(0.5, float64(s.turn-e.turn)/decayHalfLife)
		num += w * float64(e.val)
		den += w
	}
	if den == 0 {
		return 0
	}
	return clamp(num/den, -1, 1)
}

// persuasionProbability is the base chance the listener shifts stance toward
// the speaker, before the history bias applies. Always in [0.02, 0.9].
func persuasionProbability(sp, li roster.Traits, domSp, align, aff float64) float64 {
	p := 0.15 +
		0.35*sp.Persuasion +
		0.25*math.Min(1, domSp/1.5) +
		0.20*align +
		0.25*clamp(aff, -0.5, 0.5) -
		0.20*li.ConflictAvoid
	return clamp(p, 0.02, 0.9)
}

// alignScore measures how well the speaker's target stance serves the
// listener's goals.
func alignScore(goals map[dialog.Criterion]float64, target dialog.Stance) float64 {
	g := func(c dialog.Criterion) float64 { return goals[c] }
	switch target {
	case dialog.StanceFor:
		return 0.6*g(dialog.CriterionInnovation) + 0.4*g(dialog.CriterionSpeed)
	case dialog.StanceAgainst:
		return 0.6*g(dialog.CriterionRisk) + 0.4*g(dialog.CriterionCost)
	default:
		return 0.5*g(dialog.CriterionConsensus) + 0.5*g(dialog.CriterionFairness)
	}
}

// towardStance moves one step along the stance order toward target.
func towardStance(current, target dialog.Stance) dialog.Stance {
	ci, ti := stanceIndex(current), stanceIndex(target)
	switch {
	case ci < ti:
		return dialog.StanceOrder[ci+1]
	case ci > ti:
		return dialog.StanceOrder[ci-1]
	}
	return current
}

func stanceIndex(st dialog.Stance) int {
	for i, o := range dialog.StanceOrder {
		if o == st {
			return i
		}
	}
	return 1
}

// maybeShift runs one persuasion attempt: the listener may move one stance
// step toward the speaker's stance. The base probability is scaled by the
// decayed history bias and clamped to [0.02, 0.95] before sampling. A
// successful shift strengthens affinity; a failed attempt erodes it
// slightly.
func (s *State) maybeShift(listener, speaker string) {
	if listener == speaker {
		return
	}
	target := s.stances[speaker]
	align := alignScore(s.goals[listener], target)
	aff := s.affinityOf(listener, speaker)
	bias := s.decayedSupportBias(listener, speaker)

	p := persuasionProbability(s.traits[speaker], s.traits[listener], s.dominance[speaker], align, aff)
	p = clamp(p*(1+0.25*bias), 0.02, 0.95)

	if s.rng.Float64() < p {
		old := s.stances[listener]
		next := towardStance(old, target)
		if next != old {
			s.stances[listener] = next
			s.appendLine(fmt.Sprintf("[%s] (%s seems swayed toward %s after %s's response.)", s.stage, listener, next, speaker))
			s.updateAffinity(listener, speaker, affinityOnShift)
		}
		return
	}
	s.updateAffinity(listener, speaker, affinityOnMiss)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
