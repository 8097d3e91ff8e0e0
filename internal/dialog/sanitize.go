package dialog

import (
	"math/rand/v2"
	"strings"

	"github.com/antzucaro/matchr"
)

// nonPersonNames are collective addressees the model sometimes emits instead
// of a participant name. They all resolve to the chair.
var nonPersonNames = map[string]struct{}{
	"all":       {},
	"everyone":  {},
	"team":      {},
	"group":     {},
	"committee": {},
	"room":      {},
}

// fuzzyNameThreshold is the minimum Jaro-Winkler similarity for a
// model-emitted name to resolve to a roster name. Below it the chair is
// substituted.
const fuzzyNameThreshold = 0.88

// CoerceAgent maps a model-emitted name onto the roster. Collective
// addressees ("everyone", "the room") and unrecognisable names resolve to the
// chair; near-misses of a roster name (typos, dropped diacritics) resolve to
// the closest participant by Jaro-Winkler similarity.
func CoerceAgent(name string, agents []string, chair string) string {
	low := strings.ToLower(strings.TrimSpace(name))
	if low == "" {
		return chair
	}
	if _, ok := nonPersonNames[low]; ok {
		return chair
	}
	for _, a := range agents {
		if low == strings.ToLower(a) {
			return a
		}
	}

	best := chair
	bestScore := fuzzyNameThreshold
	for _, a := range agents {
		if s := matchr.JaroWinkler(low, strings.ToLower(a), false); s >= bestScore {
			best, bestScore = a, s
		}
	}
	return best
}

// PickAlternate returns a random roster member other than agent, or agent
// itself when the roster has no one else.
func PickAlternate(rng *rand.Rand, agent string, agents []string) string {
	others := make([]string, 0, len(agents))
	for _, a := range agents {
		if a != agent {
			others = append(others, a)
		}
	}
	if len(others) == 0 {
		return agent
	}
	return others[rng.IntN(len(others))]
}

// NormalizeReaction collapses free-form reaction text onto the three valid
// reactions by fuzzy prefix. Anything unrecognised becomes accept.
func NormalizeReaction(r string) Reaction {
	rl := strings.ToLower(strings.TrimSpace(r))
	switch Reaction(rl) {
	case ReactionAccept, ReactionRejectPropose, ReactionDecline:
		return Reaction(rl)
	}
	switch {
	case hasAnyPrefix(rl, "acknowled", "agree", "yes"):
		return ReactionAccept
	case hasAnyPrefix(rl, "reject", "counter", "propos"):
		return ReactionRejectPropose
	case hasAnyPrefix(rl, "decline", "no", "disagree"):
		return ReactionDecline
	}
	return ReactionAccept
}

// ValidNextStage returns s when it names a known stage, else fallback.
func ValidNextStage(s string, fallback Stage) Stage {
	if st := Stage(strings.ToLower(strings.TrimSpace(s))); st.IsValid() {
		return st
	}
	return fallback
}

// Sanitize rewrites t in place so every field is safe to apply to meeting
// state: asker and responder are roster members and distinct, the reaction
// and next stage are valid, and the message is non-empty. caller is the
// participant whose turn produced t; it backstops a missing asker.
func Sanitize(t *Turn, agents []string, chair, caller string, rng *rand.Rand, current Stage) {
	asker := t.Asker
	if strings.TrimSpace(asker) == "" {
		asker = caller
	}
	t.Asker = CoerceAgent(asker, agents, chair)

	responder := t.Responder
	if strings.TrimSpace(responder) == "" {
		responder = PickAlternate(rng, t.Asker, agents)
	}
	t.Responder = CoerceAgent(responder, agents, chair)
	if t.Asker == t.Responder {
		t.Responder = PickAlternate(rng, t.Asker, agents)
	}

	t.Reaction = string(NormalizeReaction(t.Reaction))
	t.NextStage = string(ValidNextStage(t.NextStage, current))

	if strings.TrimSpace(t.Message) == "" {
		t.Message = "Noted."
	}
}

// hasAnyPrefix reports whether s starts with any of the given prefixes.
func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
