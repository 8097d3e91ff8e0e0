// Package meeting implements the deliberation engine: the meeting state, the
// option registry with weighted voting, the persuasion and affinity social
// model, the chair and stage controller, per-agent turn execution, the
// summariser, and the orchestrator that streams the transcript as events.
//
// One [State] value belongs to exactly one meeting run and is mutated by a
// single goroutine. Concurrency lives at the [Engine] level: each Run spawns
// its own orchestrator over its own State.
package meeting

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/observe"
	"github.com/plenum-ai/plenum/internal/roster"
)

// DefaultIssue is used when a request does not name an issue.
const DefaultIssue = "How can I make product X in the UK more profitable ?"

// pair keys directed per-agent relations: p.listener's view of p.speaker.
type pair struct {
	listener string
	speaker  string
}

// interaction is one entry in the interaction history.
type interaction struct {
	turn int
	val  int
}

// Edge records one question/response/reaction exchange for post-meeting
// conversation graphs.
type Edge struct {
	From     string       `json:"from"`
	To       string       `json:"to"`
	Stage    dialog.Stage `json:"stage"`
	Question string       `json:"question"`
	Response string       `json:"response"`
	Reaction string       `json:"reaction"`
}

// EpisodicEntry is one row of the append-only episodic log, kept for
// post-meeting analysis only.
type EpisodicEntry struct {
	Turn    int               `json:"turn"`
	Stage   dialog.Stage      `json:"stage"`
	Speaker string            `json:"speaker"`
	Kind    string            `json:"kind"`
	Text    string            `json:"text"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Metrics are the per-meeting counters reported in the final event.
type Metrics struct {
	TurnsPerStage   map[dialog.Stage]int `json:"turns_per_stage"`
	TurnsByAgent    map[string]int       `json:"turns_by_agent"`
	Interruptions   int                  `json:"interruptions"`
	ActionsRaised   int                  `json:"actions_raised"`
	OptionsProposed int                  `json:"options_proposed"`
	VotesCast       int                  `json:"votes_cast"`
}

// State is the complete mutable state of one meeting run. It is owned by the
// orchestrator goroutine; nothing here is safe for concurrent use.
type State struct {
	issue  string
	stage  dialog.Stage
	agents []string
	chair  string

	personas  map[string]string
	stances   map[string]dialog.Stance
	dominance map[string]float64
	traits    map[string]roster.Traits
	goals     map[string]map[dialog.Criterion]float64

	turn       int
	stageTurns int

	dialogue   []string
	convoEdges []Edge
	decision   string

	options       map[string]*Option
	optionCounter int

	episodic []EpisodicEntry
	history  map[pair][]interaction
	affinity map[pair]float64

	metrics       Metrics
	stanceHistory []map[string]dialog.Stance
	actions       []string

	questionSeen map[string]struct{}
	recentPairs  [][2]string

	acceptsThisStage       int
	interruptionsThisStage int
	chairUsed              bool

	cond Conditions
	rng  *rand.Rand
	obs  *observe.Metrics
}

// newState builds the initial state from a validated roster.
func newState(issue string, ros roster.Roster, cond Conditions, rng *rand.Rand, obs *observe.Metrics) *State {
	s := &State{
		issue:        issue,
		stage:        dialog.StageIntroduce,
		chair:        ros.Chair().Name,
		personas:     make(map[string]string),
		stances:      make(map[string]dialog.Stance),
		dominance:    make(map[string]float64),
		traits:       make(map[string]roster.Traits),
		goals:        make(map[string]map[dialog.Criterion]float64),
		options:      make(map[string]*Option),
		history:      make(map[pair][]interaction),
		affinity:     make(map[pair]float64),
		questionSeen: make(map[string]struct{}),
		cond:         cond,
		rng:          rng,
		obs:          obs,
		metrics: Metrics{
			TurnsPerStage: make(map[dialog.Stage]int),
			TurnsByAgent:  make(map[string]int),
		},
	}
	for _, p := range ros.Participants {
		s.agents = append(s.agents, p.Name)
		s.personas[p.Name] = p.Persona
		s.stances[p.Name] = p.Stance
		s.dominance[p.Name] = p.Dominance
		s.traits[p.Name] = p.Traits
		goals := make(map[dialog.Criterion]float64, len(p.Goals))
		for c, w := range p.Goals {
			goals[c] = w
		}
		s.goals[p.Name] = goals
	}
	return s
}

// appendLine appends a dialogue line. Every emitted line goes through here so
// the orchestrator can stream the tail of the slice.
func (s *State) appendLine(line string) {
	s.dialogue = append(s.dialogue, line)
}

// chairLine appends a line spoken by the chair in the current stage.
func (s *State) chairLine(text string) {
	s.appendLine(fmt.Sprintf("[%s] CHAIR (%s): %s", s.stage, s.chair, text))
}

// resetStageCounters clears the per-stage counters after a stage change.
func (s *State) resetStageCounters() {
	s.stageTurns = 0
	s.acceptsThisStage = 0
	s.interruptionsThisStage = 0
}

// advanceStage moves to the given stage when it lies ahead of the current
// one, otherwise to the next stage in order. The meeting never regresses.
func (s *State) advanceStage(next ...dialog.Stage) {
	target := s.stage.Next()
	if len(next) > 0 && next[0].Index() > s.stage.Index() {
		target = next[0]
	}
	s.stage = target
	s.resetStageCounters()
}

// terminal reports whether the meeting has finished: the terminal stage has
// been reached and a decision is recorded.
func (s *State) terminal() bool {
	return s.stage == dialog.StageConfirm && s.decision != ""
}

// consensusReached reports whether the stances satisfy the consensus rule:
// unanimity by default, or a largest-share threshold when
// conditions.decision_threshold is set.
func (s *State) consensusReached() bool {
	if len(s.stances) == 0 {
		return false
	}
	counts := s.stanceCounts()
	if s.cond.DecisionThreshold > 0 {
		largest := 0
		for _, n := range counts {
			if n > largest {
				largest = n
			}
		}
		return float64(largest)/float64(len(s.stances)) >= s.cond.DecisionThreshold
	}
	return len(counts) == 1
}

// stanceCounts tallies current stances.
func (s *State) stanceCounts() map[dialog.Stance]int {
	counts := make(map[dialog.Stance]int)
	for _, st := range s.stances {
		counts[st]++
	}
	return counts
}

// majorityStance returns the most common stance, breaking ties in the fixed
// order for, against, neutral.
func (s *State) majorityStance() dialog.Stance {
	counts := s.stanceCounts()
	best := dialog.StanceNeutral
	bestN := -1
	for _, st := range []dialog.Stance{dialog.StanceFor, dialog.StanceAgainst, dialog.StanceNeutral} {
		if counts[st] > bestN {
			best, bestN = st, counts[st]
		}
	}
	return best
}

// episodicLog appends one entry to the episodic log.
func (s *State) episodicLog(speaker, kind, text string, meta map[string]string) {
	s.episodic = append(s.episodic, EpisodicEntry{
		Turn:    s.turn,
		Stage:   s.stage,
		Speaker: speaker,
		Kind:    kind,
		Text:    text,
		Meta:    meta,
	})
}

// memoryPack assembles the rolling context window: the last n dialogue lines,
// up to two unresolved questions, and the options brief.
func (s *State) memoryPack(n int) (last []string, unresolved []string, optionsBrief string) {
	if len(s.dialogue) > n {
		last = s.dialogue[len(s.dialogue)-n:]
	} else {
		last = s.dialogue
	}
	for _, d := range last {
		if strings.Contains(d, "?") {
			unresolved = append(unresolved, d)
		}
	}
	if len(unresolved) > 2 {
		unresolved = unresolved[len(unresolved)-2:]
	}
	return last, unresolved, s.optionsBrief()
}

// truncate shortens a brief to its newest max bytes. The window grows from
// the end, so truncation must drop the oldest content, not the newest.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
