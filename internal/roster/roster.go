// Package roster defines the participants of a Plenum meeting. A [Profile] is
// the full declarative configuration for one participant — persona, stance,
// dominance, personality traits, and goal weights over the decision criteria —
// and can be loaded from YAML config files or constructed programmatically.
//
// Profiles are read-only views for the duration of a meeting: the engine
// copies what it needs into its own state at construction.
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plenum-ai/plenum/internal/dialog"
)

// ErrNoChair is returned by [Roster.Validate] when no participant is marked
// as the chair.
var ErrNoChair = errors.New("roster: exactly one participant must be the chair")

// Traits holds the personality knobs that drive the social model.
// All values are in [0, 1].
type Traits struct {
	// Interrupt is the propensity to interrupt other speakers.
	Interrupt float64 `yaml:"interrupt"`

	// ConflictAvoid dampens how easily the participant is drawn into
	// confrontation; it lowers their susceptibility to persuasion pressure.
	ConflictAvoid float64 `yaml:"conflict_avoid"`

	// Persuasion is how convincing the participant is to others.
	Persuasion float64 `yaml:"persuasion"`
}

// Profile is the full declarative configuration for one meeting participant.
type Profile struct {
	// Name is the participant's display name. Names are unique per roster,
	// compared case-insensitively.
	Name string `yaml:"name"`

	// Persona is a free-text description of character and speaking style,
	// injected into every generation prompt. Length 10..500.
	Persona string `yaml:"persona"`

	// Stance is the opening position on the issue.
	Stance dialog.Stance `yaml:"stance"`

	// Dominance is a multiplicative weight in persuasion, in [0.1, 3.0].
	Dominance float64 `yaml:"dominance"`

	// Traits are the personality knobs for the social model.
	Traits Traits `yaml:"traits"`

	// Goals weights the six decision criteria for utility scoring. Missing
	// criteria receive the engine defaults.
	Goals map[dialog.Criterion]float64 `yaml:"goals"`

	// Chair marks the participant that drives stage transitions. Exactly one
	// participant per roster must be the chair.
	Chair bool `yaml:"chair"`
}

// Roster is an ordered list of participants. Order is meaningful: agents act
// in roster order every round.
type Roster struct {
	Participants []Profile `yaml:"participants"`
}

// Names returns the participant names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r.Participants))
	for i, p := range r.Participants {
		names[i] = p.Name
	}
	return names
}

// Chair returns the chair's profile. Call only after a successful Validate.
func (r Roster) Chair() Profile {
	for _, p := range r.Participants {
		if p.Chair {
			return p
		}
	}
	return Profile{}
}

// ByName returns the profile with the given name and whether it exists.
// Lookup is case-insensitive, matching the engine's name coercion.
func (r Roster) ByName(name string) (Profile, bool) {
	low := strings.ToLower(name)
	for _, p := range r.Participants {
		if strings.ToLower(p.Name) == low {
			return p, true
		}
	}
	return Profile{}, false
}

// Validate checks the roster against the engine contract: 2..12 participants,
// names 1..50 runes and unique case-folded, personas 10..500 runes, stance
// valid, dominance in [0.1, 3.0], traits in [0, 1], goal weights in [0, 1],
// and exactly one chair. It returns a joined error listing every violation.
func (r Roster) Validate() error {
	var errs []error

	if len(r.Participants) < 2 {
		errs = append(errs, fmt.Errorf("roster: need at least 2 participants, got %d", len(r.Participants)))
	}
	if len(r.Participants) > 12 {
		errs = append(errs, fmt.Errorf("roster: at most 12 participants supported, got %d", len(r.Participants)))
	}

	chairs := 0
	seen := make(map[string]int, len(r.Participants))
	for i, p := range r.Participants {
		prefix := fmt.Sprintf("participants[%d]", i)

		nameLen := len([]rune(p.Name))
		if nameLen < 1 || nameLen > 50 {
			errs = append(errs, fmt.Errorf("%s.name length %d is out of range [1, 50]", prefix, nameLen))
		}
		low := strings.ToLower(p.Name)
		if prev, dup := seen[low]; dup {
			errs = append(errs, fmt.Errorf("%s.name %q duplicates participants[%d] (names are case-insensitive)", prefix, p.Name, prev))
		}
		seen[low] = i

		personaLen := len([]rune(p.Persona))
		if personaLen < 10 || personaLen > 500 {
			errs = append(errs, fmt.Errorf("%s.persona length %d is out of range [10, 500]", prefix, personaLen))
		}
		if !p.Stance.IsValid() {
			errs = append(errs, fmt.Errorf("%s.stance %q is invalid; valid values: for, neutral, against", prefix, p.Stance))
		}
		if p.Dominance < 0.1 || p.Dominance > 3.0 {
			errs = append(errs, fmt.Errorf("%s.dominance %.2f is out of range [0.1, 3.0]", prefix, p.Dominance))
		}
		for name, v := range map[string]float64{
			"interrupt":      p.Traits.Interrupt,
			"conflict_avoid": p.Traits.ConflictAvoid,
			"persuasion":     p.Traits.Persuasion,
		} {
			if v < 0 || v > 1 {
				errs = append(errs, fmt.Errorf("%s.traits.%s %.2f is out of range [0, 1]", prefix, name, v))
			}
		}
		for c, w := range p.Goals {
			if w < 0 || w > 1 {
				errs = append(errs, fmt.Errorf("%s.goals.%s %.2f is out of range [0, 1]", prefix, c, w))
			}
		}
		if p.Chair {
			chairs++
		}
	}
	if chairs != 1 {
		errs = append(errs, ErrNoChair)
	}

	return errors.Join(errs...)
}

// Default returns the conventional four-participant roster with Alice as
// chair, neutral stances, balanced goals, and moderate traits.
func Default() Roster {
	mk := func(name, persona string, chair bool) Profile {
		goals := make(map[dialog.Criterion]float64, len(dialog.Criteria))
		for _, c := range dialog.Criteria {
			goals[c] = 0.5
		}
		return Profile{
			Name:      name,
			Persona:   persona,
			Stance:    dialog.StanceNeutral,
			Dominance: 1.0,
			Traits:    Traits{Interrupt: 0.2, ConflictAvoid: 0.5, Persuasion: 0.5},
			Goals:     goals,
			Chair:     chair,
		}
	}
	return Roster{Participants: []Profile{
		mk("Alice", "Pragmatic chair who keeps the group on schedule and on topic.", true),
		mk("Bob", "Data-driven analyst who wants numbers before commitments.", false),
		mk("Charlie", "Optimistic generalist who looks for quick wins.", false),
		mk("Dana", "Cautious operator focused on downside risk.", false),
	}}
}
