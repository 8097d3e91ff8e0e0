package roster

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plenum-ai/plenum/internal/dialog"
)

// Load reads a roster from a YAML file and validates it.
func Load(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return Roster{}, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()

	r, err := Parse(f)
	if err != nil {
		return Roster{}, fmt.Errorf("roster: parse %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a roster from YAML. Unknown fields are rejected so typos in
// config files surface as errors instead of silently defaulted profiles.
func Parse(r io.Reader) (Roster, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ros Roster
	if err := dec.Decode(&ros); err != nil {
		return Roster{}, fmt.Errorf("decode yaml: %w", err)
	}
	applyDefaults(&ros)
	if err := ros.Validate(); err != nil {
		return Roster{}, fmt.Errorf("validate: %w", err)
	}
	return ros, nil
}

// applyDefaults fills zero-valued profile fields with the engine defaults so
// config files only need to state what differs.
func applyDefaults(r *Roster) {
	for i := range r.Participants {
		p := &r.Participants[i]
		if p.Stance == "" {
			p.Stance = dialog.StanceNeutral
		}
		if p.Dominance == 0 {
			p.Dominance = 1.0
		}
		if p.Goals == nil {
			p.Goals = make(map[dialog.Criterion]float64, len(dialog.Criteria))
		}
		for _, c := range dialog.Criteria {
			if _, ok := p.Goals[c]; !ok {
				p.Goals[c] = 0.5
			}
		}
	}
}
