package roster

import (
	"errors"
	"strings"
	"testing"

	"github.com/plenum-ai/plenum/internal/dialog"
)

func TestDefaultRosterValidates(t *testing.T) {
	t.Parallel()

	r := Default()
	if err := r.Validate(); err != nil {
		t.Fatalf("default roster invalid: %v", err)
	}
	if got := r.Chair().Name; got != "Alice" {
		t.Fatalf("chair = %q, want Alice", got)
	}
	want := []string{"Alice", "Bob", "Charlie", "Dana"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Roster { return Default() }

	tests := []struct {
		name    string
		mutate  func(*Roster)
		wantErr string
	}{
		{
			name:    "too few participants",
			mutate:  func(r *Roster) { r.Participants = r.Participants[:1] },
			wantErr: "at least 2 participants",
		},
		{
			name: "duplicate names case-insensitive",
			mutate: func(r *Roster) {
				r.Participants[1].Name = "ALICE"
			},
			wantErr: "duplicates",
		},
		{
			name: "persona too short",
			mutate: func(r *Roster) {
				r.Participants[2].Persona = "short"
			},
			wantErr: "persona length",
		},
		{
			name: "dominance out of range",
			mutate: func(r *Roster) {
				r.Participants[1].Dominance = 3.5
			},
			wantErr: "dominance",
		},
		{
			name: "trait out of range",
			mutate: func(r *Roster) {
				r.Participants[3].Traits.Interrupt = 1.2
			},
			wantErr: "traits.interrupt",
		},
		{
			name: "invalid stance",
			mutate: func(r *Roster) {
				r.Participants[2].Stance = "undecided"
			},
			wantErr: "stance",
		},
		{
			name: "goal weight out of range",
			mutate: func(r *Roster) {
				r.Participants[1].Goals[dialog.CriterionCost] = -0.1
			},
			wantErr: "goals.cost",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChairCount(t *testing.T) {
	t.Parallel()

	r := Default()
	r.Participants[0].Chair = false
	if err := r.Validate(); !errors.Is(err, ErrNoChair) {
		t.Fatalf("no chair: got %v, want ErrNoChair", err)
	}

	r = Default()
	r.Participants[1].Chair = true
	if err := r.Validate(); !errors.Is(err, ErrNoChair) {
		t.Fatalf("two chairs: got %v, want ErrNoChair", err)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()
		r, err := Parse(strings.NewReader(`
participants:
  - name: Erin
    persona: Budget hawk who pushes back on every new line item.
    chair: true
    traits:
      persuasion: 0.8
  - name: Frank
    persona: Growth lead chasing top-line revenue above all.
    stance: for
`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		erin := r.Participants[0]
		if erin.Stance != dialog.StanceNeutral {
			t.Fatalf("stance default = %q", erin.Stance)
		}
		if erin.Dominance != 1.0 {
			t.Fatalf("dominance default = %v", erin.Dominance)
		}
		if got := erin.Goals[dialog.CriterionRisk]; got != 0.5 {
			t.Fatalf("goal default = %v", got)
		}
		if erin.Traits.Persuasion != 0.8 {
			t.Fatalf("persuasion = %v", erin.Traits.Persuasion)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(`
participants:
  - name: Erin
    persona: Budget hawk who pushes back on every new line item.
    chair: true
    mood: grumpy
  - name: Frank
    persona: Growth lead chasing top-line revenue above all.
`))
		if err == nil {
			t.Fatal("unknown field accepted")
		}
	})

	t.Run("invalid roster rejected", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(`
participants:
  - name: Erin
    persona: Budget hawk who pushes back on every new line item.
    chair: true
`))
		if err == nil {
			t.Fatal("single-participant roster accepted")
		}
	})
}

func TestByName(t *testing.T) {
	t.Parallel()

	r := Default()
	if p, ok := r.ByName("bob"); !ok || p.Name != "Bob" {
		t.Fatalf("ByName(bob) = %v, %v", p.Name, ok)
	}
	if _, ok := r.ByName("Mallory"); ok {
		t.Fatal("unknown name found")
	}
}
