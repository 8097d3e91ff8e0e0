package meeting

import (
	"errors"
	"fmt"
	"math"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/prompt"
)

// defaultSoftDeadline is the global turn count after which the chair forces a
// decision, absent a MaxTurns override.
const defaultSoftDeadline = 40

// stageCaps is the base per-stage turn budget.
var stageCaps = map[dialog.Stage]int{
	dialog.StageIntroduce: 6,
	dialog.StageClarify:   6,
	dialog.StageDiscuss:   8,
	dialog.StageOptions:   6,
	dialog.StageEvaluate:  6,
	dialog.StageDecide:    4,
	dialog.StageConfirm:   2,
}

// interruptionBases is the base interruption probability per stage.
var interruptionBases = map[dialog.Stage]float64{
	dialog.StageIntroduce: 0.04,
	dialog.StageClarify:   0.05,
	dialog.StageDiscuss:   0.16,
	dialog.StageOptions:   0.12,
	dialog.StageEvaluate:  0.16,
	dialog.StageDecide:    0.08,
	dialog.StageConfirm:   0.02,
}

// Conditions is the optional environment configuration for a meeting. The
// zero value means: full stage budgets, base temperatures, base interruption
// rates, unanimous consensus, and the default 40-turn soft deadline.
type Conditions struct {
	// TimePressure in [0, 1] tightens the per-stage turn budgets, down to
	// half at full pressure.
	TimePressure float64 `yaml:"time_pressure"`

	// Formality in [0, 1] lowers candidate generation temperatures.
	Formality float64 `yaml:"formality"`

	// ConflictTolerance in [0, 1] raises the interruption base probability.
	ConflictTolerance float64 `yaml:"conflict_tolerance"`

	// DecisionThreshold in [0.5, 1.0] switches consensus detection from
	// unanimity to a largest-stance-share rule. Zero keeps unanimity.
	DecisionThreshold float64 `yaml:"decision_threshold"`

	// MaxTurns in [10, 200] overrides the 40-turn soft deadline. Zero keeps
	// the default.
	MaxTurns int `yaml:"max_turns"`

	// CreativityMode raises the options-stage temperature.
	CreativityMode bool `yaml:"creativity_mode"`
}

// Validate checks every set field against its documented range.
func (c Conditions) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"time_pressure":      c.TimePressure,
		"formality":          c.Formality,
		"conflict_tolerance": c.ConflictTolerance,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("conditions: %s %.2f is out of range [0, 1]", name, v))
		}
	}
	if c.DecisionThreshold != 0 && (c.DecisionThreshold < 0.5 || c.DecisionThreshold > 1.0) {
		errs = append(errs, fmt.Errorf("conditions: decision_threshold %.2f is out of range [0.5, 1.0]", c.DecisionThreshold))
	}
	if c.MaxTurns != 0 && (c.MaxTurns < 10 || c.MaxTurns > 200) {
		errs = append(errs, fmt.Errorf("conditions: max_turns %d is out of range [10, 200]", c.MaxTurns))
	}
	return errors.Join(errs...)
}

// softDeadline returns the global turn budget.
func (c Conditions) softDeadline() int {
	if c.MaxTurns > 0 {
		return c.MaxTurns
	}
	return defaultSoftDeadline
}

// stageCap returns the turn budget for a stage, tightened by time pressure.
// The budget never drops below 2 so every stage gets at least a brief
// exchange.
func (c Conditions) stageCap(stage dialog.Stage) int {
	base, ok := stageCaps[stage]
	if !ok {
		base = 6
	}
	scaled := int(math.Round(float64(base) * (1 - 0.5*c.TimePressure)))
	if scaled < 2 {
		return 2
	}
	return scaled
}

// interruptionBase returns the interruption base probability for a stage,
// raised by conflict tolerance.
func (c Conditions) interruptionBase(stage dialog.Stage) float64 {
	return interruptionBases[stage] + 0.1*c.ConflictTolerance
}

// tuning exposes the prompting-relevant knobs.
func (c Conditions) tuning() prompt.Tuning {
	return prompt.Tuning{Formality: c.Formality, CreativityMode: c.CreativityMode}
}
