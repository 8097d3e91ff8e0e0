package meeting

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/plenum-ai/plenum/internal/dialog"
	"github.com/plenum-ai/plenum/internal/observe"
	"github.com/plenum-ai/plenum/internal/prompt"
	"github.com/plenum-ai/plenum/internal/roster"
)

// cancelledDecision is recorded as the decision of a cancelled meeting.
const cancelledDecision = "Meeting cancelled by user"

// EventKind discriminates the two event types a meeting run produces.
type EventKind string

const (
	// EventDialogue carries one transcript line.
	EventDialogue EventKind = "dialogue"

	// EventFinal is the single terminal event of a run.
	EventFinal EventKind = "final"
)

// Event is one element of a meeting's event stream. Dialogue events carry
// Line; the final event carries the rest.
type Event struct {
	RunID string    `json:"run_id"`
	Kind  EventKind `json:"kind"`
	Line  string    `json:"line,omitempty"`

	Decision       string   `json:"decision,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	OptionsSummary string   `json:"options_summary,omitempty"`
	Metrics        *Metrics `json:"metrics,omitempty"`
	Cancelled      bool     `json:"cancelled,omitempty"`
}

// CancelHandle is a shared cancellation flag for one meeting run. The zero
// value is ready to use; a nil handle never cancels.
type CancelHandle struct {
	flag atomic.Bool
}

// NewCancelHandle returns a fresh, uncancelled handle.
func NewCancelHandle() *CancelHandle {
	return &CancelHandle{}
}

// Cancel requests cancellation. Safe to call from any goroutine, repeatedly.
func (h *CancelHandle) Cancel() {
	h.flag.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (h *CancelHandle) Cancelled() bool {
	return h != nil && h.flag.Load()
}

// Request describes one meeting run.
type Request struct {
	// Issue is the question under deliberation. Empty uses [DefaultIssue].
	Issue string

	// Roster lists the participants. Empty uses the default four-person
	// roster.
	Roster roster.Roster

	// Conditions tunes the environment. The zero value keeps all defaults.
	Conditions Conditions

	// Seed seeds the run's random source so scenarios reproduce. Zero picks
	// a random seed.
	Seed uint64

	// Cancel is the optional cancellation handle, checked before every
	// sub-step.
	Cancel *CancelHandle
}

// EngineConfig configures an [Engine].
type EngineConfig struct {
	// Metrics receives engine telemetry. Nil disables instrumentation.
	Metrics *observe.Metrics

	// EventBuffer is the event channel capacity. Default 64.
	EventBuffer int
}

// Engine runs meetings. One Engine may serve many concurrent runs; each run
// owns its own [State].
type Engine struct {
	adapter prompt.Adapter
	cfg     EngineConfig
}

// NewEngine creates an engine over the given adapter.
func NewEngine(ad prompt.Adapter, cfg EngineConfig) *Engine {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Engine{adapter: ad, cfg: cfg}
}

// Run validates the request and starts the meeting in its own goroutine.
// Events are delivered in transcript order on the returned channel, which is
// closed after the single final event. The consumer must drain the channel.
func (e *Engine) Run(ctx context.Context, req Request) (<-chan Event, error) {
	if req.Issue == "" {
		req.Issue = DefaultIssue
	}
	if len(req.Roster.Participants) == 0 {
		req.Roster = roster.Default()
	}
	if err := req.Roster.Validate(); err != nil {
		return nil, fmt.Errorf("meeting: invalid roster: %w", err)
	}
	if err := req.Conditions.Validate(); err != nil {
		return nil, fmt.Errorf("meeting: invalid conditions: %w", err)
	}

	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	runID := uuid.NewString()
	s := newState(req.Issue, req.Roster, req.Conditions, rng, e.cfg.Metrics)
	ch := make(chan Event, e.cfg.EventBuffer)
	go e.run(ctx, runID, s, req.Cancel, ch)
	return ch, nil
}

// run is the orchestrator loop: chair, each agent in roster order, then the
// summariser, emitting every new transcript line as it appears and checking
// cancellation before each sub-step.
func (e *Engine) run(ctx context.Context, runID string, s *State, cancel *CancelHandle, ch chan<- Event) {
	defer close(ch)

	ctx, span := observe.StartSpan(ctx, "meeting.run")
	defer span.End()
	log := observe.Logger(ctx).With("run_id", runID)
	log.Info("meeting started", "issue", s.issue, "agents", len(s.agents))

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ActiveMeetings.Add(ctx, 1)
		defer e.cfg.Metrics.ActiveMeetings.Add(ctx, -1)
	}

	emitted := 0
	consumerGone := false
	emit := func() bool {
		for ; emitted < len(s.dialogue); emitted++ {
			select {
			case ch <- Event{RunID: runID, Kind: EventDialogue, Line: s.dialogue[emitted]}:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}
	cancelled := func() bool {
		return cancel.Cancelled() || ctx.Err() != nil
	}

	wasCancelled := false
loop:
	for {
		if cancelled() {
			wasCancelled = true
			break
		}
		s.chairStep(ctx, e.adapter)
		if !emit() {
			consumerGone = true
			break
		}
		if s.terminal() {
			break
		}
		for _, agent := range s.agents {
			if cancelled() {
				wasCancelled = true
				break loop
			}
			s.agentStep(ctx, e.adapter, agent)
			if !emit() {
				consumerGone = true
				break loop
			}
			if s.terminal() {
				break
			}
		}
		if s.terminal() {
			break
		}
		if cancelled() {
			wasCancelled = true
			break
		}
		s.summarizerStep(ctx, e.adapter)
		if !emit() {
			consumerGone = true
			break
		}
	}

	if wasCancelled {
		s.decision = cancelledDecision
		s.stage = dialog.StageConfirm
	}

	final := Event{
		RunID:          runID,
		Kind:           EventFinal,
		Decision:       s.decision,
		OptionsSummary: s.OptionsSummary(),
		Metrics:        &s.metrics,
		Cancelled:      wasCancelled,
	}
	if !wasCancelled && !consumerGone {
		summary, err := e.adapter.SummarizeMeeting(ctx, prompt.FinalSummaryRequest{
			Issue:          s.issue,
			Decision:       s.decision,
			Chair:          s.chair,
			Actions:        s.actions,
			OptionsSummary: final.OptionsSummary,
			Dialogue:       s.dialogue,
		})
		if err != nil {
			log.Warn("final summary unavailable", "error", err)
			summary = "(summary unavailable)"
		}
		final.Summary = summary
	}

	select {
	case ch <- final:
	case <-ctx.Done():
	}
	log.Info("meeting finished",
		"decision", final.Decision,
		"cancelled", final.Cancelled,
		"turns", s.turn,
		"options", len(s.options))
}
