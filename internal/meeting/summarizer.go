package meeting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plenum-ai/plenum/internal/prompt"
)

// summarizerStep condenses the last twelve dialogue lines into a running
// summary line. Summariser failure is non-fatal: the line is skipped and the
// meeting continues. Summary lines do not count toward stage turns.
func (s *State) summarizerStep(ctx context.Context, ad prompt.Adapter) {
	summary, err := ad.Summarize(ctx, s.memoryTail(12))
	if err != nil {
		slog.Debug("summariser skipped", "stage", s.stage, "error", err)
		return
	}
	if summary == "" {
		return
	}
	s.appendLine(fmt.Sprintf("[%s] (Summary) %s", s.stage, summary))
}
