package prompt

import (
	"strings"
	"unicode"

	"github.com/plenum-ai/plenum/internal/dialog"
)

// stageKeywords are the phrases the heuristic rewards per stage. Stages not
// listed have no keyword bonus.
var stageKeywords = map[dialog.Stage][]string{
	dialog.StageClarify:  {"how", "what", "when", "why", "clarify", "specifically"},
	dialog.StageOptions:  {"option", "we could", "plan", "proposal"},
	dialog.StageEvaluate: {"pros", "cons", "tradeoff", "criterion", "risk", "cost"},
	dialog.StageDecide:   {"prefer", "decide", "choose", "recommend"},
}

// HeuristicScore rates a candidate utterance without an LLM call:
// 1.0 + specificity + stage fit − overlap penalty, floored at 0. Specificity
// rewards digits and long tokens; fit rewards stage keywords; the penalty
// counts candidate tokens already present in the last six recent lines.
func HeuristicScore(text string, stage dialog.Stage, recent []string) float64 {
	t := strings.ToLower(text)
	words := strings.Fields(t)

	overlap := 0.0
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	for _, r := range recent {
		if r == "" {
			continue
		}
		rlow := strings.ToLower(r)
		for _, w := range words {
			if strings.Contains(rlow, w) {
				overlap += 0.02
			}
		}
	}

	digits := 0
	for _, ch := range t {
		if unicode.IsDigit(ch) {
			digits++
		}
	}
	long := 0
	for _, w := range words {
		if len(w) > 6 {
			long++
		}
	}
	specificity := 0.05*float64(digits) + 0.03*float64(long)

	fit := 0.0
	for _, kw := range stageKeywords[stage] {
		if strings.Contains(t, kw) {
			fit += 0.1
		}
	}

	score := 1.0 + specificity + fit - overlap
	if score < 0 {
		return 0
	}
	return score
}
