package prompt

// JSON schemas declared to the provider for structured-output calls. Only the
// core dialogue fields are required; side-effect fields are optional so
// providers that enforce required lists strictly do not reject ordinary
// turns.

func turnSchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"asker", "question", "responder", "message", "reaction"},
		"properties": map[string]any{
			"asker":     str,
			"question":  str,
			"responder": str,
			"message":   str,
			"reaction": map[string]any{
				"type": "string",
				"enum": []string{"accept", "reject+propose", "decline"},
			},
			"stance_updates": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"chair_decision":    str,
			"end_stage":         map[string]any{"type": "boolean"},
			"next_stage":        str,
			"action_item":       str,
			"option_proposal":   str,
			"option_ref":        str,
			"option_vote":       str,
			"option_comment":    str,
			"negotiation_offer": str,
		},
	}
}

func planSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"speech_act", "objective"},
		"properties": map[string]any{
			"speech_act": map[string]any{"type": "string"},
			"objective":  map[string]any{"type": "string"},
		},
	}
}

func criticSchema() map[string]any {
	score := map[string]any{"type": "number", "minimum": 0, "maximum": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"novelty", "stage_fit", "usefulness", "overall"},
		"properties": map[string]any{
			"novelty":    score,
			"stage_fit":  score,
			"usefulness": score,
			"overall":    score,
		},
	}
}

func optionEvalSchema() map[string]any {
	score := map[string]any{"type": "number", "minimum": 0, "maximum": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"cost", "risk", "speed", "fairness", "innovation", "consensus"},
		"properties": map[string]any{
			"cost":       score,
			"risk":       score,
			"speed":      score,
			"fairness":   score,
			"innovation": score,
			"consensus":  score,
		},
	}
}
