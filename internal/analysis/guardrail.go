package analysis

// CrisisBanner is prepended to the suggestion, before any other rendering,
// when the extracted record's crisis flag is true. It is a textual prepend:
// downstream consumers see it only as part of the suggestion content.
const CrisisBanner = "If you are in crisis or thinking about harming yourself, please reach out right now: call or text 988 (Suicide & Crisis Lifeline, U.S.) or contact your local emergency services. You matter, and you don't have to face this alone."

// Disclaimer is appended to every rendered suggestion.
const Disclaimer = "This companion is not a medical device and does not provide diagnosis."

// ApplyGuardrail prepends the crisis banner when the flag is set. The flag
// is entirely model-asserted; there is no local crisis heuristic backing it
// up.
func ApplyGuardrail(suggestion string, crisis bool) string {
	if !crisis {
		return suggestion
	}
	return CrisisBanner + "\n\n" + suggestion
}
