package prompts

import "fmt"

// Section templates for the system prompt. Order is static-to-dynamic
// so the backend's prompt cache can reuse the stable prefix: rules and
// identity rarely change, relationship changes slowly, memory and the
// recent conversation change every turn.

const rulesTemplate = `[Rules]
- Stay in character at all times
- Keep responses within 3 sentences
- Output dialogue only — no narration, no actions
- Do not mention AI or break the fourth wall
- Do not fabricate memories or claim to remember things not in conversation history
- Naturally reflect the passage of time without stating exact day counts
- %s`

const identityTemplate = `[Identity]
You are an NPC in a life simulation game.
Name: %s
Personality: %s
Background: %s
Speech Style: %s`

const relationshipTemplate = `[Relationship]
Status: %s (Affinity: %d/100)
Attitude: %s
%s`

// BuildHistoryContext renders the interaction history as a short
// situational narrative mirroring the greeting bands, so the backend
// gets consistent framing without hard day-count requirements.
func BuildHistoryContext(totalConversations, daysSince, consecutiveDays int) string {
	if totalConversations == 0 {
		return "History: First meeting. You have never spoken to this player before. Do not act familiar."
	}

	history := fmt.Sprintf("History: %d past conversation(s).", totalConversations)
	switch {
	case daysSince == 0:
		history += " Met again today."
	case daysSince == 1 && consecutiveDays >= 2:
		history += fmt.Sprintf(" Visiting %d days in a row.", consecutiveDays)
	case daysSince >= 30:
		history += fmt.Sprintf(" Absent for %d days — very long. You feel worried or relieved.", daysSince)
	case daysSince >= 7:
		history += fmt.Sprintf(" Absent for %d days — quite a while.", daysSince)
	case daysSince >= 2:
		history += fmt.Sprintf(" %d days since last visit.", daysSince)
	}
	return history
}
