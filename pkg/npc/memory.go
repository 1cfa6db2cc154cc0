package npc

import (
	"strings"
	"time"
)

const (
	// DefaultMaxRecentTurns bounds the session-scoped dialogue log.
	DefaultMaxRecentTurns = 5
	// DefaultMaxSummaryChars bounds the persistent long-term summary.
	DefaultMaxSummaryChars = 300

	// playerSpeaker marks player-authored turns in the dialogue log.
	playerSpeaker = "Player"
	// topicLimit is the per-session cap on the joined topic string.
	topicLimit = 80
)

// Memory is a character's two-level conversation memory: a short
// session-scoped log of recent turns, and a permanent bounded summary of
// what the player talked about across past sessions.
type Memory struct {
	RecentTurns []string `json:"recent_turns,omitempty"`
	Summary     string   `json:"summary,omitempty"`

	maxRecent  int
	maxSummary int
}

func NewMemory(maxRecent, maxSummary int) *Memory {
	if maxRecent <= 0 {
		maxRecent = DefaultMaxRecentTurns
	}
	if maxSummary <= 0 {
		maxSummary = DefaultMaxSummaryChars
	}
	return &Memory{maxRecent: maxRecent, maxSummary: maxSummary}
}

// AddPlayerTurn appends a player-authored turn.
func (m *Memory) AddPlayerTurn(text string) {
	m.addTurn(playerSpeaker + ": " + text)
}

// AddCharacterTurn appends a character reply under the given name.
func (m *Memory) AddCharacterTurn(name, text string) {
	m.addTurn(name + ": " + text)
}

// addTurn appends to the log, evicting the oldest entry on overflow.
func (m *Memory) addTurn(line string) {
	m.RecentTurns = append(m.RecentTurns, line)
	if len(m.RecentTurns) > m.maxRecent {
		m.RecentTurns = m.RecentTurns[1:]
	}
}

// HasRecent reports whether the session log holds any turns.
func (m *Memory) HasRecent() bool {
	return len(m.RecentTurns) > 0
}

// RecentConversation renders the session log for prompt injection.
func (m *Memory) RecentConversation() string {
	return strings.Join(m.RecentTurns, "\n")
}

// SummarizeSession folds the current session into the long-term summary
// as one dated line of player topics. The topic string is truncated to
// keep entries compact, and whole leading lines are dropped from the
// summary until the bound holds; the oldest sessions are lost first.
// A session with no player turns leaves the summary untouched.
func (m *Memory) SummarizeSession(now time.Time) {
	var topics []string
	for _, turn := range m.RecentTurns {
		if rest, ok := strings.CutPrefix(turn, playerSpeaker+": "); ok {
			topics = append(topics, rest)
		}
	}
	if len(topics) == 0 {
		return
	}

	joined := strings.Join(topics, ", ")
	if runes := []rune(joined); len(runes) > topicLimit {
		joined = string(runes[:topicLimit]) + "..."
	}
	entry := now.Format(DateLayout) + ": " + joined

	if m.Summary == "" {
		m.Summary = entry
	} else {
		m.Summary += "\n" + entry
	}

	for len([]rune(m.Summary)) > m.maxSummary {
		idx := strings.IndexByte(m.Summary, '\n')
		if idx < 0 {
			// A single line still over the bound is cut hard.
			m.Summary = string([]rune(m.Summary)[:m.maxSummary])
			break
		}
		m.Summary = m.Summary[idx+1:]
	}
}

// ClearSession empties the session log. The summary is untouched.
func (m *Memory) ClearSession() {
	m.RecentTurns = nil
}
