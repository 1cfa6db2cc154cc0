package npc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddTurn_EvictsOldest(t *testing.T) {
	m := NewMemory(0, 0)
	for i, text := range []string{"one", "two", "three", "four", "five", "six"} {
		if i%2 == 0 {
			m.AddPlayerTurn(text)
		} else {
			m.AddCharacterTurn("Haru", text)
		}
	}

	// The 6th turn evicts exactly the 1st.
	assert.Len(t, m.RecentTurns, 5)
	assert.Equal(t, "Haru: two", m.RecentTurns[0])
	assert.Equal(t, "Haru: six", m.RecentTurns[4])
}

func TestSummarizeSession_PlayerTurnsOnly(t *testing.T) {
	m := NewMemory(0, 0)
	m.AddPlayerTurn("I found a cave by the shore")
	m.AddCharacterTurn("Haru", "No way, really?")
	m.AddPlayerTurn("want to explore it together?")

	m.SummarizeSession(date("2026-03-10"))

	assert.Equal(t, "2026-03-10: I found a cave by the shore, want to explore it together?", m.Summary)
}

func TestSummarizeSession_NoPlayerTurnsIsNoOp(t *testing.T) {
	m := NewMemory(0, 0)
	m.Summary = "2026-03-01: old topics"
	m.AddCharacterTurn("Haru", "Talking to myself again...")

	m.SummarizeSession(date("2026-03-10"))

	assert.Equal(t, "2026-03-01: old topics", m.Summary)
}

func TestSummarizeSession_TruncatesTopics(t *testing.T) {
	m := NewMemory(0, 0)
	m.AddPlayerTurn(strings.Repeat("a", 120))

	m.SummarizeSession(date("2026-03-10"))

	assert.Equal(t, "2026-03-10: "+strings.Repeat("a", 80)+"...", m.Summary)
}

func TestSummarizeSession_DropsOldestLinesFirst(t *testing.T) {
	m := NewMemory(0, 0)
	days := []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}
	for _, day := range days {
		m.AddPlayerTurn("topic " + strings.Repeat("x", 70))
		m.SummarizeSession(date(day))
		m.ClearSession()
	}

	assert.LessOrEqual(t, len([]rune(m.Summary)), DefaultMaxSummaryChars)

	// Oldest lines are the ones that were dropped.
	assert.NotContains(t, m.Summary, "2026-03-01")
	assert.Contains(t, m.Summary, "2026-03-05")

	lines := strings.Split(m.Summary, "\n")
	for i := 1; i < len(lines); i++ {
		assert.Less(t, lines[i-1][:10], lines[i][:10], "summary lines stay in date order")
	}
}

func TestClearSession_KeepsSummary(t *testing.T) {
	m := NewMemory(0, 0)
	m.AddPlayerTurn("hello")
	m.SummarizeSession(date("2026-03-10"))
	m.ClearSession()

	assert.False(t, m.HasRecent())
	assert.NotEmpty(t, m.Summary)
}

func TestRecentConversation(t *testing.T) {
	m := NewMemory(0, 0)
	m.AddPlayerTurn("hi")
	m.AddCharacterTurn("Dane", "hm.")

	assert.Equal(t, "Player: hi\nDane: hm.", m.RecentConversation())
}
