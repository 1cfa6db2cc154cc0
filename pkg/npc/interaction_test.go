package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRecordConversation_FirstEver(t *testing.T) {
	i := &Interaction{}
	i.RecordConversation(date("2026-03-01"))

	assert.Equal(t, 1, i.TotalConversations)
	assert.Equal(t, 1, i.ConsecutiveDays)
	assert.Equal(t, "2026-03-01", i.LastConversationDate)
}

func TestRecordConversation_SameDayIsStreakNoOp(t *testing.T) {
	i := &Interaction{}
	now := date("2026-03-01")
	i.RecordConversation(now)
	i.RecordConversation(now)

	// Total still increments per call; streak state does not move twice.
	assert.Equal(t, 2, i.TotalConversations)
	assert.Equal(t, 1, i.ConsecutiveDays)
	assert.Equal(t, "2026-03-01", i.LastConversationDate)
}

func TestRecordConversation_ConsecutiveDaysIncrement(t *testing.T) {
	i := &Interaction{}
	i.RecordConversation(date("2026-03-01"))
	i.RecordConversation(date("2026-03-02"))
	i.RecordConversation(date("2026-03-03"))

	assert.Equal(t, 3, i.TotalConversations)
	assert.Equal(t, 3, i.ConsecutiveDays)
}

func TestRecordConversation_GapResetsStreak(t *testing.T) {
	i := &Interaction{}
	i.RecordConversation(date("2026-03-01"))
	i.RecordConversation(date("2026-03-02"))
	i.RecordConversation(date("2026-03-05"))

	assert.Equal(t, 1, i.ConsecutiveDays)
	assert.Equal(t, "2026-03-05", i.LastConversationDate)
}

func TestDaysSince(t *testing.T) {
	tests := []struct {
		name     string
		lastDate string
		now      string
		expected int
	}{
		{"no record", "", "2026-03-10", -1},
		{"same day", "2026-03-10", "2026-03-10", 0},
		{"yesterday", "2026-03-09", "2026-03-10", 1},
		{"a week", "2026-03-03", "2026-03-10", 7},
		{"across month boundary", "2026-02-27", "2026-03-02", 3},
		{"malformed date fails open", "not-a-date", "2026-03-10", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &Interaction{LastConversationDate: tt.lastDate}
			assert.Equal(t, tt.expected, i.DaysSince(date(tt.now)))
		})
	}
}

func TestRecordConversation_MalformedStoredDate(t *testing.T) {
	// A malformed stored date is treated as no record: the streak
	// resets rather than raising.
	i := &Interaction{LastConversationDate: "garbage", ConsecutiveDays: 7}
	i.RecordConversation(date("2026-03-10"))

	assert.Equal(t, 1, i.ConsecutiveDays)
	assert.Equal(t, "2026-03-10", i.LastConversationDate)
}

func TestTalkedToday(t *testing.T) {
	i := &Interaction{LastConversationDate: "2026-03-10"}
	assert.True(t, i.TalkedToday(date("2026-03-10")))
	assert.False(t, i.TalkedToday(date("2026-03-11")))
}

func TestRemainingDailyAffinityGain(t *testing.T) {
	now := date("2026-03-10")
	i := &Interaction{}

	assert.Equal(t, 5, i.RemainingDailyAffinityGain(5, now))

	i.RecordAffinityGain(2, now)
	assert.Equal(t, 3, i.RemainingDailyAffinityGain(5, now))

	i.RecordAffinityGain(3, now)
	assert.Equal(t, 0, i.RemainingDailyAffinityGain(5, now))

	// Next day the allowance refills.
	assert.Equal(t, 5, i.RemainingDailyAffinityGain(5, date("2026-03-11")))
}

func TestRecordAffinityGain_DateRollover(t *testing.T) {
	i := &Interaction{}
	i.RecordAffinityGain(4, date("2026-03-10"))
	i.RecordAffinityGain(1, date("2026-03-11"))

	assert.Equal(t, 1, i.DailyAffinityGranted)
	assert.Equal(t, "2026-03-11", i.DailyAffinityDate)
}
