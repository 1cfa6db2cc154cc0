package npc

import "time"

// DateLayout is the calendar-date form used for all persisted dates.
const DateLayout = "2006-01-02"

// Interaction tracks per-character conversation history: total count,
// day streak, and the daily affinity-gain allowance. Dates are stored as
// calendar-date strings; a malformed stored date is treated as no record.
type Interaction struct {
	TotalConversations   int    `json:"total_conversations"`
	LastConversationDate string `json:"last_conversation_date,omitempty"`
	ConsecutiveDays      int    `json:"consecutive_days"`
	DailyAffinityGranted int    `json:"daily_affinity_granted"`
	DailyAffinityDate    string `json:"daily_affinity_date,omitempty"`
}

// RecordConversation registers a completed conversation session.
// The total always increments; the streak only moves on a date
// transition: it increments when the new date is exactly one day after
// the last conversation, otherwise it resets to 1.
func (i *Interaction) RecordConversation(now time.Time) {
	i.TotalConversations++

	today := now.Format(DateLayout)
	if i.LastConversationDate == today {
		return
	}

	if i.isYesterday(i.LastConversationDate, now) {
		i.ConsecutiveDays++
	} else {
		i.ConsecutiveDays = 1
	}
	i.LastConversationDate = today
}

// DaysSince returns the number of calendar days since the last
// conversation: -1 with no prior record, 0 for today, 1 for yesterday.
func (i *Interaction) DaysSince(now time.Time) int {
	if i.LastConversationDate == "" {
		return -1
	}
	last, err := time.Parse(DateLayout, i.LastConversationDate)
	if err != nil {
		return -1
	}
	return daysBetween(last, now)
}

// TalkedToday reports whether a conversation was already recorded today.
func (i *Interaction) TalkedToday(now time.Time) bool {
	return i.LastConversationDate == now.Format(DateLayout)
}

// RemainingDailyAffinityGain returns how much conversation-driven
// affinity may still be granted today. The allowance refills when the
// stored daily date differs from today.
func (i *Interaction) RemainingDailyAffinityGain(cap int, now time.Time) int {
	if i.DailyAffinityDate != now.Format(DateLayout) {
		return cap
	}
	remaining := cap - i.DailyAffinityGranted
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordAffinityGain counts a grant against today's allowance.
func (i *Interaction) RecordAffinityGain(amount int, now time.Time) {
	today := now.Format(DateLayout)
	if i.DailyAffinityDate != today {
		i.DailyAffinityDate = today
		i.DailyAffinityGranted = 0
	}
	i.DailyAffinityGranted += amount
}

func (i *Interaction) isYesterday(dateStr string, now time.Time) bool {
	if dateStr == "" {
		return false
	}
	last, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return false
	}
	return daysBetween(last, now) == 1
}

// daysBetween counts calendar-day boundaries between two instants,
// ignoring time of day.
func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
