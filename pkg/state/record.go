package state

import "github.com/mirinae-games/npc-engine/pkg/npc"

// CharacterRecord is the full persisted state for one character. It is
// written whole on every mutating call; there are no partial writes.
// Quest completion timestamps are unix seconds, keyed by quest id.
type CharacterRecord struct {
	CharacterID          string           `json:"character_id"`
	Affinity             int              `json:"affinity"`
	TotalConversations   int              `json:"total_conversations"`
	LastConversationDate string           `json:"last_conversation_date,omitempty"`
	ConsecutiveDays      int              `json:"consecutive_days"`
	DailyAffinityGranted int              `json:"daily_affinity_granted"`
	DailyAffinityDate    string           `json:"daily_affinity_date,omitempty"`
	ActiveQuestID        string           `json:"active_quest_id,omitempty"`
	QuestCompletions     map[string]int64 `json:"quest_completions,omitempty"`
	QuestSequenceIndex   int              `json:"quest_sequence_index"`
	MemorySummary        string           `json:"memory_summary,omitempty"`
}

// NewCharacterRecord returns the defaults applied when no prior record
// exists (or the stored one is unreadable).
func NewCharacterRecord(characterID string) *CharacterRecord {
	return &CharacterRecord{
		CharacterID:        characterID,
		Affinity:           npc.DefaultAffinity,
		QuestSequenceIndex: -1,
	}
}
