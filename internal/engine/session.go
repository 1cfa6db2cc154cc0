package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/quest"
	"github.com/mirinae-games/npc-engine/pkg/state"
)

// Session is one continuous exchange with a character, from open to
// close. It owns the character's in-memory state for its duration; all
// mutation goes through the orchestrator while holding mu, so a
// character's writes serialize even if sessions for different
// characters run concurrently.
type Session struct {
	ID          uuid.UUID
	CharacterID string

	profile      *npc.Profile
	relationship *npc.Relationship
	interaction  *npc.Interaction
	memory       *npc.Memory
	quests       *quest.Engine
	record       *state.CharacterRecord

	greeting    string
	maxTurns    int
	playerTurns int

	// turnSeq issues monotonically increasing turn tokens; a reply
	// carrying a stale token is discarded, which keeps memory in
	// strict submission order.
	turnSeq uint64
	closed  bool

	mu sync.Mutex
}

// Greeting is the opening line selected when the session started.
func (s *Session) Greeting() string {
	return s.greeting
}

// Name is the character's display name.
func (s *Session) Name() string {
	return s.profile.Name
}

// Affinity is the current affinity value.
func (s *Session) Affinity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationship.Affinity
}

// RemainingTurns is how many more player turns this session allows.
func (s *Session) RemainingTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.maxTurns - s.playerTurns
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AtTurnLimit reports whether the session reached its turn allowance.
func (s *Session) AtTurnLimit() bool {
	return s.RemainingTurns() == 0
}

// Farewell is the closing line for the session's affinity tier.
func (s *Session) Farewell() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationship.Farewell()
}

// HasPendingProposal reports whether a quest proposal awaits an answer.
func (s *Session) HasPendingProposal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quests.HasPendingProposal()
}

// HasActiveQuest reports whether a quest is in progress.
func (s *Session) HasActiveQuest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quests.HasActiveQuest()
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// beginTurn issues the next turn token. Callers hold s.mu.
func (s *Session) beginTurn() uint64 {
	s.turnSeq++
	return s.turnSeq
}

// stale reports whether a token no longer matches the latest turn or
// the session closed while its request was in flight. Callers hold s.mu.
func (s *Session) stale(token uint64) bool {
	return s.closed || token != s.turnSeq
}
