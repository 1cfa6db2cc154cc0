package engine

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirinae-games/npc-engine/internal/services"
	"github.com/mirinae-games/npc-engine/internal/storage"
	"github.com/mirinae-games/npc-engine/pkg/budget"
	"github.com/mirinae-games/npc-engine/pkg/chat"
	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/quest"
	"github.com/mirinae-games/npc-engine/pkg/state"
)

type captureSink struct {
	mu      sync.Mutex
	replies []string
}

func (c *captureSink) DeliverReply(_ string, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, text)
}

func (c *captureSink) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.replies...)
}

func (c *captureSink) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return ""
	}
	return c.replies[len(c.replies)-1]
}

type fixture struct {
	orch    *Orchestrator
	storage *storage.MockStorage
	llm     *services.MockLLM
	sink    *captureSink
	clock   *FixedClock
	tracker *budget.Tracker
}

func newFixture(t *testing.T, dailyBudget int) *fixture {
	t.Helper()

	st := storage.NewMockStorage("")
	st.Profiles["haru"] = &npc.Profile{
		ID:          "haru",
		Name:        "Haru",
		Personality: "cheerful, curious",
		Background:  "Runs the orchard at the edge of town.",
		SpeechStyle: "short bright sentences",
	}
	st.Catalogs["haru"] = &quest.Catalog{
		CharacterID: "haru",
		Quests: []quest.Definition{{
			ID:             "haru_apples",
			Type:           quest.TypeFetch,
			MinAffinity:    0,
			MaxAffinity:    100,
			Cooldown:       quest.Duration(24 * time.Hour),
			RequiredItemID: "apple",
			RequiredAmount: 3,
			RewardAffinity: 5,
			ProposalText:   "Could you bring me three apples?",
			CompletionText: "These look wonderful, thank you!",
			ReminderText:   "You promised me apples, remember?",
		}},
	}

	llm := services.NewMockLLM()
	sink := &captureSink{}
	clock := &FixedClock{Time: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
	tracker := budget.NewTracker(dailyBudget, nil)

	orch := NewOrchestrator(st, llm, tracker, sink, clock,
		rand.New(rand.NewSource(7)), nil, Config{QuestMode: quest.ModePool})

	return &fixture{orch: orch, storage: st, llm: llm, sink: sink, clock: clock, tracker: tracker}
}

func TestFirstMeetingSession(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	// No persisted record: default affinity, first-meeting greeting.
	assert.Equal(t, npc.DefaultAffinity, s.Affinity())
	assert.Equal(t, "Hi! A new face, huh?", s.Greeting())

	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "hello there"))
	assert.Equal(t, []string{"Mock reply."}, f.sink.all())

	farewell := f.orch.EndSession(ctx, s)
	assert.NotEmpty(t, farewell)

	rec := f.storage.Records["haru"]
	require.NotNil(t, rec, "ending a session persists the record")
	assert.Equal(t, 1, rec.TotalConversations)
	assert.Equal(t, "2026-03-10", rec.LastConversationDate)
	assert.Contains(t, rec.MemorySummary, "2026-03-10: hello there")

	// End-of-session gain is 1 or 2, never more.
	assert.GreaterOrEqual(t, rec.Affinity, npc.DefaultAffinity+1)
	assert.LessOrEqual(t, rec.Affinity, npc.DefaultAffinity+2)
}

func TestReturningAfterAbsence(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.storage.Records["haru"] = &state.CharacterRecord{
		CharacterID:          "haru",
		Affinity:             72,
		TotalConversations:   12,
		LastConversationDate: "2026-02-28",
		ConsecutiveDays:      1,
		MemorySummary:        "2026-02-28: pruning season",
	}

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	// 10 days since the last visit lands in the week-absence band.
	assert.Contains(t, s.Greeting(), "10 days")
	assert.Equal(t, 72, s.Affinity())

	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "I was away visiting family"))

	// The remembered summary flows into the generation prompt.
	require.Equal(t, 1, f.llm.CallCount())
	system := f.llm.ChatCalls[0].Messages[0]
	assert.Equal(t, chat.ChatRoleSystem, system.Role)
	assert.Contains(t, system.Content, "pruning season")
	assert.Contains(t, system.Content, "Affinity: 72/100")

	f.orch.EndSession(ctx, s)

	rec := f.storage.Records["haru"]
	assert.Equal(t, 13, rec.TotalConversations)
	assert.Equal(t, 1, rec.ConsecutiveDays, "a gap resets the streak")
	assert.Contains(t, rec.MemorySummary, "pruning season")
	assert.Contains(t, rec.MemorySummary, "visiting family")
}

func TestQuestKeywordIntercept(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)
	require.True(t, s.HasPendingProposal())

	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "Got any QUESTS for me?"))

	// The proposal answers locally; the generation backend is not called.
	assert.Equal(t, "Could you bring me three apples?", f.sink.last())
	assert.Equal(t, 0, f.llm.CallCount())
}

func TestQuestAcceptAndDeliver(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	f.orch.AcceptProposal(ctx, s)
	require.True(t, s.HasActiveQuest())
	assert.Equal(t, "haru_apples", f.storage.Records["haru"].ActiveQuestID)

	// Not enough apples yet.
	assert.False(t, f.orch.CanDeliverQuestItem(ctx, s))

	require.NoError(t, f.storage.AddItem(ctx, "apple", 3))
	require.True(t, f.orch.CanDeliverQuestItem(ctx, s))

	before := s.Affinity()
	result, ok := f.orch.DeliverQuestItem(ctx, s)
	require.True(t, ok)

	assert.Equal(t, "haru_apples", result.QuestID)
	assert.Equal(t, before+5, s.Affinity())
	assert.Equal(t, "These look wonderful, thank you!", f.sink.last())
	assert.Equal(t, 0, f.storage.Items["apple"])

	rec := f.storage.Records["haru"]
	assert.Empty(t, rec.ActiveQuestID)
	assert.Contains(t, rec.QuestCompletions, "haru_apples")
}

func TestRejectProposal(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	f.orch.RejectProposal(s)
	assert.False(t, s.HasPendingProposal())
	assert.False(t, s.HasActiveQuest())

	// With the proposal gone, a quest request gets the no-quest line.
	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "any tasks?"))
	assert.Equal(t, "I don't have anything for you right now.", f.sink.last())
}

func TestBudgetGateUsesLocalFallback(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	f.tracker.Record("elsewhere", chat.Usage{PromptTokens: 50}, f.clock.Now())
	require.False(t, f.tracker.HasBudget(f.clock.Now()))

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "how was your day"))

	// No remote call, no usage recorded, but the player still gets a line.
	assert.Equal(t, 0, f.llm.CallCount())
	assert.Equal(t, 50, f.tracker.TodayTotal(f.clock.Now()))
	require.Len(t, f.sink.all(), 1)
	assert.NotEmpty(t, f.sink.last())
}

func TestGenerationFailureUsesErrorFallback(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.llm.ChatFunc = func(context.Context, []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, context.DeadlineExceeded
	}

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "hello?"))
	assert.Equal(t, fallbackErrorLine, f.sink.last())
}

func TestUsageRecordedPerCharacter(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "hello"))
	assert.Equal(t, 15, f.tracker.CharacterTokens("haru"))
	assert.Equal(t, 15, f.tracker.TodayTotal(f.clock.Now()))
}

func TestInputValidation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	assert.Error(t, f.orch.HandlePlayerInput(ctx, s, ""))
	assert.Error(t, f.orch.HandlePlayerInput(ctx, s, strings.Repeat("a", chat.MaxMessageLength+1)))

	// Rejected input consumes no turn, calls no backend, delivers nothing.
	assert.Equal(t, 7, s.RemainingTurns())
	assert.Equal(t, 0, f.llm.CallCount())
	assert.Empty(t, f.sink.all())
}

func TestTurnLimit(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// Affinity 10 allows 3 player turns.
	f.storage.Records["haru"] = &state.CharacterRecord{
		CharacterID:        "haru",
		Affinity:           10,
		TotalConversations: 2,
	}

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)
	assert.Equal(t, 3, s.RemainingTurns())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "hi"))
	}
	assert.True(t, s.AtTurnLimit())
	assert.Error(t, f.orch.HandlePlayerInput(ctx, s, "one more"))
}

func TestLateReplyAfterSessionEndIsDropped(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	block := make(chan struct{})
	started := make(chan struct{})
	f.llm.ChatFunc = func(context.Context, []chat.ChatMessage) (*chat.ChatResponse, error) {
		close(started)
		<-block
		return &chat.ChatResponse{Message: "Too late.", Usage: &chat.Usage{}}, nil
	}

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- f.orch.HandlePlayerInput(ctx, s, "are you there?")
	}()

	<-started
	f.orch.EndSession(ctx, s)
	close(block)
	require.NoError(t, <-done)

	// The reply arrived after the session closed: it never reaches the
	// sink or the persisted summary.
	assert.NotContains(t, f.sink.all(), "Too late.")
	assert.NotContains(t, f.storage.Records["haru"].MemorySummary, "Too late")
}

func TestEndSessionIdempotent(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	first := f.orch.EndSession(ctx, s)
	assert.NotEmpty(t, first)
	assert.Equal(t, "", f.orch.EndSession(ctx, s))

	assert.True(t, s.Closed())
	assert.Error(t, f.orch.HandlePlayerInput(ctx, s, "hello?"))

	rec := f.storage.Records["haru"]
	assert.Equal(t, 1, rec.TotalConversations, "a double end records one conversation")
}

func TestDailyAffinityCap(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.storage.Records["haru"] = &state.CharacterRecord{
		CharacterID:          "haru",
		Affinity:             50,
		TotalConversations:   3,
		DailyAffinityGranted: 5,
		DailyAffinityDate:    "2026-03-10",
	}

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)
	f.orch.EndSession(ctx, s)

	// The cap for today is spent: no further gain, streak still recorded.
	rec := f.storage.Records["haru"]
	assert.Equal(t, 50, rec.Affinity)
	assert.Equal(t, 4, rec.TotalConversations)
}

func TestSaveFailureDoesNotBlockSession(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)

	f.storage.SaveErr = context.DeadlineExceeded

	// Persistence failure is logged and swallowed; the farewell still
	// reaches the player and in-memory state stays usable.
	farewell := f.orch.EndSession(ctx, s)
	assert.NotEmpty(t, farewell)
	assert.True(t, s.Closed())
}

func TestStartSession_CorruptRecordFallsBackToDefaults(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.storage.LoadErr = context.DeadlineExceeded

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)
	assert.Equal(t, npc.DefaultAffinity, s.Affinity())
	assert.Equal(t, "Hi! A new face, huh?", s.Greeting())
}

func TestStartSession_RestoresActiveQuest(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.storage.Records["haru"] = &state.CharacterRecord{
		CharacterID:        "haru",
		Affinity:           60,
		TotalConversations: 5,
		ActiveQuestID:      "haru_apples",
	}

	s, err := f.orch.StartSession(ctx, "haru")
	require.NoError(t, err)
	assert.True(t, s.HasActiveQuest())
	assert.False(t, s.HasPendingProposal(), "no new proposal while one is active")

	// The reminder shows up in the generation prompt.
	require.NoError(t, f.orch.HandlePlayerInput(ctx, s, "hello"))
	require.Equal(t, 1, f.llm.CallCount())
	assert.Contains(t, f.llm.ChatCalls[0].Messages[0].Content, "You promised me apples")
}

func TestStartSession_UnknownCharacter(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.orch.StartSession(context.Background(), "nobody")
	assert.Error(t, err)
}
