package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/mirinae-games/npc-engine/internal/services"
	"github.com/mirinae-games/npc-engine/internal/storage"
	"github.com/mirinae-games/npc-engine/pkg/budget"
	"github.com/mirinae-games/npc-engine/pkg/chat"
	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/prompts"
	"github.com/mirinae-games/npc-engine/pkg/quest"
	"github.com/mirinae-games/npc-engine/pkg/state"
)

// fallbackErrorLine is spoken when the remote path fails mid-turn.
// Players never see technical error text.
const fallbackErrorLine = "...sorry, I lost my train of thought. What were you saying?"

const remoteTimeout = 30 * time.Second

// DefaultQuestKeywords trigger quest interception in free text.
var DefaultQuestKeywords = []string{"quest", "task", "favor", "errand", "something to do"}

// OutputSink receives finished replies for presentation.
type OutputSink interface {
	DeliverReply(characterID, text string)
}

// Config carries the orchestrator's tunables.
type Config struct {
	DailyAffinityCap int
	MaxRecentTurns   int
	MaxSummaryChars  int
	QuestMode        quest.SelectionMode
	QuestKeywords    []string
	Language         language.Tag
}

// Orchestrator coordinates dialogue turns across a character's
// components: memory, quest interception, the budget gate, prompt
// assembly, the generation backend, and session-end bookkeeping.
type Orchestrator struct {
	storage storage.Storage
	llm     services.LLMService
	budget  *budget.Tracker
	sink    OutputSink
	clock   Clock
	rng     *rand.Rand
	logger  *slog.Logger
	cfg     Config
}

// NewOrchestrator wires the engine's collaborators together. The random
// source feeds fallback-line and pool-mode quest selection; pass a
// seeded source in tests for deterministic outcomes.
func NewOrchestrator(
	st storage.Storage,
	llm services.LLMService,
	tracker *budget.Tracker,
	sink OutputSink,
	clock Clock,
	rng *rand.Rand,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	if clock == nil {
		clock = SystemClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DailyAffinityCap <= 0 {
		cfg.DailyAffinityCap = 5
	}
	if len(cfg.QuestKeywords) == 0 {
		cfg.QuestKeywords = DefaultQuestKeywords
	}
	if cfg.Language == (language.Tag{}) {
		cfg.Language = language.English
	}
	return &Orchestrator{
		storage: st,
		llm:     llm,
		budget:  tracker,
		sink:    sink,
		clock:   clock,
		rng:     rng,
		logger:  logger,
		cfg:     cfg,
	}
}

// StartSession opens a conversation with a character: loads the profile
// and persisted record (defaults apply when absent or unreadable),
// restores quest state, evaluates the session's quest proposal
// candidate, and selects the greeting.
func (o *Orchestrator) StartSession(ctx context.Context, characterID string) (*Session, error) {
	profile, err := o.storage.GetProfile(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	rec, err := o.storage.LoadCharacterRecord(ctx, characterID)
	if err != nil {
		o.logger.Warn("failed to load character record, using defaults",
			"character_id", characterID, "error", err)
		rec = nil
	}
	if rec == nil {
		rec = state.NewCharacterRecord(characterID)
	}

	catalog, err := o.storage.GetQuestCatalog(ctx, characterID)
	if err != nil {
		o.logger.Warn("failed to load quest catalog, continuing without quests",
			"character_id", characterID, "error", err)
		catalog = nil
	}

	relationship := &npc.Relationship{Affinity: rec.Affinity}
	interaction := &npc.Interaction{
		TotalConversations:   rec.TotalConversations,
		LastConversationDate: rec.LastConversationDate,
		ConsecutiveDays:      rec.ConsecutiveDays,
		DailyAffinityGranted: rec.DailyAffinityGranted,
		DailyAffinityDate:    rec.DailyAffinityDate,
	}
	memory := npc.NewMemory(o.cfg.MaxRecentTurns, o.cfg.MaxSummaryChars)
	memory.Summary = rec.MemorySummary

	quests := quest.NewEngine(catalog, o.cfg.QuestMode, o.rng, o.logger)
	quests.Restore(rec.ActiveQuestID, rec.QuestCompletions, rec.QuestSequenceIndex)

	now := o.clock.Now()
	quests.EvaluateProposal(relationship.Affinity, interaction.TotalConversations, now)

	s := &Session{
		ID:           uuid.New(),
		CharacterID:  characterID,
		profile:      profile,
		relationship: relationship,
		interaction:  interaction,
		memory:       memory,
		quests:       quests,
		record:       rec,
		maxTurns:     relationship.MaxTurns(),
		greeting: relationship.Greeting(
			interaction.DaysSince(now),
			interaction.ConsecutiveDays,
			interaction.TalkedToday(now)),
	}

	o.logger.Info("session started",
		"session_id", s.ID,
		"character_id", characterID,
		"affinity", relationship.Affinity,
		"total_conversations", interaction.TotalConversations,
		"max_turns", s.maxTurns)
	return s, nil
}

// HandlePlayerInput runs one dialogue turn: record the input, intercept
// quest requests, gate on budget, then reply through the remote path or
// the local fallback. The reply reaches the sink and memory only if the
// session is still open and the turn is still current when generation
// completes.
func (o *Orchestrator) HandlePlayerInput(ctx context.Context, s *Session, text string) error {
	req := chat.ChatRequest{CharacterID: s.CharacterID, Message: text}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid player input: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session is closed")
	}
	if s.playerTurns >= s.maxTurns {
		s.mu.Unlock()
		return fmt.Errorf("session turn limit reached")
	}
	s.playerTurns++
	s.memory.AddPlayerTurn(text)
	token := s.beginTurn()

	if o.isQuestRequest(text) {
		o.interceptQuestRequest(ctx, s)
		s.mu.Unlock()
		return nil
	}

	now := o.clock.Now()
	if !o.budget.HasBudget(now) {
		// Budget exhaustion is a planned gate, not an error. Nothing
		// is recorded for this turn.
		line := s.relationship.LocalFallbackLine(o.rng)
		o.logger.Debug("daily budget exhausted, using local response",
			"character_id", s.CharacterID)
		o.deliver(s, line)
		s.mu.Unlock()
		return nil
	}

	messages, err := prompts.New().
		WithProfile(s.profile).
		WithRelationship(s.relationship).
		WithMemory(s.memory).
		WithInteraction(
			s.interaction.TotalConversations,
			s.interaction.DaysSince(now),
			s.interaction.ConsecutiveDays).
		WithQuestContext(s.quests.ReminderContext()).
		WithLanguage(o.cfg.Language).
		WithUserMessage(text).
		Build()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to build prompt: %w", err)
	}

	// The remote call is the only suspension point. The session lock is
	// released while waiting; the turn token decides afterward whether
	// the reply may still be applied.
	chatCtx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	resp, err := o.llm.Chat(chatCtx, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(token) {
		o.logger.Debug("discarding late generation response",
			"session_id", s.ID, "character_id", s.CharacterID)
		return nil
	}

	if err != nil {
		o.logger.Warn("generation request failed, using local response",
			"character_id", s.CharacterID, "error", err)
		o.deliver(s, fallbackErrorLine)
		return nil
	}

	if resp.Usage != nil {
		o.budget.Record(s.CharacterID, *resp.Usage, o.clock.Now())
	}
	o.deliver(s, resp.Message)
	return nil
}

// AcceptProposal activates the session's pending quest proposal and
// persists the quest state. With no pending proposal it is a no-op.
func (o *Orchestrator) AcceptProposal(ctx context.Context, s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.quests.HasPendingProposal() {
		return
	}
	s.quests.Accept()
	o.saveRecord(ctx, s)
}

// RejectProposal discards the pending proposal. Nothing is persisted.
func (o *Orchestrator) RejectProposal(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quests.Reject()
}

// CanDeliverQuestItem checks the active quest's delivery precondition
// against the shared inventory.
func (o *Orchestrator) CanDeliverQuestItem(ctx context.Context, s *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quests.CanDeliver(o.items(ctx))
}

// DeliverQuestItem completes the active quest: removes the required
// items, grants the affinity reward, records the completion for its
// cooldown, and speaks the completion line. Callers establish the
// precondition with CanDeliverQuestItem first.
func (o *Orchestrator) DeliverQuestItem(ctx context.Context, s *Session) (quest.CompletionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.quests.Complete(o.items(ctx), o.clock.Now())
	if !ok {
		return result, false
	}

	before, after := s.relationship.ModifyAffinity(result.AffinityReward)
	o.logger.Info("quest reward applied",
		"character_id", s.CharacterID,
		"quest_id", result.QuestID,
		"affinity_before", before,
		"affinity_after", after)

	o.saveRecord(ctx, s)
	o.deliver(s, result.CompletionText)
	return result, true
}

// EndSession closes the conversation: grants the capped end-of-session
// affinity gain, records the conversation, folds the session into the
// memory summary, persists everything, and returns the short farewell
// line for the presentation layer. Replies still in flight are
// discarded once the session is closed.
func (o *Orchestrator) EndSession(ctx context.Context, s *Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	s.closed = true

	now := o.clock.Now()

	remaining := s.interaction.RemainingDailyAffinityGain(o.cfg.DailyAffinityCap, now)
	gain := 1 + o.rng.Intn(2) // 1-2 per session
	if gain > remaining {
		gain = remaining
	}
	if gain > 0 {
		before, after := s.relationship.ModifyAffinity(gain)
		s.interaction.RecordAffinityGain(gain, now)
		o.logger.Info("session affinity gain",
			"character_id", s.CharacterID,
			"gain", gain,
			"affinity_before", before,
			"affinity_after", after)
	} else {
		o.logger.Debug("daily affinity cap reached",
			"character_id", s.CharacterID)
	}

	s.interaction.RecordConversation(now)
	s.memory.SummarizeSession(now)
	o.saveRecord(ctx, s)
	s.memory.ClearSession()

	o.logger.Info("session ended",
		"session_id", s.ID,
		"character_id", s.CharacterID,
		"affinity", s.relationship.Affinity,
		"player_turns", s.playerTurns)
	return s.relationship.BubbleFarewell()
}

// interceptQuestRequest answers a quest-intent message with the pending
// proposal or the no-quest line. Callers hold s.mu.
func (o *Orchestrator) interceptQuestRequest(ctx context.Context, s *Session) {
	if s.quests.HasPendingProposal() {
		o.deliver(s, s.quests.ProposalText())
		return
	}
	o.deliver(s, s.quests.NoAvailableQuestLine())
}

// isQuestRequest matches the configured keywords case-insensitively
// anywhere in the message.
func (o *Orchestrator) isQuestRequest(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	normalized := strings.ToLower(text)
	for _, keyword := range o.cfg.QuestKeywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// deliver records the reply in memory and hands it to the sink.
// Callers hold s.mu.
func (o *Orchestrator) deliver(s *Session, text string) {
	s.memory.AddCharacterTurn(s.profile.Name, text)
	if o.sink != nil {
		o.sink.DeliverReply(s.CharacterID, text)
	}
}

// saveRecord writes the whole record through to storage. A write
// failure is logged and in-memory state stays authoritative for the
// rest of the process lifetime. Callers hold s.mu.
func (o *Orchestrator) saveRecord(ctx context.Context, s *Session) {
	activeID, completions, seqIndex := s.quests.Snapshot()

	rec := s.record
	rec.Affinity = s.relationship.Affinity
	rec.TotalConversations = s.interaction.TotalConversations
	rec.LastConversationDate = s.interaction.LastConversationDate
	rec.ConsecutiveDays = s.interaction.ConsecutiveDays
	rec.DailyAffinityGranted = s.interaction.DailyAffinityGranted
	rec.DailyAffinityDate = s.interaction.DailyAffinityDate
	rec.ActiveQuestID = activeID
	rec.QuestCompletions = completions
	rec.QuestSequenceIndex = seqIndex
	rec.MemorySummary = s.memory.Summary

	if err := o.storage.SaveCharacterRecord(ctx, rec); err != nil {
		o.logger.Warn("failed to persist character record",
			"character_id", s.CharacterID, "error", err)
	}
}

// items adapts storage inventory calls to the quest engine's ItemHolder.
func (o *Orchestrator) items(ctx context.Context) quest.ItemHolder {
	return &storageItems{ctx: ctx, storage: o.storage, logger: o.logger}
}

type storageItems struct {
	ctx     context.Context
	storage storage.Storage
	logger  *slog.Logger
}

func (a *storageItems) HasItem(itemID string, qty int) bool {
	ok, err := a.storage.HasItem(a.ctx, itemID, qty)
	if err != nil {
		a.logger.Warn("inventory check failed", "item_id", itemID, "error", err)
		return false
	}
	return ok
}

func (a *storageItems) RemoveItem(itemID string, qty int) bool {
	ok, err := a.storage.RemoveItem(a.ctx, itemID, qty)
	if err != nil {
		a.logger.Warn("inventory removal failed", "item_id", itemID, "error", err)
		return false
	}
	return ok
}
