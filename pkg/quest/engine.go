package quest

import (
	"log/slog"
	"math/rand"
	"time"
)

// noAvailableQuestLine is the canned reply when the player asks for a
// quest and nothing is eligible.
const noAvailableQuestLine = "I don't have anything for you right now."

// Engine runs one character's quest state machine:
//
//	NoActiveQuest -> Proposed -> Active -> Completed -> NoActiveQuest
//
// Proposals are transient and live only within the current session;
// the active quest, completion timestamps and sequence cursor persist.
type Engine struct {
	catalog *Catalog
	mode    SelectionMode
	rng     *rand.Rand
	logger  *slog.Logger

	active      *Definition
	pending     *Definition
	completions map[string]time.Time
	seqIndex    int
}

// NewEngine creates a quest engine over a character's catalog. The
// random source drives pool-mode selection and is injected so tests can
// pin outcomes. A nil catalog behaves as an empty one.
func NewEngine(catalog *Catalog, mode SelectionMode, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog:     catalog,
		mode:        mode,
		rng:         rng,
		logger:      logger,
		completions: make(map[string]time.Time),
		seqIndex:    -1,
	}
}

// Restore loads persisted quest state. An active quest id that no
// longer exists in the catalog is discarded with a warning rather than
// carried as an unresolvable reference.
func (e *Engine) Restore(activeQuestID string, completions map[string]int64, seqIndex int) {
	for id, ts := range completions {
		e.completions[id] = time.Unix(ts, 0)
	}
	if seqIndex >= -1 && seqIndex < e.catalogLen() {
		e.seqIndex = seqIndex
	}

	if activeQuestID == "" {
		return
	}
	if def := e.catalog.FindByID(activeQuestID); def != nil {
		e.active = def
		return
	}
	e.logger.Warn("persisted active quest not in catalog, resetting",
		"quest_id", activeQuestID)
}

// Snapshot returns the persistable quest state.
func (e *Engine) Snapshot() (activeQuestID string, completions map[string]int64, seqIndex int) {
	if e.active != nil {
		activeQuestID = e.active.ID
	}
	completions = make(map[string]int64, len(e.completions))
	for id, ts := range e.completions {
		completions[id] = ts.Unix()
	}
	return activeQuestID, completions, e.seqIndex
}

// EvaluateProposal fixes the session's proposal candidate. It is called
// once at conversation start and reports whether a quest can be offered.
// With an active quest there is never a new proposal.
func (e *Engine) EvaluateProposal(affinity, totalConversations int, now time.Time) bool {
	if e.active != nil {
		e.pending = nil
		return false
	}
	switch e.mode {
	case ModeSequence:
		e.pending = e.nextInSequence(affinity, totalConversations, now)
	default:
		e.pending = e.pickFromPool(affinity, now)
	}
	return e.pending != nil
}

// HasPendingProposal reports whether a proposal is waiting for the player.
func (e *Engine) HasPendingProposal() bool {
	return e.pending != nil
}

// ProposalText returns the pending proposal's message, or empty.
func (e *Engine) ProposalText() string {
	if e.pending == nil {
		return ""
	}
	return e.pending.ProposalText
}

// NoAvailableQuestLine is the reply for a quest request with no candidate.
func (e *Engine) NoAvailableQuestLine() string {
	return noAvailableQuestLine
}

// Accept promotes the pending proposal to the active quest. Accepting
// with no pending proposal is a no-op. In sequence mode acceptance
// advances the persisted cursor to the accepted quest.
func (e *Engine) Accept() {
	if e.pending == nil {
		return
	}
	e.active = e.pending
	if e.mode == ModeSequence {
		e.seqIndex = e.indexOf(e.active.ID)
	}
	e.logger.Info("quest accepted",
		"quest_id", e.active.ID,
		"required_item", e.active.RequiredItemID,
		"required_amount", e.active.RequiredAmount,
		"reward_affinity", e.active.RewardAffinity)
	e.pending = nil
}

// Reject discards the pending proposal. Nothing is persisted.
func (e *Engine) Reject() {
	e.pending = nil
}

// HasActiveQuest reports whether a quest is in progress.
func (e *Engine) HasActiveQuest() bool {
	return e.active != nil
}

// ActiveQuest returns the in-progress definition, or nil.
func (e *Engine) ActiveQuest() *Definition {
	return e.active
}

// CanDeliver reports whether the active quest's item requirement is met.
// This is the delivery precondition for Complete.
func (e *Engine) CanDeliver(items ItemHolder) bool {
	if e.active == nil || e.active.RequiredItemID == "" {
		return false
	}
	return items.HasItem(e.active.RequiredItemID, e.active.RequiredAmount)
}

// Complete removes the required items, records the completion timestamp
// for cooldown checks, clears the active slot and returns the payout.
// Callers must have established the delivery precondition via CanDeliver;
// inventory is not re-validated here. Completing with no active quest
// returns ok=false.
func (e *Engine) Complete(items ItemHolder, now time.Time) (CompletionResult, bool) {
	if e.active == nil {
		return CompletionResult{}, false
	}

	def := e.active
	result := CompletionResult{
		QuestID:        def.ID,
		CompletionText: def.CompletionText,
		AffinityReward: def.RewardAffinity,
		ItemID:         def.RequiredItemID,
		ItemAmount:     def.RequiredAmount,
	}

	if def.RequiredItemID != "" {
		if !items.RemoveItem(def.RequiredItemID, def.RequiredAmount) {
			e.logger.Warn("item removal failed on quest completion",
				"quest_id", def.ID, "item_id", def.RequiredItemID)
		}
	}

	e.completions[def.ID] = now
	e.active = nil

	e.logger.Info("quest completed", "quest_id", def.ID, "reward_affinity", result.AffinityReward)
	return result, true
}

// ReminderContext returns the active quest's reminder text for prompt
// injection, or empty when no quest is in progress.
func (e *Engine) ReminderContext() string {
	if e.active == nil {
		return ""
	}
	return e.active.ReminderText
}

// pickFromPool selects uniformly at random among quests whose affinity
// window contains the current value and whose cooldown has elapsed.
func (e *Engine) pickFromPool(affinity int, now time.Time) *Definition {
	var available []*Definition
	for i := 0; i < e.catalogLen(); i++ {
		def := &e.catalog.Quests[i]
		if e.eligible(def, affinity, now) {
			available = append(available, def)
		}
	}
	if len(available) == 0 {
		return nil
	}
	return available[e.rng.Intn(len(available))]
}

// nextInSequence walks the catalog once starting after the cursor,
// wrapping around, and returns the first eligible definition that also
// meets its conversation-count threshold.
func (e *Engine) nextInSequence(affinity, totalConversations int, now time.Time) *Definition {
	n := e.catalogLen()
	if n == 0 {
		return nil
	}
	for offset := 1; offset <= n; offset++ {
		def := &e.catalog.Quests[(e.seqIndex+offset+n)%n]
		if totalConversations < def.MinConversations {
			continue
		}
		if e.eligible(def, affinity, now) {
			return def
		}
	}
	return nil
}

func (e *Engine) eligible(def *Definition, affinity int, now time.Time) bool {
	if affinity < def.MinAffinity || affinity > def.MaxAffinity {
		return false
	}
	if last, done := e.completions[def.ID]; done && now.Sub(last) <= def.Cooldown.Std() {
		return false
	}
	return true
}

func (e *Engine) indexOf(id string) int {
	for i := 0; i < e.catalogLen(); i++ {
		if e.catalog.Quests[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) catalogLen() int {
	if e.catalog == nil {
		return 0
	}
	return len(e.catalog.Quests)
}
