package budget

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mirinae-games/npc-engine/pkg/chat"
	"github.com/mirinae-games/npc-engine/pkg/npc"
)

// DefaultDailyBudget is the token allowance per calendar day.
const DefaultDailyBudget = 100_000

// Cost rates in USD per million tokens, used only for logging.
const (
	inputRatePerM  = 0.15
	cachedRatePerM = 0.075
	outputRatePerM = 0.60
)

// Tracker accounts for generation token usage: a daily total gated
// against a budget, per-character cumulative totals, and session
// counters. The daily total resets lazily when the calendar date
// changes; yesterday's usage never blocks today.
type Tracker struct {
	mu sync.Mutex

	dailyBudget int
	todayTotal  int
	todayDate   string

	perCharacter map[string]int

	sessionPrompt     int
	sessionCompletion int
	sessionCached     int
	sessionRequests   int

	logger *slog.Logger
}

func NewTracker(dailyBudget int, logger *slog.Logger) *Tracker {
	if dailyBudget <= 0 {
		dailyBudget = DefaultDailyBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		dailyBudget:  dailyBudget,
		perCharacter: make(map[string]int),
		logger:       logger,
	}
}

// HasBudget reports whether today's cumulative usage is still below the
// daily cap, rolling the date over first if needed. Callers must check
// this before issuing a remote request; a false result routes the turn
// to the local fallback and nothing is recorded.
func (t *Tracker) HasBudget(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(now)
	return t.todayTotal < t.dailyBudget
}

// Record accumulates a response's usage into the daily, per-character
// and session counters.
func (t *Tracker) Record(characterID string, usage chat.Usage, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(now)

	t.sessionPrompt += usage.PromptTokens
	t.sessionCompletion += usage.CompletionTokens
	t.sessionCached += usage.CachedTokens
	t.sessionRequests++

	t.todayTotal += usage.Total()
	if characterID != "" {
		t.perCharacter[characterID] += usage.Total()
	}

	cost := float64(usage.PromptTokens)*inputRatePerM/1e6 +
		float64(usage.CachedTokens)*cachedRatePerM/1e6 +
		float64(usage.CompletionTokens)*outputRatePerM/1e6

	t.logger.Debug("token usage recorded",
		"character_id", characterID,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"cached_tokens", usage.CachedTokens,
		"estimated_cost_usd", cost,
		"session_tokens", t.sessionPrompt+t.sessionCompletion,
		"session_requests", t.sessionRequests,
		"daily_total", t.todayTotal,
		"daily_budget", t.dailyBudget)
}

// CharacterTokens returns a character's cumulative token total.
func (t *Tracker) CharacterTokens(characterID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perCharacter[characterID]
}

// TodayTotal returns today's cumulative usage after a rollover check.
func (t *Tracker) TodayTotal(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(now)
	return t.todayTotal
}

// rollover resets the daily total when the stored date is not today.
// Callers hold t.mu.
func (t *Tracker) rollover(now time.Time) {
	today := now.Format(npc.DateLayout)
	if t.todayDate != today {
		t.todayDate = today
		t.todayTotal = 0
	}
}
