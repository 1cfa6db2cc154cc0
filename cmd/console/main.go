package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mirinae-games/npc-engine/internal/config"
	"github.com/mirinae-games/npc-engine/internal/engine"
	"github.com/mirinae-games/npc-engine/internal/services"
	"github.com/mirinae-games/npc-engine/internal/storage"
	"github.com/mirinae-games/npc-engine/pkg/budget"
	"github.com/mirinae-games/npc-engine/pkg/npc"
)

// chanSink bridges orchestrator replies into the bubbletea program.
type chanSink struct {
	replies chan string
}

func (c *chanSink) DeliverReply(_, text string) {
	c.replies <- text
}

func main() {
	cfg := config.Load()

	// The TUI owns stdout; keep slog out of the way.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slog.SetDefault(logger)

	st, cleanup := openStorage(cfg, logger)
	defer cleanup()

	var llm services.LLMService
	if cfg.OpenAIAPIKey != "" {
		llm = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelName)
	} else {
		fmt.Println("OPENAI_API_KEY not set; replies come from the mock backend.")
		llm = services.NewMockLLM()
	}

	sink := &chanSink{replies: make(chan string, 1)}
	orch := engine.NewOrchestrator(
		st,
		llm,
		budget.NewTracker(cfg.DailyTokenBudget, logger),
		sink,
		engine.SystemClock{},
		rand.New(rand.NewSource(time.Now().UnixNano())),
		logger,
		engine.Config{
			DailyAffinityCap: cfg.DailyAffinityCap,
			MaxRecentTurns:   cfg.MaxRecentTurns,
			MaxSummaryChars:  cfg.MaxSummaryChars,
			QuestMode:        cfg.QuestSelectionMode,
			Language:         npc.ParseLanguage(cfg.Language),
		},
	)

	characterID := pickCharacter(st)

	ctx := context.Background()
	sess, err := orch.StartSession(ctx, characterID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start session: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newUIModel(orch, sess, sink.replies))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStorage connects to Redis when it is reachable and falls back to
// the in-memory store otherwise, so the console works offline.
func openStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, func()) {
	rs := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.WaitForConnection(ctx); err != nil {
		fmt.Printf("Redis unavailable (%v); progress will not persist.\n", err)
		_ = rs.Close()
		return storage.NewMockStorage(cfg.DataDir), func() {}
	}
	return rs, func() { _ = rs.Close() }
}

func pickCharacter(st storage.Storage) string {
	ctx := context.Background()
	ids, err := st.ListProfiles(ctx)
	if err != nil || len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "No character profiles found: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Characters:")
	for i, id := range ids {
		label := id
		if p, err := st.GetProfile(ctx, id); err == nil {
			label = fmt.Sprintf("%s (%s)", p.Name, id)
		}
		if c, err := st.GetQuestCatalog(ctx, id); err == nil && len(c.Quests) > 0 {
			label += fmt.Sprintf(", %d quest(s)", len(c.Quests))
		}
		fmt.Printf("  %d - %s\n", i+1, label)
	}
	fmt.Print("\nSelect a character by number: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(ids) {
		fmt.Fprintln(os.Stderr, "Invalid selection")
		os.Exit(1)
	}
	return ids[choice-1]
}
