package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mirinae-games/npc-engine/internal/config"
	"github.com/mirinae-games/npc-engine/internal/logger"
	"github.com/mirinae-games/npc-engine/internal/storage"
)

// validate checks every character profile and quest catalog under the
// data dir and reports problems without touching Redis.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)
	st := storage.NewMockStorage(cfg.DataDir)
	ctx := context.Background()

	ids, err := st.ListProfiles(ctx)
	if err != nil {
		logger.WithError(log, err).Error("Failed to list character profiles")
		os.Exit(1)
	}
	if len(ids) == 0 {
		log.Error("No character profiles found", "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	failed := false
	for _, id := range ids {
		charLog := logger.WithCharacter(log, id)

		profile, err := st.GetProfile(ctx, id)
		if err != nil {
			logger.WithError(charLog, err).Error("Invalid character profile")
			failed = true
			continue
		}

		catalog, err := st.GetQuestCatalog(ctx, id)
		if err != nil {
			logger.WithError(charLog, err).Error("Invalid quest catalog")
			failed = true
			continue
		}

		charLog.Info("Content validated", "name", profile.Name, "quests", len(catalog.Quests))
	}

	if failed {
		os.Exit(1)
	}
	fmt.Printf("%d character(s) validated\n", len(ids))
}
