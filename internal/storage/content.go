package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/quest"
)

// content loads immutable game content from a data directory:
// characters/<id>.yaml profiles and quests/<id>.yaml catalogs. It is
// embedded by both the Redis and in-memory storage implementations.
type content struct {
	dataDir string
}

func (c *content) GetProfile(_ context.Context, characterID string) (*npc.Profile, error) {
	if strings.ContainsAny(characterID, "/\\.") {
		return nil, fmt.Errorf("invalid character id: %s", characterID)
	}

	path := filepath.Join(c.dataDir, "characters", characterID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", characterID, err)
	}

	var profile npc.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", characterID, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", characterID, err)
	}
	return &profile, nil
}

func (c *content) ListProfiles(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dataDir, "characters"))
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}

// GetQuestCatalog loads a character's quest catalog. A character with
// no catalog file simply offers no quests; that is not an error.
func (c *content) GetQuestCatalog(_ context.Context, characterID string) (*quest.Catalog, error) {
	if strings.ContainsAny(characterID, "/\\.") {
		return nil, fmt.Errorf("invalid character id: %s", characterID)
	}

	path := filepath.Join(c.dataDir, "quests", characterID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &quest.Catalog{CharacterID: characterID}, nil
		}
		return nil, fmt.Errorf("failed to read quest catalog %s: %w", characterID, err)
	}

	var catalog quest.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse quest catalog %s: %w", characterID, err)
	}
	if catalog.CharacterID == "" {
		catalog.CharacterID = characterID
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quest catalog %s: %w", characterID, err)
	}
	return &catalog, nil
}
