package storage

import (
	"context"

	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/quest"
	"github.com/mirinae-games/npc-engine/pkg/state"
)

// Storage defines a unified interface for all persistence: mutable
// per-character records and the shared inventory live in Redis, while
// immutable content (profiles, quest catalogs) loads from the data dir.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Character record operations (Redis-backed). Load returns nil
	// with no error when no record exists; an unreadable record is
	// logged and treated the same way.
	SaveCharacterRecord(ctx context.Context, rec *state.CharacterRecord) error
	LoadCharacterRecord(ctx context.Context, characterID string) (*state.CharacterRecord, error)
	DeleteCharacterRecord(ctx context.Context, characterID string) error

	// Inventory operations (Redis-backed item-id -> count map).
	HasItem(ctx context.Context, itemID string, qty int) (bool, error)
	RemoveItem(ctx context.Context, itemID string, qty int) (bool, error)
	AddItem(ctx context.Context, itemID string, qty int) error

	// Content operations (filesystem-backed)
	GetProfile(ctx context.Context, characterID string) (*npc.Profile, error)
	ListProfiles(ctx context.Context) ([]string, error)
	GetQuestCatalog(ctx context.Context, characterID string) (*quest.Catalog, error)
}
