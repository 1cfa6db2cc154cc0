package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/quest"
	"github.com/mirinae-games/npc-engine/pkg/state"
)

// MockStorage is an in-memory Storage for tests and offline runs.
// Profiles and catalogs can be seeded directly; when a data dir is set,
// content falls through to the filesystem loader.
type MockStorage struct {
	content
	mu sync.Mutex

	Records  map[string]*state.CharacterRecord
	Items    map[string]int
	Profiles map[string]*npc.Profile
	Catalogs map[string]*quest.Catalog

	// Error injection for failure-path tests.
	SaveErr error
	LoadErr error
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty in-memory storage. dataDir may be
// empty when all content is seeded through the maps.
func NewMockStorage(dataDir string) *MockStorage {
	return &MockStorage{
		content:  content{dataDir: dataDir},
		Records:  make(map[string]*state.CharacterRecord),
		Items:    make(map[string]int),
		Profiles: make(map[string]*npc.Profile),
		Catalogs: make(map[string]*quest.Catalog),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return nil }
func (m *MockStorage) Close() error                   { return nil }

func (m *MockStorage) SaveCharacterRecord(ctx context.Context, rec *state.CharacterRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *rec
	m.Records[rec.CharacterID] = &cp
	return nil
}

func (m *MockStorage) LoadCharacterRecord(ctx context.Context, characterID string) (*state.CharacterRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	rec, ok := m.Records[characterID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MockStorage) DeleteCharacterRecord(ctx context.Context, characterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Records, characterID)
	return nil
}

func (m *MockStorage) HasItem(ctx context.Context, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty <= 0 {
		return false, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	return m.Items[itemID] >= qty, nil
}

func (m *MockStorage) RemoveItem(ctx context.Context, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty <= 0 {
		return false, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if m.Items[itemID] < qty {
		return false, nil
	}
	m.Items[itemID] -= qty
	return true, nil
}

func (m *MockStorage) AddItem(ctx context.Context, itemID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	m.Items[itemID] += qty
	return nil
}

func (m *MockStorage) GetProfile(ctx context.Context, characterID string) (*npc.Profile, error) {
	m.mu.Lock()
	p, ok := m.Profiles[characterID]
	m.mu.Unlock()
	if ok {
		return p, nil
	}
	if m.dataDir != "" {
		return m.content.GetProfile(ctx, characterID)
	}
	return nil, fmt.Errorf("profile not found: %s", characterID)
}

func (m *MockStorage) ListProfiles(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.Profiles))
	for id := range m.Profiles {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	if len(ids) > 0 {
		return ids, nil
	}
	if m.dataDir != "" {
		return m.content.ListProfiles(ctx)
	}
	return ids, nil
}

func (m *MockStorage) GetQuestCatalog(ctx context.Context, characterID string) (*quest.Catalog, error) {
	m.mu.Lock()
	c, ok := m.Catalogs[characterID]
	m.mu.Unlock()
	if ok {
		return c, nil
	}
	if m.dataDir != "" {
		return m.content.GetQuestCatalog(ctx, characterID)
	}
	return &quest.Catalog{CharacterID: characterID}, nil
}
