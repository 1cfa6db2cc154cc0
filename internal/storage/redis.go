package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mirinae-games/npc-engine/pkg/state"
)

const (
	recordKeyPrefix = "npc:record:"
	inventoryKey    = "npc:inventory"
)

// RedisStorage implements the Storage interface using Redis for mutable
// records and the filesystem for immutable content.
type RedisStorage struct {
	content
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		content: content{dataDir: dataDir},
		client:  rdb,
		logger:  logger,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// SaveCharacterRecord writes the whole record for a character.
func (r *RedisStorage) SaveCharacterRecord(ctx context.Context, rec *state.CharacterRecord) error {
	if rec.CharacterID == "" {
		return fmt.Errorf("character id cannot be empty")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal character record: %w", err)
	}

	if err := r.client.Set(ctx, recordKeyPrefix+rec.CharacterID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save character record: %w", err)
	}

	r.logger.Debug("Character record saved", "character_id", rec.CharacterID)
	return nil
}

// LoadCharacterRecord retrieves a character's record. It returns nil
// when no record exists; a corrupt record is logged as a warning and
// also treated as absent, so a bad save never blocks a session.
func (r *RedisStorage) LoadCharacterRecord(ctx context.Context, characterID string) (*state.CharacterRecord, error) {
	data, err := r.client.Get(ctx, recordKeyPrefix+characterID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load character record: %w", err)
	}

	var rec state.CharacterRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		r.logger.Warn("Corrupt character record, treating as absent",
			"character_id", characterID, "error", err)
		return nil, nil
	}
	return &rec, nil
}

func (r *RedisStorage) DeleteCharacterRecord(ctx context.Context, characterID string) error {
	if err := r.client.Del(ctx, recordKeyPrefix+characterID).Err(); err != nil {
		return fmt.Errorf("failed to delete character record: %w", err)
	}
	return nil
}

// HasItem reports whether the inventory holds at least qty of an item.
func (r *RedisStorage) HasItem(ctx context.Context, itemID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("quantity must be positive, got %d", qty)
	}

	count, err := r.itemCount(ctx, itemID)
	if err != nil {
		return false, err
	}
	return count >= qty, nil
}

// RemoveItem removes qty of an item, reporting false without change
// when the held count is insufficient. Records serialize per character
// upstream, so check-then-decrement is not raced for engine callers.
func (r *RedisStorage) RemoveItem(ctx context.Context, itemID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("quantity must be positive, got %d", qty)
	}

	count, err := r.itemCount(ctx, itemID)
	if err != nil {
		return false, err
	}
	if count < qty {
		return false, nil
	}

	if err := r.client.HIncrBy(ctx, inventoryKey, itemID, int64(-qty)).Err(); err != nil {
		return false, fmt.Errorf("failed to remove item: %w", err)
	}

	r.logger.Debug("Items removed from inventory", "item_id", itemID, "quantity", qty)
	return true, nil
}

func (r *RedisStorage) AddItem(ctx context.Context, itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if err := r.client.HIncrBy(ctx, inventoryKey, itemID, int64(qty)).Err(); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

func (r *RedisStorage) itemCount(ctx context.Context, itemID string) (int, error) {
	val, err := r.client.HGet(ctx, inventoryKey, itemID).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read inventory: %w", err)
	}
	if val < 0 {
		// A negative count is an invariant violation; treat as empty.
		r.logger.Warn("Negative item count in inventory, treating as zero", "item_id", itemID, "count", val)
		return 0, nil
	}
	return val, nil
}
