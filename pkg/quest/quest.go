package quest

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so catalogs can write cooldowns as
// "72h" or "30m" (bare integers are taken as seconds).
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value")
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Std().String(), nil
}

// Type classifies a quest template. Only fetch quests carry an item
// requirement; the rest complete through dialogue or external events.
type Type string

const (
	TypeFetch    Type = "fetch"
	TypeAssist   Type = "assist"
	TypeDialogue Type = "dialogue"
	TypeEvent    Type = "event"
)

// Definition is an immutable quest template. Runtime progress lives in
// the Engine; definitions are shared read-only and referenced by id.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Type        Type   `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`

	RewardAffinity int `yaml:"reward_affinity" json:"reward_affinity"`

	// Availability window and re-proposal cooldown.
	MinAffinity int      `yaml:"min_affinity" json:"min_affinity"`
	MaxAffinity int      `yaml:"max_affinity" json:"max_affinity"`
	Cooldown    Duration `yaml:"cooldown" json:"cooldown"`

	// MinConversations gates the quest in sequence selection mode.
	MinConversations int `yaml:"min_conversations" json:"min_conversations"`

	// Fetch requirement, optional.
	RequiredItemID string `yaml:"required_item_id" json:"required_item_id,omitempty"`
	RequiredAmount int    `yaml:"required_amount" json:"required_amount,omitempty"`

	ProposalText   string `yaml:"proposal_text" json:"proposal_text"`
	CompletionText string `yaml:"completion_text" json:"completion_text"`
	ReminderText   string `yaml:"reminder_text" json:"reminder_text"`
}

func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("quest id cannot be empty")
	}
	if d.MinAffinity > d.MaxAffinity {
		return fmt.Errorf("quest %q: min_affinity %d exceeds max_affinity %d", d.ID, d.MinAffinity, d.MaxAffinity)
	}
	if d.RequiredItemID != "" && d.RequiredAmount <= 0 {
		return fmt.Errorf("quest %q: required_amount must be positive when an item is required", d.ID)
	}
	if d.RewardAffinity < 0 {
		return fmt.Errorf("quest %q: reward_affinity cannot be negative", d.ID)
	}
	return nil
}

// Catalog is a character's ordered list of quest candidates.
type Catalog struct {
	CharacterID string       `yaml:"character_id" json:"character_id"`
	Quests      []Definition `yaml:"quests" json:"quests"`
}

func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Quests))
	for i := range c.Quests {
		q := &c.Quests[i]
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("quest %q: duplicate id in catalog", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// FindByID returns the definition with the given id, or nil.
func (c *Catalog) FindByID(id string) *Definition {
	if c == nil {
		return nil
	}
	for i := range c.Quests {
		if c.Quests[i].ID == id {
			return &c.Quests[i]
		}
	}
	return nil
}

// SelectionMode picks the eligibility policy for a deployment. The two
// policies produce different proposal orders and are never mixed.
type SelectionMode string

const (
	// ModePool proposes uniformly at random among all eligible quests.
	ModePool SelectionMode = "pool"
	// ModeSequence walks the catalog in order from a persisted cursor,
	// wrapping around, and additionally requires the definition's
	// conversation-count threshold.
	ModeSequence SelectionMode = "sequence"
)

// ParseSelectionMode validates a configured mode string, defaulting to pool.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch SelectionMode(s) {
	case ModePool, "":
		return ModePool, nil
	case ModeSequence:
		return ModeSequence, nil
	default:
		return ModePool, fmt.Errorf("unknown quest selection mode %q", s)
	}
}

// ItemHolder is the inventory capability the quest engine consumes.
// The engine never touches item storage directly.
type ItemHolder interface {
	HasItem(itemID string, qty int) bool
	RemoveItem(itemID string, qty int) bool
}

// CompletionResult reports a successful quest delivery.
type CompletionResult struct {
	QuestID        string
	CompletionText string
	AffinityReward int
	ItemID         string
	ItemAmount     int
}
