package chat

import "fmt"

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // NPC
	ChatRoleSystem = "system"
)

// MaxMessageLength bounds a single player message.
const MaxMessageLength = 1000

// ChatMessage is a single message in the conversation, in the shape
// expected by OpenAI-compatible chat completion APIs.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage reports token consumption for one generation request.
// CachedTokens counts the portion of prompt tokens served from the
// backend's prompt cache.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	CachedTokens     int `json:"cached_tokens"`
}

// Total is the number of tokens counted against the daily budget.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// ChatResponse is a generated reply plus optional usage accounting.
// Usage is nil when the backend omitted its usage block.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// ChatRequest is a player message bound for a character's session.
type ChatRequest struct {
	CharacterID string `json:"character_id"`
	Message     string `json:"message"`
}

func (cr *ChatRequest) Validate() error {
	if cr.CharacterID == "" {
		return fmt.Errorf("character_id cannot be empty")
	}
	if cr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d", MaxMessageLength)
	}
	return nil
}
