package services

import (
	"context"

	"github.com/mirinae-games/npc-engine/pkg/chat"
)

// LLMService defines the interface for the text-generation backend
type LLMService interface {
	// Chat generates a reply for the given message sequence
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}
