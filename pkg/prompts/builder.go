package prompts

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/mirinae-games/npc-engine/pkg/chat"
	"github.com/mirinae-games/npc-engine/pkg/npc"
)

// Builder assembles the generation request context using a fluent
// interface. It is a pure function of its inputs: no storage or network
// access happens here.
type Builder struct {
	profile      *npc.Profile
	relationship *npc.Relationship
	memory       *npc.Memory
	lang         language.Tag

	totalConversations int
	daysSince          int
	consecutiveDays    int

	questContext string
	userMessage  string
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{
		lang:      language.English,
		daysSince: -1,
	}
}

// WithProfile sets the character identity.
func (b *Builder) WithProfile(p *npc.Profile) *Builder {
	b.profile = p
	return b
}

// WithRelationship sets the affinity-derived relationship state.
func (b *Builder) WithRelationship(r *npc.Relationship) *Builder {
	b.relationship = r
	return b
}

// WithMemory sets the conversation memory (summary and recent turns).
func (b *Builder) WithMemory(m *npc.Memory) *Builder {
	b.memory = m
	return b
}

// WithInteraction sets the interaction statistics for the history narrative.
func (b *Builder) WithInteraction(totalConversations, daysSince, consecutiveDays int) *Builder {
	b.totalConversations = totalConversations
	b.daysSince = daysSince
	b.consecutiveDays = consecutiveDays
	return b
}

// WithQuestContext sets the active quest reminder, if any.
func (b *Builder) WithQuestContext(reminder string) *Builder {
	b.questContext = reminder
	return b
}

// WithLanguage sets the target dialogue language.
func (b *Builder) WithLanguage(tag language.Tag) *Builder {
	b.lang = tag
	return b
}

// WithUserMessage sets the player's current message.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// Build constructs the message array for the generation backend: one
// system message holding the full context, then the user message.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if b.relationship == nil {
		return nil, fmt.Errorf("relationship is required")
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(rulesTemplate, npc.LanguageInstruction(b.lang)))

	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(identityTemplate,
		b.profile.Name, b.profile.Personality, b.profile.Background, b.profile.SpeechStyle))

	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(relationshipTemplate,
		b.relationship.Description(), b.relationship.Affinity,
		b.relationship.AttitudeInstruction(),
		BuildHistoryContext(b.totalConversations, b.daysSince, b.consecutiveDays)))

	if b.questContext != "" {
		sb.WriteString("\n\n[Quest]\n" + b.questContext)
	}
	if b.memory != nil && b.memory.Summary != "" {
		sb.WriteString("\n\n[Memory Summary]\n" + b.memory.Summary)
	}
	if b.memory != nil && b.memory.HasRecent() {
		sb.WriteString("\n\n[Recent Conversation]\n" + b.memory.RecentConversation())
	}

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: sb.String()},
	}
	if b.userMessage != "" {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleUser,
			Content: b.userMessage,
		})
	}
	return messages, nil
}
