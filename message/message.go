package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single message sent to or received from a reasoning backend
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// Prompt builds the conversation for a single-turn call: an optional system
// instruction followed by the user prompt.
func Prompt(system, user string) []*Message {
	msgs := make([]*Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, NewMessage(RoleSystem, system))
	}
	return append(msgs, NewMessage(RoleUser, user))
}

// Split separates system instructions from the conversation turns.
func Split(msgs []*Message) (system string, turns []*Message) {
	var parts []string
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if msg.Role == RoleSystem {
			parts = append(parts, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	return strings.Join(parts, "\n"), turns
}

// Text returns the trimmed message content.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Content)
}
