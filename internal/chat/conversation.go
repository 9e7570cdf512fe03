package chat

import (
	"sync"
	"time"

	"testcrafter/internal/types"
)

// Conversation is the ordered message history of one chat panel.
type Conversation struct {
	mu       sync.RWMutex
	messages []types.ChatMessage
	now      func() time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

// Append records a message and returns it with its timestamp set.
func (c *Conversation) Append(role types.Role, content string, blocks []types.CodeBlock) types.ChatMessage {
	msg := types.ChatMessage{
		Role:       role,
		Content:    content,
		Timestamp:  c.now(),
		CodeBlocks: append([]types.CodeBlock(nil), blocks...),
	}
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []types.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear drops the history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
