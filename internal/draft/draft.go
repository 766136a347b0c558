// Package draft keeps unsent input per conversation so switching chats
// never loses half-typed text.
package draft

import (
	"context"
	"log/slog"
	"sync"
)

// Saver persists drafts. *persist.Store satisfies it.
type Saver interface {
	SetDraft(ctx context.Context, conversationID, content string) error
}

// Cache is the in-memory draft map with write-through persistence.
// An empty draft is removed rather than stored.
type Cache struct {
	mu     sync.Mutex
	byConv map[string]string

	saver  Saver
	logger *slog.Logger
}

// NewCache creates a cache. saver may be nil for memory-only operation.
func NewCache(saver Saver, logger *slog.Logger) *Cache {
	return &Cache{
		byConv: make(map[string]string),
		saver:  saver,
		logger: logger,
	}
}

// Load installs previously persisted drafts, replacing the current map.
func (c *Cache) Load(drafts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byConv = make(map[string]string, len(drafts))
	for id, content := range drafts {
		if content != "" {
			c.byConv[id] = content
		}
	}
}

// Get returns the draft for a conversation, or "".
func (c *Cache) Get(conversationID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byConv[conversationID]
}

// Set stores the draft for a conversation. Empty content clears it.
func (c *Cache) Set(conversationID, content string) {
	c.mu.Lock()
	if content == "" {
		delete(c.byConv, conversationID)
	} else {
		c.byConv[conversationID] = content
	}
	c.mu.Unlock()

	c.persist(conversationID, content)
}

// Clear removes the draft for a conversation.
func (c *Cache) Clear(conversationID string) {
	c.mu.Lock()
	delete(c.byConv, conversationID)
	c.mu.Unlock()

	c.persist(conversationID, "")
}

func (c *Cache) persist(conversationID, content string) {
	if c.saver == nil {
		return
	}
	if err := c.saver.SetDraft(context.Background(), conversationID, content); err != nil && c.logger != nil {
		c.logger.Warn("persist draft failed", "conversation", conversationID, "error", err)
	}
}
