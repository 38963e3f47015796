// Package broadcast is the cross-context notification channel: after a
// successful mutation, components publish a typed message so other open
// contexts (a monitor TUI, another compass process tailing the hub) can
// invalidate cached progress views. Delivery is advisory only; nothing
// depends on receiving a message for correctness.
package broadcast

import (
	"encoding/json"
	"sync"
	"time"
)

// MessageType discriminates the broadcast message union.
type MessageType string

const (
	TypeProgressUpdate   MessageType = "PROGRESS_UPDATE"
	TypeMigrationSuccess MessageType = "MIGRATION_SUCCESS"
	TypeSyncStatusChange MessageType = "SYNC_STATUS_CHANGE"
)

// Message is one broadcast notification.
type Message struct {
	Type        MessageType     `json:"type"`
	ChallengeID string          `json:"challenge_id,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Hub is an in-process publish/subscribe channel. Publishing never blocks:
// subscribers that cannot keep up miss messages, which is acceptable for an
// advisory cache-invalidation signal.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Message]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Message]struct{})}
}

// Subscribe registers a new subscriber and returns its receive channel.
// The channel is closed when Unsubscribe or Close is called.
func (h *Hub) Subscribe() chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Message, 16)
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish delivers the message to every subscriber without blocking. The
// timestamp is stamped here if unset.
func (h *Hub) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default: // slow subscriber, drop
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
