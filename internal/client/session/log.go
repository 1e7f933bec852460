package session

import (
	"sync"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

// MessageLog is the append-only transcript of a Session. It survives reconnections.
type MessageLog struct {
	mu      sync.RWMutex
	entries []chat.Message
}

// NewMessageLog returns an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{entries: make([]chat.Message, 0, 32)}
}

// Append adds msg after every earlier entry.
func (l *MessageLog) Append(msg chat.Message) {
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
}

// Snapshot returns a copy of the entries in arrival order.
func (l *MessageLog) Snapshot() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]chat.Message(nil), l.entries...)
}

// Len returns the number of entries.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
