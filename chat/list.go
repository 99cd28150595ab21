package chat

import (
	"context"
	"sync"

	"shifted/store"
)

// ListEntry is one row of a user's conversation list: the conversation
// plus its resolved counterpart.
type ListEntry struct {
	Conversation    Conversation `json:"conversation"`
	CounterpartID   string       `json:"counterpartId"`
	CounterpartName string       `json:"counterpartName"`
}

// List drives a user's live conversation list. Counterpart display
// names are resolved at most once per counterpart for the controller's
// lifetime; the memo is owned by this instance alone.
type List struct {
	conversations *Conversations
	onUpdate      func([]ListEntry)

	mu      sync.Mutex
	ctx     context.Context
	userID  string
	handle  store.Handle
	names   map[string]string
	entries []ListEntry
	closed  bool
}

func NewList(conversations *Conversations, onUpdate func([]ListEntry)) *List {
	return &List{conversations: conversations, onUpdate: onUpdate}
}

// Open subscribes to every conversation containing userID.
func (l *List) Open(ctx context.Context, userID string) error {
	l.mu.Lock()
	l.ctx = ctx
	l.userID = userID
	l.names = make(map[string]string)
	l.mu.Unlock()

	handle, err := l.conversations.SubscribeForUser(ctx, userID, l.push)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		handle.Cancel()
		return nil
	}
	l.handle = handle
	l.mu.Unlock()
	return nil
}

// Entries returns the latest delivered list.
func (l *List) Entries() []ListEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ListEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Close cancels the subscription; no background work continues.
func (l *List) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	handle := l.handle
	l.handle = nil
	l.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
}

func (l *List) push(convs []Conversation) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	entries := make([]ListEntry, 0, len(convs))
	for _, conv := range convs {
		counterpart := conv.Counterpart(l.userID)
		name, ok := l.names[counterpart]
		if !ok {
			// Memoized for the controller's lifetime, Unknown included:
			// a resolved name is never re-fetched.
			name = l.conversations.ResolveDisplayName(l.ctx, counterpart)
			l.names[counterpart] = name
		}
		entries = append(entries, ListEntry{
			Conversation:    conv,
			CounterpartID:   counterpart,
			CounterpartName: name,
		})
	}
	l.entries = entries
	cb := l.onUpdate
	l.mu.Unlock()

	if cb != nil {
		cb(entries)
	}
}
