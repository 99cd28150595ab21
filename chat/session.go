package chat

import (
	"context"
	"strings"
	"sync"

	"shifted/store"
)

// Session drives one open conversation: a live message subscription
// plus outgoing submissions. The visible list is always the full
// timestamp-ascending log, replaced wholesale on every push.
type Session struct {
	messages *Messages
	identity Identity
	onUpdate func([]Message)

	mu             sync.Mutex
	conversationID string
	handle         store.Handle
	current        []Message
	closed         bool
}

// NewSession wires a session for the given identity. onUpdate, when
// non-nil, is invoked with the full ordered list on every push; it
// must not block.
func NewSession(messages *Messages, identity Identity, onUpdate func([]Message)) *Session {
	return &Session{messages: messages, identity: identity, onUpdate: onUpdate}
}

// Open subscribes to the conversation's message log. The initial list
// is delivered before or shortly after Open returns, depending on the
// store.
func (s *Session) Open(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	s.conversationID = conversationID
	s.mu.Unlock()

	handle, err := s.messages.Subscribe(ctx, conversationID, s.push)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		handle.Cancel()
		return nil
	}
	s.handle = handle
	s.mu.Unlock()
	return nil
}

// Submit appends text as the current identity. Input that is empty
// after trimming is a no-op.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	conversationID := s.conversationID
	closed := s.closed
	s.mu.Unlock()
	if closed || conversationID == "" {
		return nil
	}

	_, err := s.messages.Append(ctx, conversationID, s.identity.CurrentDisplayIdentity(), text)
	return err
}

// Messages returns the latest delivered list.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.current))
	copy(out, s.current)
	return out
}

// Close cancels the subscription. No pushes are processed afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
}

func (s *Session) push(list []Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = list
	cb := s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(list)
	}
}
