package chat

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shifted/store"
)

// Messages is the append-only message log adapter. Appends also drive
// the conversation's lastMessage projection; nothing else writes it.
type Messages struct {
	store   store.Store
	log     *logrus.Logger
	dropped atomic.Int64
}

func NewMessages(st store.Store, log *logrus.Logger) *Messages {
	return &Messages{store: st, log: log}
}

// Append writes a new message with a generated id and the current
// time, then projects its text onto the conversation's lastMessage.
// The write is not retried on failure; the caller surfaces it.
func (m *Messages) Append(ctx context.Context, conversationID, senderIdentity, text string) (string, error) {
	id := uuid.NewString()
	fields := store.Fields{
		"text":      text,
		"timestamp": time.Now().UTC(),
		"sender":    senderIdentity,
	}

	if err := m.store.Set(ctx, messagesPath(conversationID)+"/"+id, fields); err != nil {
		return "", fmt.Errorf("%w: append to %s: %v", ErrWriteFailed, conversationID, err)
	}

	m.projectLastMessage(ctx, conversationID, text)
	return id, nil
}

// projectLastMessage overwrites the conversation's summary with the
// just-appended text. If it fails the message is already durable and
// the summary simply stays stale until the next successful append.
func (m *Messages) projectLastMessage(ctx context.Context, conversationID, text string) {
	err := m.store.Set(ctx, conversationPath(conversationID), store.Fields{"lastMessage": text})
	if err != nil {
		m.log.WithError(err).WithField("conversation", conversationID).
			Warn("lastMessage projection failed, summary is stale")
	}
}

// Subscribe opens a live query over the conversation's message log,
// oldest first. Every change re-emits the full ordered list; records
// that fail to decode are counted and omitted.
func (m *Messages) Subscribe(ctx context.Context, conversationID string, fn func([]Message)) (store.Handle, error) {
	q := store.Query{
		Collection: messagesPath(conversationID),
		OrderBy:    "timestamp",
	}

	handle, err := m.store.Subscribe(ctx, q, func(docs []store.Doc) {
		fn(m.decodeAll(conversationID, docs))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: messages of %s: %v", ErrSubscription, conversationID, err)
	}
	return handle, nil
}

// List is the one-shot counterpart of Subscribe, used by the REST
// surface.
func (m *Messages) List(ctx context.Context, conversationID string) ([]Message, error) {
	docs, err := m.store.Query(ctx, store.Query{
		Collection: messagesPath(conversationID),
		OrderBy:    "timestamp",
	})
	if err != nil {
		return nil, err
	}
	return m.decodeAll(conversationID, docs), nil
}

// Dropped reports how many records have been skipped for failing to
// decode since construction.
func (m *Messages) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Messages) decodeAll(conversationID string, docs []store.Doc) []Message {
	out := make([]Message, 0, len(docs))
	for _, doc := range docs {
		msg, ok := decodeMessage(doc)
		if !ok {
			m.dropped.Add(1)
			m.log.WithFields(logrus.Fields{
				"conversation": conversationID,
				"message":      doc.ID,
			}).Debug("dropping malformed message record")
			continue
		}
		out = append(out, msg)
	}
	return out
}
