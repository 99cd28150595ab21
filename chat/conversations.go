package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"shifted/store"
)

// Conversations is the conversation store adapter: idempotent creation
// keyed by the derived id, live per-user listing, and display-name
// resolution with a renderable fallback.
type Conversations struct {
	store    store.Store
	messages *Messages
	profiles ProfileLookup
	log      *logrus.Logger
	dropped  atomic.Int64
}

func NewConversations(st store.Store, messages *Messages, profiles ProfileLookup, log *logrus.Logger) *Conversations {
	return &Conversations{store: st, messages: messages, profiles: profiles, log: log}
}

// CreateOrGet returns the conversation id for the pair, creating the
// conversation and appending the first message only when no
// conversation exists yet. Calling it again for the same pair is a
// no-op on the record: the id is deterministic, so concurrent callers
// converge on one row and an existing lastMessage is never overwritten.
func (c *Conversations) CreateOrGet(ctx context.Context, userA, userB, firstMessage, senderIdentity string) (string, error) {
	id, err := DeriveConversationID(userA, userB)
	if err != nil {
		return "", err
	}

	_, err = c.store.Get(ctx, conversationPath(id))
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: lookup %s: %v", ErrWriteFailed, id, err)
	}

	participants := []string{userA, userB}
	sort.Strings(participants)

	fields := store.Fields{
		"participants": participants,
		"createdAt":    time.Now().UTC(),
		"lastMessage":  firstMessage,
	}
	if err := c.store.Set(ctx, conversationPath(id), fields); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrWriteFailed, id, err)
	}

	if _, err := c.messages.Append(ctx, id, senderIdentity, firstMessage); err != nil {
		return id, err
	}
	return id, nil
}

// SubscribeForUser opens a live query over every conversation the user
// participates in, newest first. The callback always receives the full
// current list; malformed records are counted and dropped.
func (c *Conversations) SubscribeForUser(ctx context.Context, userID string, fn func([]Conversation)) (store.Handle, error) {
	handle, err := c.store.Subscribe(ctx, c.userQuery(userID), func(docs []store.Doc) {
		fn(c.decodeAll(docs))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: conversations of %s: %v", ErrSubscription, userID, err)
	}
	return handle, nil
}

// ListForUser is the one-shot counterpart of SubscribeForUser.
func (c *Conversations) ListForUser(ctx context.Context, userID string) ([]Conversation, error) {
	docs, err := c.store.Query(ctx, c.userQuery(userID))
	if err != nil {
		return nil, err
	}
	return c.decodeAll(docs), nil
}

// ResolveDisplayName looks up the user's profile and joins the name
// fields. Absent profiles and empty fields yield UnknownName, never an
// error, so callers always have something to render.
func (c *Conversations) ResolveDisplayName(ctx context.Context, userID string) string {
	profile, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		c.log.WithError(err).WithField("user", userID).Debug("profile lookup failed")
		return UnknownName
	}
	return profile.DisplayName()
}

// Dropped reports how many conversation records have been skipped for
// failing to decode since construction.
func (c *Conversations) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Conversations) userQuery(userID string) store.Query {
	return store.Query{
		Collection:    conversationsCollection,
		ArrayContains: map[string]interface{}{"participants": userID},
		OrderBy:       "createdAt",
		Descending:    true,
	}
}

func (c *Conversations) decodeAll(docs []store.Doc) []Conversation {
	out := make([]Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, ok := decodeConversation(doc)
		if !ok {
			c.dropped.Add(1)
			c.log.WithField("conversation", doc.ID).Debug("dropping malformed conversation record")
			continue
		}
		out = append(out, conv)
	}
	return out
}
