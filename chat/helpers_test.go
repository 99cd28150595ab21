package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"shifted/store"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newEngine(t *testing.T) (*store.Memory, *Messages, *Conversations) {
	t.Helper()
	mem := store.NewMemory()
	log := testLogger()
	messages := NewMessages(mem, log)
	conversations := NewConversations(mem, messages, NewStoreProfiles(mem), log)
	return mem, messages, conversations
}

// failingStore wraps a Store and fails Set for paths matched by
// failPath.
type failingStore struct {
	store.Store
	failPath func(path string) bool
}

type errFail struct{}

func (errFail) Error() string { return "injected failure" }

func (f *failingStore) Set(ctx context.Context, path string, fields store.Fields) error {
	if f.failPath(path) {
		return errFail{}
	}
	return f.Store.Set(ctx, path, fields)
}

func failOnMessages(path string) bool {
	return strings.Contains(path, "/messages/")
}

func failOnConversationDoc(path string) bool {
	return !strings.Contains(path, "/messages/")
}

// countingProfiles counts lookups per user id.
type countingProfiles struct {
	inner  ProfileLookup
	counts map[string]int
}

func newCountingProfiles(inner ProfileLookup) *countingProfiles {
	return &countingProfiles{inner: inner, counts: make(map[string]int)}
}

func (c *countingProfiles) GetProfile(ctx context.Context, userID string) (Profile, error) {
	c.counts[userID]++
	return c.inner.GetProfile(ctx, userID)
}

func putProfile(t *testing.T, mem *store.Memory, userID, first, last string) {
	t.Helper()
	err := mem.Set(context.Background(), usersCollection+"/"+userID, store.Fields{
		"firstName": first,
		"lastName":  last,
	})
	if err != nil {
		t.Fatalf("putProfile: %v", err)
	}
}
