package chat

import (
	"context"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	_, messages, conversations := newEngine(t)
	ctx := context.Background()

	id, err := conversations.CreateOrGet(ctx, "u1", "u2", "hi there", "u1@example.com")
	if err != nil {
		t.Fatal(err)
	}

	var pushes int
	session := NewSession(messages, StaticIdentity{UserID: "u2", Display: "u2@example.com"}, func([]Message) {
		pushes++
	})

	if err := session.Open(ctx, id); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer session.Close()

	if pushes != 1 {
		t.Fatalf("initial pushes = %d, want 1", pushes)
	}
	if got := session.Messages(); len(got) != 1 || got[0].Text != "hi there" {
		t.Fatalf("initial list = %v", got)
	}

	time.Sleep(2 * time.Millisecond)
	if err := session.Submit(ctx, "yes, still here"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := session.Messages()
	if len(got) != 2 {
		t.Fatalf("message count = %d, want 2", len(got))
	}
	if got[1].Text != "yes, still here" || got[1].Sender != "u2@example.com" {
		t.Errorf("outgoing message = %+v", got[1])
	}
	if got[0].Timestamp.After(got[1].Timestamp) {
		t.Error("list not ascending")
	}
}

func TestSessionSubmitEmptyIsNoop(t *testing.T) {
	_, messages, conversations := newEngine(t)
	ctx := context.Background()

	id, err := conversations.CreateOrGet(ctx, "u1", "u2", "hi", "x")
	if err != nil {
		t.Fatal(err)
	}

	session := NewSession(messages, StaticIdentity{UserID: "u2", Display: "y"}, nil)
	if err := session.Open(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	for _, text := range []string{"", "   ", "\n\t "} {
		if err := session.Submit(ctx, text); err != nil {
			t.Fatalf("Submit(%q): %v", text, err)
		}
	}

	if got := session.Messages(); len(got) != 1 {
		t.Fatalf("empty submissions were appended: %v", got)
	}
}

func TestSessionCloseStopsDelivery(t *testing.T) {
	_, messages, conversations := newEngine(t)
	ctx := context.Background()

	id, err := conversations.CreateOrGet(ctx, "u1", "u2", "hi", "x")
	if err != nil {
		t.Fatal(err)
	}

	var pushes int
	session := NewSession(messages, StaticIdentity{UserID: "u2", Display: "y"}, func([]Message) {
		pushes++
	})
	if err := session.Open(ctx, id); err != nil {
		t.Fatal(err)
	}

	session.Close()
	before := pushes
	snapshot := session.Messages()

	if _, err := messages.Append(ctx, id, "x", "after close"); err != nil {
		t.Fatal(err)
	}

	if pushes != before {
		t.Error("push processed after Close")
	}
	if got := session.Messages(); len(got) != len(snapshot) {
		t.Error("state mutated after Close")
	}

	// Submitting after close is a no-op, not a panic.
	if err := session.Submit(ctx, "too late"); err != nil {
		t.Fatalf("Submit after close: %v", err)
	}
	// Close twice is safe.
	session.Close()
}
