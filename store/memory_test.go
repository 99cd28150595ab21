package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Get(ctx, "users/u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	if err := mem.Set(ctx, "users/u1", Fields{"email": "a@b.c"}); err != nil {
		t.Fatal(err)
	}
	// Merge keeps untouched fields.
	if err := mem.Set(ctx, "users/u1", Fields{"firstName": "Ann"}); err != nil {
		t.Fatal(err)
	}

	doc, err := mem.Get(ctx, "users/u1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Fields["email"] != "a@b.c" || doc.Fields["firstName"] != "Ann" {
		t.Errorf("merge lost fields: %v", doc.Fields)
	}

	if _, err := mem.Get(ctx, "users"); !errors.Is(err, ErrBadPath) {
		t.Errorf("collection path accepted as document: %v", err)
	}
	if _, err := mem.Get(ctx, "users//x"); !errors.Is(err, ErrBadPath) {
		t.Errorf("empty segment accepted: %v", err)
	}
}

func TestMemoryAddAndDelete(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	id, err := mem.Add(ctx, "listings", Fields{"title": "bike"})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty generated id")
	}

	if _, err := mem.Get(ctx, "listings/"+id); err != nil {
		t.Fatalf("added doc not readable: %v", err)
	}

	if err := mem.Delete(ctx, "listings/"+id); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Get(ctx, "listings/"+id); !errors.Is(err, ErrNotFound) {
		t.Errorf("doc survived delete: %v", err)
	}
	// Deleting again is not an error.
	if err := mem.Delete(ctx, "listings/"+id); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestMemoryQueryFiltersAndOrder(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	base := time.Now().UTC()
	docs := []struct {
		id     string
		fields Fields
	}{
		{"c1", Fields{"participants": []string{"u1", "u2"}, "createdAt": base}},
		{"c2", Fields{"participants": []string{"u1", "u3"}, "createdAt": base.Add(time.Minute)}},
		{"c3", Fields{"participants": []string{"u2", "u3"}, "createdAt": base.Add(2 * time.Minute)}},
	}
	for _, d := range docs {
		if err := mem.Set(ctx, "conversations/"+d.id, d.fields); err != nil {
			t.Fatal(err)
		}
	}

	got, err := mem.Query(ctx, Query{
		Collection:    "conversations",
		ArrayContains: map[string]interface{}{"participants": "u1"},
		OrderBy:       "createdAt",
		Descending:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("query result = %v", got)
	}

	eq, err := mem.Query(ctx, Query{
		Collection: "conversations",
		Equals:     map[string]interface{}{"createdAt": base},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(eq) != 1 || eq[0].ID != "c1" {
		t.Fatalf("equality query result = %v", eq)
	}
}

func TestMemorySubcollectionsAreIsolated(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if err := mem.Set(ctx, "conversations/a_b/messages/m1", Fields{"text": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(ctx, "conversations/a_c/messages/m2", Fields{"text": "y"}); err != nil {
		t.Fatal(err)
	}

	got, err := mem.Query(ctx, Query{Collection: "conversations/a_b/messages"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("sub-collection leaked: %v", got)
	}
}

func TestMemorySubscribeDelivery(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	var pushes [][]Doc
	handle, err := mem.Subscribe(ctx, Query{Collection: "things", OrderBy: "n"}, func(docs []Doc) {
		pushes = append(pushes, docs)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(pushes) != 1 || len(pushes[0]) != 0 {
		t.Fatalf("initial empty snapshot missing: %v", pushes)
	}

	if err := mem.Set(ctx, "things/a", Fields{"n": 2}); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(ctx, "things/b", Fields{"n": 1}); err != nil {
		t.Fatal(err)
	}

	last := pushes[len(pushes)-1]
	if len(last) != 2 || last[0].ID != "b" || last[1].ID != "a" {
		t.Fatalf("ordered relist wrong: %v", last)
	}

	// Changes in other collections do not notify.
	count := len(pushes)
	if err := mem.Set(ctx, "other/x", Fields{"n": 9}); err != nil {
		t.Fatal(err)
	}
	if len(pushes) != count {
		t.Error("unrelated collection triggered delivery")
	}

	handle.Cancel()
	if err := mem.Set(ctx, "things/c", Fields{"n": 3}); err != nil {
		t.Fatal(err)
	}
	if len(pushes) != count {
		t.Error("delivery after cancel")
	}
	// Cancel twice is safe.
	handle.Cancel()
}

func TestMemorySubscribeContextCancel(t *testing.T) {
	mem := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var pushes int
	_, err := mem.Subscribe(ctx, Query{Collection: "things"}, func([]Doc) { pushes++ })
	if err != nil {
		t.Fatal(err)
	}

	cancel()
	if err := mem.Set(context.Background(), "things/a", Fields{"n": 1}); err != nil {
		t.Fatal(err)
	}
	if pushes != 1 {
		t.Errorf("pushes = %d, want only the initial snapshot", pushes)
	}
}

func TestSplitDocPath(t *testing.T) {
	coll, id, err := SplitDocPath("conversations/u1_u2/messages/m1")
	if err != nil {
		t.Fatal(err)
	}
	if coll != "conversations/u1_u2/messages" || id != "m1" {
		t.Errorf("split = (%q, %q)", coll, id)
	}

	for _, bad := range []string{"", "conversations", "a/b/c", "a//"} {
		if _, _, err := SplitDocPath(bad); err == nil {
			t.Errorf("SplitDocPath(%q) accepted", bad)
		}
	}

	if !ValidCollectionPath("conversations/u1_u2/messages") {
		t.Error("valid sub-collection rejected")
	}
	if ValidCollectionPath("conversations/u1_u2") {
		t.Error("document path accepted as collection")
	}
}
