// Package store abstracts the document database the chat engine runs
// on: hierarchically addressed documents (collection/doc, with one
// level of sub-collections) plus live queries that re-push the full
// matching result set whenever anything under the query changes.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get for a path with no document.
	ErrNotFound = errors.New("store: document not found")
	// ErrBadPath is returned when a path does not address a document
	// (odd segment count for documents, even for collections).
	ErrBadPath = errors.New("store: malformed path")
)

// Fields is the schemaless body of a document.
type Fields map[string]interface{}

// Doc is one document as returned by reads and snapshots.
type Doc struct {
	ID     string
	Fields Fields
}

// Query selects documents within a single collection path. Filters
// combine with AND. OrderBy names one field; documents missing that
// field sort first.
type Query struct {
	Collection    string
	Equals        map[string]interface{}
	ArrayContains map[string]interface{}
	OrderBy       string
	Descending    bool
}

// Handle cancels a live subscription. Cancelling stops future delivery;
// it never retracts writes already issued.
type Handle interface {
	Cancel()
}

// SnapshotFunc receives the full, ordered result set of a subscribed
// query. It is invoked once on initial load and again after every
// change to a matching document.
type SnapshotFunc func(docs []Doc)

// Store is the contract every backing database must satisfy.
type Store interface {
	// Get reads a single document. ErrNotFound when absent.
	Get(ctx context.Context, path string) (Doc, error)

	// Set merge-upserts fields into the document at path, creating it
	// if needed. Existing fields not named are preserved.
	Set(ctx context.Context, path string, fields Fields) error

	// Add appends a document with a generated id to the collection at
	// path and returns the id.
	Add(ctx context.Context, collection string, fields Fields) (string, error)

	// Delete removes the document at path. Deleting an absent document
	// is not an error.
	Delete(ctx context.Context, path string) error

	// Query runs a one-shot read of the query's current result set.
	Query(ctx context.Context, q Query) ([]Doc, error)

	// Subscribe establishes a live query. The callback fires with the
	// initial result set and after every subsequent matching change,
	// always with the complete ordered list. Delivery stops only when
	// the handle is cancelled or ctx is done.
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (Handle, error)
}

// SplitDocPath splits a document path into its parent collection path
// and document id. "conversations/u1_u2/messages/m1" yields
// ("conversations/u1_u2/messages", "m1").
func SplitDocPath(path string) (collection, id string, err error) {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 0 || len(segs) == 0 {
		return "", "", ErrBadPath
	}
	for _, s := range segs {
		if s == "" {
			return "", "", ErrBadPath
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// ValidCollectionPath reports whether path addresses a collection.
func ValidCollectionPath(path string) bool {
	segs := strings.Split(path, "/")
	if len(segs)%2 == 0 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}
