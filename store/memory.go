package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same live-query semantics as
// the real backend. It backs unit tests and local development.
//
// Snapshot delivery is synchronous on the mutating goroutine: every
// mutation re-evaluates the affected collection's subscriptions and
// pushes the full result set before the mutating call returns.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Fields
	subs        map[int]*memorySub
	nextSubID   int
}

type memorySub struct {
	id    int
	query Query
	fn    SnapshotFunc
	done  <-chan struct{}
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Fields),
		subs:        make(map[int]*memorySub),
	}
}

func (m *Memory) Get(ctx context.Context, path string) (Doc, error) {
	collection, id, err := SplitDocPath(path)
	if err != nil {
		return Doc{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.collections[collection][id]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: id, Fields: cloneFields(fields)}, nil
}

func (m *Memory) Set(ctx context.Context, path string, fields Fields) error {
	collection, id, err := SplitDocPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	coll := m.collections[collection]
	if coll == nil {
		coll = make(map[string]Fields)
		m.collections[collection] = coll
	}
	existing := coll[id]
	if existing == nil {
		existing = make(Fields)
		coll[id] = existing
	}
	for k, v := range fields {
		existing[k] = v
	}
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if !ValidCollectionPath(collection) {
		return "", ErrBadPath
	}
	id := uuid.NewString()
	if err := m.Set(ctx, collection+"/"+id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitDocPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.collections[collection], id)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Doc, error) {
	if !ValidCollectionPath(q.Collection) {
		return nil, ErrBadPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluate(q), nil
}

func (m *Memory) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (Handle, error) {
	if !ValidCollectionPath(q.Collection) {
		return nil, ErrBadPath
	}

	m.mu.Lock()
	m.nextSubID++
	sub := &memorySub{id: m.nextSubID, query: q, fn: fn, done: ctx.Done()}
	m.subs[sub.id] = sub
	initial := m.evaluate(q)
	m.mu.Unlock()

	fn(initial)
	return &memoryHandle{store: m, id: sub.id}, nil
}

type memoryHandle struct {
	store *Memory
	once  sync.Once
	id    int
}

func (h *memoryHandle) Cancel() {
	h.once.Do(func() {
		h.store.mu.Lock()
		delete(h.store.subs, h.id)
		h.store.mu.Unlock()
	})
}

// notify pushes fresh snapshots to every subscription on the given
// collection. Snapshots are computed under the lock, delivered outside
// it so callbacks may re-enter the store.
func (m *Memory) notify(collection string) {
	type delivery struct {
		sub  *memorySub
		docs []Doc
	}

	m.mu.Lock()
	var pending []delivery
	for _, sub := range m.subs {
		if sub.query.Collection != collection {
			continue
		}
		select {
		case <-sub.done:
			delete(m.subs, sub.id)
			continue
		default:
		}
		pending = append(pending, delivery{sub: sub, docs: m.evaluate(sub.query)})
	}
	m.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].sub.id < pending[j].sub.id })
	for _, d := range pending {
		d.sub.fn(d.docs)
	}
}

// evaluate runs a query against current state. Caller holds m.mu.
func (m *Memory) evaluate(q Query) []Doc {
	var docs []Doc
	for id, fields := range m.collections[q.Collection] {
		if !matches(fields, q) {
			continue
		}
		docs = append(docs, Doc{ID: id, Fields: cloneFields(fields)})
	}
	orderDocs(docs, q)
	return docs
}

func matches(fields Fields, q Query) bool {
	for k, want := range q.Equals {
		got, ok := fields[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	for k, want := range q.ArrayContains {
		if !sliceContains(fields[k], want) {
			return false
		}
	}
	return true
}

func sliceContains(value, want interface{}) bool {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(rv.Index(i).Interface(), want) {
			return true
		}
	}
	return false
}

func orderDocs(docs []Doc, q Query) {
	if q.OrderBy == "" {
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
		if c == 0 {
			c = compareValues(docs[i].ID, docs[j].ID)
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders the field types the engine stores: times,
// numbers, strings. Absent values sort first.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}

	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
