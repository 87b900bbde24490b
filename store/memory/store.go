// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmehra/relaybox/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store with in-memory storage.
//
// A single mutex guards all maps. The multi-record operations that are
// transactions in the PostgreSQL backend (ingest with thread resolution,
// approval with retroactive reveal) hold the lock for their full duration,
// which gives the same atomicity the database gives.
type Store struct {
	mu        sync.RWMutex
	messages  map[string]*store.Message
	threads   map[string]*store.Thread
	drafts    map[string]*store.Draft
	approved  map[string]*store.ApprovedSender
	byMsgID   map[string]string // provider/RFC message ID -> internal ID
	connected int32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		messages: make(map[string]*store.Message),
		threads:  make(map[string]*store.Thread),
		drafts:   make(map[string]*store.Draft),
		approved: make(map[string]*store.ApprovedSender),
		byMsgID:  make(map[string]string),
	}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// cloneMessage returns a deep copy so callers cannot mutate stored state.
func cloneMessage(m *store.Message) *store.Message {
	c := *m
	if m.Labels != nil {
		c.Labels = append([]string(nil), m.Labels...)
	}
	if m.Attachments != nil {
		c.Attachments = append([]store.Attachment(nil), m.Attachments...)
	}
	return &c
}

func cloneThread(t *store.Thread) *store.Thread {
	c := *t
	return &c
}

func cloneDraft(d *store.Draft) *store.Draft {
	c := *d
	return &c
}

// sortMessages orders by created_at, newest first unless asc.
func sortMessages(msgs []*store.Message, asc bool) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if asc {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
}

// paginate applies limit/offset and reports whether more rows remain.
func paginate[T any](items []T, opts store.ListOptions, defaultLimit int) ([]T, bool) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil, false
	}
	items = items[offset:]
	if len(items) > limit {
		return items[:limit], true
	}
	return items, false
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", store.ErrInvalidEmail
	}
	return email, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
