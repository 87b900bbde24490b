package memory

import (
	"context"
	"sort"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) GetThread(ctx context.Context, id string) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneThread(t), nil
}

func (s *Store) ListThreads(ctx context.Context, opts store.ListOptions) (*store.ThreadList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]*store.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, t)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})

	total := int64(len(threads))
	page, hasMore := paginate(threads, opts, 20)

	out := make([]*store.Thread, len(page))
	for i, t := range page {
		out[i] = cloneThread(t)
	}

	return &store.ThreadList{Threads: out, Total: total, HasMore: hasMore}, nil
}

func (s *Store) ThreadMessages(ctx context.Context, threadID string, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if threadID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*store.Message
	for _, m := range s.messages {
		if m.ThreadID == threadID && m.Approved {
			matched = append(matched, m)
		}
	}
	sortMessages(matched, true)

	total := int64(len(matched))
	page, hasMore := paginate(matched, opts, 100)

	out := make([]*store.Message, len(page))
	for i, m := range page {
		out[i] = cloneMessage(m)
	}

	return &store.MessageList{Messages: out, Total: total, HasMore: hasMore}, nil
}

func (s *Store) LastThreadMessage(ctx context.Context, threadID string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if threadID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Approval is ignored here: reply chaining needs the real tail.
	var last *store.Message
	for _, m := range s.messages {
		if m.ThreadID != threadID {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) {
			last = m
		}
	}
	if last == nil {
		return nil, store.ErrNotFound
	}
	return cloneMessage(last), nil
}
