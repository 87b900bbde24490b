package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) CreateDraft(ctx context.Context, data store.DraftData) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	now := nowUTC()
	d := &store.Draft{
		ID:        uuid.New().String(),
		ThreadID:  data.ThreadID,
		To:        data.To,
		Cc:        data.Cc,
		Bcc:       data.Bcc,
		Subject:   data.Subject,
		Body:      data.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.drafts[d.ID] = d
	s.mu.Unlock()

	return cloneDraft(d), nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDraft(d), nil
}

func (s *Store) UpdateDraft(ctx context.Context, id string, patch store.DraftPatch) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if patch.ThreadID != nil {
		d.ThreadID = *patch.ThreadID
	}
	if patch.To != nil {
		d.To = *patch.To
	}
	if patch.Cc != nil {
		d.Cc = *patch.Cc
	}
	if patch.Bcc != nil {
		d.Bcc = *patch.Bcc
	}
	if patch.Subject != nil {
		d.Subject = *patch.Subject
	}
	if patch.Body != nil {
		d.Body = *patch.Body
	}
	d.UpdatedAt = nowUTC()

	return cloneDraft(d), nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.drafts, id)
	return nil
}

func (s *Store) ListDrafts(ctx context.Context, opts store.ListOptions) (*store.DraftList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	drafts := make([]*store.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		drafts = append(drafts, d)
	}
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})

	total := int64(len(drafts))
	page, hasMore := paginate(drafts, opts, 20)

	out := make([]*store.Draft, len(page))
	for i, d := range page {
		out[i] = cloneDraft(d)
	}

	return &store.DraftList{Drafts: out, Total: total, HasMore: hasMore}, nil
}
