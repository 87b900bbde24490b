package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) ApproveSender(ctx context.Context, email, name string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return 0, err
	}

	// Upsert and reveal happen under one lock, matching the SQL backend's
	// single transaction.
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.approved[email]; ok {
		existing.Name = name
	} else {
		s.approved[email] = &store.ApprovedSender{
			Email:     email,
			Name:      name,
			CreatedAt: nowUTC(),
		}
	}

	var revealed int64
	for _, m := range s.messages {
		if !m.Approved && strings.ToLower(m.From) == email {
			m.Approved = true
			revealed++
		}
	}
	return revealed, nil
}

func (s *Store) RevokeSender(ctx context.Context, email string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.approved[email]; !ok {
		return store.ErrNotFound
	}
	delete(s.approved, email)
	return nil
}

func (s *Store) IsApprovedSender(ctx context.Context, email string) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.approved[email]
	return ok, nil
}

func (s *Store) ListApprovedSenders(ctx context.Context) ([]*store.ApprovedSender, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	senders := make([]*store.ApprovedSender, 0, len(s.approved))
	for _, a := range s.approved {
		c := *a
		senders = append(senders, &c)
	}
	sort.Slice(senders, func(i, j int) bool {
		return senders[i].Email < senders[j].Email
	})
	return senders, nil
}
