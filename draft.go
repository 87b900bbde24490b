package relaybox

import (
	"context"
	"fmt"

	"github.com/dmehra/relaybox/store"
)

// CreateDraft creates a draft. All content fields are optional; an empty
// draft is valid and can be filled in with UpdateDraft.
func (s *service) CreateDraft(ctx context.Context, data store.DraftData) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	d, err := s.store.CreateDraft(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	s.logger.Debug("draft created", "id", d.ID, "thread_id", d.ThreadID)
	return d, nil
}

// Draft retrieves a draft by ID.
func (s *service) Draft(ctx context.Context, id string) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	d, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

// UpdateDraft applies a partial update and returns the updated draft.
// Nil patch fields leave the current value; non-nil fields overwrite,
// including with the empty string.
func (s *service) UpdateDraft(ctx context.Context, id string, patch store.DraftPatch) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	d, err := s.store.UpdateDraft(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	return d, nil
}

// DeleteDraft permanently removes a draft.
func (s *service) DeleteDraft(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if err := s.store.DeleteDraft(ctx, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	s.logger.Debug("draft deleted", "id", id)
	return nil
}

// Drafts lists drafts ordered by last update, newest first.
func (s *service) Drafts(ctx context.Context, opts ListOptions) (*store.DraftList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	list, err := s.store.ListDrafts(ctx, s.clampLimit(opts))
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return list, nil
}
