package relaybox

import (
	"context"
	"fmt"
	"io"
)

// LoadAttachment returns the content of a message attachment.
//
// The metadata lookup runs through the store and is approval-gated like
// every other read: an attachment of a hidden message is not found. The
// content itself comes from the configured blob store.
func (s *service) LoadAttachment(ctx context.Context, messageID, attachmentID string) (io.ReadCloser, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if s.blobs == nil {
		return nil, ErrBlobStoreRequired
	}

	att, err := s.store.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}

	rc, err := s.blobs.Load(ctx, att.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("load attachment content: %w", err)
	}
	return rc, nil
}
