package relaybox

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func TestErrorSentinels(t *testing.T) {
	t.Run("service errors match store sentinels", func(t *testing.T) {
		pairs := []struct {
			svc, store error
		}{
			{ErrNotFound, store.ErrNotFound},
			{ErrInvalidID, store.ErrInvalidID},
			{ErrNotConnected, store.ErrNotConnected},
			{ErrAlreadyConnected, store.ErrAlreadyConnected},
			{ErrInvalidEmail, store.ErrInvalidEmail},
			{ErrInvalidStatus, store.ErrInvalidStatus},
		}
		for _, p := range pairs {
			if !errors.Is(p.svc, p.store) {
				t.Errorf("%v should match %v", p.svc, p.store)
			}
		}
	})

	t.Run("wrapped store errors match", func(t *testing.T) {
		err := fmt.Errorf("get message: %w", store.ErrNotFound)
		if !IsNotFound(err) {
			t.Error("IsNotFound should see through wrapping")
		}
		if !errors.Is(err, ErrNotFound) {
			t.Error("wrapped store error should match service sentinel")
		}
	})

	t.Run("wrapped service errors match store sentinels", func(t *testing.T) {
		err := fmt.Errorf("archive: %w", ErrNotFound)
		if !errors.Is(err, store.ErrNotFound) {
			t.Error("wrapped service error should match store sentinel")
		}
		err = fmt.Errorf("update status: %w", ErrInvalidStatus)
		if !errors.Is(err, store.ErrInvalidStatus) {
			t.Error("wrapped service error should match store sentinel")
		}
	})
}

func TestUpstreamError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &UpstreamError{Op: "send", Err: cause}

	if !IsUpstreamError(err) {
		t.Error("expected IsUpstreamError")
	}
	if !IsUpstreamError(fmt.Errorf("outer: %w", err)) {
		t.Error("IsUpstreamError should see through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if IsUpstreamError(cause) {
		t.Error("plain error is not upstream")
	}
}

func TestEventPublishError(t *testing.T) {
	cause := errors.New("bus closed")
	err := &EventPublishError{Event: "MessageSent", MessageID: "m1", Err: cause}

	if !IsEventPublishError(err) {
		t.Error("expected IsEventPublishError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if IsEventPublishError(cause) {
		t.Error("plain error is not an event publish error")
	}
}
