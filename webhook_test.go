package relaybox

import (
	"context"
	"testing"

	"github.com/dmehra/relaybox/store"
)

// sendTestMessage sends a one-off draft and returns the stored message.
func sendTestMessage(t *testing.T, svc Service) *store.Message {
	t.Helper()
	ctx := context.Background()
	draft, err := svc.CreateDraft(ctx, store.DraftData{To: "rcpt@example.test", Subject: "tracked"})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	sent, err := svc.SendDraft(ctx, draft.ID)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	return sent
}

func TestHandleDeliveryEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("advances status", func(t *testing.T) {
		svc, _ := setupTestService(t)
		sent := sendTestMessage(t, svc)

		advanced, err := svc.HandleDeliveryEvent(ctx, "email.delivered", sent.MessageID)
		if err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		if !advanced {
			t.Error("expected status to advance")
		}

		got, err := svc.Message(ctx, sent.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != store.StatusDelivered {
			t.Errorf("expected delivered, got %q", got.Status)
		}
	})

	t.Run("stale event is a no-op", func(t *testing.T) {
		svc, _ := setupTestService(t)
		sent := sendTestMessage(t, svc)

		if _, err := svc.HandleDeliveryEvent(ctx, "email.delivered", sent.MessageID); err != nil {
			t.Fatalf("handle failed: %v", err)
		}

		// A late "sent" webhook must not regress the status.
		advanced, err := svc.HandleDeliveryEvent(ctx, "email.sent", sent.MessageID)
		if err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		if advanced {
			t.Error("stale webhook should not advance status")
		}

		got, err := svc.Message(ctx, sent.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != store.StatusDelivered {
			t.Errorf("status regressed to %q", got.Status)
		}
	})

	t.Run("bounce overrides delivered", func(t *testing.T) {
		svc, _ := setupTestService(t)
		sent := sendTestMessage(t, svc)

		if _, err := svc.HandleDeliveryEvent(ctx, "email.delivered", sent.MessageID); err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		advanced, err := svc.HandleDeliveryEvent(ctx, "email.bounced", sent.MessageID)
		if err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		if !advanced {
			t.Error("bounce should advance past delivered")
		}
	})

	t.Run("unknown event type ignored", func(t *testing.T) {
		svc, _ := setupTestService(t)
		sent := sendTestMessage(t, svc)

		advanced, err := svc.HandleDeliveryEvent(ctx, "email.opened", sent.MessageID)
		if err != nil {
			t.Errorf("unknown event must not error: %v", err)
		}
		if advanced {
			t.Error("unknown event should not advance status")
		}
	})

	t.Run("empty provider id ignored", func(t *testing.T) {
		svc, _ := setupTestService(t)
		advanced, err := svc.HandleDeliveryEvent(ctx, "email.delivered", "")
		if err != nil {
			t.Errorf("empty id must not error: %v", err)
		}
		if advanced {
			t.Error("empty id should be a no-op")
		}
	})

	t.Run("unknown provider id is a no-op", func(t *testing.T) {
		svc, _ := setupTestService(t)
		advanced, err := svc.HandleDeliveryEvent(ctx, "email.delivered", "never-sent")
		if err != nil {
			t.Errorf("unknown id must not error: %v", err)
		}
		if advanced {
			t.Error("unknown id should not advance anything")
		}
	})
}
