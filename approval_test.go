package relaybox

import (
	"context"
	"errors"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func TestApprovalGate(t *testing.T) {
	ctx := context.Background()

	t.Run("unapproved messages are hidden", func(t *testing.T) {
		svc, _ := setupTestService(t)
		msg := mustIngest(t, svc, store.InboundData{
			From:    "unknown@example.test",
			Subject: "pending",
		})

		if _, err := svc.Message(ctx, msg.ID); !IsNotFound(err) {
			t.Errorf("expected not found for hidden message, got %v", err)
		}

		list, err := svc.Messages(ctx, nil, ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if list.Total != 0 {
			t.Errorf("hidden message should not be listed, got total %d", list.Total)
		}

		stats, err := svc.Stats(ctx)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stats.PendingApproval != 1 {
			t.Errorf("expected 1 pending message, got %d", stats.PendingApproval)
		}
		if stats.TotalMessages != 0 {
			t.Errorf("pending message should not count as total, got %d", stats.TotalMessages)
		}
	})

	t.Run("approval reveals retroactively", func(t *testing.T) {
		svc, _ := setupTestService(t)
		first := mustIngest(t, svc, store.InboundData{From: "alice@example.test", Subject: "one"})
		mustIngest(t, svc, store.InboundData{From: "alice@example.test", Subject: "two"})

		revealed, err := svc.ApproveSender(ctx, "alice@example.test", "Alice")
		if err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		if revealed != 2 {
			t.Errorf("expected 2 messages revealed, got %d", revealed)
		}

		got, err := svc.Message(ctx, first.ID)
		if err != nil {
			t.Fatalf("revealed message should be readable: %v", err)
		}
		if !got.Approved {
			t.Error("revealed message should be marked approved")
		}
	})

	t.Run("re-approval reveals nothing", func(t *testing.T) {
		svc, _ := setupTestService(t)
		mustIngest(t, svc, store.InboundData{From: "bob@example.test"})

		if _, err := svc.ApproveSender(ctx, "bob@example.test", "Bob"); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		revealed, err := svc.ApproveSender(ctx, "bob@example.test", "Bob")
		if err != nil {
			t.Fatalf("re-approve failed: %v", err)
		}
		if revealed != 0 {
			t.Errorf("re-approval should reveal 0 messages, got %d", revealed)
		}
	})

	t.Run("email comparison is case-insensitive", func(t *testing.T) {
		svc, _ := setupTestService(t)
		mustIngest(t, svc, store.InboundData{From: "Carol@Example.Test"})

		revealed, err := svc.ApproveSender(ctx, "carol@example.test", "Carol")
		if err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		if revealed != 1 {
			t.Errorf("expected case-insensitive match to reveal 1, got %d", revealed)
		}

		ok, err := svc.IsApprovedSender(ctx, "CAROL@EXAMPLE.TEST")
		if err != nil {
			t.Fatalf("is approved failed: %v", err)
		}
		if !ok {
			t.Error("expected sender approved regardless of case")
		}
	})

	t.Run("revoke is not retroactive", func(t *testing.T) {
		svc, _ := setupTestService(t)
		if _, err := svc.ApproveSender(ctx, "dave@example.test", "Dave"); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		msg := mustIngest(t, svc, store.InboundData{From: "dave@example.test", Subject: "kept"})

		if err := svc.RevokeSender(ctx, "dave@example.test"); err != nil {
			t.Fatalf("revoke failed: %v", err)
		}

		// Already approved messages stay visible.
		if _, err := svc.Message(ctx, msg.ID); err != nil {
			t.Errorf("approved message should survive revocation: %v", err)
		}

		// New mail from the revoked sender is hidden again.
		hidden := mustIngest(t, svc, store.InboundData{From: "dave@example.test", Subject: "hidden"})
		if hidden.Approved {
			t.Error("message after revocation should not be approved")
		}

		ok, err := svc.IsApprovedSender(ctx, "dave@example.test")
		if err != nil {
			t.Fatalf("is approved failed: %v", err)
		}
		if ok {
			t.Error("revoked sender should not be approved")
		}
	})

	t.Run("revoke unknown sender", func(t *testing.T) {
		svc, _ := setupTestService(t)
		err := svc.RevokeSender(ctx, "nobody@example.test")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("list approved senders", func(t *testing.T) {
		svc, _ := setupTestService(t)
		for _, email := range []string{"x@example.test", "y@example.test"} {
			if _, err := svc.ApproveSender(ctx, email, ""); err != nil {
				t.Fatalf("approve %s failed: %v", email, err)
			}
		}
		senders, err := svc.ApprovedSenders(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(senders) != 2 {
			t.Fatalf("expected 2 approved senders, got %d", len(senders))
		}
	})
}

func TestSetApproved(t *testing.T) {
	ctx := context.Background()

	t.Run("reveals a single message", func(t *testing.T) {
		svc, _ := setupTestService(t)
		msg := mustIngest(t, svc, store.InboundData{
			From: "stranger@example.test", Subject: "one-off",
		})
		mustIngest(t, svc, store.InboundData{
			From: "stranger@example.test", Subject: "still hidden",
		})

		if err := svc.SetApproved(ctx, msg.ID, true); err != nil {
			t.Fatalf("set approved failed: %v", err)
		}

		got, err := svc.Message(ctx, msg.ID)
		if err != nil {
			t.Fatalf("expected revealed message, got %v", err)
		}
		if got.Subject != "one-off" {
			t.Errorf("unexpected message %q", got.Subject)
		}

		// The sender is not on the allow-list: their other mail stays
		// hidden, and so does anything new they send.
		list, err := svc.Messages(ctx, nil, ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if list.Total != 1 {
			t.Fatalf("expected only the revealed message, got %d", list.Total)
		}
		senders, err := svc.ApprovedSenders(ctx)
		if err != nil {
			t.Fatalf("senders failed: %v", err)
		}
		if len(senders) != 0 {
			t.Errorf("allow-list should be untouched, got %v", senders)
		}
		late := mustIngest(t, svc, store.InboundData{
			From: "stranger@example.test", Subject: "later",
		})
		if _, err := svc.Message(ctx, late.ID); !IsNotFound(err) {
			t.Errorf("expected later message hidden, got %v", err)
		}
	})

	t.Run("re-hides a revealed message", func(t *testing.T) {
		svc, _ := setupTestService(t)
		if _, err := svc.ApproveSender(ctx, "known@example.test", ""); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		msg := mustIngest(t, svc, store.InboundData{
			From: "known@example.test", Subject: "visible",
		})

		if err := svc.SetApproved(ctx, msg.ID, false); err != nil {
			t.Fatalf("set approved failed: %v", err)
		}
		if _, err := svc.Message(ctx, msg.ID); !IsNotFound(err) {
			t.Errorf("expected re-hidden message, got %v", err)
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		svc, _ := setupTestService(t)
		if err := svc.SetApproved(ctx, "no-such-id", true); !IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}
