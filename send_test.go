package relaybox

import (
	"context"
	"errors"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func TestSendDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("sends and persists", func(t *testing.T) {
		svc, fs := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{
			To:      "alice@example.test, bob@example.test",
			Subject: "hello",
			Body:    "body text",
		})
		if err != nil {
			t.Fatalf("create draft failed: %v", err)
		}

		sent, err := svc.SendDraft(ctx, draft.ID)
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}

		if fs.sentCount() != 1 {
			t.Fatalf("expected 1 provider call, got %d", fs.sentCount())
		}
		outbound := fs.lastSent()
		if outbound.From != "me@example.test" {
			t.Errorf("expected configured from address, got %q", outbound.From)
		}
		if len(outbound.To) != 2 {
			t.Errorf("expected 2 recipients, got %v", outbound.To)
		}

		if sent.Direction != store.DirectionOutbound {
			t.Errorf("expected outbound direction, got %q", sent.Direction)
		}
		if sent.MessageID != "provider-1" {
			t.Errorf("expected provider message id recorded, got %q", sent.MessageID)
		}
		if sent.Status != store.StatusSent {
			t.Errorf("expected status sent, got %q", sent.Status)
		}

		// Sent messages are immediately visible.
		if _, err := svc.Message(ctx, sent.ID); err != nil {
			t.Errorf("sent message should be readable: %v", err)
		}

		// The draft is gone.
		if _, err := svc.Draft(ctx, draft.ID); !IsNotFound(err) {
			t.Errorf("expected draft deleted, got %v", err)
		}
	})

	t.Run("reply carries threading headers", func(t *testing.T) {
		svc, fs := setupTestService(t)
		inbound := mustIngest(t, svc, store.InboundData{
			From:      "alice@example.test",
			MessageID: "<orig@example.test>",
			Subject:   "question",
		})

		draft, err := svc.CreateDraft(ctx, store.DraftData{
			ThreadID: inbound.ThreadID,
			To:       "alice@example.test",
			Subject:  "Re: question",
			Body:     "answer",
		})
		if err != nil {
			t.Fatalf("create draft failed: %v", err)
		}

		sent, err := svc.SendDraft(ctx, draft.ID)
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}
		if sent.ThreadID != inbound.ThreadID {
			t.Errorf("reply should stay in thread %q, got %q", inbound.ThreadID, sent.ThreadID)
		}

		outbound := fs.lastSent()
		if got := outbound.Headers["In-Reply-To"]; got != "<orig@example.test>" {
			t.Errorf("expected In-Reply-To <orig@example.test>, got %q", got)
		}
		if got := outbound.Headers["References"]; got != "<orig@example.test>" {
			t.Errorf("expected References <orig@example.test>, got %q", got)
		}
		if sent.InReplyTo != "<orig@example.test>" {
			t.Errorf("persisted In-Reply-To mismatch: %q", sent.InReplyTo)
		}
	})

	t.Run("rejects draft without recipient", func(t *testing.T) {
		svc, fs := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{Subject: "no to"})
		if err != nil {
			t.Fatalf("create draft failed: %v", err)
		}

		if _, err := svc.SendDraft(ctx, draft.ID); !errors.Is(err, ErrNoRecipient) {
			t.Errorf("expected ErrNoRecipient, got %v", err)
		}
		if fs.sentCount() != 0 {
			t.Errorf("provider should not be called, got %d calls", fs.sentCount())
		}
	})

	t.Run("unknown draft", func(t *testing.T) {
		svc, _ := setupTestService(t)
		if _, err := svc.SendDraft(ctx, "no-such-draft"); !IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("provider failure keeps draft", func(t *testing.T) {
		svc, fs := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{
			To:   "alice@example.test",
			Body: "retry me",
		})
		if err != nil {
			t.Fatalf("create draft failed: %v", err)
		}

		fs.setErr(errors.New("provider down"))
		_, err = svc.SendDraft(ctx, draft.ID)
		if !IsUpstreamError(err) {
			t.Fatalf("expected upstream error, got %v", err)
		}

		// The draft survives for retry.
		kept, err := svc.Draft(ctx, draft.ID)
		if err != nil {
			t.Fatalf("draft should be intact: %v", err)
		}
		if kept.Body != "retry me" {
			t.Errorf("draft content changed: %q", kept.Body)
		}

		// Retry succeeds once the provider recovers.
		fs.setErr(nil)
		if _, err := svc.SendDraft(ctx, draft.ID); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if _, err := svc.Draft(ctx, draft.ID); !IsNotFound(err) {
			t.Errorf("expected draft deleted after retry, got %v", err)
		}
	})
}

func TestSplitAddresses(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"a@example.test", 1},
		{"a@example.test, b@example.test", 2},
		{"a@example.test,,b@example.test, ", 2},
	}
	for _, tt := range tests {
		if got := splitAddresses(tt.in); len(got) != tt.want {
			t.Errorf("splitAddresses(%q) = %v, want %d addresses", tt.in, got, tt.want)
		}
	}
}
