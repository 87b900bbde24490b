package relaybox

import (
	"context"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func strptr(s string) *string { return &s }

func TestDrafts(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		svc, _ := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{
			To:      "alice@example.test",
			Subject: "wip",
			Body:    "first pass",
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if draft.ID == "" {
			t.Fatal("expected draft id")
		}

		got, err := svc.Draft(ctx, draft.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Subject != "wip" || got.Body != "first pass" {
			t.Errorf("draft content mismatch: %+v", got)
		}
	})

	t.Run("empty draft is valid", func(t *testing.T) {
		svc, _ := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if draft.ID == "" {
			t.Fatal("expected draft id")
		}
	})

	t.Run("partial update", func(t *testing.T) {
		svc, _ := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{
			To:      "alice@example.test",
			Subject: "old subject",
			Body:    "keep me",
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		updated, err := svc.UpdateDraft(ctx, draft.ID, store.DraftPatch{
			Subject: strptr("new subject"),
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.Subject != "new subject" {
			t.Errorf("expected subject replaced, got %q", updated.Subject)
		}
		if updated.Body != "keep me" {
			t.Errorf("nil patch field should keep value, got %q", updated.Body)
		}

		// A non-nil empty string clears the field.
		updated, err = svc.UpdateDraft(ctx, draft.ID, store.DraftPatch{
			Body: strptr(""),
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.Body != "" {
			t.Errorf("expected body cleared, got %q", updated.Body)
		}
	})

	t.Run("update unknown draft", func(t *testing.T) {
		svc, _ := setupTestService(t)
		_, err := svc.UpdateDraft(ctx, "no-such-draft", store.DraftPatch{Subject: strptr("x")})
		if !IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		svc, _ := setupTestService(t)
		draft, err := svc.CreateDraft(ctx, store.DraftData{Subject: "doomed"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if err := svc.DeleteDraft(ctx, draft.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := svc.Draft(ctx, draft.ID); !IsNotFound(err) {
			t.Errorf("expected not found after delete, got %v", err)
		}
		if err := svc.DeleteDraft(ctx, draft.ID); !IsNotFound(err) {
			t.Errorf("expected not found on double delete, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		svc, _ := setupTestService(t)
		for i := 0; i < 3; i++ {
			if _, err := svc.CreateDraft(ctx, store.DraftData{Subject: "d"}); err != nil {
				t.Fatalf("create failed: %v", err)
			}
		}
		list, err := svc.Drafts(ctx, ListOptions{Limit: 2})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if list.Total != 3 {
			t.Errorf("expected total 3, got %d", list.Total)
		}
		if len(list.Drafts) != 2 {
			t.Errorf("expected page of 2, got %d", len(list.Drafts))
		}
		if !list.HasMore {
			t.Error("expected HasMore")
		}
	})
}
