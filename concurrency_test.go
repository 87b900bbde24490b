package relaybox

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func TestConcurrency_ParallelIngest(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	const numSenders = 8
	const messagesPerSender = 10

	var wg sync.WaitGroup
	errCh := make(chan error, numSenders*messagesPerSender)

	for i := 0; i < numSenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			from := fmt.Sprintf("sender%d@example.test", n)
			for j := 0; j < messagesPerSender; j++ {
				_, err := svc.Ingest(ctx, store.InboundData{
					From:    from,
					Subject: fmt.Sprintf("message %d", j),
				})
				if err != nil {
					errCh <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("ingest error: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if want := int64(numSenders * messagesPerSender); stats.PendingApproval != want {
		t.Errorf("expected %d pending messages, got %d", want, stats.PendingApproval)
	}
}

func TestConcurrency_ApproveDuringIngest(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	const numMessages = 50
	const from = "busy@example.test"

	// Approval races against a stream of ingests. Whatever the
	// interleaving, every message must end up visible: either it was
	// approved on ingest, or approval revealed it retroactively.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < numMessages; i++ {
			if _, err := svc.Ingest(ctx, store.InboundData{From: from}); err != nil {
				t.Errorf("ingest error: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := svc.ApproveSender(ctx, from, ""); err != nil {
			t.Errorf("approve error: %v", err)
		}
	}()
	wg.Wait()

	// A second approval sweeps up anything ingested after the first one.
	if _, err := svc.ApproveSender(ctx, from, ""); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	n, err := svc.CountMessages(ctx, []Filter{store.FromIs(from)})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != numMessages {
		t.Errorf("expected all %d messages visible, got %d", numMessages, n)
	}
}

func TestConcurrency_ParallelSends(t *testing.T) {
	ctx := context.Background()
	svc, fs := setupTestService(t, WithMaxConcurrentSends(3))

	const numDrafts = 12
	ids := make([]string, 0, numDrafts)
	for i := 0; i < numDrafts; i++ {
		draft, err := svc.CreateDraft(ctx, store.DraftData{
			To:      "rcpt@example.test",
			Subject: fmt.Sprintf("draft %d", i),
		})
		if err != nil {
			t.Fatalf("create draft failed: %v", err)
		}
		ids = append(ids, draft.ID)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, numDrafts)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.SendDraft(ctx, id); err != nil {
				errCh <- err
			}
		}(id)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("send error: %v", err)
	}

	if fs.sentCount() != numDrafts {
		t.Errorf("expected %d provider calls, got %d", numDrafts, fs.sentCount())
	}

	list, err := svc.Drafts(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list drafts failed: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("expected all drafts consumed, %d left", list.Total)
	}
}
