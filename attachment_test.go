package relaybox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	blobmemory "github.com/dmehra/relaybox/blob/memory"
	"github.com/dmehra/relaybox/store"
)

func TestLoadAttachment(t *testing.T) {
	ctx := context.Background()

	t.Run("loads stored content", func(t *testing.T) {
		blobs := blobmemory.New()
		svc, _ := setupTestService(t, WithBlobStore(blobs))

		uri, err := blobs.Upload(ctx, "report.pdf", "application/pdf", strings.NewReader("pdf bytes"))
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}

		if _, err := svc.ApproveSender(ctx, "a@example.test", ""); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		msg := mustIngest(t, svc, store.InboundData{
			From: "a@example.test",
			Attachments: []store.AttachmentData{
				{Filename: "report.pdf", ContentType: "application/pdf", Size: 9, BlobKey: uri},
			},
		})

		got, err := svc.Message(ctx, msg.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if len(got.Attachments) != 1 {
			t.Fatalf("expected 1 attachment, got %d", len(got.Attachments))
		}

		rc, err := svc.LoadAttachment(ctx, msg.ID, got.Attachments[0].ID)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(data) != "pdf bytes" {
			t.Errorf("content mismatch: %q", data)
		}
	})

	t.Run("hidden message attachment not found", func(t *testing.T) {
		blobs := blobmemory.New()
		svc, _ := setupTestService(t, WithBlobStore(blobs))

		uri, err := blobs.Upload(ctx, "x.txt", "text/plain", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		msg := mustIngest(t, svc, store.InboundData{
			From: "stranger@example.test",
			Attachments: []store.AttachmentData{
				{Filename: "x.txt", ContentType: "text/plain", Size: 1, BlobKey: uri},
			},
		})

		if _, err := svc.LoadAttachment(ctx, msg.ID, "any"); !IsNotFound(err) {
			t.Errorf("expected not found for hidden message, got %v", err)
		}
	})

	t.Run("requires blob store", func(t *testing.T) {
		svc, _ := setupTestService(t)
		if _, err := svc.LoadAttachment(ctx, "m", "a"); !errors.Is(err, ErrBlobStoreRequired) {
			t.Errorf("expected ErrBlobStoreRequired, got %v", err)
		}
	})
}
