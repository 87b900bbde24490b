package relaybox

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbaliyan/event/v3/transport/noop"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra/relaybox/store"
	"github.com/dmehra/relaybox/store/memory"
)

func TestServiceEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("all events bound after connect", func(t *testing.T) {
		svc, _ := setupTestService(t)
		events := svc.Events()
		if events == nil {
			t.Fatal("expected events after connect")
		}
	})

	t.Run("services get independent events", func(t *testing.T) {
		svc1, _ := setupTestService(t)
		svc2, _ := setupTestService(t)
		if svc1.Events() == svc2.Events() {
			t.Error("expected per-service event instances")
		}
	})

	t.Run("reconnect rebinds events", func(t *testing.T) {
		svc, err := NewService(
			WithStore(memory.New()),
			WithSender(&fakeSender{}),
			WithFromAddress("me@example.test"),
		)
		if err != nil {
			t.Fatalf("NewService failed: %v", err)
		}
		if err := svc.Connect(ctx); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		if err := svc.Close(ctx); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := svc.Connect(ctx); err != nil {
			t.Fatalf("reconnect failed: %v", err)
		}
		defer svc.Close(ctx)

		// Operations publish through the fresh bus without error.
		if _, err := svc.Ingest(ctx, store.InboundData{From: "a@example.test"}); err != nil {
			t.Errorf("ingest after reconnect failed: %v", err)
		}
	})
}

func TestCustomEventTransport(t *testing.T) {
	ctx := context.Background()

	svc, err := NewService(
		WithStore(memory.New()),
		WithSender(&fakeSender{}),
		WithFromAddress("me@example.test"),
		WithEventTransport(noop.New()),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect with custom transport failed: %v", err)
	}
	t.Cleanup(func() { svc.Close(context.Background()) })

	if _, err := svc.Ingest(ctx, store.InboundData{From: "a@example.test", Subject: "hi"}); err != nil {
		t.Errorf("ingest failed: %v", err)
	}
}

func TestRedisEventTransport(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc, err := NewService(
		WithStore(memory.New()),
		WithSender(&fakeSender{}),
		WithFromAddress("me@example.test"),
		WithRedisClient(client),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect with redis transport failed: %v", err)
	}

	// Publishing over the redis transport must not fail the operation.
	if _, err := svc.Ingest(ctx, store.InboundData{From: "a@example.test", Subject: "hi"}); err != nil {
		t.Errorf("ingest failed: %v", err)
	}
	if _, err := svc.ApproveSender(ctx, "a@example.test", ""); err != nil {
		t.Errorf("approve failed: %v", err)
	}

	if err := svc.Close(ctx); err != nil {
		t.Errorf("close failed: %v", err)
	}
}
