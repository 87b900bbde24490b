package relaybox

import (
	"context"
	"errors"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func setupSearchCorpus(t *testing.T) Service {
	t.Helper()
	svc, _ := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.ApproveSender(ctx, "writer@example.test", "Writer"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	for _, m := range []store.InboundData{
		{From: "writer@example.test", Subject: "quarterly report", BodyText: "numbers are up"},
		{From: "writer@example.test", Subject: "lunch", BodyText: "the quarterly meeting moved"},
		{From: "writer@example.test", Subject: "weekend plans", BodyText: "hiking on saturday"},
	} {
		mustIngest(t, svc, m)
	}
	// A hidden message that must never appear in results.
	mustIngest(t, svc, store.InboundData{
		From: "spammer@example.test", Subject: "quarterly offer", BodyText: "buy now",
	})
	return svc
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query is invalid", func(t *testing.T) {
		svc, _ := setupTestService(t)
		for _, q := range []string{"", "   ", "\t\n"} {
			if _, err := svc.Search(ctx, SearchQuery{Query: q}); !errors.Is(err, ErrEmptyQuery) {
				t.Errorf("query %q: expected ErrEmptyQuery, got %v", q, err)
			}
		}
	})

	t.Run("indexed single term", func(t *testing.T) {
		svc := setupSearchCorpus(t)
		res, err := svc.Search(ctx, SearchQuery{Query: "quarterly"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if res.Degraded {
			t.Error("well-formed query should not degrade")
		}
		if res.Total != 2 {
			t.Errorf("expected 2 hits, got %d", res.Total)
		}
	})

	t.Run("indexed boolean operators", func(t *testing.T) {
		svc := setupSearchCorpus(t)
		res, err := svc.Search(ctx, SearchQuery{Query: "quarterly & numbers"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if res.Degraded {
			t.Error("well-formed query should not degrade")
		}
		if res.Total != 1 {
			t.Errorf("expected 1 hit, got %d", res.Total)
		}

		res, err = svc.Search(ctx, SearchQuery{Query: "hiking | lunch"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if res.Total != 2 {
			t.Errorf("expected 2 hits for or-query, got %d", res.Total)
		}
	})

	t.Run("malformed query degrades to substring scan", func(t *testing.T) {
		svc := setupSearchCorpus(t)

		// Adjacent bare terms are invalid index syntax; the substring
		// scan takes the string literally.
		res, err := svc.Search(ctx, SearchQuery{Query: "quarterly report"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !res.Degraded {
			t.Error("expected degraded result for malformed query")
		}
		if res.Total != 1 {
			t.Errorf("expected 1 substring hit, got %d", res.Total)
		}
	})

	t.Run("unsupported operator degrades", func(t *testing.T) {
		svc := setupSearchCorpus(t)
		res, err := svc.Search(ctx, SearchQuery{Query: "quarterly & (report"})
		if err != nil {
			t.Fatalf("syntax error must not surface: %v", err)
		}
		if !res.Degraded {
			t.Error("expected degraded result")
		}
	})

	t.Run("dangling operator degrades", func(t *testing.T) {
		svc := setupSearchCorpus(t)
		res, err := svc.Search(ctx, SearchQuery{Query: "quarterly &"})
		if err != nil {
			t.Fatalf("syntax error must not surface: %v", err)
		}
		if !res.Degraded {
			t.Error("expected degraded result")
		}
	})

	t.Run("hidden messages excluded from both paths", func(t *testing.T) {
		svc := setupSearchCorpus(t)

		res, err := svc.Search(ctx, SearchQuery{Query: "offer"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if res.Total != 0 {
			t.Errorf("indexed path leaked %d hidden messages", res.Total)
		}

		res, err = svc.Search(ctx, SearchQuery{Query: "buy now"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !res.Degraded {
			t.Fatal("expected degraded result")
		}
		if res.Total != 0 {
			t.Errorf("fallback path leaked %d hidden messages", res.Total)
		}
	})

	t.Run("archived messages excluded by default", func(t *testing.T) {
		svc := setupSearchCorpus(t)
		msg := mustIngest(t, svc, store.InboundData{
			From: "writer@example.test", Subject: "zebra sighting", BodyText: "at the watering hole",
		})
		if err := svc.SetArchived(ctx, msg.ID, true); err != nil {
			t.Fatalf("archive failed: %v", err)
		}

		res, err := svc.Search(ctx, SearchQuery{Query: "zebra"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if res.Total != 0 {
			t.Errorf("indexed path returned %d archived messages", res.Total)
		}

		// Fallback path applies the same default.
		res, err = svc.Search(ctx, SearchQuery{Query: "zebra sighting"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !res.Degraded {
			t.Fatal("expected degraded result")
		}
		if res.Total != 0 {
			t.Errorf("fallback path returned %d archived messages", res.Total)
		}

		// Opting in surfaces it again.
		res, err = svc.Search(ctx, SearchQuery{Query: "zebra", IncludeArchived: true})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if res.Total != 1 || res.Messages[0].ID != msg.ID {
			t.Fatalf("expected the archived message with IncludeArchived, got %+v", res.Messages)
		}
	})

	t.Run("filters apply on fallback path", func(t *testing.T) {
		svc := setupSearchCorpus(t)
		subjectIs, err := store.MessageFilter("Subject").Equal("lunch")
		if err != nil {
			t.Fatalf("filter build failed: %v", err)
		}
		res, err := svc.Search(ctx, SearchQuery{
			Query:   "quarterly meeting",
			Filters: []Filter{subjectIs},
		})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !res.Degraded {
			t.Fatal("expected degraded result")
		}
		if res.Total != 1 {
			t.Errorf("expected 1 filtered hit, got %d", res.Total)
		}
	})
}
