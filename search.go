package relaybox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmehra/relaybox/store"
)

// SearchResult is a page of search hits.
type SearchResult struct {
	Messages []*store.Message
	Total    int64
	HasMore  bool

	// Degraded is true when the indexed search rejected the query syntax
	// and results come from the substring fallback instead. Fallback
	// results are ordered newest first rather than by relevance.
	Degraded bool
}

// Search runs a full-text search over visible messages.
//
// The query goes to the index first. If the index rejects the query string
// as malformed, the search silently degrades to a case-insensitive
// substring scan over subject and body; the syntax error never reaches the
// caller. Any other failure propagates. Both paths apply the same filters
// and the same approval gate, and both skip archived messages unless the
// query sets IncludeArchived.
func (s *service) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(query.Query) == "" {
		return nil, ErrEmptyQuery
	}
	query.Options = s.clampLimit(query.Options)

	ctx, endSpan := s.otel.startSpan(ctx, "relaybox.search",
		attribute.String("query", query.Query),
	)
	start := time.Now()
	var searchErr error
	var degraded bool
	var resultCount int
	defer func() {
		endSpan(searchErr)
		s.otel.recordSearch(ctx, time.Since(start), degraded, resultCount, searchErr)
	}()

	list, err := s.store.SearchMessages(ctx, query)
	if err != nil {
		if !errors.Is(err, store.ErrQuerySyntax) {
			searchErr = err
			return nil, fmt.Errorf("search messages: %w", err)
		}

		// Malformed for the index's query language; degrade to the
		// substring scan with the query taken literally.
		degraded = true
		s.logger.Debug("search degraded to substring scan", "query", query.Query)
		list, err = s.store.ScanMessages(ctx, query)
		if err != nil {
			searchErr = err
			return nil, fmt.Errorf("scan messages: %w", err)
		}
	}
	resultCount = len(list.Messages)

	return &SearchResult{
		Messages: list.Messages,
		Total:    list.Total,
		HasMore:  list.HasMore,
		Degraded: degraded,
	}, nil
}
