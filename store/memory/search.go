package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/dmehra/relaybox/store"
)

// SearchMessages evaluates the query against subject and body text. The
// query language mirrors what the PostgreSQL backend accepts: terms joined
// by & (and) or | (or), with "quoted phrases". A string that does not parse
// returns store.ErrQuerySyntax, matching the SQL backend's behavior so
// callers exercise the same fallback path in tests.
func (s *Store) SearchMessages(ctx context.Context, query store.SearchQuery) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	groups, err := parseQuery(query.Query)
	if err != nil {
		return nil, err
	}

	filters := query.Filters
	if !query.IncludeArchived {
		filters = store.WithoutArchived(filters)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type ranked struct {
		msg  *store.Message
		rank int
	}
	var matched []ranked
	for _, m := range s.messages {
		if !m.Approved {
			continue
		}
		ok, err := matchFilters(m, filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if rank, ok := matchQuery(m, groups); ok {
			matched = append(matched, ranked{msg: m, rank: rank})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].rank != matched[j].rank {
			return matched[i].rank > matched[j].rank
		}
		return matched[i].msg.CreatedAt.After(matched[j].msg.CreatedAt)
	})

	msgs := make([]*store.Message, len(matched))
	for i, r := range matched {
		msgs[i] = r.msg
	}

	total := int64(len(msgs))
	page, hasMore := paginate(msgs, query.Options, 20)

	out := make([]*store.Message, len(page))
	for i, m := range page {
		out[i] = cloneMessage(m)
	}

	return &store.MessageList{Messages: out, Total: total, HasMore: hasMore}, nil
}

// ScanMessages is the substring fallback: case-insensitive containment in
// subject or body, newest first. Any query string is accepted.
func (s *Store) ScanMessages(ctx context.Context, query store.SearchQuery) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(query.Query)

	filters := query.Filters
	if !query.IncludeArchived {
		filters = store.WithoutArchived(filters)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*store.Message
	for _, m := range s.messages {
		if !m.Approved {
			continue
		}
		ok, err := matchFilters(m, filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(m.Subject), needle) ||
			strings.Contains(strings.ToLower(m.BodyText), needle) {
			matched = append(matched, m)
		}
	}

	sortMessages(matched, false)
	total := int64(len(matched))
	page, hasMore := paginate(matched, query.Options, 20)

	out := make([]*store.Message, len(page))
	for i, m := range page {
		out[i] = cloneMessage(m)
	}

	return &store.MessageList{Messages: out, Total: total, HasMore: hasMore}, nil
}

// parseQuery tokenizes the query and returns OR-groups of AND-terms.
// Terms must be joined by an explicit & or |; two adjacent terms are a
// syntax error, exactly as to_tsquery treats them.
func parseQuery(q string) ([][]string, error) {
	tokens, err := tokenizeQuery(q)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty query", store.ErrQuerySyntax)
	}

	// Terms and operators must strictly alternate, starting and ending
	// with a term.
	for i, t := range tokens {
		isOp := t == "&" || t == "|"
		if i%2 == 0 {
			if isOp {
				return nil, fmt.Errorf("%w: dangling operator %q", store.ErrQuerySyntax, t)
			}
		} else if !isOp {
			return nil, fmt.Errorf("%w: adjacent terms without operator", store.ErrQuerySyntax)
		}
	}
	if last := tokens[len(tokens)-1]; last == "&" || last == "|" {
		return nil, fmt.Errorf("%w: dangling operator %q", store.ErrQuerySyntax, last)
	}

	var groups [][]string
	var cur []string
	for _, t := range tokens {
		switch t {
		case "|":
			groups = append(groups, cur)
			cur = nil
		case "&":
			// next term joins the current AND-group
		default:
			cur = append(cur, strings.ToLower(t))
		}
	}
	groups = append(groups, cur)
	return groups, nil
}

func tokenizeQuery(q string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range q {
		switch {
		case r == '"':
			flush()
			inQuote = !inQuote
		case inQuote:
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case r == '&' || r == '|':
			flush()
			tokens = append(tokens, string(r))
		case r == '!' || r == '(' || r == ')' || r == ':':
			return nil, fmt.Errorf("%w: unsupported operator %q", store.ErrQuerySyntax, r)
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", store.ErrQuerySyntax)
	}
	flush()
	return tokens, nil
}

// matchQuery reports whether any OR-group fully matches, and how many of
// its terms matched (the rank).
func matchQuery(m *store.Message, groups [][]string) (int, bool) {
	haystack := strings.ToLower(m.Subject + " " + m.BodyText)

	best := 0
	matched := false
	for _, terms := range groups {
		all := true
		for _, t := range terms {
			if !strings.Contains(haystack, t) {
				all = false
				break
			}
		}
		if all && len(terms) > 0 {
			matched = true
			if len(terms) > best {
				best = len(terms)
			}
		}
	}
	return best, matched
}
