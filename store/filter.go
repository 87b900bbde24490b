package store

import (
	"fmt"
	"strings"
	"time"
)

// SortOrder represents the sort direction.
type SortOrder int

const (
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = 1
	// SortDesc sorts in descending order.
	SortDesc SortOrder = -1
)

// ListOptions configures listing.
type ListOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder SortOrder
}

// SearchQuery represents a search request. SearchMessages interprets Query
// in the index's query language and may reject it with ErrQuerySyntax;
// ScanMessages treats Query as a literal substring.
type SearchQuery struct {
	Query   string      // text search query
	Filters []Filter    // additional filters
	Options ListOptions // pagination and sorting

	// IncludeArchived lets archived messages appear in the results.
	// By default search only covers the active mailbox.
	IncludeArchived bool
}

// Filter represents a query filter with a field key, comparison operator, and value.
type Filter struct {
	key      string
	value    any
	operator string
}

// Key returns the storage field key.
func (f Filter) Key() string { return f.key }

// Value returns the filter value.
func (f Filter) Value() any { return f.value }

// Operator returns the comparison operator (eq, ne, gt, gte, lt, lte, in, contains).
func (f Filter) Operator() string { return f.operator }

// FilterBuilder builds filters for a specific message field.
// Use MessageFilter() to create one, then chain a comparison method:
//
//	filter, err := store.MessageFilter("CreatedAt").GreaterThan(cutoff)
type FilterBuilder struct {
	key string
	err error
}

// validOperators is the set of supported filter operators.
var validOperators = map[string]bool{
	"eq":       true,
	"ne":       true,
	"gt":       true,
	"gte":      true,
	"lt":       true,
	"lte":      true,
	"in":       true,
	"contains": true,
}

// NewFilter creates a filter with the given key, operator, and value.
// The key must be a valid message field (validated via MessageFieldKey).
// Returns ErrFilterInvalid if the key or operator is invalid.
func NewFilter(key, operator string, value any) (Filter, error) {
	storageKey, ok := MessageFieldKey(key)
	if !ok {
		return Filter{}, fmt.Errorf("%w: unsupported field: %s", ErrFilterInvalid, key)
	}
	if !validOperators[operator] {
		return Filter{}, fmt.Errorf("%w: unsupported operator: %s", ErrFilterInvalid, operator)
	}
	return Filter{key: storageKey, value: value, operator: operator}, nil
}

// FilterError represents an error in filter building.
type FilterError struct {
	Key string
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Key, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

func (b *FilterBuilder) build(op string, v any) (Filter, error) {
	if b.err != nil {
		return Filter{}, &FilterError{Key: b.key, Err: b.err}
	}
	return Filter{key: b.key, value: v, operator: op}, nil
}

func (b *FilterBuilder) Equal(v any) (Filter, error)            { return b.build("eq", v) }
func (b *FilterBuilder) NotEqual(v any) (Filter, error)         { return b.build("ne", v) }
func (b *FilterBuilder) GreaterThan(v any) (Filter, error)      { return b.build("gt", v) }
func (b *FilterBuilder) GreaterThanEqual(v any) (Filter, error) { return b.build("gte", v) }
func (b *FilterBuilder) LessThan(v any) (Filter, error)         { return b.build("lt", v) }
func (b *FilterBuilder) LessThanEqual(v any) (Filter, error)    { return b.build("lte", v) }
func (b *FilterBuilder) In(v ...any) (Filter, error)            { return b.build("in", v) }
func (b *FilterBuilder) Contains(v any) (Filter, error)         { return b.build("contains", v) }

// MessageFilter returns a filter builder for message fields.
func MessageFilter(field string) *FilterBuilder {
	key, ok := MessageFieldKey(field)
	if !ok {
		return &FilterBuilder{key: field, err: fmt.Errorf("unsupported field: %s", field)}
	}
	return &FilterBuilder{key: key}
}

// MessageFieldKey maps field names to storage keys.
func MessageFieldKey(field string) (string, bool) {
	switch field {
	case "ID", "id":
		return "id", true
	case "ThreadID", "thread_id":
		return "thread_id", true
	case "MessageID", "message_id":
		return "message_id", true
	case "From", "from_addr":
		return "from_addr", true
	case "To", "to_addr":
		return "to_addr", true
	case "Subject", "subject":
		return "subject", true
	case "Direction", "direction":
		return "direction", true
	case "Archived", "archived":
		return "archived", true
	case "Status", "status":
		return "status", true
	case "Labels", "labels":
		return "labels", true
	case "CreatedAt", "created_at":
		return "created_at", true
	default:
		return "", false
	}
}

// MessageOrderingKey returns the storage key for sorting.
func MessageOrderingKey(field string) (string, bool) {
	return MessageFieldKey(field)
}

// Convenience filter functions

// DirectionIs returns a filter for inbound or outbound messages.
func DirectionIs(d Direction) Filter {
	f, _ := MessageFilter("Direction").Equal(string(d))
	return f
}

// FromIs returns a filter for messages from a specific address.
// Matching is case-insensitive.
func FromIs(email string) Filter {
	f, _ := MessageFilter("From").Equal(strings.ToLower(strings.TrimSpace(email)))
	return f
}

// StatusIs returns a filter for outbound messages with a specific delivery status.
func StatusIs(status DeliveryStatus) Filter {
	f, _ := MessageFilter("Status").Equal(string(status))
	return f
}

// ArchivedIs returns a filter on the archived flag.
func ArchivedIs(archived bool) Filter {
	f, _ := MessageFilter("Archived").Equal(archived)
	return f
}

// WithoutArchived appends an archived=false filter unless the caller
// already filtered on the archived flag. Backends apply it to list and
// search paths so archived messages only surface on explicit request.
func WithoutArchived(filters []Filter) []Filter {
	for _, f := range filters {
		if f.Key() == "archived" {
			return filters
		}
	}
	out := make([]Filter, 0, len(filters)+1)
	out = append(out, filters...)
	return append(out, ArchivedIs(false))
}

// ThreadIs returns a filter for messages in a specific thread.
func ThreadIs(threadID string) Filter {
	f, _ := MessageFilter("ThreadID").Equal(threadID)
	return f
}

// HasLabel returns a filter for messages carrying a specific label.
func HasLabel(label string) Filter {
	f, _ := MessageFilter("Labels").Contains(label)
	return f
}

// CreatedBefore returns a filter for messages created before t.
func CreatedBefore(t time.Time) Filter {
	f, _ := MessageFilter("CreatedAt").LessThan(t)
	return f
}

// CreatedAfter returns a filter for messages created after t.
func CreatedAfter(t time.Time) Filter {
	f, _ := MessageFilter("CreatedAt").GreaterThan(t)
	return f
}
