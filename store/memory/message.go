package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) Get(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok || !m.Approved {
		return nil, store.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	filters = store.WithoutArchived(filters)

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
		if ok {
			matched = append(matched, m)
		}
	}

	sortMessages(matched, opts.SortOrder == store.SortAsc)
	total := int64(len(matched))
	page, hasMore := paginate(matched, opts, 20)

	out := make([]*store.Message, len(page))
	for i, m := range page {
		out[i] = cloneMessage(m)
	}

	return &store.MessageList{Messages: out, Total: total, HasMore: hasMore}, nil
}

func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	filters = store.WithoutArchived(filters)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, m := range s.messages {
		if !m.Approved {
			continue
		}
		ok, err := matchFilters(m, filters)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetAttachment(ctx context.Context, messageID, attachmentID string) (*store.Attachment, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" || attachmentID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageID]
	if !ok || !m.Approved {
		return nil, store.ErrNotFound
	}
	for i := range m.Attachments {
		if m.Attachments[i].ID == attachmentID {
			a := m.Attachments[i]
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetArchived(ctx context.Context, id string, archived bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || !m.Approved {
		return store.ErrNotFound
	}
	m.Archived = archived
	return nil
}

func (s *Store) SetApproved(ctx context.Context, id string, approved bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// No approval gate here: this is the operation that flips it.
	m, ok := s.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	m.Approved = approved
	return nil
}

func (s *Store) AddLabels(ctx context.Context, id string, labels ...string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || !m.Approved {
		return store.ErrNotFound
	}

	for _, l := range labels {
		exists := false
		for _, have := range m.Labels {
			if have == l {
				exists = true
				break
			}
		}
		if !exists {
			m.Labels = append(m.Labels, l)
		}
	}
	return nil
}

func (s *Store) RemoveLabel(ctx context.Context, id string, label string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || !m.Approved {
		return store.ErrNotFound
	}

	for i, have := range m.Labels {
		if have == label {
			m.Labels = append(m.Labels[:i], m.Labels[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) SetDeliveryStatus(ctx context.Context, providerMessageID string, status store.DeliveryStatus) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if !store.IsValidStatus(status) {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidStatus, status)
	}
	if providerMessageID == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byMsgID[providerMessageID]
	if !ok {
		return 0, nil
	}
	m := s.messages[id]
	if m == nil || m.Direction != store.DirectionOutbound {
		return 0, nil
	}
	if !store.StatusAdvances(m.Status, status) {
		return 0, nil
	}
	m.Status = status
	return 1, nil
}

func (s *Store) CreateInbound(ctx context.Context, data store.InboundData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	from := strings.TrimSpace(data.From)
	if from == "" {
		return nil, store.ErrInvalidEmail
	}

	createdAt := data.ReceivedAt
	if createdAt.IsZero() {
		createdAt = nowUTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Thread resolution mirrors the SQL backend: In-Reply-To wins, else a
	// fresh thread. Holding the lock makes resolution + insert atomic.
	var threadID string
	if data.InReplyTo != "" {
		if id, ok := s.byMsgID[data.InReplyTo]; ok {
			threadID = s.messages[id].ThreadID
		}
	}
	if threadID == "" {
		threadID = uuid.New().String()
		s.threads[threadID] = &store.Thread{
			ID:            threadID,
			Subject:       data.Subject,
			LastMessageAt: createdAt,
			CreatedAt:     createdAt,
		}
	}

	_, approved := s.approved[strings.ToLower(from)]

	m := &store.Message{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		MessageID:  data.MessageID,
		InReplyTo:  data.InReplyTo,
		References: data.References,
		From:       from,
		To:         data.To,
		Cc:         data.Cc,
		Bcc:        data.Bcc,
		Subject:    data.Subject,
		BodyText:   data.BodyText,
		BodyHTML:   data.BodyHTML,
		Headers:    data.Headers,
		Direction:  store.DirectionInbound,
		Approved:   approved,
		CreatedAt:  createdAt,
	}
	for _, ad := range data.Attachments {
		m.Attachments = append(m.Attachments, store.Attachment{
			ID:          uuid.New().String(),
			MessageID:   m.ID,
			Filename:    ad.Filename,
			ContentType: ad.ContentType,
			Size:        ad.Size,
			BlobKey:     ad.BlobKey,
			CreatedAt:   createdAt,
		})
	}

	s.insertLocked(m)
	return cloneMessage(m), nil
}

func (s *Store) CreateOutbound(ctx context.Context, data store.OutboundData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	sentAt := data.SentAt
	if sentAt.IsZero() {
		sentAt = nowUTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	threadID := data.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
		s.threads[threadID] = &store.Thread{
			ID:            threadID,
			Subject:       data.Subject,
			LastMessageAt: sentAt,
			CreatedAt:     sentAt,
		}
	} else if s.threads[threadID] == nil {
		return nil, store.ErrNotFound
	}

	m := &store.Message{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		MessageID:  data.MessageID,
		InReplyTo:  data.InReplyTo,
		References: data.References,
		From:       strings.TrimSpace(data.From),
		To:         data.To,
		Cc:         data.Cc,
		Bcc:        data.Bcc,
		Subject:    data.Subject,
		BodyText:   data.BodyText,
		BodyHTML:   data.BodyHTML,
		Headers:    data.Headers,
		Direction:  store.DirectionOutbound,
		Approved:   true,
		Status:     store.StatusSent,
		CreatedAt:  sentAt,
	}

	s.insertLocked(m)
	return cloneMessage(m), nil
}

// insertLocked stores the message and updates thread bookkeeping.
// Caller holds s.mu.
func (s *Store) insertLocked(m *store.Message) {
	s.messages[m.ID] = m
	if m.MessageID != "" {
		s.byMsgID[m.MessageID] = m.ID
	}
	if t := s.threads[m.ThreadID]; t != nil {
		t.MessageCount++
		if m.CreatedAt.After(t.LastMessageAt) {
			t.LastMessageAt = m.CreatedAt
		}
	}
}

func matchFilters(m *store.Message, filters []store.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matchFilter(m, f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchFilter(m *store.Message, f store.Filter) (bool, error) {
	switch f.Key() {
	case "direction":
		return compareString(string(m.Direction), f)
	case "from_addr":
		return compareString(strings.ToLower(m.From), f)
	case "thread_id":
		return compareString(m.ThreadID, f)
	case "message_id":
		return compareString(m.MessageID, f)
	case "subject":
		return compareString(m.Subject, f)
	case "status":
		return compareString(string(m.Status), f)
	case "archived":
		want, ok := f.Value().(bool)
		if !ok {
			return false, store.ErrFilterInvalid
		}
		switch f.Operator() {
		case "eq", "":
			return m.Archived == want, nil
		case "ne":
			return m.Archived != want, nil
		}
		return false, store.ErrFilterInvalid
	case "labels":
		if f.Operator() != "contains" {
			return false, store.ErrFilterInvalid
		}
		want, ok := f.Value().(string)
		if !ok {
			return false, store.ErrFilterInvalid
		}
		for _, l := range m.Labels {
			if l == want {
				return true, nil
			}
		}
		return false, nil
	case "created_at":
		t, ok := f.Value().(time.Time)
		if !ok {
			return false, store.ErrFilterInvalid
		}
		switch f.Operator() {
		case "lt":
			return m.CreatedAt.Before(t), nil
		case "lte":
			return !m.CreatedAt.After(t), nil
		case "gt":
			return m.CreatedAt.After(t), nil
		case "gte":
			return !m.CreatedAt.Before(t), nil
		case "eq", "":
			return m.CreatedAt.Equal(t), nil
		}
		return false, store.ErrFilterInvalid
	default:
		return false, fmt.Errorf("%w: unsupported field: %s", store.ErrFilterInvalid, f.Key())
	}
}

func compareString(have string, f store.Filter) (bool, error) {
	switch f.Operator() {
	case "eq", "":
		want, ok := f.Value().(string)
		if !ok {
			return false, store.ErrFilterInvalid
		}
		return have == want, nil
	case "ne":
		want, ok := f.Value().(string)
		if !ok {
			return false, store.ErrFilterInvalid
		}
		return have != want, nil
	case "in":
		vals, ok := f.Value().([]any)
		if !ok {
			return false, store.ErrFilterInvalid
		}
		for _, v := range vals {
			if sv, ok := v.(string); ok && sv == have {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: unsupported operator: %s", store.ErrFilterInvalid, f.Operator())
	}
}
