package relaybox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"

	"github.com/dmehra/relaybox/blob"
	"github.com/dmehra/relaybox/sender"
	"github.com/dmehra/relaybox/store"
)

// Type aliases for commonly used store types.
// These let users work with the relaybox package without importing store
// directly.
type (
	ListOptions = store.ListOptions
	SearchQuery = store.SearchQuery
	Filter      = store.Filter
	SortOrder   = store.SortOrder
)

// Re-exported sort order constants.
const (
	SortAsc  = store.SortAsc
	SortDesc = store.SortDesc
)

// ServiceHealth provides health and state information about the service.
type ServiceHealth interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
}

// Ingestor accepts inbound messages from the delivery pipeline.
type Ingestor interface {
	// Ingest stores an inbound message, linking it to a thread via its
	// reply headers and evaluating the sender allow-list.
	Ingest(ctx context.Context, data store.InboundData) (*store.Message, error)
}

// MessageReader provides read access to stored messages.
// All reads are limited to messages from approved senders.
type MessageReader interface {
	Message(ctx context.Context, id string) (*store.Message, error)
	Messages(ctx context.Context, filters []store.Filter, opts ListOptions) (*store.MessageList, error)
	CountMessages(ctx context.Context, filters []store.Filter) (int64, error)
}

// MessageMutator provides mutation of message flags and labels.
// Message content is immutable; only approval, archival state, and
// labels change.
type MessageMutator interface {
	SetArchived(ctx context.Context, id string, archived bool) error
	// SetApproved reveals or re-hides a single message without touching
	// the sender allow-list.
	SetApproved(ctx context.Context, id string, approved bool) error
	AddLabels(ctx context.Context, id string, labels ...string) error
	RemoveLabel(ctx context.Context, id, label string) error
}

// ThreadReader provides access to conversation threads.
type ThreadReader interface {
	Thread(ctx context.Context, threadID string) (*store.Thread, error)
	Threads(ctx context.Context, opts ListOptions) (*store.ThreadList, error)
	// ThreadMessages returns the thread's visible messages oldest first.
	ThreadMessages(ctx context.Context, threadID string, opts ListOptions) (*store.MessageList, error)
	// NextReplyHeaders computes the RFC 5322 reply headers for the next
	// message in the thread. Returns nil headers for an empty thread.
	NextReplyHeaders(ctx context.Context, threadID string) (*ReplyHeaders, error)
}

// Searcher provides full-text message search with substring fallback.
type Searcher interface {
	Search(ctx context.Context, query SearchQuery) (*SearchResult, error)
}

// ApprovalManager manages the sender allow-list.
type ApprovalManager interface {
	// ApproveSender adds a sender to the allow-list and reveals their
	// previously hidden messages. Returns the number revealed.
	ApproveSender(ctx context.Context, email, name string) (int64, error)
	// RevokeSender removes a sender from the allow-list. Messages already
	// approved stay visible.
	RevokeSender(ctx context.Context, email string) error
	IsApprovedSender(ctx context.Context, email string) (bool, error)
	ApprovedSenders(ctx context.Context) ([]*store.ApprovedSender, error)
}

// DraftManager provides draft composition and sending.
type DraftManager interface {
	CreateDraft(ctx context.Context, data store.DraftData) (*store.Draft, error)
	Draft(ctx context.Context, id string) (*store.Draft, error)
	UpdateDraft(ctx context.Context, id string, patch store.DraftPatch) (*store.Draft, error)
	DeleteDraft(ctx context.Context, id string) error
	Drafts(ctx context.Context, opts ListOptions) (*store.DraftList, error)
	// SendDraft delivers the draft through the provider, persists the
	// sent message, and deletes the draft. The draft is left intact if
	// delivery or persistence fails.
	SendDraft(ctx context.Context, id string) (*store.Message, error)
}

// DeliveryTracker applies provider delivery webhooks.
type DeliveryTracker interface {
	// HandleDeliveryEvent maps a provider webhook to a delivery status
	// update. Unknown event types and empty message ids are no-ops.
	// Returns true if a message's status advanced.
	HandleDeliveryEvent(ctx context.Context, eventType, providerMessageID string) (bool, error)
}

// AttachmentLoader provides attachment content access.
type AttachmentLoader interface {
	// LoadAttachment returns the attachment content. The metadata lookup
	// is approval-gated like every other read.
	LoadAttachment(ctx context.Context, messageID, attachmentID string) (io.ReadCloser, error)
}

// StatsReader provides mailbox-wide counters.
type StatsReader interface {
	Stats(ctx context.Context) (*store.MailboxStats, error)
}

// Service is the moderated mailbox facade.
//
// Composed of:
//   - ServiceHealth: health and state queries
//   - Ingestor: inbound message ingestion
//   - MessageReader / MessageMutator: approval-gated message access
//   - ThreadReader: conversation threads and reply header computation
//   - Searcher: indexed search with substring fallback
//   - ApprovalManager: sender allow-list
//   - DraftManager: draft composition and sending
//   - DeliveryTracker: provider webhook handling
//   - AttachmentLoader: attachment content
//   - StatsReader: counters
type Service interface {
	ServiceHealth
	Ingestor
	MessageReader
	MessageMutator
	ThreadReader
	Searcher
	ApprovalManager
	DraftManager
	DeliveryTracker
	AttachmentLoader
	StatsReader

	// Connect establishes connections to storage and the event bus.
	Connect(ctx context.Context) error
	// Close waits for in-flight sends and closes all connections.
	Close(ctx context.Context) error
	// Events returns per-service event instances for subscribing.
	Events() *ServiceEvents
}

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store  store.Store
	blobs  blob.Store
	sender sender.Sender
	logger *slog.Logger
	opts   *options
	state  int32 // stateDisconnected, stateConnecting, or stateConnected
	otel   *otelInstrumentation

	sendSem  *semaphore.Weighted // bounds concurrent provider sends
	eventBus *event.Bus
	events   *ServiceEvents
}

var _ Service = (*service)(nil)

// NewService creates a new mailbox service.
// Call Connect() to establish connections to backends.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}
	if o.sender == nil {
		return nil, ErrSenderRequired
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:   o.store,
		blobs:   o.blobs,
		sender:  o.sender,
		logger:  o.logger,
		opts:    o,
		otel:    otelInstr,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}, nil
}

// Events returns per-service event instances for subscribing and publishing.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// checkConnected verifies the service is ready for operations.
func (s *service) checkConnected() error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}
	return nil
}

// Connect establishes connections to storage and the event bus.
func (s *service) Connect(ctx context.Context) error {
	// Three-state transition prevents operations from seeing partial
	// initialization: disconnected -> connecting -> connected.
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	success = true
	s.logger.Info("relaybox service connected")
	return nil
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// initEventBus initializes the event bus for this service.
// Each service creates its own bus with its own event instances.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "relaybox"
	}
	// Each bus needs a unique name, so append a counter suffix.
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// Close waits for in-flight sends and closes all connections.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// After the state flips no new sends can start, so acquiring every
	// semaphore slot waits out the in-flight ones.
	s.logger.Info("waiting for in-flight sends to complete", "timeout", s.opts.shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer shutdownCancel()
	if err := s.sendSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timeout waiting for in-flight sends, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
		s.logger.Info("all in-flight sends completed")
	}

	// Close the event bus only when a real transport is attached. A noop
	// bus holds no resources.
	if s.eventBus != nil && (s.opts.eventTransport != nil || s.opts.redisClient != nil) {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// clampLimit applies the default and maximum page size to list options.
func (s *service) clampLimit(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = s.opts.defaultQueryLimit
	}
	if opts.Limit > s.opts.maxQueryLimit {
		opts.Limit = s.opts.maxQueryLimit
	}
	return opts
}
