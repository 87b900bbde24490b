package store

import (
	"time"
)

// Direction indicates whether a message was received or sent.
type Direction string

// Message direction constants.
const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// DeliveryStatus tracks the provider-reported lifecycle of an outbound message.
// Inbound messages have no delivery status.
type DeliveryStatus string

// Delivery status constants.
const (
	StatusSent       DeliveryStatus = "sent"
	StatusDelivered  DeliveryStatus = "delivered"
	StatusBounced    DeliveryStatus = "bounced"
	StatusComplained DeliveryStatus = "complained"
)

// statusRank orders delivery statuses so transitions only move forward.
// An update to a status with rank <= the current rank is a no-op.
var statusRank = map[DeliveryStatus]int{
	StatusSent:       1,
	StatusDelivered:  2,
	StatusBounced:    3,
	StatusComplained: 4,
}

// IsValidStatus reports whether s is a known delivery status.
func IsValidStatus(s DeliveryStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// StatusAdvances reports whether moving from cur to next is a forward
// transition. An empty cur always advances.
func StatusAdvances(cur, next DeliveryStatus) bool {
	if cur == "" {
		return true
	}
	return statusRank[next] > statusRank[cur]
}

// Message is an immutable stored email. Content fields never change after
// creation; only approval, archival, delivery status, and labels do, via
// the specific MessageStore operations.
type Message struct {
	ID       string
	ThreadID string

	// MessageID is the RFC 5322 Message-ID (or provider message ID for
	// outbound mail). Empty when the origin supplied none.
	MessageID  string
	InReplyTo  string
	References string

	From    string
	To      string
	Cc      string
	Bcc     string
	Subject string

	BodyText string
	BodyHTML string
	// Headers is the raw header block as received, preserved verbatim.
	Headers string

	Direction Direction
	Approved  bool
	Archived  bool
	// Status is only meaningful for outbound messages; empty otherwise.
	Status DeliveryStatus

	CreatedAt time.Time

	// Labels and Attachments are populated by Get and ThreadMessages.
	// List results leave them nil to keep page queries cheap.
	Labels      []string
	Attachments []Attachment
}

// Attachment describes a stored attachment. The content itself lives in a
// blob store addressed by BlobKey.
type Attachment struct {
	ID          string
	MessageID   string
	Filename    string
	ContentType string
	Size        int64
	BlobKey     string
	CreatedAt   time.Time
}

// AttachmentData describes an attachment for a message being created.
type AttachmentData struct {
	Filename    string
	ContentType string
	Size        int64
	BlobKey     string
}

// InboundData contains data for ingesting a received message.
// Thread resolution happens inside CreateInbound: the message joins the
// thread of the message its In-Reply-To header names, or starts a new one.
type InboundData struct {
	MessageID  string
	InReplyTo  string
	References string

	From    string
	To      string
	Cc      string
	Bcc     string
	Subject string

	BodyText string
	BodyHTML string
	Headers  string

	ReceivedAt  time.Time
	Attachments []AttachmentData
}

// OutboundData contains data for persisting a sent message.
// The caller supplies the resolved thread and the provider's message ID.
type OutboundData struct {
	ThreadID   string
	MessageID  string
	InReplyTo  string
	References string

	From    string
	To      string
	Cc      string
	Bcc     string
	Subject string

	BodyText string
	BodyHTML string
	Headers  string

	SentAt time.Time
}

// MessageList represents a paginated list of messages.
type MessageList struct {
	Messages []*Message
	Total    int64
	HasMore  bool
}
