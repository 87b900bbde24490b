// Package sender defines the outbound delivery contract.
//
// The service hands a fully assembled message to a Sender; everything after
// that (SMTP, provider queues, retries) is the provider's problem. A send
// either returns the provider's message id or an error, and the service never
// retries on its own.
package sender

import "context"

// Message is an outbound email handed to a provider.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Text    string
	HTML    string

	// Headers carries extra RFC 5322 headers, typically In-Reply-To and
	// References for threaded replies.
	Headers map[string]string

	Attachments []Attachment
}

// Attachment is a file attached to an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result reports a successful hand-off to the provider.
type Result struct {
	// ProviderID is the provider-assigned message id, used later to
	// correlate delivery webhooks.
	ProviderID string
}

// Sender delivers outbound messages through an email provider.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}
