// Package resend implements sender.Sender against a Resend-style
// transactional email HTTP API (POST /emails with a bearer key).
package resend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmehra/relaybox/sender"
)

// Client sends email through the provider's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ sender.Sender = (*Client)(nil)

// New creates a new API client.
func New(apiKey string, opts ...Option) *Client {
	o := newOptions(opts...)
	return &Client{
		baseURL:    o.baseURL,
		apiKey:     apiKey,
		httpClient: o.httpClient,
	}
}

// sendRequest mirrors the provider's POST /emails payload.
type sendRequest struct {
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Cc          []string          `json:"cc,omitempty"`
	Bcc         []string          `json:"bcc,omitempty"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Attachments []sendAttachment  `json:"attachments,omitempty"`
}

type sendAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content"` // base64
}

type sendResponse struct {
	ID string `json:"id"`
}

// apiError is the provider's error envelope.
type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send delivers the message via the provider API and returns the
// provider-assigned message id.
func (c *Client) Send(ctx context.Context, msg *sender.Message) (*sender.Result, error) {
	req := sendRequest{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
		Headers: msg.Headers,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, sendAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("provider error: %s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("provider error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var sendResp sendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, string(respBody))
	}

	return &sender.Result{ProviderID: sendResp.ID}, nil
}
