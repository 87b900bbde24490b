package resend

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the provider's public API endpoint.
const DefaultBaseURL = "https://api.resend.com"

// DefaultTimeout is the default HTTP client timeout for send calls.
const DefaultTimeout = 30 * time.Second

// options holds client configuration.
type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBaseURL overrides the API endpoint. Useful for self-hosted
// deployments and tests.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}
