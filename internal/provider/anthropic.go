// Package provider constructs clients for the inference provider.
package provider

import (
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicOptions configures NewAnthropicClient. Empty fields keep the SDK
// defaults, which read ANTHROPIC_API_KEY and ANTHROPIC_BASE_URL.
type AnthropicOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewAnthropicClient returns a client with SDK-level retries disabled; retry
// policy is applied by the caller.
func NewAnthropicClient(o AnthropicOptions) *anthropic.Client {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	c := anthropic.NewClient(opts...)
	return &c
}
