// Package nftapi is a small client for the NFT metadata indexer API.
package nftapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default indexer endpoint.
	DefaultBaseURL = "https://nft.api.infura.io"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// ErrLookupFailed wraps every failed token lookup.
var ErrLookupFailed = errors.New("metadata lookup failed")

// Client queries token metadata with basic-auth credentials.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new indexer client.
func NewClient(apiKey, apiSecret string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// APIError represents a non-2xx indexer response.
type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if this is a 404 error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Attribute is one metadata trait.
type Attribute struct {
	TraitType string          `json:"trait_type"`
	Value     json.RawMessage `json:"value"`
}

// Metadata is the token metadata document as indexed.
type Metadata struct {
	Name       string      `json:"name"`
	Image      string      `json:"image"`
	Attributes []Attribute `json:"attributes"`
}

// Token is the indexer view of one token.
type Token struct {
	Contract string    `json:"contract"`
	TokenID  string    `json:"tokenId"`
	Metadata *Metadata `json:"metadata"`
}

// FirstAttributeValue returns metadata.attributes[0].value as text. An empty
// string counts as missing.
func (t *Token) FirstAttributeValue() (string, bool) {
	if t == nil || t.Metadata == nil || len(t.Metadata.Attributes) == 0 {
		return "", false
	}
	raw := t.Metadata.Attributes[0].Value
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	return string(raw), true
}

// Token fetches a token, asking the indexer to resync its metadata.
func (c *Client) Token(ctx context.Context, chainID uint64, tokenAddress, tokenID string) (*Token, error) {
	path := fmt.Sprintf("/networks/%d/nfts/%s/tokens/%s?resyncMetadata=true",
		chainID, url.PathEscape(tokenAddress), url.PathEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrLookupFailed, err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nftops/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token %s: %w", ErrLookupFailed, tokenID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrLookupFailed, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: token %s: %w", ErrLookupFailed, tokenID, apiErr)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", ErrLookupFailed, err)
	}
	return &token, nil
}
