package openairt

import (
	"context"
	"net/http"
)

// DefaultWebSocketURL is the default Realtime API WebSocket endpoint.
const DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

// Client is the OpenAI Realtime API client.
type Client struct {
	config *clientConfig
}

// clientConfig holds the client configuration.
type clientConfig struct {
	apiKey     string
	wsURL      string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new Realtime client.
//
// The apiKey is required and can be obtained from:
// https://platform.openai.com/api-keys
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		panic("openairt: API key is required")
	}

	cfg := &clientConfig{
		apiKey:     apiKey,
		wsURL:      DefaultWebSocketURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{config: cfg}
}

// WithWebSocketURL sets the WebSocket URL.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHTTPClient sets a custom HTTP client. Its Timeout is used as the
// WebSocket handshake timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// Connect establishes a WebSocket connection to the Realtime API.
func (c *Client) Connect(ctx context.Context, config *ConnectConfig) (Session, error) {
	return c.connect(ctx, config)
}
