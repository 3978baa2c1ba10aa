package telephony

import (
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// Config holds the provider account credentials.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Client places calls through the provider's REST API.
type Client struct {
	rest *twilio.RestClient
	from string
}

// NewClient creates a REST client. All three credentials are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("telephony: account SID and auth token are required")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("telephony: originating phone number is required")
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{rest: rest, from: cfg.FromNumber}, nil
}

// PlaceCall dials an E.164 destination. The provider fetches call-control
// markup from voiceURL when the callee answers. Returns the provider's call
// identifier. Rejections are surfaced as-is; there is no retry.
func (c *Client) PlaceCall(to, voiceURL string) (string, error) {
	if !ValidNumber(to) {
		return "", fmt.Errorf("telephony: destination %q is not an E.164 number", to)
	}

	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(voiceURL)

	resp, err := c.rest.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephony: create call: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("telephony: create call: no call SID in response")
	}
	return *resp.Sid, nil
}
