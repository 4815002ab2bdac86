package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultURL is the public agent directory used when none is configured
const DefaultURL = "https://reef-protocol-production.up.railway.app"

// AgentInfo is what the directory knows about an agent. Both fields are nil
// when the agent is unknown or the directory is unreachable.
type AgentInfo struct {
	Name       *string  `json:"name"`
	Reputation *float64 `json:"reputation"`
}

// Client looks up agent names and reputation in the external directory
// service. Lookups are enrichment only: every failure degrades to an empty
// result, never to an error.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a directory client
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup fetches one agent's directory record
func (c *Client) Lookup(ctx context.Context, address string) AgentInfo {
	endpoint := fmt.Sprintf("%s/api/agents/%s", c.baseURL, url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AgentInfo{}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().Str("address", address).Err(err).Msg("Directory lookup failed")
		return AgentInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AgentInfo{}
	}

	var info AgentInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Debug().Str("address", address).Err(err).Msg("Directory response undecodable")
		return AgentInfo{}
	}
	return info
}
