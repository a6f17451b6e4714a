package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client queries an external risk-score oracle service over HTTP.
// The oracle exposes GET {base}/scores/{avsName} returning {"score": n}.
// No retries here: transient failures are the driver's problem.
type Client struct {
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new oracle client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "oracle").Logger(),
	}
}

type scoreResponse struct {
	Score int `json:"score"`
}

// GetScore fetches the current risk score for an AVS from the oracle at
// baseURL. The oracle contract promises a score in [0,100]; the value is
// returned as-is and validated at the registry write.
func (c *Client) GetScore(ctx context.Context, baseURL, avsName string) (int, error) {
	endpoint := fmt.Sprintf("%s/scores/%s", baseURL, url.PathEscape(avsName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build oracle request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle returned status %d for %s", resp.StatusCode, avsName)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode oracle response: %w", err)
	}

	c.log.Debug().
		Str("avs", avsName).
		Int("score", body.Score).
		Msg("Fetched oracle score")

	return body.Score, nil
}
