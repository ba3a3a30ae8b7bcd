package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alisoliman/realtime-api/internal/realtime"
)

// Client fetches session credentials from a running relay. It satisfies the
// conversation manager's token source.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Issue(ctx context.Context, voice string) (realtime.Credentials, error) {
	body, err := json.Marshal(TokenRequest{Voice: voice})
	if err != nil {
		return realtime.Credentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/token", bytes.NewReader(body))
	if err != nil {
		return realtime.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return realtime.Credentials{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return realtime.Credentials{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return realtime.Credentials{}, fmt.Errorf("token service status %d: %s", resp.StatusCode, raw)
	}

	var tr TokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return realtime.Credentials{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.Token == "" || tr.Endpoint == "" {
		return realtime.Credentials{}, fmt.Errorf("incomplete token response")
	}

	return realtime.Credentials{Token: tr.Token, Endpoint: tr.Endpoint}, nil
}
