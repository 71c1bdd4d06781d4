package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seido-app/courier/internal/ports"
	"github.com/seido-app/courier/pkg/retry"
)

type Config struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
	Retry     retry.Config
}

// Client posts notification payloads to the push vendor's HTTP API.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 2
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Configured() bool {
	return c.cfg.Endpoint != "" && c.cfg.ServerKey != ""
}

func (c *Client) Send(ctx context.Context, endpoint string, payload ports.PushPayload) error {
	if !c.Configured() {
		return fmt.Errorf("push provider not configured")
	}

	body, err := json.Marshal(map[string]any{
		"to": endpoint,
		"notification": map[string]string{
			"title": payload.Title,
			"body":  payload.Body,
		},
		"data": payload.Data,
	})
	if err != nil {
		return err
	}

	return retry.Do(ctx, c.cfg.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "key="+c.cfg.ServerKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= 300 {
			return fmt.Errorf("push vendor returned status %d", resp.StatusCode)
		}
		return nil
	})
}
