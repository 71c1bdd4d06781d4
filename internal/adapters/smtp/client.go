package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/seido-app/courier/pkg/retry"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Retry    retry.Config
}

// Client is the outbound email provider behind the email channel adapter.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	return &Client{cfg: cfg}
}

// Configured reports whether the provider can be used at all; the channel
// adapter skips sends when it cannot.
func (c *Client) Configured() bool {
	return c.cfg.Host != "" && (c.cfg.From != "" || c.cfg.Username != "")
}

func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !c.Configured() {
		return fmt.Errorf("smtp provider not configured")
	}
	addr := fmt.Sprintf("%s:%s", c.cfg.Host, c.cfg.Port)
	from := c.cfg.From
	if from == "" {
		from = c.cfg.Username
	}

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	data := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	var auth smtp.Auth
	if c.cfg.Username != "" || c.cfg.Password != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	return retry.Do(ctx, c.cfg.Retry, func() error {
		return smtp.SendMail(addr, auth, from, []string{to}, []byte(data))
	})
}
