package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/seido-app/courier/internal/domain"
)

// HTTPResolver asks the application's directory endpoint which users should
// receive an event and over which channels. The dispatcher stays free of any
// audience logic.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type recipientDTO struct {
	UserID       string   `json:"user_id"`
	Channels     []string `json:"channels"`
	Email        string   `json:"email,omitempty"`
	PushEndpoint string   `json:"push_endpoint,omitempty"`
	Locale       string   `json:"locale,omitempty"`
}

type resolveResponse struct {
	Recipients []recipientDTO `json:"recipients"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, event domain.Event) ([]domain.Recipient, error) {
	endpoint := fmt.Sprintf("%s/internal/recipients?event_type=%s&team_id=%s&entity_id=%s",
		r.baseURL,
		url.QueryEscape(event.EventType),
		url.QueryEscape(event.TeamID),
		url.QueryEscape(event.EntityID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
	var payload resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}

	out := make([]domain.Recipient, 0, len(payload.Recipients))
	for _, dto := range payload.Recipients {
		recipient := domain.Recipient{
			ID:           dto.UserID,
			Email:        dto.Email,
			PushEndpoint: dto.PushEndpoint,
			Locale:       dto.Locale,
		}
		for _, channel := range dto.Channels {
			switch domain.ChannelKind(channel) {
			case domain.ChannelInApp, domain.ChannelEmail, domain.ChannelPush:
				recipient.Channels = append(recipient.Channels, domain.ChannelKind(channel))
			}
		}
		out = append(out, recipient)
	}
	return out, nil
}
