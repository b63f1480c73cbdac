package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookAdapter posts payloads as JSON to the route address. Email, chat,
// and SMS deliveries all go through provider webhook endpoints in this
// deployment; the provider fans out to the actual medium.
type WebhookAdapter struct {
	client *http.Client
}

func NewWebhookAdapter(timeout time.Duration) *WebhookAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookAdapter{client: &http.Client{Timeout: timeout}}
}

func (a *WebhookAdapter) Send(ctx context.Context, channel Channel, address string, payload Payload) error {
	body, err := json.Marshal(struct {
		Channel Channel `json:"channel"`
		Payload
	}{Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelTimeout, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrChannelRejected, res.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrChannelTimeout, res.StatusCode)
	}
}
