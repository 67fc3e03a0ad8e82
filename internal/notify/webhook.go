package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookSender posts the attempt payload as JSON.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender returns a sender for url. A nil client uses
// http.DefaultClient.
func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{url: url, client: client}
}

func (w *WebhookSender) Send(ctx context.Context, a Attempt) error {
	body, err := json.Marshal(a)
	if err != nil {
		return &NotificationError{Sender: "webhook", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &NotificationError{Sender: "webhook", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &NotificationError{Sender: "webhook", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NotificationError{Sender: "webhook", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}
