package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// PushRequest is the JSON body posted to the push provider.
type PushRequest struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushSender delivers push notifications by POSTing to an HTTP provider.
// The base URL is injected from config so tests can point to a local mock.
type PushSender struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPushSender(baseURL, apiKey string, timeout time.Duration) *PushSender {
	return &PushSender{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the message and accepts any 2xx response.
func (p *PushSender) Send(ctx context.Context, token, title, body string) error {
	payload, err := json.Marshal(PushRequest{Token: token, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("%w: marshal push request: %v", domain.ErrSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: create push request: %v", domain.ErrSend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "key="+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: push notification failed: %v", domain.ErrSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: push provider status %d: %s",
			domain.ErrSend, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// compile-time check that PushSender implements Sender
var _ Sender = (*PushSender)(nil)
