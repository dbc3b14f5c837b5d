// Package notify delivers best-effort failure notifications to an
// operations Slack channel. Delivery never blocks or fails a request.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/webforms/sheetsink/log"
)

const deliveryTimeout = 10 * time.Second

type Notifier struct {
	webhookURL string
	client     *retryablehttp.Client
}

// New builds a notifier for the given Slack incoming-webhook URL. An
// empty URL yields a disabled notifier whose Fire is a no-op.
func New(webhookURL string) *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = deliveryTimeout
	client.Logger = nil // outcomes are logged below

	return &Notifier{webhookURL: webhookURL, client: client}
}

func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Fire sends msg on a detached goroutine and returns immediately.
// Failures are logged and swallowed.
func (n *Notifier) Fire(msg string) {
	if !n.Enabled() {
		return
	}
	go n.deliver(msg)
}

func (n *Notifier) deliver(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"text": msg})
	if err != nil {
		log.Warnf("notify: marshal: %v", err)
		return
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Warnf("notify: new request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warnf("notify: delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Warnf("notify: webhook returned status %d", resp.StatusCode)
	}
}
