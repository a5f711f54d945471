package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// bulkThreshold is the encoded-payload size above which delivery switches to
// the long-deadline export client.
const bulkThreshold = 256 * 1024

// Notifier delivers final session reports to an operator-configured webhook.
// Delivery is best effort: transient failures are retried with backoff, a 4xx
// is treated as permanent.
type Notifier struct {
	url     string
	token   string
	retries int
	backoff time.Duration
}

// NewNotifier builds a notifier for the given webhook URL. An empty token
// sends unauthenticated requests.
func NewNotifier(url, token string) *Notifier {
	return &Notifier{
		url:     url,
		token:   token,
		retries: 3,
		backoff: 500 * time.Millisecond,
	}
}

// Ping checks that the webhook endpoint is reachable. Any HTTP response,
// including an error status, counts as reachable; only transport failures
// are reported.
func (n *Notifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, n.url, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := PingClient().Do(req)
	if err != nil {
		return fmt.Errorf("webhook unreachable: %w", err)
	}
	DrainAndClose(resp.Body)
	return nil
}

// clientFor picks the delivery client by payload size: reports with a bulky
// transcript get the longer deadline.
func (n *Notifier) clientFor(size int) *http.Client {
	if size >= bulkThreshold {
		return ExportClient()
	}
	return CallbackClient()
}

// Notify POSTs the payload as JSON. Retries on network errors and 5xx
// responses, sleeping backoff*attempt between tries.
func (n *Notifier) Notify(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}
	client := n.clientFor(len(body))

	var lastErr error
	for attempt := 1; attempt <= n.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(n.backoff * time.Duration(attempt-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build callback request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if n.token != "" {
			req.Header.Set("Authorization", "Bearer "+n.token)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode < 300:
			DrainAndClose(resp.Body)
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Permanent: the receiver rejected the payload.
			msg, _ := ReadErrorBody(resp.Body)
			DrainAndClose(resp.Body)
			return fmt.Errorf("callback rejected with %d: %s", resp.StatusCode, msg)
		default:
			lastErr = fmt.Errorf("callback returned %d", resp.StatusCode)
			DrainAndClose(resp.Body)
		}
	}

	return fmt.Errorf("callback delivery failed after %d attempts: %w", n.retries, lastErr)
}
