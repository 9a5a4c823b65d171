// Package printer delivers rendered tickets to the thermal printer bridge
// over HTTP. Delivery failures are reported to the caller and never touch
// the finalized order they were rendered from.
package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dosahub/backend-pos/internal/resilience"
)

// ErrUnreachable wraps transport failures talking to the printer bridge.
var ErrUnreachable = errors.New("printer: bridge unreachable")

// Client sends tickets to the configured printer bridge endpoint.
type Client struct {
	BridgeURL string
	HTTP      *resilience.HTTPClient
}

// Print posts the rendered ticket to the bridge. The ticket kind travels in a
// header so the bridge can route receipts and KOTs to different devices.
func (c *Client) Print(ctx context.Context, kind string, ticket []byte) error {
	if c == nil || c.HTTP == nil {
		return errors.New("printer: client not configured")
	}
	url := strings.TrimSpace(c.BridgeURL)
	if url == "" {
		return errors.New("printer: bridge url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(ticket))
	if err != nil {
		return fmt.Errorf("printer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Ticket-Kind", kind)

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: bridge returned %s", ErrUnreachable, resp.Status)
	}
	return nil
}

// TestPrint sends a short alignment ticket. It exists so the register can
// verify the device with its own retry affordance, decoupled from order
// creation.
func (c *Client) TestPrint(ctx context.Context) error {
	ticket := fmt.Sprintf("TEST PRINT\n%s\nAll aligned? Good to go.\n", time.Now().Format(time.RFC822))
	return c.Print(ctx, "test", []byte(ticket))
}
