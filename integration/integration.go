// Package integration defines the outbound connector abstraction. A
// Provider wraps one external system (webhook endpoint, CRM, messaging
// platform) behind connect/invoke/close; providers are registered per
// deployment and looked up by name.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/logging"
)

// Provider is an outbound connector to an external system.
type Provider interface {
	core.Component

	// Connect establishes the connection or verifies credentials. Called
	// once during boot; a failing provider is skipped, not fatal.
	Connect(ctx context.Context) error

	// Invoke performs one operation against the external system.
	Invoke(ctx context.Context, input map[string]any) (map[string]any, error)

	// Close releases the connection. Called once during shutdown.
	Close(ctx context.Context) error
}

// Webhook is a Provider that POSTs JSON payloads to a fixed endpoint.
type Webhook struct {
	name     string
	endpoint string
	client   *http.Client
	logger   logging.Logger
}

// WebhookOptions configure a webhook provider.
type WebhookOptions struct {
	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client
	Logger logging.Logger
}

// NewWebhook creates a webhook provider targeting endpoint.
func NewWebhook(name, endpoint string, optFns ...func(o *WebhookOptions)) *Webhook {
	opts := WebhookOptions{
		Client: &http.Client{Timeout: 10 * time.Second},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Webhook{name: name, endpoint: endpoint, client: opts.Client, logger: opts.Logger}
}

// Name implements core.Component.
func (w *Webhook) Name() string { return w.name }

// Description implements core.Component.
func (w *Webhook) Description() string {
	return fmt.Sprintf("Webhook integration posting to %s", w.endpoint)
}

// Connect validates the configured endpoint.
func (w *Webhook) Connect(ctx context.Context) error {
	if w.endpoint == "" {
		return fmt.Errorf("webhook %s: missing endpoint", w.name)
	}
	return nil
}

// Invoke POSTs the input as JSON and returns status plus response body.
func (w *Webhook) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: encode payload: %w", w.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("webhook %s: %w", w.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: %w", w.name, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("webhook %s: status %d", w.name, resp.StatusCode)
	}

	w.logger.Debug("webhook invoked", "integration", w.name, "status", resp.StatusCode)

	return map[string]any{
		"status": resp.StatusCode,
		"body":   string(respBody),
	}, nil
}

// Close implements Provider. Webhooks hold no persistent connection.
func (w *Webhook) Close(ctx context.Context) error { return nil }

var _ Provider = (*Webhook)(nil)
