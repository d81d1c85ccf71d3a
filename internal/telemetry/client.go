package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"heartstream/internal/models"
)

// ErrAuthRejected marks a device-token rejection by the dashboard. It is
// raised on the first rejected attempt and never retried; the session must
// abort on it.
var ErrAuthRejected = errors.New("telemetry device token rejected")

// Client pushes prediction telemetry to a ThingsBoard-style dashboard over
// the per-device HTTP channel. Transient failures are retried with bounded
// exponential backoff inside Publish; the caller only sees the final outcome.
type Client struct {
	telemetryURL  string
	attributesURL string
	httpClient    *http.Client
	logger        *zap.Logger
	maxRetries    uint64
}

// NewClient creates a dashboard client for one device token.
func NewClient(host, deviceToken string, timeout time.Duration, maxRetries uint64, logger *zap.Logger) *Client {
	return &Client{
		telemetryURL:  fmt.Sprintf("%s/api/v1/%s/telemetry", host, deviceToken),
		attributesURL: fmt.Sprintf("%s/api/v1/%s/attributes", host, deviceToken),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Publish sends one snapshot to the device telemetry channel. Network errors
// and 5xx responses are retried up to the configured bound; an auth rejection
// is returned immediately as ErrAuthRejected.
func (c *Client) Publish(ctx context.Context, snap *models.Snapshot) error {
	return c.post(ctx, c.telemetryURL, snap)
}

// PublishAttributes reports the serving model's identity as device
// attributes. Sent once per session, when the model identity is known.
func (c *Client) PublishAttributes(ctx context.Context, modelName, modelVersion string) error {
	attrs := map[string]string{
		"model_name":    modelName,
		"model_version": modelVersion,
	}
	return c.post(ctx, c.attributesURL, attrs)
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send telemetry: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode))
		default:
			return fmt.Errorf("dashboard returned status %d", resp.StatusCode)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	err = backoff.RetryNotify(attempt, policy, func(err error, next time.Duration) {
		c.logger.Warn("Telemetry send failed, retrying",
			zap.Error(err),
			zap.Duration("next_attempt_in", next))
	})
	if err != nil {
		return err
	}
	return nil
}
