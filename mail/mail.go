// Package mail delivers transactional e-mail through the Resend HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"peptideprofessor/logging"
	"peptideprofessor/metrics"
	"peptideprofessor/telemetry"
)

const (
	DefaultFrom     = "Peptide Professor <noreply@peptideprofessor.com>"
	DefaultEndpoint = "https://api.resend.com/emails"
)

type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendClient posts messages to Resend. Sends are throttled to stay under
// the provider's per-second quota.
type ResendClient struct {
	APIKey   string
	Endpoint string
	HTTP     *http.Client
	Limiter  *rate.Limiter
	Metrics  *metrics.Metrics
}

func NewResendClient(apiKey string, m *metrics.Metrics) *ResendClient {
	return &ResendClient{
		APIKey:   apiKey,
		Endpoint: DefaultEndpoint,
		HTTP: &http.Client{
			Timeout:   10 * time.Second,
			Transport: telemetry.Transport(http.DefaultTransport),
		},
		Limiter: rate.NewLimiter(rate.Limit(2), 2),
		Metrics: m,
	}
}

func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	err := c.send(ctx, msg)
	if err != nil {
		c.Metrics.Outbound("resend", "error")
		return err
	}
	c.Metrics.Outbound("resend", "ok")
	return nil
}

func (c *ResendClient) send(ctx context.Context, msg Message) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("resend throttle: %w", err)
		}
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// NopSender drops messages when no API key is configured.
type NopSender struct{}

func (NopSender) Send(ctx context.Context, msg Message) error {
	masked := make([]string, len(msg.To))
	for i, to := range msg.To {
		masked[i] = logging.MaskEmail(to)
	}
	logging.FromContext(ctx).Info("mail delivery disabled, dropping message",
		zap.Strings("to", masked), zap.String("subject", msg.Subject))
	return nil
}
