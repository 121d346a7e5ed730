// Package translate proxies text translation requests to DeepL.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"peptideprofessor/logging"
	"peptideprofessor/metrics"
	"peptideprofessor/telemetry"
)

const DefaultEndpoint = "https://api-free.deepl.com/v2/translate"

var (
	ErrNotConfigured = errors.New("translation api key not configured")
	ErrUpstream      = errors.New("translation upstream error")
)

// Client calls the DeepL translate endpoint. Successful responses are
// cached when Cache is set.
type Client struct {
	APIKey   string
	Endpoint string
	HTTP     *http.Client
	Limiter  *rate.Limiter
	Cache    Cache
	TTL      time.Duration
	Metrics  *metrics.Metrics
}

func NewClient(apiKey, endpoint string, cache Cache, ttl time.Duration, m *metrics.Metrics) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		APIKey:   apiKey,
		Endpoint: endpoint,
		HTTP: &http.Client{
			Timeout:   15 * time.Second,
			Transport: telemetry.Transport(http.DefaultTransport),
		},
		Limiter: rate.NewLimiter(rate.Limit(5), 10),
		Cache:   cache,
		TTL:     ttl,
		Metrics: m,
	}
}

// CacheKey identifies a translation by text and upper-cased target language.
func CacheKey(text, targetLang string) string {
	sum := sha256.Sum256([]byte(text + "|" + strings.ToUpper(targetLang)))
	return hex.EncodeToString(sum[:])
}

// Translate returns DeepL's JSON response body unchanged.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (json.RawMessage, error) {
	if c == nil || c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	log := logging.FromContext(ctx)
	key := CacheKey(text, targetLang)

	if c.Cache != nil {
		b, ok, err := c.Cache.Get(ctx, key)
		if err != nil {
			log.Warn("translate cache get", zap.Error(err))
		} else if ok {
			c.Metrics.Outbound("deepl", "cache_hit")
			return b, nil
		}
	}

	body, err := c.call(ctx, text, targetLang)
	if err != nil {
		c.Metrics.Outbound("deepl", "error")
		return nil, err
	}
	c.Metrics.Outbound("deepl", "ok")

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, key, body, c.TTL); err != nil {
			log.Warn("translate cache set", zap.Error(err))
		}
	}
	return body, nil
}

func (c *Client) call(ctx context.Context, text, targetLang string) (json.RawMessage, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("deepl throttle: %w", err)
		}
	}
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(targetLang))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepl request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read deepl response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logging.FromContext(ctx).Error("deepl api error",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", truncate(body, 256)))
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("deepl returned invalid json")
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
