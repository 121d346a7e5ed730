package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideprofessor/config"
)

// --- helpers ---

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:              "0",
		AllowedOrigins:    config.ParseOrigins(""),
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		RateLimitSweep:    time.Minute,
		DBDriver:          "sqlite",
		DBPath:            ":memory:",
		MailFrom:          "Peptide Professor <noreply@peptideprofessor.com>",
		AdminEmail:        "admin@peptideprofessor.com",
		SiteURL:           "https://peptide-professor.vercel.app",
		BlogContentDir:    t.TempDir(),
		JWTSecret:         "test-secret",
		AuditLogSize:      100,
		TranslateTTL:      time.Hour,
	}
}

func newTestApp(t *testing.T, cfg config.Config) (*App, http.Handler) {
	t.Helper()
	app, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	app.now = func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(app.Close)
	return app, app.routes()
}

func do(h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	return m
}

// --- tests ---

func TestRootAndHealth(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))

	rec := do(h, "GET", "/", nil, nil)
	assert.JSONEq(t, `{"message":"Professor Peptides API v2.0","status":"running"}`, rec.Body.String())

	rec = do(h, "GET", "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2025-07-01T09:00:00.000000", body["timestamp"])
	assert.Equal(t, "2.0.0", body["version"])
}

func TestPreflight(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))

	for _, origin := range []string{"https://peptide-professor.vercel.app", "https://pr-12.my-app.vercel.app"} {
		rec := do(h, "OPTIONS", "/api/calculator/calculate", nil, map[string]string{"Origin": origin})
		require.Equal(t, http.StatusNoContent, rec.Code, origin)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
		assert.Empty(t, rec.Body.String())
	}

	rec := do(h, "OPTIONS", "/api/calculator/calculate", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestActualRequestCORS(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))

	rec := do(h, "GET", "/api/team-members", nil, map[string]string{"Origin": "http://localhost:3000"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = do(h, "GET", "/api/team-members", nil, map[string]string{"Origin": "https://evil.example"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit_WritesUnderAPIOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRequests = 3
	_, h := newTestApp(t, cfg)

	bmi := map[string]any{"age": 30, "sex": "male", "height_cm": 180, "weight_kg": 90, "activity_level": "sedentary"}
	client := map[string]string{"X-Forwarded-For": "198.51.100.7"}
	for i := 0; i < 3; i++ {
		rec := do(h, "POST", "/api/calculators/bmi", bmi, client)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := do(h, "POST", "/api/calculators/bmi", bmi, client)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"detail":"Too Many Requests"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(h, "GET", "/api/statistics", nil, client).Code, "reads bypass the limiter")
	assert.Equal(t, http.StatusOK, do(h, "POST", "/api/calculators/bmi", bmi, map[string]string{"X-Forwarded-For": "198.51.100.8"}).Code)
}

func TestRateLimit_RejectionKeepsCORSHeaders(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRequests = 1
	_, h := newTestApp(t, cfg)

	bmi := map[string]any{"age": 30, "sex": "female", "height_cm": 165, "weight_kg": 60, "activity_level": "sedentary"}
	headers := map[string]string{"X-Forwarded-For": "198.51.100.9", "Origin": "https://peptide-professor.vercel.app"}
	require.Equal(t, http.StatusOK, do(h, "POST", "/api/calculators/bmi", bmi, headers).Code)

	rec := do(h, "POST", "/api/calculators/bmi", bmi, headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "https://peptide-professor.vercel.app", rec.Header().Get("Access-Control-Allow-Origin"),
		"browsers must be able to read the 429")

	headers["Origin"] = "https://evil.example"
	rec = do(h, "POST", "/api/calculators/bmi", bmi, headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOversizedBody(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))

	body := `{"text":"` + strings.Repeat("a", 2<<20) + `","target_lang":"de"}`
	req := httptest.NewRequest("POST", "/api/contact", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"detail":"Request body too large"}`, rec.Body.String())
}

func TestReconstitutionThroughRouter(t *testing.T) {
	app, h := newTestApp(t, testConfig(t))

	rec := do(h, "POST", "/api/calculator/calculate", map[string]any{
		"peptide_slug": "bpc-157", "vial_size": 5, "bacteriostatic_water": 2, "target_dose": 250,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"concentration":2.5,"injection_volume":0.1,"concentration_mcg":2500,"doses_per_vial":20}`, rec.Body.String())
	assert.Equal(t, 1, app.audit.Len())

	rec = do(h, "POST", "/api/calculator/calculate", map[string]any{
		"peptide_slug": "unknown", "vial_size": 5, "bacteriostatic_water": 2, "target_dose": 250,
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlogContentFromDir(t *testing.T) {
	cfg := testConfig(t)
	slug := "peptides-101-complete-beginners-guide"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.BlogContentDir, slug+".md"), []byte("# Peptides 101"), 0o644))
	_, h := newTestApp(t, cfg)

	rec := do(h, "GET", "/api/blog/"+slug, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Peptides 101", decodeJSON(t, rec)["content"])

	rec = do(h, "GET", "/api/blog/how-peptide-research-is-done-lab-to-clinical", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(decodeJSON(t, rec)["content"].(string), "Content for "))
}

func TestNewsletterThroughRouter(t *testing.T) {
	app, h := newTestApp(t, testConfig(t))

	rec := do(h, "POST", "/api/newsletter/signup", map[string]any{"email": "reader@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token string
	require.NoError(t, app.db.QueryRowContext(context.Background(),
		`SELECT confirmation_token FROM subscribers WHERE email = ?`, "reader@example.com").Scan(&token))

	rec = do(h, "GET", "/api/newsletter/confirm?token="+token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decodeJSON(t, rec)["status"])
}

func TestTranslateWithoutKey(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))
	rec := do(h, "POST", "/api/translate", map[string]any{"text": "hi", "target_lang": "de"}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Translation API key not configured"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))
	do(h, "POST", "/api/calculators/bmi", map[string]any{"age": 30, "sex": "female", "height_cm": 165, "weight_kg": 60}, nil)

	rec := do(h, "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `admission_decisions_total{decision="admitted"} 1`)
	assert.Contains(t, rec.Body.String(), `http_request_duration_seconds_count{method="POST",route="/api/calculators/bmi"`)
}

func TestUnknownRoute(t *testing.T) {
	_, h := newTestApp(t, testConfig(t))
	rec := do(h, "GET", "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())
}

func TestNewApp_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "mysql"
	_, err := newApp(context.Background(), cfg)
	assert.Error(t, err)
}
