package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideprofessor/metrics"
)

func TestResendClient_Send(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := NewResendClient("re_test", metrics.New())
	c.Endpoint = srv.URL

	msg := Message{From: DefaultFrom, To: []string{"a@b.io"}, Subject: "hi", HTML: "<p>x</p>"}
	require.NoError(t, c.Send(context.Background(), msg))
	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, msg, got)
}

func TestResendClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewResendClient("bad", nil)
	c.Endpoint = srv.URL
	err := c.Send(context.Background(), Message{To: []string{"a@b.io"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestResendClient_CancelledWhileThrottled(t *testing.T) {
	c := NewResendClient("k", nil)
	c.Endpoint = "http://127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Send(ctx, Message{})
	assert.Error(t, err)
}

func TestNopSender(t *testing.T) {
	assert.NoError(t, NopSender{}.Send(context.Background(), Message{To: []string{"someone@example.com"}}))
}

func TestConfirmationTemplate(t *testing.T) {
	msg, err := Confirmation(DefaultFrom, "a@b.io", "https://peptide-professor.vercel.app/", "tok_123")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.io"}, msg.To)
	assert.Equal(t, "Confirm your subscription to Peptide Professor", msg.Subject)
	assert.Contains(t, msg.HTML, `href="https://peptide-professor.vercel.app/newsletter/confirm?token=tok_123"`)
}

func TestWelcomeTemplate_EscapesEmailInQuery(t *testing.T) {
	msg, err := Welcome(DefaultFrom, "a+b@c.io", "https://example.com")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "preferences?email=a%2bb%40c.io")
}

func TestContactNotification_EscapesInput(t *testing.T) {
	msg, err := ContactNotification(DefaultFrom, "admin@example.com", ContactFields{
		Name: "Eve", Email: "eve@example.com", Subject: "Hello", Message: "<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Contact Form: Hello", msg.Subject)
	assert.Equal(t, []string{"admin@example.com"}, msg.To)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}
