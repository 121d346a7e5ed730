package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideprofessor/db"
)

var fixedNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	d, err := db.Open(context.Background(), db.Config{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return &Handler{DB: d, JWTSecret: "test-secret", Now: func() time.Time { return fixedNow }}
}

func call(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest("POST", "/", strings.NewReader(body)))
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestHandler(t)

	rec := call(h.HandleRegister, `{"email":"ada@example.com","password":"hunter22","full_name":"Ada L"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reg struct {
		Message string `json:"message"`
		User    struct {
			ID       string  `json:"id"`
			Email    string  `json:"email"`
			FullName *string `json:"full_name"`
		} `json:"user"`
		Note string `json:"note"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, "Registration successful (demo mode)", reg.Message)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	require.NotNil(t, reg.User.FullName)
	assert.Equal(t, "Ada L", *reg.User.FullName)
	assert.NotEmpty(t, reg.User.ID)

	var hash string
	require.NoError(t, h.DB.QueryRowContext(context.Background(), `SELECT password_hash FROM users WHERE email = ?`, "ada@example.com").Scan(&hash))
	assert.NotEqual(t, "hunter22", hash)

	rec = call(h.HandleLogin, `{"email":"ada@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login["token_type"])

	sub, err := ParseToken(login["access_token"], "test-secret", fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sub)

	_, err = ParseToken(login["access_token"], "test-secret", fixedNow.Add(TokenTTL+time.Minute))
	assert.Error(t, err, "token expires after 30 minutes")
	_, err = ParseToken(login["access_token"], "other-secret", fixedNow)
	assert.Error(t, err)
}

func TestRegister_NullFullName(t *testing.T) {
	h := newTestHandler(t)
	rec := call(h.HandleRegister, `{"email":"x@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"full_name":null`)
}

func TestRegister_Duplicate(t *testing.T) {
	h := newTestHandler(t)
	body := `{"email":"ada@example.com","password":"hunter22"}`
	require.Equal(t, http.StatusOK, call(h.HandleRegister, body).Code)

	rec := call(h.HandleRegister, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Email already registered"}`, rec.Body.String())
}

func TestLogin_Rejections(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusOK, call(h.HandleRegister, `{"email":"ada@example.com","password":"hunter22"}`).Code)

	for _, body := range []string{
		`{"email":"ada@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"hunter22"}`,
		`{"email":"ada@example.com","password":"` + strings.Repeat("x", 80) + `"}`,
	} {
		rec := call(h.HandleLogin, body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
		assert.JSONEq(t, `{"detail":"Invalid email or password"}`, rec.Body.String())
	}

	rec := call(h.HandleLogin, `{"email":"bad","password":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
