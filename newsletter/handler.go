// Package newsletter implements double opt-in newsletter subscriptions.
package newsletter

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peptideprofessor/httputil"
	"peptideprofessor/logging"
	"peptideprofessor/mail"
	"peptideprofessor/ratelimit"
)

// TokenTTL is how long a confirmation link stays valid.
const TokenTTL = 24 * time.Hour

// Handler holds dependencies for the newsletter endpoints.
type Handler struct {
	Store   *Store
	Mail    mail.Sender
	From    string
	SiteURL string
	Now     func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type SignupRequest struct {
	Email       string         `json:"email" validate:"required,email,max=254"`
	Preferences map[string]any `json:"preferences"`
}

// HandleSignup stores a pending subscription and mails a confirmation link.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req SignupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := httputil.Validate(req); err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.ValidationMessage(err))
		return
	}

	clientIP := ratelimit.ClientID(r)
	log.Info("newsletter signup", zap.String("client", logging.MaskIP(clientIP)), zap.String("email", logging.MaskEmail(req.Email)))

	confirmed, err := h.Store.IsConfirmed(r.Context(), req.Email)
	if err != nil {
		log.Error("newsletter signup", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Newsletter signup failed")
		return
	}
	if confirmed {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email already subscribed", "status": "already_subscribed"})
		return
	}

	token, err := newToken()
	if err != nil {
		log.Error("generate confirmation token", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Newsletter signup failed")
		return
	}
	prefs := req.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, "Invalid preferences")
		return
	}

	now := h.now().UTC()
	err = h.Store.SavePending(r.Context(), Subscriber{
		ID:             uuid.New().String(),
		Email:          req.Email,
		Token:          token,
		TokenExpiresAt: now.Add(TokenTTL),
		Preferences:    string(prefsJSON),
		IPMasked:       logging.MaskIP(clientIP),
		Source:         "website",
		CreatedAt:      now,
	})
	if err != nil {
		log.Error("newsletter signup", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Newsletter signup failed")
		return
	}

	// Delivery failures do not fail the signup.
	if msg, err := mail.Confirmation(h.From, req.Email, h.SiteURL, token); err != nil {
		log.Error("render confirmation email", zap.Error(err))
	} else if err := h.Mail.Send(r.Context(), msg); err != nil {
		log.Error("send confirmation email", zap.String("email", logging.MaskEmail(req.Email)), zap.Error(err))
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Confirmation email sent. Please check your inbox.",
		"status":  "confirmation_sent",
	})
}

// HandleConfirm confirms a subscription from the ?token= link.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.WriteError(w, http.StatusUnprocessableEntity, "token is required")
		return
	}

	sub, err := h.Store.Confirm(r.Context(), token, h.now())
	switch {
	case errors.Is(err, ErrTokenNotFound):
		httputil.WriteError(w, http.StatusNotFound, "Invalid confirmation token")
		return
	case errors.Is(err, ErrTokenExpired):
		httputil.WriteError(w, http.StatusBadRequest, "Confirmation token expired")
		return
	case err != nil:
		log.Error("newsletter confirm", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Confirmation failed")
		return
	}

	if msg, err := mail.Welcome(h.From, sub.Email, h.SiteURL); err != nil {
		log.Error("render welcome email", zap.Error(err))
	} else if err := h.Mail.Send(r.Context(), msg); err != nil {
		log.Error("send welcome email", zap.String("email", logging.MaskEmail(sub.Email)), zap.Error(err))
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Subscription confirmed successfully!",
		"status":  "confirmed",
	})
}

// newToken returns 32 random bytes, URL-safe encoded.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
