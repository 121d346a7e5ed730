// Package auth provides demo registration and login endpoints. Issued
// tokens are not required by any route.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"peptideprofessor/db"
	"peptideprofessor/httputil"
	"peptideprofessor/logging"
)

const (
	maxPasswordLen = 72 // bcrypt truncates at 72 bytes
	TokenTTL       = 30 * time.Minute
	demoNote       = "This is a placeholder endpoint for future functionality"
)

// Handler holds dependencies for authentication endpoints.
type Handler struct {
	DB        *db.CompatDB
	JWTSecret string
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,max=72"`
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
}

type userView struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

// HandleRegister creates a user with a bcrypt password hash.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := httputil.Validate(req); err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.ValidationMessage(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logging.FromContext(r.Context()).Error("hash password", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	userID := uuid.New().String()
	fullName := ""
	if req.FullName != nil {
		fullName = *req.FullName
	}
	_, err = h.DB.ExecContext(r.Context(),
		`INSERT INTO users (id, email, password_hash, full_name, is_active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		userID, req.Email, string(hash), fullName, db.Timestamp(h.now()))
	if err != nil {
		if db.IsUniqueViolation(err) {
			httputil.WriteError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		logging.FromContext(r.Context()).Error("create user", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Registration successful (demo mode)",
		"user":    userView{ID: userID, Email: req.Email, FullName: req.FullName},
		"note":    demoNote,
	})
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin verifies credentials and issues a short-lived demo token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := httputil.Validate(req); err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.ValidationMessage(err))
		return
	}

	ok, err := h.verify(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Error("login lookup", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := GenerateToken(req.Email, h.JWTSecret, h.now())
	if err != nil {
		logging.FromContext(r.Context()).Error("sign token", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"message":      "Login successful (demo mode)",
		"note":         demoNote,
	})
}

func (h *Handler) verify(ctx context.Context, email, password string) (bool, error) {
	if len(password) > maxPasswordLen {
		return false, nil
	}
	var hash string
	err := h.DB.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE email = ? AND is_active = 1`, email).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// GenerateToken creates an HS256 JWT for subject expiring TokenTTL after now.
func GenerateToken(subject, secret string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a token issued by GenerateToken and returns its subject.
func ParseToken(tokenStr, secret string, now time.Time) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
