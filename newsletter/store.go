package newsletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"peptideprofessor/db"
)

var (
	ErrTokenNotFound = errors.New("confirmation token not found")
	ErrTokenExpired  = errors.New("confirmation token expired")
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

type Subscriber struct {
	ID             string
	Email          string
	Status         string
	Token          string
	TokenExpiresAt time.Time
	Preferences    string // JSON object
	IPMasked       string
	Source         string
	CreatedAt      time.Time
	ConfirmedAt    *time.Time
}

// Store persists subscribers in the subscribers table.
type Store struct {
	DB *db.CompatDB
}

// IsConfirmed reports whether email already has a confirmed subscription.
func (s *Store) IsConfirmed(ctx context.Context, email string) (bool, error) {
	var status string
	err := s.DB.QueryRowContext(ctx, `SELECT status FROM subscribers WHERE email = ?`, email).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup subscriber: %w", err)
	}
	return status == StatusConfirmed, nil
}

// SavePending inserts a pending subscriber, or refreshes the token and
// preferences of an existing unconfirmed one. Confirmed rows are left alone.
func (s *Store) SavePending(ctx context.Context, sub Subscriber) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, status, confirmation_token, token_expires_at, preferences, ip_masked, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			confirmation_token = excluded.confirmation_token,
			token_expires_at = excluded.token_expires_at,
			preferences = excluded.preferences,
			ip_masked = excluded.ip_masked
		WHERE subscribers.status <> 'confirmed'`,
		sub.ID, sub.Email, StatusPending, sub.Token, db.Timestamp(sub.TokenExpiresAt),
		sub.Preferences, sub.IPMasked, sub.Source, db.Timestamp(sub.CreatedAt))
	if err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	return nil
}

// Confirm marks the subscriber owning token as confirmed. Confirming an
// already-confirmed subscription again succeeds.
func (s *Store) Confirm(ctx context.Context, token string, now time.Time) (Subscriber, error) {
	var sub Subscriber
	err := db.WithTx(ctx, s.DB, func(conn *db.CompatConn) error {
		var expires string
		err := conn.QueryRowContext(ctx,
			`SELECT id, email, status, token_expires_at FROM subscribers WHERE confirmation_token = ?`, token,
		).Scan(&sub.ID, &sub.Email, &sub.Status, &expires)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup token: %w", err)
		}
		sub.TokenExpiresAt, err = db.ParseTimestamp(expires)
		if err != nil {
			return fmt.Errorf("parse token expiry: %w", err)
		}
		if now.After(sub.TokenExpiresAt) {
			return ErrTokenExpired
		}

		confirmedAt := now.UTC()
		if _, err := conn.ExecContext(ctx,
			`UPDATE subscribers SET status = ?, confirmed_at = ? WHERE id = ?`,
			StatusConfirmed, db.Timestamp(confirmedAt), sub.ID); err != nil {
			return fmt.Errorf("confirm subscriber: %w", err)
		}
		sub.Status = StatusConfirmed
		sub.ConfirmedAt = &confirmedAt
		return nil
	})
	return sub, err
}
