package calculator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultAuditSize caps the audit log when no size is configured.
const DefaultAuditSize = 10000

// AuditRecord is one completed calculation. Records are written for
// operational logging only and never served back to callers.
type AuditRecord struct {
	At         time.Time
	Kind       string // reconstitution, bmi, melanotan
	Peptide    string
	DosingType UnitClass
	Input      any
	Result     any
}

// AuditLog keeps the most recent calculations under random tokens. It is
// safe for concurrent use; the oldest records are evicted past the cap.
type AuditLog struct {
	cache *lru.Cache[string, AuditRecord]
	now   func() time.Time
}

// NewAuditLog creates a log holding at most size records.
func NewAuditLog(size int) (*AuditLog, error) {
	if size <= 0 {
		size = DefaultAuditSize
	}
	cache, err := lru.New[string, AuditRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create audit cache: %w", err)
	}
	return &AuditLog{cache: cache, now: time.Now}, nil
}

// Record stores rec under a fresh token and returns the token.
func (a *AuditLog) Record(rec AuditRecord) string {
	if rec.At.IsZero() {
		rec.At = a.now().UTC()
	}
	token := uuid.NewString()
	a.cache.Add(token, rec)
	return token
}

// Len reports the number of retained records.
func (a *AuditLog) Len() int {
	return a.cache.Len()
}

func (a *AuditLog) get(token string) (AuditRecord, bool) {
	return a.cache.Peek(token)
}
