package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// DefaultBodyLimit is the default maximum request body size (1 MB).
const DefaultBodyLimit int64 = 1 << 20

// ErrBadBody is returned by DecodeJSON when the request body cannot be parsed.
var ErrBadBody = errors.New("invalid request body")

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds DefaultBodyLimit.
var ErrBodyTooLarge = errors.New("request body too large")

// WriteJSON sends a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError sends the {"detail": msg} error body the frontend expects.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"detail": msg})
}

// MaxBody wraps r.Body with a size limit to prevent oversized payloads.
// Reads past n fail with *http.MaxBytesError.
func MaxBody(r *http.Request, n int64) {
	r.Body = http.MaxBytesReader(nil, r.Body, n)
}

// DecodeJSON decodes a request body of at most DefaultBodyLimit bytes into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return ErrBadBody
	}
	MaxBody(r, DefaultBodyLimit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}

// WriteDecodeError reports a DecodeJSON failure: 413 for oversized bodies,
// 422 otherwise.
func WriteDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
}
