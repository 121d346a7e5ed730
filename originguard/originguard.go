// Package originguard restricts cross-origin browser access to an approved
// set of origins.
package originguard

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"peptideprofessor/httputil"
	"peptideprofessor/logging"
)

// hostingSuffixes approve every preview and deployment subdomain of these
// hosting providers.
var hostingSuffixes = []string{
	".vercel.app",
	".preview.emergentagent.com",
	".replit.dev",
	".janeway.replit.dev",
}

// Validator decides whether an Origin header value is approved. It is
// immutable after New.
type Validator struct {
	allowed map[string]struct{}
}

// New builds a Validator over an exact-match allow-list.
func New(origins []string) *Validator {
	v := &Validator{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		v.allowed[o] = struct{}{}
	}
	return v
}

// Allowed reports whether origin ends with an approved hosting suffix or is
// in the allow-list verbatim.
func (v *Validator) Allowed(origin string) bool {
	for _, suffix := range hostingSuffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	_, ok := v.allowed[origin]
	return ok
}

// Middleware answers every OPTIONS request as a preflight and attaches
// Access-Control-Allow-Origin to other responses for approved origins.
func Middleware(v *Validator) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return v.Allowed(origin)
		},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowCredentials: false,
	})

	return func(next http.Handler) http.Handler {
		actual := c.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if r.Method == http.MethodOptions {
				if !v.Allowed(origin) {
					logging.FromContext(r.Context()).Info("preflight rejected", zap.String("origin", origin))
					httputil.WriteError(w, http.StatusForbidden, "Forbidden")
					return
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
				h.Set("Access-Control-Max-Age", "86400")
				h.Add("Vary", "Origin")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if origin != "" && v.Allowed(origin) {
				w.Header().Set("Access-Control-Allow-Credentials", "false")
			}
			actual.ServeHTTP(w, r)
		})
	}
}
