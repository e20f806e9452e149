package csrf

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionIDOptions configures the SessionID middleware cookie.
type SessionIDOptions struct {
	CookieName string
	Path       string
	Domain     string
	MaxAge     int
	Secure     bool
}

// SessionID returns middleware that makes sure every request carries a
// session identifier, as needed by RedisBackend and MemorySessions. The
// identifier is a random UUID kept in an HttpOnly cookie; a cookie holding
// anything else is replaced.
//
// It is a minimal stand-in for an application's own session layer: wrap the
// request context with WithSessionID instead when one exists.
func SessionID(opts SessionIDOptions) func(http.Handler) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = "sid"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(opts.CookieName); err == nil {
				if u, err := uuid.Parse(c.Value); err == nil {
					id = u.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    id,
					Path:     opts.Path,
					Domain:   opts.Domain,
					MaxAge:   opts.MaxAge,
					Secure:   opts.Secure,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}
