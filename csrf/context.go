package csrf

import (
	"context"
	"net/http"
)

type ctxKey string

const (
	tokenKey     ctxKey = "csrf_token_ctx"
	stateKey     ctxKey = "csrf_request_state"
	sessionIDKey ctxKey = "csrf_session_id"
	protectorKey ctxKey = "csrf_protector"
	exemptKey    ctxKey = "csrf_exempt"
	reasonKey    ctxKey = "csrf_failure_reason"
)

// contextWithToken returns a derived context that stores the token on record.
//
// Params:
// - ctx: base context to attach the token to.
// - tok: CSRF token string to store, empty when none was ever saved.
//
// Returns:
// - a new context containing the token.
func contextWithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenKey, tok)
}

// tokenFromContext extracts the token on record from ctx, if present.
func tokenFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(tokenKey).(string)
	return s, ok
}

// requestState is the per-request scratch slot. It belongs to exactly one
// request and is never shared, so it needs no locking.
//
// next holds the token prepared for the response. issued records whether
// that token was handed out through GenerateNewToken, which is what makes
// SaveToken write it over an existing one.
type requestState struct {
	next   string
	issued bool
}

// WithRequestState returns a shallow copy of r carrying a fresh scratch slot.
// Storage operations need it; Protector.Protect attaches it automatically.
//
// Params:
// - r: incoming request.
//
// Returns:
// - the request to pass down the chain.
func WithRequestState(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), stateKey, &requestState{}))
}

func stateFromRequest(r *http.Request) (*requestState, error) {
	st, ok := r.Context().Value(stateKey).(*requestState)
	if !ok || st == nil {
		return nil, ErrNoRequestState
	}
	return st, nil
}

// WithSessionID returns a derived context carrying the client session
// identifier used by identifier-keyed backends.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the session identifier from ctx, if present.
//
// Returns:
// - identifier (string) and a boolean indicating presence.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Exempt marks r so that Protect passes it straight to the next handler. No
// token is loaded, verified or saved, and Token fails inside that handler. It
// must run before the Protect middleware.
func Exempt(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), exemptKey, true))
}

// IsExempt reports whether r was marked with Exempt.
func IsExempt(r *http.Request) bool {
	v, _ := r.Context().Value(exemptKey).(bool)
	return v
}

func contextWithProtector(ctx context.Context, p *Protector) context.Context {
	return context.WithValue(ctx, protectorKey, p)
}

func protectorFromContext(ctx context.Context) (*Protector, bool) {
	p, ok := ctx.Value(protectorKey).(*Protector)
	return p, ok && p != nil
}
