package csrf

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Methods that do not require CSRF protection
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// Protect wraps the given next http.Handler and enforces CSRF protection.
//
// Behavior:
//   - Every request gets its own scratch state and the token on record is
//     loaded from Storage.
//   - Exempted requests go to next without touching Storage.
//   - For "safe" methods (GET/HEAD/OPTIONS/TRACE) and skipped requests the
//     handler runs straight away.
//   - For every other method: optionally validates Origin/Referer (when
//     EnforceOriginCheck is true), then asks the Policy whether the submitted
//     token matches the one on record, and only then calls next.
//   - The token is saved right before the response headers go out, so
//     handlers may call Token while rendering.
//
// Params:
// - next: downstream handler to be executed after CSRF checks pass.
//
// Returns:
// - An http.Handler that performs the CSRF logic before delegating to next.
func (p *Protector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		r, err := p.Verify(r)
		if err != nil {
			p.Reject(w, r, err)
			return
		}

		sw := &saveWriter{ResponseWriter: w, save: func() { p.save(w, r) }}
		next.ServeHTTP(sw, r)
		sw.flush()
	})
}

// Verify attaches request state to r, loads the token on record and, for
// requests that need protection, checks the submitted token.
//
// Params:
// - r: incoming request.
//
// Returns:
//   - the request to hand to the next handler (always non-nil).
//   - nil when the request may proceed; ErrBadOrigin or ErrTokenMismatch when
//     it must be rejected; a storage error when the token could not be loaded.
func (p *Protector) Verify(r *http.Request) (*http.Request, error) {
	if IsExempt(r) {
		return r, nil
	}
	r = WithRequestState(r)

	original, err := p.storage.Get(r)
	if err != nil {
		return r, err
	}
	ctx := contextWithProtector(r.Context(), p)
	r = r.WithContext(contextWithToken(ctx, original))

	if safeMethods[r.Method] || (p.skip != nil && p.skip(r)) {
		return r, nil
	}

	if p.cfg.EnforceOriginCheck {
		if err := validateOriginOrReferer(r, p.cfg.AllowedOrigin); err != nil {
			return r, fmt.Errorf("%w: %w", ErrBadOrigin, err)
		}
	}

	if !p.policy.Check(r, original) {
		return r, ErrTokenMismatch
	}
	return r, nil
}

// Save persists the token of r on w. It must be called before the response
// headers are written.
func (p *Protector) Save(w http.ResponseWriter, r *http.Request) error {
	return p.storage.SaveToken(w, r)
}

func (p *Protector) save(w http.ResponseWriter, r *http.Request) {
	if err := p.Save(w, r); err != nil {
		p.logger.Error("csrf: failed to save token",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

// Reject serves the response for a request Verify refused. Verification
// failures go to the error handler; storage failures produce a 500.
func (p *Protector) Reject(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, ErrTokenMismatch) && !errors.Is(err, ErrBadOrigin) {
		p.logger.Error("csrf: failed to load token",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		http.Error(w, "failed to load CSRF token", http.StatusInternalServerError)
		return
	}

	p.logger.Info("csrf: request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	r = r.WithContext(context.WithValue(r.Context(), reasonKey, err))
	p.errorHandler.ServeHTTP(w, r)
}

// FailureReason returns why Protect rejected r. It is meant for handlers
// installed with WithErrorHandler.
func FailureReason(r *http.Request) error {
	err, _ := r.Context().Value(reasonKey).(error)
	return err
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request) {
	msg := "bad CSRF token"
	if errors.Is(FailureReason(r), ErrBadOrigin) {
		msg = "invalid origin"
	}
	http.Error(w, msg, http.StatusForbidden)
}

// Token returns the token a handler should embed in its response: the one
// on record, or a newly issued one that will be saved with the response.
//
// Params:
// - r: request passed down by Protect.
//
// Returns:
// - token string; ErrNoRequestState if r did not go through Protect.
func Token(r *http.Request) (string, error) {
	p, ok := protectorFromContext(r.Context())
	if !ok {
		return "", ErrNoRequestState
	}
	if tok, ok := tokenFromContext(r.Context()); ok && tok != "" {
		return tok, nil
	}
	return p.storage.GenerateNewToken(r)
}

// TemplateField returns a hidden input carrying the token, named after the
// configured form field.
func TemplateField(r *http.Request) (template.HTML, error) {
	p, ok := protectorFromContext(r.Context())
	if !ok {
		return "", ErrNoRequestState
	}
	tok, err := Token(r)
	if err != nil {
		return "", err
	}
	return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
		template.HTMLEscapeString(p.cfg.FormField), template.HTMLEscapeString(tok))), nil
}

// TokenHandler returns an HTTP handler that writes the current CSRF token.
// This is useful for SPAs to fetch the token and attach it to subsequent requests.
//
// Returns:
// - http.Handler that responds with the token in the response body (text/plain).
func (p *Protector) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := Token(r)
		if err != nil {
			p.logger.Error("csrf: token unavailable", zap.Error(err))
			http.Error(w, "no token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(tok))
	})
}

// validateOriginOrReferer checks whether the request is same-site according to
// the allowed host policy. When allowed is empty, it falls back to r.Host.
// It prefers the Origin header; if empty, it falls back to Referer.
//
// Params:
//   - r: the incoming request containing Origin/Referer headers.
//   - allowed: the allowed host (domain[:port]) to be considered same-site;
//     if empty, r.Host is used.
//
// Returns:
// - nil when origin/referrer is acceptable; otherwise an error describing the issue.
func validateOriginOrReferer(r *http.Request, allowed string) error {
	host := allowed
	if host == "" {
		host = r.Host
	}

	origin := r.Header.Get("Origin")
	ref := r.Header.Get("Referer")

	if origin == "" && ref == "" {
		return errors.New("no origin/referer")
	}
	if origin != "" && !sameSite(origin, host) {
		return errors.New("bad origin")
	}
	if origin == "" && ref != "" && !sameSite(ref, host) {
		return errors.New("bad referer")
	}
	return nil
}

// sameSite compares only the host part (port included).
func sameSite(originOrRef, allowedHost string) bool {
	u, err := url.Parse(originOrRef)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, allowedHost)
}

// saveWriter saves the token right before the first header write.
type saveWriter struct {
	http.ResponseWriter
	save  func()
	saved bool
}

func (w *saveWriter) flush() {
	if w.saved {
		return
	}
	w.saved = true
	w.save()
}

func (w *saveWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *saveWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *saveWriter) Flush() {
	w.flush()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *saveWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
