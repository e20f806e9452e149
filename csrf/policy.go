package csrf

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Policy decides whether the token a client submitted matches the token on
// record. A missing submitted token never matches.
type Policy interface {
	Check(r *http.Request, original string) bool
}

// FormFieldPolicy reads the token from a route parameter named Field and,
// when there is none, from the form body field of the same name.
type FormFieldPolicy struct {
	Field string
}

var _ Policy = FormFieldPolicy{}

// NewFormFieldPolicy returns a FormFieldPolicy for field.
func NewFormFieldPolicy(field string) FormFieldPolicy {
	return FormFieldPolicy{Field: field}
}

// Check implements Policy.
func (p FormFieldPolicy) Check(r *http.Request, original string) bool {
	tok := routeParam(r, p.Field)
	if tok == "" {
		tok = r.PostFormValue(p.Field)
	}
	return compareTokens(tok, original)
}

// HeaderPolicy reads the token from the request header Header.
type HeaderPolicy struct {
	Header string
}

var _ Policy = HeaderPolicy{}

// NewHeaderPolicy returns a HeaderPolicy for header.
func NewHeaderPolicy(header string) HeaderPolicy {
	return HeaderPolicy{Header: header}
}

// Check implements Policy.
func (p HeaderPolicy) Check(r *http.Request, original string) bool {
	return compareTokens(r.Header.Get(p.Header), original)
}

// FormOrHeaderPolicy accepts a token from either the header or the form.
// The header is tried first so that clients sending it never have their
// body parsed.
type FormOrHeaderPolicy struct {
	Header HeaderPolicy
	Form   FormFieldPolicy
}

var _ Policy = FormOrHeaderPolicy{}

// NewFormOrHeaderPolicy returns a policy checking header, then field.
func NewFormOrHeaderPolicy(header, field string) FormOrHeaderPolicy {
	return FormOrHeaderPolicy{
		Header: NewHeaderPolicy(header),
		Form:   NewFormFieldPolicy(field),
	}
}

// Check implements Policy.
func (p FormOrHeaderPolicy) Check(r *http.Request, original string) bool {
	if p.Header.Check(r, original) {
		return true
	}
	return p.Form.Check(r, original)
}

// routeParam looks the name up in the stdlib mux path values, then in the
// chi route context.
func routeParam(r *http.Request, name string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}
	return chi.URLParam(r, name)
}

// compareTokens fails closed on an empty submitted token and otherwise
// compares in constant time.
func compareTokens(submitted, original string) bool {
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(original)) == 1
}
