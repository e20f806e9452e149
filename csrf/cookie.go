package csrf

import "net/http"

// CookieOptions holds the name and attributes of the token cookie.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   int // in seconds
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// CookieBackend keeps the token in a cookie on the client.
type CookieBackend struct {
	opts CookieOptions
}

var _ Backend = (*CookieBackend)(nil)

// NewCookieBackend returns a cookie backend. An empty name falls back to
// "csrf_token" and an empty path to "/".
func NewCookieBackend(opts CookieOptions) *CookieBackend {
	if opts.Name == "" {
		opts.Name = "csrf_token"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieBackend{opts: opts}
}

// NewCookieStorage returns a Store persisting tokens in a cookie.
func NewCookieStorage(cookie CookieOptions, opts ...StorageOption) (*Store, error) {
	return NewStorage(NewCookieBackend(cookie), opts...)
}

// Name returns the cookie name.
func (b *CookieBackend) Name() string {
	return b.opts.Name
}

// Load implements Backend.
func (b *CookieBackend) Load(r *http.Request) (string, error) {
	c, err := r.Cookie(b.opts.Name)
	if err != nil {
		return "", nil
	}
	return c.Value, nil
}

// Store implements Backend.
func (b *CookieBackend) Store(w http.ResponseWriter, _ *http.Request, token string) error {
	http.SetCookie(w, &http.Cookie{
		Name:     b.opts.Name,
		Value:    token,
		Path:     b.opts.Path,
		Domain:   b.opts.Domain,
		MaxAge:   b.opts.MaxAge,
		Secure:   b.opts.Secure,
		HttpOnly: b.opts.HTTPOnly,
		SameSite: b.opts.SameSite,
	})
	return nil
}
