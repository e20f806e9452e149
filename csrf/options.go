package csrf

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

type Config struct {
	// Cookie
	CookieName     string        `env:"COOKIE_NAME"`
	CookiePath     string        `env:"COOKIE_PATH"`
	CookieDomain   string        `env:"COOKIE_DOMAIN"`
	CookieSecure   bool          `env:"COOKIE_SECURE"`
	CookieHTTPOnly bool          `env:"COOKIE_HTTP_ONLY"`
	CookieSameSite http.SameSite `env:"COOKIE_SAMESITE"` // lax, strict, none
	CookieMaxAge   int           `env:"COOKIE_MAX_AGE"`  // in seconds

	// Token transport
	HeaderName string `env:"HEADER_NAME"` // e.g.: "X-CSRF-Token"
	FormField  string `env:"FORM_FIELD"`  // e.g.: "csrf_token"

	// Extra security
	EnforceOriginCheck bool   `env:"ENFORCE_ORIGIN_CHECK"`
	AllowedOrigin      string `env:"ALLOWED_ORIGIN"` // if empty, uses r.Host

	// Entropy. With a Secret tokens are HMAC-derived, otherwise TokenBytes
	// random bytes.
	Secret     string `env:"SECRET"`
	TokenBytes int    `env:"TOKEN_BYTES"`
}

// String hides the secret.
func (c Config) String() string {
	if c.Secret != "" {
		c.Secret = "[redacted]"
	}
	type plain Config
	return fmt.Sprintf("%+v", plain(c))
}

// ConfigFromEnv reads a Config from CSRF_* environment variables,
// e.g. CSRF_COOKIE_NAME or CSRF_SECRET.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: "CSRF_",
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(http.SameSite(0)): parseSameSite,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("csrf: parse config: %w", err)
	}
	return cfg, nil
}

func parseSameSite(v string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "default":
		return http.SameSiteDefaultMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return nil, fmt.Errorf("unknown SameSite mode %q", v)
}

type Protector struct {
	cfg          Config
	storage      Storage
	policy       Policy
	logger       *zap.Logger
	errorHandler http.Handler
	skip         func(*http.Request) bool
}

// Option customizes a Protector beyond what Config covers.
type Option func(*Protector)

// WithStorage replaces the default cookie storage.
func WithStorage(s Storage) Option {
	return func(p *Protector) { p.storage = s }
}

// WithPolicy replaces the default header-or-form policy.
func WithPolicy(pol Policy) Option {
	return func(p *Protector) { p.policy = pol }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Protector) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithErrorHandler sets the handler serving rejected requests.
// FailureReason tells it why the request was rejected.
func WithErrorHandler(h http.Handler) Option {
	return func(p *Protector) { p.errorHandler = h }
}

// WithSkipper makes Protect skip verification for requests fn reports true for.
func WithSkipper(fn func(*http.Request) bool) Option {
	return func(p *Protector) { p.skip = fn }
}

func New(cfg Config, opts ...Option) (*Protector, error) {
	// reasonable defaults
	if cfg.CookieName == "" {
		cfg.CookieName = "csrf_token"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-CSRF-Token"
	}
	if cfg.FormField == "" {
		cfg.FormField = "csrf_token"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = defaultTokenBytes
	}
	// modern web security: SameSite=Lax is a good baseline
	if cfg.CookieSameSite == 0 {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	p := &Protector{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}

	if p.storage == nil {
		gen := WithTokenGenerator(NewSimpleTokenGenerator(cfg.TokenBytes))
		if cfg.Secret != "" {
			gen = WithSecret([]byte(cfg.Secret))
		}
		s, err := NewCookieStorage(CookieOptions{
			Name:     cfg.CookieName,
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
			MaxAge:   cfg.CookieMaxAge,
			Secure:   cfg.CookieSecure,
			HTTPOnly: cfg.CookieHTTPOnly,
			SameSite: cfg.CookieSameSite,
		}, gen)
		if err != nil {
			return nil, err
		}
		p.storage = s
	}
	if p.policy == nil {
		p.policy = NewFormOrHeaderPolicy(cfg.HeaderName, cfg.FormField)
	}
	if p.errorHandler == nil {
		p.errorHandler = http.HandlerFunc(defaultErrorHandler)
	}
	return p, nil
}

// Storage returns the storage in use.
func (p *Protector) Storage() Storage {
	return p.storage
}
