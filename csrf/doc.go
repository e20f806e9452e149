// Package csrf provides CSRF protection for Go net/http servers built from
// three parts: a TokenGenerator, a Storage and a Policy.
//
// How it works
//   - A TokenGenerator produces unguessable tokens. HashedTokenGenerator
//     derives them with HMAC-SHA256 from a secret key and a random nonce;
//     SimpleTokenGenerator reads them straight from crypto/rand.
//   - A Storage keeps the token of a client session between requests. The
//     lifecycle is shared by every backend: at most one new token is
//     generated per request, and a token on record is only replaced when the
//     request explicitly issued a new one. Backends: CookieBackend,
//     SessionBackend (any SessionProvider, MemorySessions included) and
//     RedisBackend.
//   - A Policy compares the token the client submitted with the one on
//     record in constant time: HeaderPolicy, FormFieldPolicy (route
//     parameter, then form body) or FormOrHeaderPolicy (header first, form
//     only when the header does not match).
//
// # Middleware
//
// Protector glues the three together. Safe methods (GET, HEAD, OPTIONS,
// TRACE) pass through; any other method must carry a matching token. The
// token is saved right before the response headers are written.
//
// # Configuration
//
// Config can be filled by hand or from CSRF_* environment variables with
// ConfigFromEnv. Key fields include:
//   - CookieName, CookiePath, CookieDomain, CookieSecure, CookieHTTPOnly,
//     CookieSameSite, CookieMaxAge
//   - HeaderName (default: "X-CSRF-Token")
//   - FormField (default: "csrf_token")
//   - EnforceOriginCheck and AllowedOrigin (empty means use the request host)
//   - Secret (enables HMAC-derived tokens) and TokenBytes (default: 32)
//
// Typical usage
//
//	p, err := csrf.New(csrf.Config{Secret: os.Getenv("CSRF_SECRET")})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", p.Protect(appMux))
//
// In handlers, read the token for rendering or APIs:
//
//	tok, err := csrf.Token(r)
//
// Tokens stored in redis are keyed by a session identifier:
//
//	store, err := csrf.NewRedisStorage(rdb, "csrf", csrf.WithSecret(secret))
//	p, err := csrf.New(cfg, csrf.WithStorage(store))
//	handler := csrf.SessionID(csrf.SessionIDOptions{})(p.Protect(appMux))
package csrf
