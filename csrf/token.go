package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/google/uuid"
)

const defaultTokenBytes = 32

// TokenGenerator produces new CSRF token values.
//
// Implementations must be safe for concurrent use and must not touch any
// persisted state: calling Generate has no effect other than consuming entropy.
type TokenGenerator interface {
	Generate() (string, error)
}

// HashedTokenGenerator derives tokens as HMAC-SHA256(secret, nonce) where the
// nonce is a fresh random UUID. Knowing the secret is not enough to predict a
// token without the nonce, and the secret never leaves the process.
type HashedTokenGenerator struct {
	secret []byte
}

var _ TokenGenerator = (*HashedTokenGenerator)(nil)

// NewHashedTokenGenerator returns a keyed generator.
// It fails with ErrMissingSecret when secret is empty.
func NewHashedTokenGenerator(secret []byte) (*HashedTokenGenerator, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &HashedTokenGenerator{secret: s}, nil
}

// Generate returns a 64 character hex token.
func (g *HashedTokenGenerator) Generate() (string, error) {
	nonce, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, g.secret)
	_, _ = mac.Write(nonce[:])
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// String keeps the secret out of fmt output.
func (g *HashedTokenGenerator) String() string {
	return "HashedTokenGenerator"
}

// SimpleTokenGenerator produces unkeyed tokens straight from crypto/rand.
type SimpleTokenGenerator struct {
	n int
}

var _ TokenGenerator = SimpleTokenGenerator{}

// NewSimpleTokenGenerator returns a generator emitting n random bytes per
// token. Values below 16 fall back to 32.
func NewSimpleTokenGenerator(n int) SimpleTokenGenerator {
	if n < 16 {
		n = defaultTokenBytes
	}
	return SimpleTokenGenerator{n: n}
}

// Generate returns a url-safe base64 token without padding.
func (g SimpleTokenGenerator) Generate() (string, error) {
	n := g.n
	if n == 0 {
		n = defaultTokenBytes
	}
	return newToken(n)
}

// newToken returns n random bytes as url-safe base64
func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
