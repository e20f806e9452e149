package csrf

import (
	"fmt"
	"net/http"
)

// Storage persists a CSRF token across the requests of one client session.
//
// Every call needs a request prepared with WithRequestState.
type Storage interface {
	// GenerateNewToken returns the token prepared for this request's
	// response, generating it on first use. Repeated calls within the same
	// request return the same value.
	GenerateNewToken(r *http.Request) (string, error)

	// Get returns the token currently on record, or "" when none was ever
	// saved. It also prepares the next token for the response.
	Get(r *http.Request) (string, error)

	// SaveToken writes the token back when this request issued a new one or
	// when none existed yet. An existing token is otherwise left untouched.
	SaveToken(w http.ResponseWriter, r *http.Request) error
}

// Backend is the medium-specific half of a Storage: where a token lives
// between requests.
type Backend interface {
	// Load returns the persisted token or "" when absent.
	Load(r *http.Request) (string, error)
	// Store persists token for the session of r.
	Store(w http.ResponseWriter, r *http.Request, token string) error
}

// StorageOption configures the token generator of a Store.
type StorageOption func(*storageOptions)

type storageOptions struct {
	generator    TokenGenerator
	generatorSet bool
	secret       []byte
}

// WithTokenGenerator makes the store use g instead of the default
// HashedTokenGenerator. A nil g is rejected at construction.
func WithTokenGenerator(g TokenGenerator) StorageOption {
	return func(o *storageOptions) {
		o.generator = g
		o.generatorSet = true
	}
}

// WithSecret supplies the key for the default HashedTokenGenerator.
func WithSecret(secret []byte) StorageOption {
	return func(o *storageOptions) {
		o.secret = secret
	}
}

// Store implements the token lifecycle shared by every backend.
type Store struct {
	generator TokenGenerator
	backend   Backend
}

var _ Storage = (*Store)(nil)

// NewStorage builds a Store around backend.
//
// Without WithTokenGenerator the store uses a HashedTokenGenerator keyed
// with the WithSecret value; if that is missing too, ErrMissingSecret is
// returned. A nil backend, or a session or redis backend built without its
// provider or client, yields ErrInvalidBackend.
func NewStorage(backend Backend, opts ...StorageOption) (*Store, error) {
	if backend == nil {
		return nil, ErrInvalidBackend
	}
	if v, ok := backend.(interface{ valid() bool }); ok && !v.valid() {
		return nil, ErrInvalidBackend
	}
	var o storageOptions
	for _, opt := range opts {
		opt(&o)
	}

	gen := o.generator
	switch {
	case o.generatorSet && gen == nil:
		return nil, ErrInvalidGenerator
	case !o.generatorSet:
		h, err := NewHashedTokenGenerator(o.secret)
		if err != nil {
			return nil, err
		}
		gen = h
	}

	return &Store{generator: gen, backend: backend}, nil
}

// Backend returns the persistence medium of s.
func (s *Store) Backend() Backend {
	return s.backend
}

// GenerateNewToken implements Storage.
func (s *Store) GenerateNewToken(r *http.Request) (string, error) {
	st, err := stateFromRequest(r)
	if err != nil {
		return "", err
	}
	tok, err := s.prepare(st)
	if err != nil {
		return "", err
	}
	st.issued = true
	return tok, nil
}

// Get implements Storage.
func (s *Store) Get(r *http.Request) (string, error) {
	st, err := stateFromRequest(r)
	if err != nil {
		return "", err
	}
	tok, err := s.backend.Load(r)
	if err != nil {
		return "", err
	}
	if _, err := s.prepare(st); err != nil {
		return "", err
	}
	return tok, nil
}

// SaveToken implements Storage.
func (s *Store) SaveToken(w http.ResponseWriter, r *http.Request) error {
	st, err := stateFromRequest(r)
	if err != nil {
		return err
	}
	old, err := s.backend.Load(r)
	if err != nil {
		return err
	}

	var tok string
	switch {
	case st.issued:
		tok = st.next
	case old == "":
		if tok, err = s.GenerateNewToken(r); err != nil {
			return err
		}
	default:
		return nil
	}
	return s.backend.Store(w, r, tok)
}

// prepare fills the scratch slot once per request.
func (s *Store) prepare(st *requestState) (string, error) {
	if st.next != "" {
		return st.next, nil
	}
	tok, err := s.generator.Generate()
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", fmt.Errorf("%w: generated an empty token", ErrInvalidGenerator)
	}
	st.next = tok
	return tok, nil
}
