package csrf

import (
	"fmt"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Session is a mutable view of the data of one client session.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// SessionProvider resolves the session of a request. It is supplied by the
// application's session layer.
type SessionProvider interface {
	Session(r *http.Request) (Session, error)
}

// SessionProviderFunc adapts a function to SessionProvider.
type SessionProviderFunc func(r *http.Request) (Session, error)

func (f SessionProviderFunc) Session(r *http.Request) (Session, error) {
	return f(r)
}

// SessionBackend keeps the token under a key of the client session.
type SessionBackend struct {
	sessions SessionProvider
	key      string
}

var _ Backend = (*SessionBackend)(nil)

// NewSessionBackend returns a backend storing the token under key.
func NewSessionBackend(sessions SessionProvider, key string) *SessionBackend {
	if key == "" {
		key = "csrf_token"
	}
	return &SessionBackend{sessions: sessions, key: key}
}

// NewSessionStorage returns a Store persisting tokens in the client session.
func NewSessionStorage(sessions SessionProvider, key string, opts ...StorageOption) (*Store, error) {
	return NewStorage(NewSessionBackend(sessions, key), opts...)
}

func (b *SessionBackend) valid() bool { return b.sessions != nil }

// Load implements Backend.
func (b *SessionBackend) Load(r *http.Request) (string, error) {
	sess, err := b.sessions.Session(r)
	if err != nil {
		return "", backendError("load session", err)
	}
	tok, _ := sess.Get(b.key)
	return tok, nil
}

// Store implements Backend.
func (b *SessionBackend) Store(_ http.ResponseWriter, r *http.Request, token string) error {
	sess, err := b.sessions.Session(r)
	if err != nil {
		return backendError("load session", err)
	}
	sess.Set(b.key, token)
	return nil
}

// MemorySessions is an in-process SessionProvider keyed by the identifier
// from SessionIDFromContext. The least recently used sessions are dropped
// once size is exceeded.
type MemorySessions struct {
	cache *lru.Cache[string, *memorySession]
}

var _ SessionProvider = (*MemorySessions)(nil)

// NewMemorySessions returns a provider holding at most size sessions.
func NewMemorySessions(size int) (*MemorySessions, error) {
	c, err := lru.New[string, *memorySession](size)
	if err != nil {
		return nil, fmt.Errorf("csrf: memory sessions: %w", err)
	}
	return &MemorySessions{cache: c}, nil
}

// Session implements SessionProvider. Unknown identifiers get an empty session.
func (m *MemorySessions) Session(r *http.Request) (Session, error) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok {
		return nil, ErrNoSession
	}
	if s, ok := m.cache.Get(id); ok {
		return s, nil
	}
	s := &memorySession{values: make(map[string]string)}
	if prev, ok, _ := m.cache.PeekOrAdd(id, s); ok {
		return prev, nil
	}
	return s, nil
}

// Len reports the number of live sessions.
func (m *MemorySessions) Len() int {
	return m.cache.Len()
}

type memorySession struct {
	mu     sync.RWMutex
	values map[string]string
}

func (s *memorySession) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *memorySession) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}
