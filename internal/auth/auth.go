// Package auth implements the dashboard's single trust boundary: a shared
// access code checked in constant time, backed by in-memory session tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

const SessionCookie = "salud_session"

// Gate compares submitted access codes against the configured shared secret.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

func (g *Gate) Check(code string) bool {
	return subtle.ConstantTimeCompare(g.secret, []byte(code)) == 1
}

type session struct {
	expiresAt time.Time
}

// Sessions is an in-memory token store. Tokens are opaque random values; a
// missing or expired token simply fails validation.
type Sessions struct {
	mu     sync.RWMutex
	ttl    time.Duration
	tokens map[string]session
	now    func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:    ttl,
		tokens: make(map[string]session),
		now:    time.Now,
	}
}

// Create mints a new session token.
func (s *Sessions) Create() string {
	token := generateToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = session{expiresAt: s.now().Add(s.ttl)}
	return token
}

// Valid reports whether the token names a live session, pruning it when
// expired.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	sess, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	if s.now().After(sess.expiresAt) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return false
	}

	return true
}

// Revoke removes a session token.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
