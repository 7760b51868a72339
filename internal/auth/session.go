package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/chacha20poly1305"

	"sheetshare.org/internal/ids"
)

const (
	sessionIssuer = "sheetshare"

	// MinSecretLength is the shortest accepted session secret.
	MinSecretLength = 32
)

// Session is the server-trusted state carried by the session cookie.
type Session struct {
	LoggedIn    bool
	UserID      string
	FacilityID  string
	LoginID     string
	GoogleEmail string
	Role        Role
	ExpiresAt   time.Time
}

// Actor converts the session into the actor used by authorization checks.
func (s Session) Actor() (Actor, error) {
	if !s.LoggedIn {
		return nil, ErrUnauthenticated
	}
	return NewActor(Principal{
		UserID:      s.UserID,
		LoginID:     s.LoginID,
		GoogleEmail: s.GoogleEmail,
	}, s.Role, s.FacilityID)
}

type sessionClaims struct {
	FacilityID  string `json:"fid"`
	Role        string `json:"role"`
	LoginID     string `json:"login"`
	GoogleEmail string `json:"gmail,omitempty"`
	jwt.RegisteredClaims
}

// SessionCodec signs session claims as an HS256 JWT and seals the token with
// XChaCha20-Poly1305, so the cookie is both tamper-proof and opaque.
type SessionCodec struct {
	signKey []byte
	aead    cipher.AEAD
	ttl     time.Duration
	now     func() time.Time
}

// SessionOption configures a SessionCodec.
type SessionOption func(*SessionCodec)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(c *SessionCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewSessionCodec derives signing and sealing keys from secret.
func NewSessionCodec(secret string, ttl time.Duration, opts ...SessionOption) (*SessionCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be greater than zero")
	}
	signKey := sha256.Sum256([]byte("sign:" + secret))
	sealKey := sha256.Sum256([]byte("seal:" + secret))
	aead, err := chacha20poly1305.NewX(sealKey[:])
	if err != nil {
		return nil, fmt.Errorf("init session cipher: %w", err)
	}
	c := &SessionCodec{
		signKey: signKey[:],
		aead:    aead,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL is the lifetime of newly encoded sessions.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// Encode returns the cookie value for s and its expiry.
func (c *SessionCodec) Encode(s Session) (string, time.Time, error) {
	if strings.TrimSpace(s.UserID) == "" {
		return "", time.Time{}, errors.New("session user id is required")
	}
	if !s.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("session role %q is invalid", s.Role)
	}
	now := c.now()
	expires := now.Add(c.ttl)
	claims := sessionClaims{
		FacilityID:  s.FacilityID,
		Role:        string(s.Role),
		LoginID:     s.LoginID,
		GoogleEmail: s.GoogleEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(signed)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}, fmt.Errorf("session nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(signed), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), expires, nil
}

// Decode opens and validates a cookie value. Every failure is ErrUnauthenticated.
func (c *SessionCodec) Decode(value string) (Session, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Session{}, ErrUnauthenticated
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return Session{}, ErrUnauthenticated
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	token, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(string(token), &claims, func(t *jwt.Token) (any, error) {
		return c.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, ErrUnauthenticated
	}
	role, err := ParseRole(claims.Role)
	if err != nil || strings.TrimSpace(claims.Subject) == "" {
		return Session{}, ErrUnauthenticated
	}
	return Session{
		LoggedIn:    true,
		UserID:      claims.Subject,
		FacilityID:  claims.FacilityID,
		LoginID:     claims.LoginID,
		GoogleEmail: claims.GoogleEmail,
		Role:        role,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
