// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth signs writers in and issues the session tokens the HTTP API
// accepts. A user id is an opaque string; anonymous users get a fresh uuid.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	issuer          = "goalwriter"
	audienceSession = "session"
	audienceCustom  = "custom"

	// DefaultTTL is the session token lifetime when none is configured.
	DefaultTTL = 24 * time.Hour
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are carried by both session and custom sign-in tokens. The user id
// is the registered subject.
type Claims struct {
	Anonymous bool `json:"anon,omitempty"`
	jwt.RegisteredClaims
}

// Session is the outcome of a sign-in.
type Session struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	Anonymous bool      `json:"anonymous"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Provider mints and verifies HS256 tokens with one secret.
type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewProvider returns a provider signing with secret. An empty secret is
// replaced by a random per-process key, so tokens do not survive a restart.
func NewProvider(secret string, ttl time.Duration, log *zap.Logger) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
		log.Warn("no JWT secret configured; using an ephemeral key")
	}
	return &Provider{secret: key, ttl: ttl, now: time.Now, log: log}, nil
}

// SignInAnonymously mints a new user id and a session for it.
func (p *Provider) SignInAnonymously() (Session, error) {
	return p.issue(uuid.NewString(), true)
}

// SignInWithCustomToken verifies a custom token and starts a session for its
// subject. A token that fails verification falls back to an anonymous
// sign-in; the returned session then has Anonymous set.
func (p *Provider) SignInWithCustomToken(token string) (Session, error) {
	claims, err := p.parse(token, audienceCustom)
	if err != nil {
		p.log.Warn("custom token sign-in failed, signing in anonymously", zap.Error(err))
		return p.SignInAnonymously()
	}
	return p.issue(claims.Subject, false)
}

// IssueCustomToken mints a custom sign-in token for userID. It is how an
// operator hands a writer a stable identity.
func (p *Provider) IssueCustomToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	return p.sign(userID, audienceCustom, false, ttl)
}

// Verify checks a session token and returns its claims.
func (p *Provider) Verify(token string) (*Claims, error) {
	return p.parse(token, audienceSession)
}

func (p *Provider) issue(userID string, anonymous bool) (Session, error) {
	token, err := p.sign(userID, audienceSession, anonymous, p.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:    userID,
		Token:     token,
		Anonymous: anonymous,
		ExpiresAt: p.now().UTC().Add(p.ttl).Truncate(time.Second),
	}, nil
}

func (p *Provider) sign(userID, audience string, anonymous bool, ttl time.Duration) (string, error) {
	now := p.now().UTC()
	claims := Claims{
		Anonymous: anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (p *Provider) parse(tokenStr, audience string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
