// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "my_test_jwt_secret"

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(testSecret, time.Hour, nil)
	require.NoError(t, err)
	return p
}

func TestSignInAnonymously(t *testing.T) {
	p := newProvider(t)
	a, err := p.SignInAnonymously()
	require.NoError(t, err)
	b, err := p.SignInAnonymously()
	require.NoError(t, err)

	assert.True(t, a.Anonymous)
	assert.NotEqual(t, a.UserID, b.UserID)
	_, err = uuid.Parse(a.UserID)
	assert.NoError(t, err)

	claims, err := p.Verify(a.Token)
	require.NoError(t, err)
	assert.Equal(t, a.UserID, claims.Subject)
	assert.True(t, claims.Anonymous)
	assert.WithinDuration(t, time.Now().Add(time.Hour), a.ExpiresAt, time.Minute)
}

func TestSignInWithCustomToken(t *testing.T) {
	p := newProvider(t)
	custom, err := p.IssueCustomToken("writer-7", time.Minute)
	require.NoError(t, err)

	s, err := p.SignInWithCustomToken(custom)
	require.NoError(t, err)
	assert.Equal(t, "writer-7", s.UserID)
	assert.False(t, s.Anonymous)

	claims, err := p.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, "writer-7", claims.Subject)
}

func TestCustomTokenFallsBackToAnonymous(t *testing.T) {
	p := newProvider(t)
	other, err := NewProvider("another-secret", time.Hour, nil)
	require.NoError(t, err)
	foreign, err := other.IssueCustomToken("writer-7", time.Minute)
	require.NoError(t, err)

	for _, tok := range []string{"", "not.a.jwt", foreign} {
		s, err := p.SignInWithCustomToken(tok)
		require.NoError(t, err)
		assert.True(t, s.Anonymous, tok)
		assert.NotEqual(t, "writer-7", s.UserID)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	p := newProvider(t)
	custom, err := p.IssueCustomToken("writer-7", time.Minute)
	require.NoError(t, err)
	_, err = p.Verify(custom)
	assert.ErrorIs(t, err, ErrInvalidToken, "custom tokens are not sessions")

	s, err := p.SignInAnonymously()
	require.NoError(t, err)
	fallback, err := p.SignInWithCustomToken(s.Token)
	require.NoError(t, err)
	assert.NotEqual(t, s.UserID, fallback.UserID, "sessions are not custom tokens")
}

func TestExpiredToken(t *testing.T) {
	p := newProvider(t)
	s, err := p.SignInAnonymously()
	require.NoError(t, err)
	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = p.Verify(s.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEphemeralSecret(t *testing.T) {
	a, err := NewProvider("", 0, nil)
	require.NoError(t, err)
	b, err := NewProvider("", 0, nil)
	require.NoError(t, err)
	s, err := a.SignInAnonymously()
	require.NoError(t, err)
	_, err = b.Verify(s.Token)
	assert.Error(t, err)
	assert.Equal(t, DefaultTTL, a.ttl)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := newProvider(t)
	s, err := p.SignInAnonymously()
	require.NoError(t, err)

	r := gin.New()
	r.Use(Middleware(p))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })

	tests := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"invalid", "Bearer not.a.valid.jwt", "", http.StatusUnauthorized},
		{"bearer", "Bearer " + s.Token, "", http.StatusOK},
		{"query", "", s.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/me"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, s.UserID, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error":{"message":`)
			}
		})
	}
}
