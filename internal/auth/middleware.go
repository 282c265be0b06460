// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userKey = "userId"

// Middleware rejects requests without a valid session token. The token is
// read from the Authorization bearer header, or from the token query
// parameter for websocket upgrades that cannot set headers.
func Middleware(p *Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if h := c.GetHeader("Authorization"); h != "" {
			if !strings.HasPrefix(h, "Bearer ") {
				abort(c, "Missing or invalid Authorization header")
				return
			}
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		}
		if tokenStr == "" {
			abort(c, "Missing or invalid Authorization header")
			return
		}
		claims, err := p.Verify(tokenStr)
		if err != nil {
			abort(c, "Invalid or expired token")
			return
		}
		c.Set(userKey, claims.Subject)
		c.Next()
	}
}

// UserID returns the user id the middleware attached to c.
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": msg}})
}
