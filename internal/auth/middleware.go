package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderName carries the shared secret on every authenticated request.
const HeaderName = "X-API-Key"

// APIKeyMiddleware rejects requests whose X-API-Key header does not match
// the configured secret. The comparison is constant time so the key cannot
// be probed byte by byte.
func APIKeyMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)

	return func(c *gin.Context) {
		if secret == "" {
			forbidden(c, "server API key is not configured")
			return
		}

		provided := c.GetHeader(HeaderName)
		if provided == "" {
			forbidden(c, "missing API key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			forbidden(c, "invalid API key")
			return
		}

		c.Next()
	}
}

func forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
}
