package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// extractToken pulls the management key from the Authorization header
// (Bearer scheme) or the x-api-key header.
func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(c.GetHeader("x-api-key"))
}

// managementAuth guards the status routes. A bcrypt hash takes precedence
// over the plain key; with neither configured the routes are open.
func managementAuth(key, keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" && keyHash == "" {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing management key"})
			return
		}

		if keyHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(token)); err != nil {
				log.WithField("remote", c.ClientIP()).Warn("management key mismatch")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
				return
			}
			c.Next()
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			log.WithField("remote", c.ClientIP()).Warn("management key mismatch")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}
