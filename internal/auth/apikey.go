package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// producerCtxKey is the Gin context key holding the authenticated producer.
const producerCtxKey = "producer"

// APIKeyMiddleware authenticates producers and the dashboard by mapping
// X-API-Key to a producer name. In production this mapping would typically
// come from IAM/JWT/Secret Manager.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		producer, ok := lookupKey(keys, apiKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(producerCtxKey, producer)
		c.Next()
	}
}

// lookupKey scans the whole key set with a constant-time compare per entry,
// so a miss costs the same regardless of how close the candidate came.
func lookupKey(keys map[string]string, candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	producer := ""
	found := false
	for key, name := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			producer = name
			found = true
		}
	}
	return producer, found
}

// Producer returns the authenticated producer name from the request context.
func Producer(c *gin.Context) string {
	v, _ := c.Get(producerCtxKey)
	s, _ := v.(string)
	return s
}
