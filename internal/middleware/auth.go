package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anis2566/monorepo-new-sub002/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	StudentIDKey   = "student_id"
	StudentNameKey = "student_name"
)

// StudentAuth verifies the bearer token and stores the subject under StudentIDKey.
// A nil verifier means student authentication is not configured.
func StudentAuth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"message": "Student authentication is not configured",
				"code":    "AUTH_DISABLED",
			})
			return
		}

		identity, err := verifier.Verify(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, auth.ErrMissingToken) {
				message = "Authorization token required"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": message,
				"code":    "UNAUTHORIZED",
			})
			return
		}

		c.Set(StudentIDKey, identity.Subject)
		c.Set(StudentNameKey, identity.Name)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// StudentID returns the subject set by StudentAuth.
func StudentID(c *gin.Context) string {
	return c.GetString(StudentIDKey)
}
