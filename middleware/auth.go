package middleware

import (
	"net/http"
	"strings"

	"PPGateway/logger"

	"github.com/gin-gonic/gin"
)

// ControlTokenChecker is the slice of the gateway Authenticator the control
// plane needs; defined here so middleware stays import-cycle free.
type ControlTokenChecker interface {
	AuthenticateControlToken(token string) bool
}

// ControlAuth gates every control-plane route behind the shared secret.
// The request body is never read when the credential is wrong.
func ControlAuth(checker ControlTokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if !checker.AuthenticateControlToken(token) {
			logger.Warnf("[control] unauthorized attempt from %s path=%s", c.ClientIP(), c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Unauthorized",
			})
			return
		}
		c.Next()
	}
}
