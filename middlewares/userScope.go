package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/heytrack/purchasing_backend/utils"
)

// UserScope resolves the owning user from the X-User-Id header (set by the
// gateway after authentication) and stashes it in the request context, where
// the database guard plugin and the workflow read it. Requests without an
// owner are rejected before any handler runs.
func UserScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetHeader("X-User-Id")
		if userId == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-User-Id header wajib diisi"})
			return
		}

		ctx := utils.SetUserIdInContext(c.Request.Context(), userId)
		if userName := c.GetHeader("X-User-Name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}

		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
