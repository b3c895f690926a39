package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"commerce-backend/services"
	"commerce-backend/utils"
)

// AuthMiddleware validates the Bearer token and stores the requester on the
// context for handlers.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "), jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("requester", services.Requester{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// StaffOnly rejects callers without an elevated role. Must run after
// AuthMiddleware.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester := GetRequester(c)
		if !requester.Staff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff role required"})
			return
		}
		c.Next()
	}
}

func GetRequester(c *gin.Context) services.Requester {
	if v, ok := c.Get("requester"); ok {
		if r, ok := v.(services.Requester); ok {
			return r
		}
	}
	return services.Requester{}
}
