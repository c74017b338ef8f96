package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authentication lives in the API gateway; by the time a request reaches
// this service the gateway has validated the caller and forwarded the
// identity in headers.
const (
	HeaderUserID  = "X-User-ID"
	HeaderAdminID = "X-Admin-ID"

	contextUserID  = "user_id"
	contextAdminID = "admin_id"
)

// RequireUser rejects requests without a forwarded user identity
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
			c.Abort()
			return
		}
		c.Set(contextUserID, userID)
		c.Next()
	}
}

// RequireAdmin rejects requests without a forwarded operator identity
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetHeader(HeaderAdminID)
		if adminID == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operator access required"})
			c.Abort()
			return
		}
		c.Set(contextAdminID, adminID)
		c.Next()
	}
}

// GetUserID returns the authenticated user id from the request context
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(contextUserID)
	return id, id != ""
}

// GetAdminID returns the authenticated operator id from the request context
func GetAdminID(c *gin.Context) (string, bool) {
	id := c.GetString(contextAdminID)
	return id, id != ""
}
