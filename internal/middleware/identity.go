package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/pkg/errors"
	"github.com/servimatch/servimatch/pkg/response"
)

// CtxUserIDKey holds the caller's user ID in the gin context.
const CtxUserIDKey = "userID"

// HeaderUserID carries the caller identity established by the edge gateway.
// The gateway terminates authentication; this service trusts the header.
const HeaderUserID = "X-User-ID"

// Identity propagates the gateway-established user ID into the request
// context when present.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
			c.Set(CtxUserIDKey, userID)
		}
		c.Next()
	}
}

// RequireIdentity rejects requests that arrived without a caller identity.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserIDKey); !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the caller identity stored by Identity.
func UserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(CtxUserIDKey)
	if !ok {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}
