package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	userIDKey           = "userId"
)

// userIdMiddleware authenticates the request from its bearer token and
// stores the caller's user id in the request context.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader(authorizationHeader)
	if header == "" {
		abortUnauthorized(c, "authorization header required")
		return
	}

	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || token == "" {
		abortUnauthorized(c, "bearer token expected")
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		abortUnauthorized(c, "invalid or expired token")
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
