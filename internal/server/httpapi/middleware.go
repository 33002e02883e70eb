package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/server/auth"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "userID"
	ctxUsername = "username"
)

// AuthMiddleware accepts requests carrying a valid "Authorization: Bearer"
// access token and stores the user id in the context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			ApiErrorf(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		Client:         c.GetHeader(common.ClientHeaderName),
	}
}
