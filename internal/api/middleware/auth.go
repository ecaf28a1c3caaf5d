package middleware

import (
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/response"
	"ctchen222/Tic-Tac-Toe-Minimax/internal/api/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// PlayerIDKey is the gin context key holding the authenticated player ID.
const PlayerIDKey = "playerID"

// TokenParser verifies a token and returns its claims.
type TokenParser interface {
	ParseToken(tokenString string) (*service.Claims, error)
}

// AuthRequired accepts a bearer token from the Authorization header.
func AuthRequired(parser TokenParser) gin.HandlerFunc {
	return authenticate(parser, false)
}

// WebSocketAuth also accepts the token as a "token" query parameter, since
// browsers cannot set headers on websocket handshakes.
func WebSocketAuth(parser TokenParser) gin.HandlerFunc {
	return authenticate(parser, true)
}

func authenticate(parser TokenParser, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && allowQuery {
			token = c.Query("token")
		}
		if token == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			response.AbortWithError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(PlayerIDKey, claims.Subject)
		c.Next()
	}
}

// PlayerID returns the authenticated player ID.
func PlayerID(c *gin.Context) string {
	return c.GetString(PlayerIDKey)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
