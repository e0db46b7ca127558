package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/pdfchat/types"
	"github.com/tieubaoca/pdfchat/utils"
)

const sessionClaimsKey = "session_claims"

// SessionAuth requires a bearer token bound to the session in the route.
// The session is taken from the :id path parameter or the session_id query
// parameter; websocket clients may pass the token as ?token=. With no
// secret configured every request passes.
func SessionAuth(issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !issuer.Enabled() {
			c.Next()
			return
		}

		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				abort(c, "Authorization header format must be Bearer {token}")
				return
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			abort(c, "Authorization header is required")
			return
		}

		claims, err := issuer.ParseSessionToken(tokenString)
		if err != nil {
			abort(c, "Invalid session token")
			return
		}

		sessionID := c.Param("id")
		if sessionID == "" {
			sessionID = c.Query("session_id")
		}
		if claims.SessionID != sessionID {
			abort(c, "Token does not belong to this session")
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
		Status:  false,
		Message: types.ErrUnauthorized.Error() + ": " + message,
	})
}
