package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/roastme/internal/auth"
	"github.com/edgard/roastme/internal/database"
)

const userKey = "user"

// RequireAuth rejects requests without a valid bearer token for an existing
// user and stores the user in the gin context.
func RequireAuth(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("middleware", "RequireAuth")

	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			fail(c, http.StatusUnauthorized, "No token, authorization denied")
			c.Abort()
			return
		}

		claims, err := deps.Tokens.Verify(token)
		if err != nil {
			log.DebugContext(c.Request.Context(), "Rejected token", "error", err)
			fail(c, http.StatusUnauthorized, "Token is not valid")
			c.Abort()
			return
		}

		user, err := deps.Store.GetUserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Failed to load user", "error", err)
			fail(c, http.StatusInternalServerError, "Server error")
			c.Abort()
			return
		}
		if user == nil {
			fail(c, http.StatusUnauthorized, "Token is not valid")
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// currentUser returns the user stored by RequireAuth.
func currentUser(c *gin.Context) *database.User {
	u, _ := c.MustGet(userKey).(*database.User)
	return u
}
