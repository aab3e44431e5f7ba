package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"user-directory-server/internal/auth"
	"user-directory-server/internal/utils"
)

const callerIDKey = "user_id"

// Authenticator turns an Authorization header into the caller's user id.
type Authenticator interface {
	Authenticate(header string) (int64, error)
}

// JWTAuth rejects requests without a valid bearer token. A missing token is
// a 403; an expired or otherwise invalid one is a 401.
func JWTAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authn.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			utils.RespondError(c, tokenError(err))
			c.Abort()
			return
		}

		c.Set(callerIDKey, userID)
		c.Next()
	}
}

// CallerID returns the authenticated user id set by JWTAuth.
func CallerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(callerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func tokenError(err error) *utils.AppError {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return utils.NewForbiddenError("access token is required")
	case errors.Is(err, auth.ErrTokenExpired):
		return utils.NewUnauthorizedError("token has expired")
	default:
		return utils.NewUnauthorizedError("invalid token")
	}
}
