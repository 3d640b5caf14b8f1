package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/dmitrijs2005/reelkeeper/internal/server/authn"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// bearerAuth verifies the Authorization header and stores the session in
// the gin context. Disabled accounts are refused after verification.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if !ok {
			abortUnauthorized(c, msgBadCredentials)
			return
		}

		session, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
				abortUnauthorized(c, msgBadCredentials)
			default:
				abortInternal(c)
			}
			return
		}

		if err := session.Authorize(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": msgAccountDisabled})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func sessionFromContext(c *gin.Context) (*authn.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*authn.Session)
	return session, ok
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", common.BearerScheme)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": msgInternal})
}
