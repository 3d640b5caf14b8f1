package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/reelkeeper/internal/common"
	"github.com/gin-gonic/gin"
)

const (
	msgBadLogin        = "Incorrect username or password"
	msgBadCredentials  = "Could not validate credentials"
	msgAccountDisabled = "Account Disabled"
	msgInternal        = "Internal server error"
	msgMissingFields   = "username and password are required"
)

// loginRequest accepts both the OAuth2 password form and a JSON body.
type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) tokenHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": msgMissingFields})
		return
	}

	token, err := s.authn.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", common.BearerScheme)
			c.JSON(http.StatusUnauthorized, gin.H{"detail": msgBadLogin})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": msgInternal})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: common.TokenType})
}

func (s *Server) logoutHandler(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		abortUnauthorized(c, msgBadCredentials)
		return
	}

	if err := s.verifier.Logout(c.Request.Context(), session); err != nil {
		s.logger.Error(c.Request.Context(), "logout failed", "username", session.Account.Username, "error", err)
		abortInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (s *Server) logoutAllHandler(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		abortUnauthorized(c, msgBadCredentials)
		return
	}

	if err := s.verifier.LogoutAll(c.Request.Context(), session); err != nil {
		s.logger.Error(c.Request.Context(), "logout all failed", "username", session.Account.Username, "error", err)
		abortInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out from all sessions"})
}
