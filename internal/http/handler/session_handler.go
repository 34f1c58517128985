package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/http/middleware"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

// SessionHandler serves identity verification, sessions and role selection.
type SessionHandler struct {
	Sessions *service.SessionService
	Tokens   *jwt.Manager
	Auth     *middleware.Auth
	Config   config.Config
}

func NewSessionHandler(sessions *service.SessionService, tokens *jwt.Manager, auth *middleware.Auth, cfg config.Config) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Tokens: tokens, Auth: auth, Config: cfg}
}

type sessionUser struct {
	ID            int64            `json:"id"`
	WalletAddress string           `json:"walletAddress"`
	UserType      *domain.UserType `json:"userType"`
	Verified      bool             `json:"verified"`
	Name          string           `json:"name"`
}

func newSessionUser(u domain.User) sessionUser {
	view := sessionUser{ID: u.ID, WalletAddress: u.WalletAddress, Verified: u.Verified, Name: u.Name}
	if u.HasRole() {
		role := u.UserType
		view.UserType = &role
	}
	return view
}

// CreateSession issues a token for a verified wallet.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Wallet address required")
		return
	}

	session, err := h.Sessions.CreateSession(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	sessionCookie(c, h.Config, session.Token, h.Tokens.TTL())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   session.Token,
		"user":    newSessionUser(session.User),
	})
}

// Me returns the caller's claims and stored user.
func (h *SessionHandler) Me(c *gin.Context) {
	claims := claimsOrNil(c)
	user, err := h.Sessions.Me(c.Request.Context(), claims)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"claims": claims,
			"user":   newSessionUser(user),
		},
	})
}

// Logout clears the session cookie.
func (h *SessionHandler) Logout(c *gin.Context) {
	clearSessionCookie(c, h.Config)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// UpdateUserType sets the caller's role and re-issues the session token.
func (h *SessionHandler) UpdateUserType(c *gin.Context) {
	var req struct {
		UserType string `json:"userType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid user type")
		return
	}

	session, err := h.Sessions.UpdateUserType(c.Request.Context(), h.Auth.Token(c), req.UserType)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	sessionCookie(c, h.Config, session.Token, h.Tokens.TTL())
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"userType": session.Claims.UserType,
		"message":  "User type updated successfully",
	})
}

// Verify is the identity verifier callback. Its response shape is fixed by
// the KYC client app.
func (h *SessionHandler) Verify(c *gin.Context) {
	var in service.IdentityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":     "error",
			"result":     false,
			"reason":     "Invalid request body",
			"error_code": "UNKNOWN_ERROR",
		})
		return
	}

	outcome, err := h.Sessions.VerifyIdentity(c.Request.Context(), in)
	if err != nil {
		h.respondVerifyError(c, err)
		return
	}

	sessionCookie(c, h.Config, outcome.Token, h.Tokens.TTL())
	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"result":            true,
		"credentialSubject": outcome.Credential,
		"userData": gin.H{
			"userId":   outcome.User.ID,
			"userType": outcome.Role,
			"verified": true,
		},
	})
}

func (h *SessionHandler) respondVerifyError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrIdentityRejected) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "error",
			"result":     false,
			"reason":     "Verification failed",
			"error_code": "VERIFICATION_FAILED",
		})
		return
	}

	status := http.StatusInternalServerError
	reason := "Internal server error"
	if svcErr, ok := service.AsError(err); ok {
		status = svcErr.Kind.HTTPStatus()
		reason = svcErr.Message
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("identity verification error", zap.Error(err))
	}
	c.JSON(status, gin.H{
		"status":     "error",
		"result":     false,
		"reason":     reason,
		"error_code": "UNKNOWN_ERROR",
	})
}
