package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/http/middleware"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

// respondServiceError maps service failures onto the {success:false, error}
// envelope. Anything that is not a *service.Error is an internal error.
func respondServiceError(c *gin.Context, err error) {
	if svcErr, ok := service.AsError(err); ok {
		status := svcErr.Kind.HTTPStatus()
		if status >= http.StatusInternalServerError {
			zap.L().Error("service error",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		c.JSON(status, gin.H{"success": false, "error": svcErr.Message})
		return
	}

	zap.L().Error("unexpected service error",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// claimsOrNil returns the session claims when the auth middleware ran.
func claimsOrNil(c *gin.Context) *jwt.Claims {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return nil
	}
	return claims
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sessionCookie writes the session token cookie readable by the web client.
func sessionCookie(c *gin.Context, cfg config.Config, token string, ttl time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: cfg.CookieHTTPOnly,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c *gin.Context, cfg config.Config) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: cfg.CookieHTTPOnly,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
