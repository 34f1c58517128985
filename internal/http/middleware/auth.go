package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

const sessionClaimsKey = "sessionClaims"

type claimsContextKey struct{}

// Auth validates the session token and attaches its claims.
type Auth struct {
	Sessions   *service.SessionService
	CookieName string
}

// ValidateJWT requires a valid session token from the Authorization header
// or, failing that, the session cookie.
func (m *Auth) ValidateJWT(c *gin.Context) {
	raw := m.Token(c)
	if raw == "" {
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
		return
	}
	claims, err := m.Sessions.Authenticate(raw)
	if err != nil {
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid authentication token"})
		return
	}

	c.Set(sessionClaimsKey, &claims)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), claimsContextKey{}, &claims))
	c.Next()
}

// Token returns the bearer token, or the session cookie when no header is sent.
func (m *Auth) Token(c *gin.Context) string {
	if token := BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if m.CookieName == "" {
		return ""
	}
	cookie, err := c.Cookie(m.CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie)
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetClaims exposes the session claims to handlers.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	value, ok := c.Get(sessionClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*jwt.Claims)
	return claims, ok
}

// ClaimsFromContext returns the session claims stored on a request context.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}
