package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/ChetanXpro/yesbroker/internal/domain"
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature, wrong algorithm and expiry.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the session payload carried in the yesbroker token.
type Claims struct {
	UserID        int64           `json:"userId"`
	WalletAddress string          `json:"walletAddress"`
	UserType      domain.UserType `json:"userType,omitempty"`
	Verified      bool            `json:"verified"`
	Name          string          `json:"name"`
	IsNewUser     bool            `json:"isNewUser,omitempty"`
	// UpdatedAt is stamped (unix millis) when the role changes.
	UpdatedAt int64 `json:"updatedAt,omitempty"`

	IssuedAt *josejwt.NumericDate `json:"iat,omitempty"`
	Expiry   *josejwt.NumericDate `json:"exp,omitempty"`
}

// ClaimsFromUser builds session claims for a stored user.
func ClaimsFromUser(u domain.User) Claims {
	return Claims{
		UserID:        u.ID,
		WalletAddress: u.WalletAddress,
		UserType:      u.UserType,
		Verified:      u.Verified,
		Name:          u.Name,
	}
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{key: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of m that reads time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// TTL is the lifetime applied to every issued token.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs claims with fresh iat/exp values.
func (m *Manager) Issue(claims Claims) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: m.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	now := m.now()
	claims.IssuedAt = josejwt.NewNumericDate(now)
	claims.Expiry = josejwt.NewNumericDate(now.Add(m.ttl))

	raw, err := josejwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (m *Manager) Verify(raw string) (Claims, error) {
	tok, err := josejwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := tok.Claims(m.key, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Expiry == nil {
		return Claims{}, ErrInvalidToken
	}

	registered := josejwt.Claims{Expiry: claims.Expiry, IssuedAt: claims.IssuedAt}
	if err := registered.ValidateWithLeeway(josejwt.Expected{Time: m.now()}, 0); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
