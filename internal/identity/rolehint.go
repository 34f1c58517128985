package identity

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ChetanXpro/yesbroker/internal/domain"
)

var (
	ErrRoleHintUndecodable = errors.New("role hint is not valid hex")
	ErrRoleHintMissing     = errors.New("role hint names no role")
)

// DecodeRoleHint extracts the requested role from the hex-encoded context
// data the client app attaches to a proof.
func DecodeRoleHint(userContextData string) (domain.UserType, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(userContextData), "0x")
	if raw == "" {
		return "", ErrRoleHintMissing
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return "", ErrRoleHintUndecodable
	}

	text := strings.ToLower(string(decoded))
	switch {
	case strings.Contains(text, string(domain.UserTypeOwner)):
		return domain.UserTypeOwner, nil
	case strings.Contains(text, string(domain.UserTypeRenter)):
		return domain.UserTypeRenter, nil
	}
	return "", ErrRoleHintMissing
}
