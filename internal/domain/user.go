package domain

import (
	"strings"
	"time"
)

// UserType is the marketplace role a user picks after verifying their identity.
type UserType string

const (
	UserTypeOwner  UserType = "owner"
	UserTypeRenter UserType = "renter"
)

// ParseUserType validates a role coming from a client or a token.
func ParseUserType(v string) (UserType, bool) {
	switch UserType(v) {
	case UserTypeOwner, UserTypeRenter:
		return UserType(v), true
	}
	return "", false
}

// User is an identity record keyed by wallet address.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"wallet_address"`
	Verified      bool      `json:"verified"`
	UserType      UserType  `json:"user_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasRole reports whether the user already selected owner or renter.
func (u User) HasRole() bool {
	return u.UserType != ""
}

// NormalizeWallet canonicalizes a wallet address for storage and lookup.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
