package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/identity"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/repository"
)

// ErrIdentityRejected is returned when the verifier does not accept a proof.
var ErrIdentityRejected = errors.New("identity verification failed")

// SessionService owns identity verification, session issuance and role selection.
type SessionService struct {
	base
	users      repository.UserRepository
	tokens     *jwt.Manager
	verifier   identity.Verifier
	strictHint bool
	now        func() time.Time
}

func NewSessionService(users repository.UserRepository, tokens *jwt.Manager, verifier identity.Verifier, cfg config.Config, logger *zap.Logger) *SessionService {
	return &SessionService{
		base:       newBase(logger),
		users:      users,
		tokens:     tokens,
		verifier:   verifier,
		strictHint: cfg.IdentityStrictRoleHint,
		now:        time.Now,
	}
}

// Session is a freshly issued token and the user it speaks for.
type Session struct {
	Token  string
	Claims jwt.Claims
	User   domain.User
}

// IdentityInput is a proof bundle plus an optional explicit role.
type IdentityInput struct {
	identity.VerifyRequest
	UserType string `json:"userType"`
}

// IdentityOutcome describes a successful verification.
type IdentityOutcome struct {
	Session
	Role       domain.UserType
	IsNewUser  bool
	Credential json.RawMessage
}

// CreateSession issues a token for an already verified wallet.
func (s *SessionService) CreateSession(ctx context.Context, wallet string) (Session, error) {
	ctx, span := s.startSpan(ctx, "SessionService.CreateSession")
	defer span.End()

	wallet = domain.NormalizeWallet(wallet)
	if wallet == "" {
		return Session{}, validationError("Wallet address required")
	}

	user, err := s.users.GetByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, notFoundError("User not found")
		}
		span.RecordError(err)
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !user.Verified {
		return Session{}, authorizationError("User not verified")
	}

	session, err := s.issue(jwt.ClaimsFromUser(user), user)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}

	s.audit("session.created", "user_id", user.ID)
	return session, nil
}

// UpdateUserType validates rawToken, persists the new role and re-issues the token.
func (s *SessionService) UpdateUserType(ctx context.Context, rawToken, userType string) (Session, error) {
	ctx, span := s.startSpan(ctx, "SessionService.UpdateUserType")
	defer span.End()

	role, ok := domain.ParseUserType(userType)
	if !ok {
		return Session{}, validationError("Invalid user type")
	}
	if strings.TrimSpace(rawToken) == "" {
		return Session{}, authenticationError("No authentication token found")
	}
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return Session{}, authenticationError("Invalid authentication token")
	}

	user, err := s.users.SetUserType(ctx, claims.UserID, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, notFoundError("User not found")
		}
		span.RecordError(err)
		return Session{}, fmt.Errorf("persist user type: %w", err)
	}

	next := claims
	next.UserType = role
	next.UpdatedAt = s.now().UnixMilli()

	session, err := s.issue(next, user)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}

	s.audit("session.user_type_updated", "user_id", user.ID, "user_type", role)
	return session, nil
}

// Authenticate resolves a raw token into claims.
func (s *SessionService) Authenticate(rawToken string) (jwt.Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return jwt.Claims{}, authenticationError("No authentication token found")
	}
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return jwt.Claims{}, authenticationError("Invalid authentication token")
	}
	return claims, nil
}

// Me returns the stored user behind claims.
func (s *SessionService) Me(ctx context.Context, claims *jwt.Claims) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "SessionService.Me")
	defer span.End()

	if err := requireCaller(claims); err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, notFoundError("User not found")
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// VerifyIdentity checks a KYC proof, creates or verifies the wallet's user
// and mints a session for the requested role.
func (s *SessionService) VerifyIdentity(ctx context.Context, in IdentityInput) (IdentityOutcome, error) {
	ctx, span := s.startSpan(ctx, "SessionService.VerifyIdentity")
	defer span.End()

	if len(in.Proof) == 0 || len(in.PublicSignals) == 0 {
		return IdentityOutcome{}, validationError("Proof and public signals are required")
	}

	role, err := s.resolveRole(in)
	if err != nil {
		return IdentityOutcome{}, err
	}

	result, err := s.verifier.Verify(ctx, in.VerifyRequest)
	if err != nil {
		span.RecordError(err)
		return IdentityOutcome{}, upstreamError("Identity verifier unavailable", err)
	}
	if !result.Valid() {
		s.log().Info("identity proof rejected")
		return IdentityOutcome{}, ErrIdentityRejected
	}

	wallet := domain.NormalizeWallet(result.UserData.UserIdentifier)
	if wallet == "" {
		return IdentityOutcome{}, upstreamError("Identity verifier returned no user identifier", nil)
	}

	user, created, err := s.createOrVerify(ctx, wallet, role)
	if err != nil {
		span.RecordError(err)
		return IdentityOutcome{}, err
	}

	claims := jwt.ClaimsFromUser(user)
	claims.UserType = role
	claims.IsNewUser = created

	session, err := s.issue(claims, user)
	if err != nil {
		span.RecordError(err)
		return IdentityOutcome{}, err
	}

	s.audit("identity.verified", "user_id", user.ID, "new_user", created, "role", role)
	return IdentityOutcome{
		Session:    session,
		Role:       role,
		IsNewUser:  created,
		Credential: result.DiscloseOutput,
	}, nil
}

func (s *SessionService) resolveRole(in IdentityInput) (domain.UserType, error) {
	if in.UserType != "" {
		role, ok := domain.ParseUserType(in.UserType)
		if !ok {
			return "", validationError("Invalid user type")
		}
		return role, nil
	}

	role, err := identity.DecodeRoleHint(in.UserContextData)
	switch {
	case err == nil:
		return role, nil
	case s.strictHint && errors.Is(err, identity.ErrRoleHintUndecodable):
		return "", validationError("Invalid role hint")
	default:
		return domain.UserTypeRenter, nil
	}
}

func (s *SessionService) createOrVerify(ctx context.Context, wallet string, role domain.UserType) (domain.User, bool, error) {
	existing, err := s.users.GetByWallet(ctx, wallet)
	switch {
	case err == nil:
		user, err := s.users.MarkVerified(ctx, existing.ID)
		if err != nil {
			return domain.User{}, false, fmt.Errorf("mark user verified: %w", err)
		}
		return user, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return domain.User{}, false, fmt.Errorf("load user: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		Name:          defaultUserName(role, wallet),
		WalletAddress: wallet,
		Verified:      true,
	})
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return domain.User{}, false, fmt.Errorf("create user: %w", err)
	}

	// Lost a race with a concurrent first verification of the same wallet.
	existing, err = s.users.GetByWallet(ctx, wallet)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("load user: %w", err)
	}
	user, err = s.users.MarkVerified(ctx, existing.ID)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("mark user verified: %w", err)
	}
	return user, false, nil
}

func (s *SessionService) issue(claims jwt.Claims, user domain.User) (Session, error) {
	token, err := s.tokens.Issue(claims)
	if err != nil {
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}
	// Read back the stamped iat/exp.
	issued, err := s.tokens.Verify(token)
	if err != nil {
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}
	return Session{Token: token, Claims: issued, User: user}, nil
}

func defaultUserName(role domain.UserType, wallet string) string {
	suffix := wallet
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return string(role) + "_" + suffix
}
