package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/repository"
)

// WebhookInput is the canonical property verification payload.
type WebhookInput struct {
	Status          string
	TransactionHash string
	PropertyID      int64
}

// VerificationRecord is the slice of the property the webhook reports back.
type VerificationRecord struct {
	ID                          int64   `json:"id"`
	IsVerified                  bool    `json:"is_verified"`
	VerificationTransactionHash *string `json:"verification_transaction_hash"`
}

// WebhookService applies verification results posted by the external
// payment and verification system.
type WebhookService struct {
	base
	properties repository.PropertyRepository
	cache      ListingCache
	secretHash []byte
}

func NewWebhookService(properties repository.PropertyRepository, cache ListingCache, cfg config.Config, logger *zap.Logger) *WebhookService {
	var hash []byte
	if cfg.WebhookSecretHash != "" {
		hash = []byte(cfg.WebhookSecretHash)
	}
	return &WebhookService{base: newBase(logger), properties: properties, cache: cache, secretHash: hash}
}

// Authorize checks the shared secret header. Without a configured hash the
// endpoint is open.
func (s *WebhookService) Authorize(secret string) error {
	if s.secretHash == nil {
		return nil
	}
	if secret == "" || bcrypt.CompareHashAndPassword(s.secretHash, []byte(secret)) != nil {
		return authenticationError("Invalid webhook secret")
	}
	return nil
}

// Apply records a verification attempt. A "success" status marks the
// property verified and requires a transaction hash; any other status marks
// it unverified and keeps whatever hash was sent as an audit trail.
func (s *WebhookService) Apply(ctx context.Context, in WebhookInput) (VerificationRecord, string, error) {
	ctx, span := s.startSpan(ctx, "WebhookService.Apply")
	defer span.End()

	status := strings.TrimSpace(in.Status)
	if status == "" || in.PropertyID <= 0 {
		return VerificationRecord{}, "", validationError("Missing required fields: status, propertyId")
	}

	if _, err := s.properties.Get(ctx, in.PropertyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return VerificationRecord{}, "", notFoundError("Property not found")
		}
		span.RecordError(err)
		return VerificationRecord{}, "", fmt.Errorf("load property: %w", err)
	}

	hash := strings.TrimSpace(in.TransactionHash)
	success := strings.EqualFold(status, "success")
	if success && hash == "" {
		return VerificationRecord{}, "", validationError("Transaction hash is required for successful transactions")
	}

	var hashArg *string
	if hash != "" {
		hashArg = &hash
	}

	updated, err := s.properties.SetVerification(ctx, in.PropertyID, success, hashArg)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return VerificationRecord{}, "", notFoundError("Property not found")
		}
		span.RecordError(err)
		return VerificationRecord{}, "", fmt.Errorf("set verification: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log().Warn("listing cache invalidation failed", zap.Error(err))
		}
	}

	message := "Property verified successfully"
	if !success {
		message = "Verification attempt logged with status: " + status
	}
	s.audit("property.verification", "property_id", in.PropertyID, "status", status)

	return VerificationRecord{
		ID:                          updated.ID,
		IsVerified:                  updated.IsVerified,
		VerificationTransactionHash: updated.VerificationTransactionHash,
	}, message, nil
}
