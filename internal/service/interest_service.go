package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/repository"
)

// InterestService records and lists renter interest in listings.
type InterestService struct {
	base
	interests repository.InterestRepository
}

func NewInterestService(interests repository.InterestRepository, logger *zap.Logger) *InterestService {
	return &InterestService{base: newBase(logger), interests: interests}
}

// InterestList holds whichever projection List produced.
type InterestList struct {
	Renters    []domain.InterestedRenter
	Properties []domain.InterestedProperty
}

// Data returns the populated projection.
func (l InterestList) Data() any {
	if l.Renters != nil {
		return l.Renters
	}
	return l.Properties
}

// Count is the number of rows in the populated projection.
func (l InterestList) Count() int {
	if l.Renters != nil {
		return len(l.Renters)
	}
	return len(l.Properties)
}

// Record stores the caller's interest in propertyID. A repeated request for
// the same pair is rejected by the database's unique index.
func (s *InterestService) Record(ctx context.Context, claims *jwt.Claims, propertyID int64) (domain.PropertyInterest, error) {
	ctx, span := s.startSpan(ctx, "InterestService.Record")
	defer span.End()

	if err := requireCaller(claims); err != nil {
		return domain.PropertyInterest{}, err
	}
	if propertyID <= 0 {
		return domain.PropertyInterest{}, validationError("Property ID is required")
	}

	interest, err := s.interests.Create(ctx, propertyID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.PropertyInterest{}, validationError("You have already shown interest in this property")
		case errors.Is(err, repository.ErrNotFound):
			return domain.PropertyInterest{}, notFoundError("Property not found")
		}
		span.RecordError(err)
		return domain.PropertyInterest{}, fmt.Errorf("record interest: %w", err)
	}

	s.audit("interest.recorded", "property_id", propertyID, "user_id", claims.UserID)
	return interest, nil
}

// List returns, for an owner passing propertyID, the renters interested in
// that property; otherwise the listings the caller is interested in.
func (s *InterestService) List(ctx context.Context, claims *jwt.Claims, propertyID *int64) (InterestList, error) {
	ctx, span := s.startSpan(ctx, "InterestService.List")
	defer span.End()

	if err := requireCaller(claims); err != nil {
		return InterestList{}, err
	}

	if propertyID != nil {
		renters, err := s.interests.ListForOwnerProperty(ctx, *propertyID, claims.UserID)
		if err != nil {
			span.RecordError(err)
			return InterestList{}, fmt.Errorf("list property interests: %w", err)
		}
		if renters == nil {
			renters = []domain.InterestedRenter{}
		}
		return InterestList{Renters: renters}, nil
	}

	properties, err := s.interests.ListForUser(ctx, claims.UserID)
	if err != nil {
		span.RecordError(err)
		return InterestList{}, fmt.Errorf("list user interests: %w", err)
	}
	if properties == nil {
		properties = []domain.InterestedProperty{}
	}
	return InterestList{Properties: properties}, nil
}

// Withdraw deletes one of the caller's own interests.
func (s *InterestService) Withdraw(ctx context.Context, claims *jwt.Claims, id int64) error {
	ctx, span := s.startSpan(ctx, "InterestService.Withdraw")
	defer span.End()

	if err := requireCaller(claims); err != nil {
		return err
	}
	if err := s.interests.Delete(ctx, id, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("Interest not found")
		}
		span.RecordError(err)
		return fmt.Errorf("withdraw interest: %w", err)
	}

	s.audit("interest.withdrawn", "interest_id", id, "user_id", claims.UserID)
	return nil
}
