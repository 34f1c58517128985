package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/repository"
	"github.com/ChetanXpro/yesbroker/internal/storage"
)

// ListingCache caches property list pages.
type ListingCache interface {
	// Key resolves filter against the current cache version.
	Key(ctx context.Context, filter domain.PropertyFilter) (string, error)
	Get(ctx context.Context, key string) ([]domain.Property, bool, error)
	Set(ctx context.Context, key string, properties []domain.Property) error
	Invalidate(ctx context.Context) error
}

// PropertyService manages listings and their images.
type PropertyService struct {
	base
	properties    repository.PropertyRepository
	store         storage.ObjectStore
	cache         ListingCache
	maxImageBytes int64
}

// NewPropertyService builds the service. store and cache may be nil.
func NewPropertyService(properties repository.PropertyRepository, store storage.ObjectStore, cache ListingCache, cfg config.Config, logger *zap.Logger) *PropertyService {
	maxBytes := cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &PropertyService{
		base:          newBase(logger),
		properties:    properties,
		store:         store,
		cache:         cache,
		maxImageBytes: maxBytes,
	}
}

// CreatePropertyInput is the body of a listing creation request.
type CreatePropertyInput struct {
	Title        string           `json:"title"`
	Description  *string          `json:"description"`
	Address      string           `json:"address"`
	City         string           `json:"city"`
	State        string           `json:"state"`
	Zipcode      *string          `json:"zipcode"`
	Price        *decimal.Decimal `json:"price"`
	Bedrooms     *int32           `json:"bedrooms"`
	Bathrooms    *int32           `json:"bathrooms"`
	SquareFeet   *int32           `json:"square_feet"`
	PropertyType *string          `json:"property_type"`
	Status       string           `json:"status"`
}

func (in CreatePropertyInput) missingFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("title", in.Title)
	check("address", in.Address)
	check("city", in.City)
	check("state", in.State)
	if in.Price == nil {
		missing = append(missing, "price")
	}
	return missing
}

// List returns listings matching filter, newest first.
func (s *PropertyService) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.List")
	defer span.End()

	var cacheKey string
	if s.cache != nil {
		key, err := s.cache.Key(ctx, filter)
		if err != nil {
			s.log().Warn("listing cache read failed", zap.Error(err))
		} else {
			cacheKey = key
			cached, ok, err := s.cache.Get(ctx, key)
			if err != nil {
				s.log().Warn("listing cache read failed", zap.Error(err))
			} else if ok {
				return cached, nil
			}
		}
	}

	properties, err := s.properties.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list properties: %w", err)
	}

	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, properties); err != nil {
			s.log().Warn("listing cache write failed", zap.Error(err))
		}
	}
	return properties, nil
}

// Get returns a single listing.
func (s *PropertyService) Get(ctx context.Context, id int64) (domain.Property, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.Get")
	defer span.End()

	p, err := s.properties.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Property{}, notFoundError("Property not found")
		}
		span.RecordError(err)
		return domain.Property{}, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

// Create inserts a listing owned by the caller, who must hold the owner role.
func (s *PropertyService) Create(ctx context.Context, claims *jwt.Claims, in CreatePropertyInput) (domain.Property, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.Create")
	defer span.End()

	if err := requireCaller(claims); err != nil {
		return domain.Property{}, err
	}
	if claims.UserType != domain.UserTypeOwner {
		return domain.Property{}, authorizationError("Only property owners can create listings")
	}
	if missing := in.missingFields(); len(missing) > 0 {
		return domain.Property{}, validationError("Missing required fields: " + strings.Join(missing, ", "))
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = domain.StatusAvailable
	}

	created, err := s.properties.Create(ctx, domain.Property{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Address:      strings.TrimSpace(in.Address),
		City:         strings.TrimSpace(in.City),
		State:        strings.TrimSpace(in.State),
		Zipcode:      in.Zipcode,
		Price:        *in.Price,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		SquareFeet:   in.SquareFeet,
		PropertyType: in.PropertyType,
		Status:       status,
		OwnerID:      claims.UserID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Property{}, authenticationError("Invalid authentication token")
		}
		span.RecordError(err)
		return domain.Property{}, fmt.Errorf("create property: %w", err)
	}

	s.invalidate(ctx)
	s.audit("property.created", "property_id", created.ID, "owner_id", created.OwnerID)
	return created, nil
}

// Update applies a sparse patch to a listing owned by the caller.
func (s *PropertyService) Update(ctx context.Context, claims *jwt.Claims, id int64, patch domain.PropertyPatch) (domain.Property, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.Update")
	defer span.End()

	if _, err := s.ownedProperty(ctx, claims, id); err != nil {
		return domain.Property{}, err
	}
	if patch.IsEmpty() {
		return domain.Property{}, validationError("No fields to update")
	}

	updated, err := s.properties.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Property{}, notFoundError("Property not found")
		}
		span.RecordError(err)
		return domain.Property{}, fmt.Errorf("update property: %w", err)
	}

	s.invalidate(ctx)
	s.audit("property.updated", "property_id", id)
	return updated, nil
}

// Delete removes a listing owned by the caller and returns the deleted row.
// Stored images are removed afterwards on a best-effort basis.
func (s *PropertyService) Delete(ctx context.Context, claims *jwt.Claims, id int64) (domain.Property, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.Delete")
	defer span.End()

	if _, err := s.ownedProperty(ctx, claims, id); err != nil {
		return domain.Property{}, err
	}

	deleted, err := s.properties.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Property{}, notFoundError("Property not found")
		}
		span.RecordError(err)
		return domain.Property{}, fmt.Errorf("delete property: %w", err)
	}

	for _, url := range deleted.ImageURLs {
		s.deleteObject(ctx, url)
	}

	s.invalidate(ctx)
	s.audit("property.deleted", "property_id", id)
	return deleted, nil
}

// ownedProperty loads id and checks the caller owns it.
func (s *PropertyService) ownedProperty(ctx context.Context, claims *jwt.Claims, id int64) (domain.Property, error) {
	if err := requireCaller(claims); err != nil {
		return domain.Property{}, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if p.OwnerID != claims.UserID {
		return domain.Property{}, authorizationError("You do not own this property")
	}
	return p, nil
}

func (s *PropertyService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log().Warn("listing cache invalidation failed", zap.Error(err))
	}
}

// deleteObject removes the blob behind a public URL. Failures are logged only.
func (s *PropertyService) deleteObject(ctx context.Context, url string) {
	if s.store == nil {
		return
	}
	key := storage.KeyFromURL(url)
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log().Warn("object delete failed", zap.String("key", key), zap.Error(err))
	}
}
