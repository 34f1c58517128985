package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ChetanXpro/yesbroker/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate")
	// ErrImageLimit is returned when appending images would exceed the per-property cap.
	ErrImageLimit = errors.New("image limit exceeded")
)

// DBTX is the subset of pgxpool.Pool used by the repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository persists wallet-keyed users.
type UserRepository interface {
	GetByWallet(ctx context.Context, wallet string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	MarkVerified(ctx context.Context, id int64) (domain.User, error)
	SetUserType(ctx context.Context, id int64, userType domain.UserType) (domain.User, error)
}

// PropertyRepository persists listings.
type PropertyRepository interface {
	List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error)
	Get(ctx context.Context, id int64) (domain.Property, error)
	Create(ctx context.Context, property domain.Property) (domain.Property, error)
	Update(ctx context.Context, id int64, patch domain.PropertyPatch) (domain.Property, error)
	Delete(ctx context.Context, id int64) (domain.Property, error)
	// AppendImages adds urls to image_urls unless the result would hold more than limit entries.
	AppendImages(ctx context.Context, id int64, urls []string, limit int) (domain.Property, error)
	RemoveImage(ctx context.Context, id int64, url string) (domain.Property, error)
	SetVerification(ctx context.Context, id int64, verified bool, txHash *string) (domain.Property, error)
}

// InterestRepository persists renter interest in listings.
type InterestRepository interface {
	// Create returns ErrDuplicate when the pair already exists and ErrNotFound
	// when the property is gone.
	Create(ctx context.Context, propertyID, userID int64) (domain.PropertyInterest, error)
	ListForOwnerProperty(ctx context.Context, propertyID, ownerID int64) ([]domain.InterestedRenter, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.InterestedProperty, error)
	Delete(ctx context.Context, id, userID int64) error
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
