package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ChetanXpro/yesbroker/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository     = (*PostgresUserRepo)(nil)
	_ PropertyRepository = (*PostgresPropertyRepo)(nil)
	_ InterestRepository = (*PostgresInterestRepo)(nil)
)

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db DBTX
}

func NewPostgresUserRepo(db DBTX) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, wallet_address, verified, user_type, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u        domain.User
		userType *string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.WalletAddress, &u.Verified, &userType, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	if userType != nil {
		u.UserType = domain.UserType(*userType)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByWallet(ctx context.Context, wallet string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address = $1`, wallet))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by wallet: %w", notFound(err))
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", notFound(err))
	}
	return u, nil
}

const insertUserSQL = `INSERT INTO users (name, wallet_address, verified, user_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING ` + userColumns

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	var userType *string
	if user.UserType != "" {
		t := string(user.UserType)
		userType = &t
	}
	u, err := scanUser(r.db.QueryRow(ctx, insertUserSQL, user.Name, user.WalletAddress, user.Verified, userType))
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return domain.User{}, fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) MarkVerified(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET verified = true, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("mark user verified: %w", notFound(err))
	}
	return u, nil
}

func (r *PostgresUserRepo) SetUserType(ctx context.Context, id int64, userType domain.UserType) (domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET user_type = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, string(userType)))
	if err != nil {
		return domain.User{}, fmt.Errorf("set user type: %w", notFound(err))
	}
	return u, nil
}

// PostgresPropertyRepo implements PropertyRepository.
type PostgresPropertyRepo struct {
	db DBTX
}

func NewPostgresPropertyRepo(db DBTX) *PostgresPropertyRepo {
	return &PostgresPropertyRepo{db: db}
}

var propertyFields = []string{
	"id", "title", "description", "address", "city", "state", "zipcode", "price",
	"bedrooms", "bathrooms", "square_feet", "property_type", "status", "owner_id",
	"image_urls", "is_verified", "verification_transaction_hash", "created_at", "updated_at",
}

var (
	propertyColumns       = strings.Join(propertyFields, ", ")
	propertyColumnsJoined = "p." + strings.Join(propertyFields, ", p.")
)

func scanProperty(row pgx.Row, extra ...any) (domain.Property, error) {
	var p domain.Property
	dest := []any{
		&p.ID, &p.Title, &p.Description, &p.Address, &p.City, &p.State, &p.Zipcode, &p.Price,
		&p.Bedrooms, &p.Bathrooms, &p.SquareFeet, &p.PropertyType, &p.Status, &p.OwnerID,
		&p.ImageURLs, &p.IsVerified, &p.VerificationTransactionHash, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Property{}, err
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	return p, nil
}

// BuildListPropertiesQuery renders the listing query for filter. Only the
// filters that are set contribute a predicate and a positional argument.
func BuildListPropertiesQuery(filter domain.PropertyFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + propertyColumnsJoined + `, u.name AS owner_name
FROM properties p
LEFT JOIN users u ON p.owner_id = u.id
WHERE 1=1`)

	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.OwnerID != nil {
		sb.WriteString(" AND p.owner_id = " + next(*filter.OwnerID))
	}
	if filter.Status != "" {
		sb.WriteString(" AND p.status = " + next(filter.Status))
	}
	if filter.City != "" {
		sb.WriteString(" AND p.city ILIKE " + next("%"+escapeLike(filter.City)+"%"))
	}
	sb.WriteString(" ORDER BY p.created_at DESC, p.id DESC")
	return sb.String(), args
}

// BuildUpdatePropertyQuery renders a sparse UPDATE for patch. ok is false
// when the patch carries no fields.
func BuildUpdatePropertyQuery(id int64, patch domain.PropertyPatch) (query string, args []any, ok bool) {
	cols, vals := patch.Columns()
	if len(cols) == 0 {
		return "", nil, false
	}
	sets := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, col+" = $"+strconv.Itoa(i+1))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(vals, id)
	query = `UPDATE properties SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + propertyColumns
	return query, args, true
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresPropertyRepo) List(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error) {
	query, args := BuildListPropertiesQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	properties := make([]domain.Property, 0)
	for rows.Next() {
		var ownerName *string
		p, err := scanProperty(rows, &ownerName)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		p.OwnerName = ownerName
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return properties, nil
}

func (r *PostgresPropertyRepo) Get(ctx context.Context, id int64) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if err != nil {
		return domain.Property{}, fmt.Errorf("get property: %w", notFound(err))
	}
	return p, nil
}

const insertPropertySQL = `INSERT INTO properties (
	title, description, address, city, state, zipcode, price,
	bedrooms, bathrooms, square_feet, property_type, status, owner_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING `

func (r *PostgresPropertyRepo) Create(ctx context.Context, in domain.Property) (domain.Property, error) {
	row := r.db.QueryRow(ctx, insertPropertySQL+propertyColumns,
		in.Title,
		in.Description,
		in.Address,
		in.City,
		in.State,
		in.Zipcode,
		in.Price,
		in.Bedrooms,
		in.Bathrooms,
		in.SquareFeet,
		in.PropertyType,
		in.Status,
		in.OwnerID,
	)
	p, err := scanProperty(row)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.Property{}, fmt.Errorf("create property: owner: %w", ErrNotFound)
		}
		return domain.Property{}, fmt.Errorf("create property: %w", err)
	}
	return p, nil
}

func (r *PostgresPropertyRepo) Update(ctx context.Context, id int64, patch domain.PropertyPatch) (domain.Property, error) {
	query, args, ok := BuildUpdatePropertyQuery(id, patch)
	if !ok {
		return r.Get(ctx, id)
	}
	p, err := scanProperty(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Property{}, fmt.Errorf("update property: %w", notFound(err))
	}
	return p, nil
}

func (r *PostgresPropertyRepo) Delete(ctx context.Context, id int64) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, `DELETE FROM properties WHERE id = $1 RETURNING `+propertyColumns, id))
	if err != nil {
		return domain.Property{}, fmt.Errorf("delete property: %w", notFound(err))
	}
	return p, nil
}

const appendImagesSQL = `UPDATE properties
SET image_urls = image_urls || $2::text[], updated_at = NOW()
WHERE id = $1 AND cardinality(image_urls) + cardinality($2::text[]) <= $3
RETURNING `

func (r *PostgresPropertyRepo) AppendImages(ctx context.Context, id int64, urls []string, limit int) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, appendImagesSQL+propertyColumns, id, urls, limit))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, fmt.Errorf("append images: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM properties WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Property{}, fmt.Errorf("append images: %w", err)
	}
	if !exists {
		return domain.Property{}, fmt.Errorf("append images: %w", ErrNotFound)
	}
	return domain.Property{}, fmt.Errorf("append images: %w", ErrImageLimit)
}

func (r *PostgresPropertyRepo) RemoveImage(ctx context.Context, id int64, url string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx,
		`UPDATE properties SET image_urls = array_remove(image_urls, $2), updated_at = NOW() WHERE id = $1 RETURNING `+propertyColumns,
		id, url))
	if err != nil {
		return domain.Property{}, fmt.Errorf("remove image: %w", notFound(err))
	}
	return p, nil
}

func (r *PostgresPropertyRepo) SetVerification(ctx context.Context, id int64, verified bool, txHash *string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx,
		`UPDATE properties SET is_verified = $2, verification_transaction_hash = $3, updated_at = NOW() WHERE id = $1 RETURNING `+propertyColumns,
		id, verified, txHash))
	if err != nil {
		return domain.Property{}, fmt.Errorf("set property verification: %w", notFound(err))
	}
	return p, nil
}

// PostgresInterestRepo implements InterestRepository.
type PostgresInterestRepo struct {
	db DBTX
}

func NewPostgresInterestRepo(db DBTX) *PostgresInterestRepo {
	return &PostgresInterestRepo{db: db}
}

const insertInterestSQL = `INSERT INTO property_interests (property_id, user_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (property_id, user_id) DO NOTHING
RETURNING id, property_id, user_id, created_at`

func (r *PostgresInterestRepo) Create(ctx context.Context, propertyID, userID int64) (domain.PropertyInterest, error) {
	var in domain.PropertyInterest
	err := r.db.QueryRow(ctx, insertInterestSQL, propertyID, userID).
		Scan(&in.ID, &in.PropertyID, &in.UserID, &in.CreatedAt)
	switch {
	case err == nil:
		return in, nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.PropertyInterest{}, fmt.Errorf("create interest: %w", ErrDuplicate)
	case isPgError(err, pgForeignKeyViolation):
		return domain.PropertyInterest{}, fmt.Errorf("create interest: %w", ErrNotFound)
	default:
		return domain.PropertyInterest{}, fmt.Errorf("create interest: %w", err)
	}
}

const listOwnerPropertyInterestsSQL = `SELECT pi.id, pi.property_id, pi.user_id, pi.created_at,
	u.name, u.wallet_address, p.title AS property_title
FROM property_interests pi
JOIN users u ON pi.user_id = u.id
JOIN properties p ON pi.property_id = p.id
WHERE pi.property_id = $1 AND p.owner_id = $2
ORDER BY pi.created_at DESC, pi.id DESC`

func (r *PostgresInterestRepo) ListForOwnerProperty(ctx context.Context, propertyID, ownerID int64) ([]domain.InterestedRenter, error) {
	rows, err := r.db.Query(ctx, listOwnerPropertyInterestsSQL, propertyID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list property interests: %w", err)
	}
	defer rows.Close()

	res := make([]domain.InterestedRenter, 0)
	for rows.Next() {
		var it domain.InterestedRenter
		if err := rows.Scan(&it.ID, &it.PropertyID, &it.UserID, &it.CreatedAt, &it.Name, &it.WalletAddress, &it.PropertyTitle); err != nil {
			return nil, fmt.Errorf("scan property interest: %w", err)
		}
		res = append(res, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list property interests: %w", err)
	}
	return res, nil
}

const listUserInterestsSQL = `SELECT pi.id, pi.property_id, pi.user_id, pi.created_at,
	p.title, p.address, p.city, p.price, p.status
FROM property_interests pi
JOIN properties p ON pi.property_id = p.id
WHERE pi.user_id = $1
ORDER BY pi.created_at DESC, pi.id DESC`

func (r *PostgresInterestRepo) ListForUser(ctx context.Context, userID int64) ([]domain.InterestedProperty, error) {
	rows, err := r.db.Query(ctx, listUserInterestsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list user interests: %w", err)
	}
	defer rows.Close()

	res := make([]domain.InterestedProperty, 0)
	for rows.Next() {
		var it domain.InterestedProperty
		if err := rows.Scan(&it.ID, &it.PropertyID, &it.UserID, &it.CreatedAt, &it.Title, &it.Address, &it.City, &it.Price, &it.Status); err != nil {
			return nil, fmt.Errorf("scan user interest: %w", err)
		}
		res = append(res, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user interests: %w", err)
	}
	return res, nil
}

func (r *PostgresInterestRepo) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM property_interests WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete interest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete interest: %w", ErrNotFound)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
