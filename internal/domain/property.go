package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, the way clients send them.
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxPropertyImages caps image_urls for a single listing.
const MaxPropertyImages = 4

// Observed listing statuses. The set is open: writes accept any string.
const (
	StatusAvailable = "available"
	StatusForSale   = "for_sale"
	StatusForRent   = "for_rent"
	StatusRented    = "rented"
)

// Property is a rental or sale listing owned by a user.
type Property struct {
	ID                          int64           `json:"id"`
	Title                       string          `json:"title"`
	Description                 *string         `json:"description"`
	Address                     string          `json:"address"`
	City                        string          `json:"city"`
	State                       string          `json:"state"`
	Zipcode                     *string         `json:"zipcode"`
	Price                       decimal.Decimal `json:"price"`
	Bedrooms                    *int32          `json:"bedrooms"`
	Bathrooms                   *int32          `json:"bathrooms"`
	SquareFeet                  *int32          `json:"square_feet"`
	PropertyType                *string         `json:"property_type"`
	Status                      string          `json:"status"`
	OwnerID                     int64           `json:"owner_id"`
	OwnerName                   *string         `json:"owner_name,omitempty"`
	ImageURLs                   []string        `json:"image_urls"`
	IsVerified                  bool            `json:"is_verified"`
	VerificationTransactionHash *string         `json:"verification_transaction_hash"`
	CreatedAt                   time.Time       `json:"created_at"`
	UpdatedAt                   time.Time       `json:"updated_at"`
}

// HasImage reports whether url is one of the listing's stored images.
func (p Property) HasImage(url string) bool {
	for _, u := range p.ImageURLs {
		if u == url {
			return true
		}
	}
	return false
}

// PropertyFilter narrows a listing query. Empty fields are not applied.
type PropertyFilter struct {
	OwnerID *int64
	Status  string
	City    string
}

// PropertyPatch carries a sparse update. Nil fields are left untouched.
type PropertyPatch struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Address      *string          `json:"address"`
	City         *string          `json:"city"`
	State        *string          `json:"state"`
	Zipcode      *string          `json:"zipcode"`
	Price        *decimal.Decimal `json:"price"`
	Bedrooms     *int32           `json:"bedrooms"`
	Bathrooms    *int32           `json:"bathrooms"`
	SquareFeet   *int32           `json:"square_feet"`
	PropertyType *string          `json:"property_type"`
	Status       *string          `json:"status"`
}

// Columns returns the column/value pairs present in the patch, in a stable order.
func (p PropertyPatch) Columns() ([]string, []any) {
	var (
		cols []string
		vals []any
	)
	add := func(col string, set bool, v any) {
		if set {
			cols = append(cols, col)
			vals = append(vals, v)
		}
	}
	add("title", p.Title != nil, p.Title)
	add("description", p.Description != nil, p.Description)
	add("address", p.Address != nil, p.Address)
	add("city", p.City != nil, p.City)
	add("state", p.State != nil, p.State)
	add("zipcode", p.Zipcode != nil, p.Zipcode)
	add("price", p.Price != nil, p.Price)
	add("bedrooms", p.Bedrooms != nil, p.Bedrooms)
	add("bathrooms", p.Bathrooms != nil, p.Bathrooms)
	add("square_feet", p.SquareFeet != nil, p.SquareFeet)
	add("property_type", p.PropertyType != nil, p.PropertyType)
	add("status", p.Status != nil, p.Status)
	return cols, vals
}

// IsEmpty reports whether the patch would change nothing.
func (p PropertyPatch) IsEmpty() bool {
	cols, _ := p.Columns()
	return len(cols) == 0
}
