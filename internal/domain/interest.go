package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyInterest records that a user is interested in a property.
type PropertyInterest struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	UserID     int64     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// InterestedRenter is an interest row joined with the renter, as an owner sees it.
type InterestedRenter struct {
	PropertyInterest
	Name          string `json:"name"`
	WalletAddress string `json:"wallet_address"`
	PropertyTitle string `json:"property_title"`
}

// InterestedProperty is an interest row joined with the property summary, as a renter sees it.
type InterestedProperty struct {
	PropertyInterest
	Title   string          `json:"title"`
	Address string          `json:"address"`
	City    string          `json:"city"`
	Price   decimal.Decimal `json:"price"`
	Status  string          `json:"status"`
}
