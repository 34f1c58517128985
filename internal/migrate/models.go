package migrate

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            int64     `gorm:"primaryKey"`
	Name          string    `gorm:"type:varchar(255);not null"`
	WalletAddress string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Verified      bool      `gorm:"not null;default:false"`
	UserType      *string   `gorm:"type:varchar(16)"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (User) TableName() string { return "users" }

type Property struct {
	ID                          int64           `gorm:"primaryKey"`
	OwnerID                     int64           `gorm:"not null;index"`
	Owner                       User            `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Title                       string          `gorm:"type:varchar(255);not null"`
	Description                 *string         `gorm:"type:text"`
	Address                     string          `gorm:"type:varchar(512);not null"`
	City                        string          `gorm:"type:varchar(128);not null;index"`
	State                       string          `gorm:"type:varchar(128);not null"`
	Zipcode                     *string         `gorm:"type:varchar(32)"`
	Price                       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Bedrooms                    *int32
	Bathrooms                   *int32
	SquareFeet                  *int32
	PropertyType                *string   `gorm:"type:varchar(64)"`
	Status                      string    `gorm:"type:varchar(32);not null;default:'available';index"`
	ImageURLs                   []string  `gorm:"column:image_urls;type:text[];not null;default:'{}'"`
	IsVerified                  bool      `gorm:"not null;default:false"`
	VerificationTransactionHash *string   `gorm:"type:varchar(255)"`
	CreatedAt                   time.Time `gorm:"type:timestamptz;not null;default:now();index"`
	UpdatedAt                   time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (Property) TableName() string { return "properties" }

// PropertyInterest is unique per (property, user); both parents cascade.
type PropertyInterest struct {
	ID         int64     `gorm:"primaryKey"`
	PropertyID int64     `gorm:"not null;uniqueIndex:idx_property_interests_pair,priority:1"`
	Property   Property  `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_property_interests_pair,priority:2;index"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (PropertyInterest) TableName() string { return "property_interests" }
