package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outfit is a rentable garment. Price is the rental rate per day.
type Outfit struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CategoryID  *string         `json:"category_id" gorm:"type:varchar(36);index"`
	Category    *Category       `json:"category,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null;index" validate:"required,min=1,max=100"`
	Description string          `json:"description" gorm:"type:text"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
