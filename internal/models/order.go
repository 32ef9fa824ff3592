package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaymentMethod is recorded on orders paid by manual bank transfer.
const DefaultPaymentMethod = "Bank Transfer"

// DateLayout is the calendar date format used for rental ranges.
const DateLayout = "2006-01-02"

// OrderItem is one outfit line within an order. PricePerDay is the outfit
// price captured when the order was created.
type OrderItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID     string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	OutfitID    string          `json:"outfit_id" gorm:"type:varchar(36);not null;index"`
	Outfit      *Outfit         `json:"outfit,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	PricePerDay decimal.Decimal `json:"price_per_day" gorm:"type:decimal(10,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Order represents a customer rental order. Customer contact fields are a
// snapshot taken at checkout and are independent of the user record.
type Order struct {
	ID     string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID *string `json:"user_id" gorm:"type:varchar(36);index"`
	User   *User   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`

	FirstName string `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string `json:"last_name" gorm:"type:varchar(100);not null"`
	Email     string `json:"email" gorm:"type:varchar(255);not null"`
	Phone     string `json:"phone" gorm:"type:varchar(20);not null"`
	Address   string `json:"address" gorm:"type:text;not null"`

	RentalStartDate *time.Time `json:"rental_start_date"`
	RentalEndDate   *time.Time `json:"rental_end_date"`

	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null;default:0"`
	ShippingCost decimal.Decimal `json:"shipping_cost" gorm:"type:decimal(10,2);not null;default:0"`
	Status       OrderStatus     `json:"status" gorm:"type:varchar(30);not null;index"`

	Paid             bool       `json:"paid" gorm:"not null"`
	PaymentMethod    string     `json:"payment_method" gorm:"type:varchar(50);not null"`
	PaymentReference *string    `json:"payment_reference,omitempty" gorm:"type:varchar(100);index"`
	PaymentSlip      string     `json:"payment_slip"`
	PaymentDatetime  *time.Time `json:"payment_datetime"`
	AdminPaymentNote string     `json:"admin_payment_note" gorm:"type:text"`

	ShippingTrackingNumber *string    `json:"shipping_tracking_number" gorm:"type:varchar(100)"`
	ReturnTrackingNumber   *string    `json:"return_tracking_number" gorm:"type:varchar(100)"`
	ReturnSlip             string     `json:"return_slip"`
	ReturnInitiatedAt      *time.Time `json:"return_initiated_at"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BelongsTo reports whether the order was placed by userID.
func (o *Order) BelongsTo(userID string) bool {
	return o.UserID != nil && *o.UserID == userID
}

// HasReturnInfo reports whether return evidence was already recorded.
func (o *Order) HasReturnInfo() bool {
	return (o.ReturnTrackingNumber != nil && *o.ReturnTrackingNumber != "") || o.ReturnSlip != ""
}

// DateOnly truncates t to midnight UTC on its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}
