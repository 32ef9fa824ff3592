package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a user of the store.
type User struct {
	ID        string       `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username  string       `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email     string       `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string       `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	FirstName string       `json:"first_name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	LastName  string       `json:"last_name" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	IsStaff   bool         `json:"is_staff" gorm:"not null"`
	Profile   *UserProfile `json:"profile,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UserProfile holds contact details used to pre-fill checkout.
type UserProfile struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(20)"`
	Address   string    `json:"address" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AfterSave makes sure every saved user has a profile row.
func (u *User) AfterSave(tx *gorm.DB) error {
	var profile UserProfile
	err := tx.Where("user_id = ?", u.ID).First(&profile).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	profile = UserProfile{ID: uuid.New().String(), UserID: u.ID}
	if err := tx.Create(&profile).Error; err != nil {
		return err
	}
	u.Profile = &profile
	return nil
}
