package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an attorney account. Credential issuance lives in a separate
// identity service; this model carries only what case ownership and
// session validation need.
type User struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `gorm:"size:50" json:"name"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}
