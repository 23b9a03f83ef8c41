package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceIDList is a set of push endpoint tokens stored as a JSON array.
// Membership is a set: registration appends only unknown tokens.
type DeviceIDList []string

// Has reports whether the token is already registered
func (l DeviceIDList) Has(token string) bool {
	for _, t := range l {
		if t == token {
			return true
		}
	}
	return false
}

// AttorneyDevice holds one row per attorney with that attorney's
// registered push endpoint tokens.
type AttorneyDevice struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    string       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	DeviceIDs DeviceIDList `gorm:"serializer:json" json:"device_ids"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (d *AttorneyDevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (AttorneyDevice) TableName() string {
	return "attorney_devices"
}

// ClientDevice holds one row per client access code with that client's
// registered push endpoint tokens.
type ClientDevice struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientCode string       `gorm:"size:32;not null;uniqueIndex" json:"client_code"`
	DeviceIDs  DeviceIDList `gorm:"serializer:json" json:"device_ids"`
}

func (d *ClientDevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (ClientDevice) TableName() string {
	return "client_devices"
}
