package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseNote holds the authoritative note text for one status of one case.
// At most one row exists per (case, status) pair; writing again for the
// same status updates the text in place.
type CaseNote struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID     string `gorm:"type:uuid;not null;uniqueIndex:idx_case_status_note" json:"case_id"`
	CaseStatus string `gorm:"size:32;not null;uniqueIndex:idx_case_status_note" json:"case_status"`
	Note       string `gorm:"type:text" json:"note"`

	// Nullable: bulk import writes notes with no acting principal
	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`

	Case      Case  `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (n *CaseNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (CaseNote) TableName() string {
	return "case_notes"
}
