package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseTypes is the closed set of case type labels. New values require a
// coordinated release with the mobile apps, so there is no dynamic lookup.
var CaseTypes = []string{
	"Auto Accident",
	"Work Injury",
	"Slip and Fall",
	"Medical Negligence",
	"Product Liability",
}

// CaseStatuses is the closed set of lifecycle stage labels a case moves
// through. The client app renders these verbatim.
var CaseStatuses = []string{
	"Case Approved",
	"Case Signed",
	"Court Date Scheduled",
	"Documents Received",
	"Hearing Scheduled",
	"Insurance Contacted",
	"Mediation Scheduled",
	"Pending Insurance Response",
	"Settlement Approved",
	"Treatment Scheduled",
}

// IsValidCaseType checks if the case type belongs to the fixed enumeration
func IsValidCaseType(caseType string) bool {
	for _, t := range CaseTypes {
		if t == caseType {
			return true
		}
	}
	return false
}

// IsValidCaseStatus checks if the status belongs to the fixed enumeration
func IsValidCaseStatus(status string) bool {
	for _, s := range CaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

var nonDigitPattern = regexp.MustCompile(`\D`)

// NormalizePhone strips every non-digit character from a phone number
func NormalizePhone(phone string) string {
	return nonDigitPattern.ReplaceAllString(phone, "")
}

// IsValidPhone10 reports whether the value reduces to exactly 10 digits
func IsValidPhone10(phone string) bool {
	return len(NormalizePhone(phone)) == 10
}

// Case represents a tracked legal matter
type Case struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Client identity
	ClientName  string `gorm:"size:30;not null;index" json:"client_name"`
	ClientCode  string `gorm:"size:32;index" json:"client_code"`
	ClientPhone string `gorm:"size:10;not null" json:"client_phone"`
	ClientEmail string `gorm:"not null;index" json:"client_email"`

	// Firm identity
	FirmName  string `gorm:"size:30;not null;index" json:"firm_name"`
	FirmEmail string `json:"firm_email"`
	FirmPhone string `gorm:"size:10" json:"firm_phone"`

	// Attorney identity (nullable: bulk-imported cases have no assignee yet)
	AttorneyID   *string `gorm:"type:uuid;index" json:"attorney_id,omitempty"`
	AttorneyName string  `gorm:"size:50" json:"attorney_name"`

	// Case metadata
	CaseType   string    `gorm:"size:32;not null;index" json:"case_type"`
	CaseStatus string    `gorm:"size:32;not null;index" json:"case_status"`
	DateOpened time.Time `gorm:"not null;index" json:"date_opened"`
	LastUpdate time.Time `gorm:"not null;index" json:"last_update"`
	Notes      string    `gorm:"type:text" json:"notes"`

	// Relationships
	Attorney    *User      `gorm:"foreignKey:AttorneyID" json:"-"`
	StatusNotes []CaseNote `gorm:"foreignKey:CaseID" json:"status_notes,omitempty"`
}

// BeforeCreate hook to generate UUID and align the timestamp invariant:
// last_update must never precede date_opened.
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.DateOpened.IsZero() {
		c.DateOpened = time.Now()
	}
	if c.LastUpdate.IsZero() || c.LastUpdate.Before(c.DateOpened) {
		c.LastUpdate = c.DateOpened
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}
