package services

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"case_track_app_go/models"
)

// noteSanitizer strips markup from user-supplied free text before it is
// persisted or pushed to devices.
var noteSanitizer = bluemonday.StrictPolicy()

// CaseService owns the case write path: creation, the tracked-field update
// flow, and the status-note audit trail.
type CaseService struct {
	DB       *gorm.DB
	Notifier *NotifyService
}

func NewCaseService(db *gorm.DB, notifier *NotifyService) *CaseService {
	return &CaseService{DB: db, Notifier: notifier}
}

// CaseUpdateInput distinguishes omitted fields (nil) from explicit values.
// An explicit empty StatusNote records an empty note for the current
// status; a nil StatusNote means no note update at all.
type CaseUpdateInput struct {
	CaseStatus *string `json:"case_status"`
	Notes      *string `json:"notes"`
	StatusNote *string `json:"status_note"`
}

// CreateCase validates and persists a new case, minting or reusing the
// client access code. Creation never dispatches a notification: there is
// no previous state to diff against.
func (s *CaseService) CreateCase(ctx context.Context, c *models.Case) error {
	if c.ClientName == "" {
		return &ValidationError{Field: "client_name", Message: "is required"}
	}
	digits := models.NormalizePhone(c.ClientPhone)
	if len(digits) != 10 {
		return &ValidationError{Field: "client_phone", Message: "must contain exactly 10 digits"}
	}
	c.ClientPhone = digits
	if c.ClientEmail == "" {
		return &ValidationError{Field: "client_email", Message: "is required"}
	}
	if c.FirmName == "" {
		return &ValidationError{Field: "firm_name", Message: "is required"}
	}
	if c.FirmPhone != "" {
		firmDigits := models.NormalizePhone(c.FirmPhone)
		if len(firmDigits) != 10 {
			return &ValidationError{Field: "firm_phone", Message: "must contain exactly 10 digits"}
		}
		c.FirmPhone = firmDigits
	}
	if !models.IsValidCaseType(c.CaseType) {
		return &ValidationError{Field: "case_type", Message: fmt.Sprintf("%q is not a recognized case type", c.CaseType)}
	}
	if !models.IsValidCaseStatus(c.CaseStatus) {
		return &ValidationError{Field: "case_status", Message: fmt.Sprintf("%q is not a recognized case status", c.CaseStatus)}
	}
	c.Notes = noteSanitizer.Sanitize(c.Notes)

	if c.ClientCode == "" {
		code, err := ReuseOrGenerateClientCode(s.DB, c.ClientEmail, c.ClientName)
		if err != nil {
			return err
		}
		c.ClientCode = code
	}

	if err := s.DB.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

// GetCase loads a case by id
func (s *CaseService) GetCase(caseID string) (*models.Case, error) {
	var c models.Case
	if err := s.DB.First(&c, "id = ?", caseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return &c, nil
}

// UpdateCase applies a partial update to a case. The flow is explicit:
// fetch the previous state, compute the tracked-field delta, restamp
// last_update when the delta is non-empty, persist, then dispatch one
// notification covering the union of changes. A dispatch problem is
// counted inside the dispatcher and never rolls back or fails the update.
func (s *CaseService) UpdateCase(ctx context.Context, caseID string, actorID *string, in CaseUpdateInput) (*models.Case, *models.CaseNote, error) {
	var previous models.Case
	if err := s.DB.First(&previous, "id = ?", caseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load case: %w", err)
	}

	pending := previous
	if in.CaseStatus != nil {
		if !models.IsValidCaseStatus(*in.CaseStatus) {
			return nil, nil, &ValidationError{Field: "case_status", Message: fmt.Sprintf("%q is not a recognized case status", *in.CaseStatus)}
		}
		pending.CaseStatus = *in.CaseStatus
	}
	if in.Notes != nil {
		pending.Notes = noteSanitizer.Sanitize(*in.Notes)
	}

	changed := ChangedCaseFields(&previous, &pending)
	// A status-note write is a notes-category change only when it creates
	// the note or alters its text.
	if in.StatusNote != nil && !containsField(changed, CaseFieldNotes) {
		existing, err := LatestStatusNote(s.DB, pending.ID, pending.CaseStatus)
		if err != nil {
			return nil, nil, err
		}
		if existing == nil || existing.Note != noteSanitizer.Sanitize(*in.StatusNote) {
			changed = append(changed, CaseFieldNotes)
		}
	}
	if len(changed) > 0 {
		pending.LastUpdate = restampTime(pending.DateOpened)
	}

	if err := s.DB.Save(&pending).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to save case: %w", err)
	}

	var note *models.CaseNote
	var err error
	if in.StatusNote != nil {
		note, err = UpsertStatusNote(s.DB, pending.ID, pending.CaseStatus, *in.StatusNote, actorID)
	} else {
		note, err = LatestStatusNote(s.DB, pending.ID, pending.CaseStatus)
	}
	if err != nil {
		return nil, nil, err
	}

	if len(changed) > 0 && s.Notifier != nil {
		s.Notifier.NotifyClientCaseUpdated(ctx, &pending, changed)
	}

	return &pending, note, nil
}

// AddStatusNote is the note-only trigger path: it writes the note for the
// case's current status and, when the note is created or its text actually
// changes, restamps last_update and dispatches a notes-changed
// notification. The note always follows the case's status; it never moves
// case_status itself.
func (s *CaseService) AddStatusNote(ctx context.Context, caseID, text string, actorID *string) (*models.CaseNote, error) {
	var c models.Case
	if err := s.DB.First(&c, "id = ?", caseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	existing, err := LatestStatusNote(s.DB, c.ID, c.CaseStatus)
	if err != nil {
		return nil, err
	}
	unchanged := existing != nil && existing.Note == noteSanitizer.Sanitize(text)

	note, err := UpsertStatusNote(s.DB, c.ID, c.CaseStatus, text, actorID)
	if err != nil {
		return nil, err
	}
	if unchanged {
		return note, nil
	}

	c.LastUpdate = restampTime(c.DateOpened)
	if err := s.DB.Model(&c).Update("last_update", c.LastUpdate).Error; err != nil {
		return nil, fmt.Errorf("failed to restamp last_update: %w", err)
	}

	if s.Notifier != nil {
		s.Notifier.NotifyClientCaseUpdated(ctx, &c, []string{CaseFieldNotes})
	}
	return note, nil
}

// restampTime returns now, clamped so a future-dated case never gets a
// last_update earlier than its date_opened.
func restampTime(dateOpened time.Time) time.Time {
	now := time.Now()
	if now.Before(dateOpened) {
		return dateOpened
	}
	return now
}

// UpsertStatusNote finds or creates the single note row for (case, status)
// and sets its text. A second write for the same status updates the
// existing row in place, never a duplicate.
func UpsertStatusNote(db *gorm.DB, caseID, status, text string, actorID *string) (*models.CaseNote, error) {
	text = noteSanitizer.Sanitize(text)

	var note models.CaseNote
	err := db.Where("case_id = ? AND case_status = ?", caseID, status).First(&note).Error
	if err == gorm.ErrRecordNotFound {
		note = models.CaseNote{CaseID: caseID, CaseStatus: status, Note: text, CreatedByID: actorID}
		if err := db.Create(&note).Error; err != nil {
			return nil, fmt.Errorf("failed to create status note: %w", err)
		}
		return &note, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load status note: %w", err)
	}

	note.Note = text
	if err := db.Model(&note).Update("note", text).Error; err != nil {
		return nil, fmt.Errorf("failed to update status note: %w", err)
	}
	return &note, nil
}

// LatestStatusNote returns the note row for (case, status), or nil when
// none has been recorded yet.
func LatestStatusNote(db *gorm.DB, caseID, status string) (*models.CaseNote, error) {
	var note models.CaseNote
	err := db.Where("case_id = ? AND case_status = ?", caseID, status).First(&note).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load status note: %w", err)
	}
	return &note, nil
}

// CasesByClientCode lists a client's cases newest-first by last update,
// then date opened, with each case's status-note history preloaded.
func (s *CaseService) CasesByClientCode(clientCode string) ([]models.Case, error) {
	var cases []models.Case
	err := s.DB.
		Preload("StatusNotes", func(db *gorm.DB) *gorm.DB {
			return db.Order("updated_at DESC")
		}).
		Where("client_code = ?", clientCode).
		Order("last_update DESC").
		Order("date_opened DESC").
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases for client: %w", err)
	}
	return cases, nil
}

// LatestCaseByClientCode returns the most recently updated case for a code
func (s *CaseService) LatestCaseByClientCode(clientCode string) (*models.Case, error) {
	var c models.Case
	err := s.DB.Where("client_code = ?", clientCode).
		Order("last_update DESC").
		First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load case by client code: %w", err)
	}
	return &c, nil
}

// CasesByAttorney lists an attorney's cases newest-first by last update
func (s *CaseService) CasesByAttorney(attorneyID string, limit int) ([]models.Case, error) {
	var cases []models.Case
	err := s.DB.Where("attorney_id = ?", attorneyID).
		Order("last_update DESC").
		Limit(limit).
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases for attorney: %w", err)
	}
	return cases, nil
}
