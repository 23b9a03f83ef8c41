package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"case_track_app_go/models"
)

func setupCaseServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Case{}, &models.CaseNote{}, &models.ClientDevice{})
	assert.NoError(t, err)

	return db
}

func strPtr(s string) *string {
	return &s
}

func validTestCase() models.Case {
	return models.Case{
		ClientName:  "Ann Smith",
		ClientPhone: "(555) 123-4567",
		ClientEmail: "ann@example.com",
		FirmName:    "Smith & Co",
		CaseType:    "Auto Accident",
		CaseStatus:  "Case Approved",
		Notes:       "intake done",
	}
}

// seedUpdatableCase persists a case opened two days ago with a registered
// client device, returning the service, pusher and stored case.
func seedUpdatableCase(t *testing.T, db *gorm.DB) (*CaseService, *fakePusher, *models.Case) {
	opened := time.Now().Add(-48 * time.Hour)
	c := validTestCase()
	c.ClientCode = "ANN-ABC234"
	c.ClientPhone = "5551234567"
	c.DateOpened = opened
	c.LastUpdate = opened
	err := db.Create(&c).Error
	assert.NoError(t, err)

	err = db.Create(&models.ClientDevice{
		ClientCode: c.ClientCode,
		DeviceIDs:  models.DeviceIDList{"token-a"},
	}).Error
	assert.NoError(t, err)

	pusher := &fakePusher{}
	service := NewCaseService(db, NewNotifyService(db, pusher))
	return service, pusher, &c
}

func TestCreateCaseMintsClientCode(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	c := validTestCase()
	err := service.CreateCase(context.Background(), &c)
	assert.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.True(t, strings.HasPrefix(c.ClientCode, "ANN-"))
	assert.Len(t, c.ClientCode, 10)
	assert.Equal(t, "5551234567", c.ClientPhone)
	assert.False(t, c.LastUpdate.Before(c.DateOpened))
}

func TestCreateCaseReusesCodeForKnownEmail(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	first := validTestCase()
	assert.NoError(t, service.CreateCase(context.Background(), &first))

	second := validTestCase()
	second.ClientEmail = "ANN@EXAMPLE.COM"
	second.CaseType = "Work Injury"
	assert.NoError(t, service.CreateCase(context.Background(), &second))

	assert.Equal(t, first.ClientCode, second.ClientCode)
}

func TestCreateCaseValidation(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	tests := []struct {
		mutate func(*models.Case)
		field  string
	}{
		{func(c *models.Case) { c.ClientName = "" }, "client_name"},
		{func(c *models.Case) { c.ClientPhone = "555-123" }, "client_phone"},
		{func(c *models.Case) { c.ClientEmail = "" }, "client_email"},
		{func(c *models.Case) { c.FirmName = "" }, "firm_name"},
		{func(c *models.Case) { c.FirmPhone = "123" }, "firm_phone"},
		{func(c *models.Case) { c.CaseType = "Divorce" }, "case_type"},
		{func(c *models.Case) { c.CaseStatus = "Closed" }, "case_status"},
	}

	for _, tt := range tests {
		c := validTestCase()
		tt.mutate(&c)

		err := service.CreateCase(context.Background(), &c)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, tt.field, verr.Field)
	}

	// Nothing persisted on validation failure
	var count int64
	db.Model(&models.Case{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateCaseSanitizesNotes(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	c := validTestCase()
	c.Notes = "<b>urgent</b> follow up"
	assert.NoError(t, service.CreateCase(context.Background(), &c))
	assert.Equal(t, "urgent follow up", c.Notes)
}

func TestUpdateCaseStatusOnly(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	updated, note, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		CaseStatus: strPtr("Case Signed"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "Case Signed", updated.CaseStatus)
	assert.Nil(t, note)
	assert.True(t, updated.LastUpdate.After(seeded.DateOpened))

	messages := pusher.sent()
	assert.Len(t, messages, 1)
	assert.Equal(t, "Status → Case Signed", messages[0].Body)
}

func TestUpdateCaseNotesOnly(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	updated, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		Notes: strPtr("retainer received"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "retainer received", updated.Notes)
	assert.Equal(t, seeded.CaseStatus, updated.CaseStatus)

	messages := pusher.sent()
	assert.Len(t, messages, 1)
	assert.Equal(t, "New note added", messages[0].Body)
}

func TestUpdateCaseStatusAndNotes(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	_, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		CaseStatus: strPtr("Case Signed"),
		Notes:      strPtr("retainer received"),
	})
	assert.NoError(t, err)

	// One notification covering the union of changes, not one per field
	messages := pusher.sent()
	assert.Len(t, messages, 1)
	assert.Equal(t, "Status → Case Signed; New note added", messages[0].Body)
}

func TestUpdateCaseNoChange(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	previous, err := service.GetCase(seeded.ID)
	assert.NoError(t, err)

	updated, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		CaseStatus: strPtr(previous.CaseStatus),
		Notes:      strPtr(previous.Notes),
	})
	assert.NoError(t, err)

	assert.Empty(t, pusher.sent())
	assert.True(t, updated.LastUpdate.Equal(previous.LastUpdate))
}

func TestUpdateCaseFutureDatedCaseKeepsTimestampOrder(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	c := validTestCase()
	c.DateOpened = time.Now().Add(48 * time.Hour)
	assert.NoError(t, service.CreateCase(context.Background(), &c))
	assert.False(t, c.LastUpdate.Before(c.DateOpened))

	// A mutation before the opening date clamps the restamp to date_opened
	updated, _, err := service.UpdateCase(context.Background(), c.ID, nil, CaseUpdateInput{
		CaseStatus: strPtr("Case Signed"),
	})
	assert.NoError(t, err)
	assert.False(t, updated.LastUpdate.Before(updated.DateOpened))

	_, err = service.AddStatusNote(context.Background(), c.ID, "called the adjuster", nil)
	assert.NoError(t, err)

	reloaded, err := service.GetCase(c.ID)
	assert.NoError(t, err)
	assert.False(t, reloaded.LastUpdate.Before(reloaded.DateOpened))
}

func TestUpdateCaseIdenticalStatusNoteDoesNotDispatch(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	_, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		StatusNote: strPtr("carrier approved"),
	})
	assert.NoError(t, err)
	assert.Len(t, pusher.sent(), 1)

	before, err := service.GetCase(seeded.ID)
	assert.NoError(t, err)

	// Writing the same text again changes nothing, so nothing fires
	updated, note, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		StatusNote: strPtr("carrier approved"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "carrier approved", note.Note)
	assert.Len(t, pusher.sent(), 1)
	assert.True(t, updated.LastUpdate.Equal(before.LastUpdate))

	// A different text is a real change again
	_, _, err = service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		StatusNote: strPtr("carrier declined"),
	})
	assert.NoError(t, err)
	assert.Len(t, pusher.sent(), 2)
}

func TestAddStatusNoteIdenticalTextDoesNotDispatch(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	_, err := service.AddStatusNote(context.Background(), seeded.ID, "called the adjuster", nil)
	assert.NoError(t, err)
	assert.Len(t, pusher.sent(), 1)

	before, err := service.GetCase(seeded.ID)
	assert.NoError(t, err)

	note, err := service.AddStatusNote(context.Background(), seeded.ID, "called the adjuster", nil)
	assert.NoError(t, err)
	assert.Equal(t, "called the adjuster", note.Note)
	assert.Len(t, pusher.sent(), 1)

	reloaded, err := service.GetCase(seeded.ID)
	assert.NoError(t, err)
	assert.True(t, reloaded.LastUpdate.Equal(before.LastUpdate))
}

func TestUpdateCaseRejectsUnknownStatus(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	_, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		CaseStatus: strPtr("Closed"),
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "case_status", verr.Field)
	assert.Empty(t, pusher.sent())
}

func TestUpdateCaseNotFound(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	_, _, err := service.UpdateCase(context.Background(), "missing-id", nil, CaseUpdateInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCaseStatusNoteUpsert(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, _, seeded := seedUpdatableCase(t, db)
	actorID := "attorney-1"

	_, note, err := service.UpdateCase(context.Background(), seeded.ID, &actorID, CaseUpdateInput{
		StatusNote: strPtr("first draft"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "first draft", note.Note)
	assert.Equal(t, seeded.CaseStatus, note.CaseStatus)

	_, note, err = service.UpdateCase(context.Background(), seeded.ID, &actorID, CaseUpdateInput{
		StatusNote: strPtr("second draft"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "second draft", note.Note)

	// Second write for the same status updates in place, never a duplicate
	var count int64
	db.Model(&models.CaseNote{}).Where("case_id = ?", seeded.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpdateCaseStatusChangeOpensNewNoteSlot(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, _, seeded := seedUpdatableCase(t, db)

	_, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		StatusNote: strPtr("approved note"),
	})
	assert.NoError(t, err)

	// The note follows the case's new status
	_, note, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		CaseStatus: strPtr("Case Signed"),
		StatusNote: strPtr("signed note"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "Case Signed", note.CaseStatus)

	var count int64
	db.Model(&models.CaseNote{}).Where("case_id = ?", seeded.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestUpdateCaseExplicitEmptyStatusNote(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	// An explicit empty string records an empty note, unlike omission
	_, note, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		StatusNote: strPtr(""),
	})
	assert.NoError(t, err)
	assert.NotNil(t, note)
	assert.Equal(t, "", note.Note)

	messages := pusher.sent()
	assert.Len(t, messages, 1)
	assert.Equal(t, "New note added", messages[0].Body)
}

func TestUpdateCaseReturnsExistingNoteWhenOmitted(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, _, seeded := seedUpdatableCase(t, db)

	_, _, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		StatusNote: strPtr("existing note"),
	})
	assert.NoError(t, err)

	// No StatusNote in the input: the stored note comes back untouched
	_, note, err := service.UpdateCase(context.Background(), seeded.ID, nil, CaseUpdateInput{
		Notes: strPtr("updated general notes"),
	})
	assert.NoError(t, err)
	assert.NotNil(t, note)
	assert.Equal(t, "existing note", note.Note)
}

func TestAddStatusNote(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service, pusher, seeded := seedUpdatableCase(t, db)

	note, err := service.AddStatusNote(context.Background(), seeded.ID, "called the adjuster", nil)
	assert.NoError(t, err)
	assert.Equal(t, seeded.CaseStatus, note.CaseStatus)
	assert.Nil(t, note.CreatedByID)

	messages := pusher.sent()
	assert.Len(t, messages, 1)
	assert.Equal(t, "New note added", messages[0].Body)

	// The note-only path still restamps last_update
	reloaded, err := service.GetCase(seeded.ID)
	assert.NoError(t, err)
	assert.True(t, reloaded.LastUpdate.After(seeded.DateOpened))
}

func TestAddStatusNoteNotFound(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	_, err := service.AddStatusNote(context.Background(), "missing-id", "note", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCasesByClientCodeOrdering(t *testing.T) {
	db := setupCaseServiceTestDB(t)

	now := time.Now()
	older := validTestCase()
	older.ClientCode = "ANN-ABC234"
	older.ClientPhone = "5551234567"
	older.DateOpened = now.Add(-72 * time.Hour)
	older.LastUpdate = now.Add(-72 * time.Hour)
	assert.NoError(t, db.Create(&older).Error)

	newer := validTestCase()
	newer.ClientCode = "ANN-ABC234"
	newer.ClientPhone = "5551234567"
	newer.CaseType = "Work Injury"
	newer.DateOpened = now.Add(-24 * time.Hour)
	newer.LastUpdate = now.Add(-24 * time.Hour)
	assert.NoError(t, db.Create(&newer).Error)

	_, err := UpsertStatusNote(db, newer.ID, newer.CaseStatus, "note text", nil)
	assert.NoError(t, err)

	service := NewCaseService(db, nil)
	cases, err := service.CasesByClientCode("ANN-ABC234")
	assert.NoError(t, err)
	assert.Len(t, cases, 2)
	assert.Equal(t, newer.ID, cases[0].ID)
	assert.Equal(t, older.ID, cases[1].ID)
	assert.Len(t, cases[0].StatusNotes, 1)

	latest, err := service.LatestCaseByClientCode("ANN-ABC234")
	assert.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}

func TestLatestCaseByClientCodeNotFound(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	service := NewCaseService(db, nil)

	_, err := service.LatestCaseByClientCode("UNKNOWN-CODE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCasesByAttorneyLimit(t *testing.T) {
	db := setupCaseServiceTestDB(t)
	attorneyID := "attorney-1"

	for i := 0; i < 3; i++ {
		c := validTestCase()
		c.ClientCode = "ANN-ABC234"
		c.ClientPhone = "5551234567"
		c.AttorneyID = &attorneyID
		assert.NoError(t, db.Create(&c).Error)
	}

	service := NewCaseService(db, nil)
	cases, err := service.CasesByAttorney(attorneyID, 2)
	assert.NoError(t, err)
	assert.Len(t, cases, 2)
}
