package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"case_track_app_go/config"
	"case_track_app_go/db"
	"case_track_app_go/middleware"
	"case_track_app_go/models"
	"case_track_app_go/services"
)

// AttorneyBootstrapHandler returns the authenticated attorney's cases,
// newest-first, for the mobile app's initial sync.
func AttorneyBootstrapHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "limit must be an integer"})
		}
		limit = parsed
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	service := services.NewCaseService(db.DB, Notifier)
	cases, err := service.CasesByAttorney(user.ID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to list cases."})
	}
	return c.JSON(http.StatusOK, cases)
}

// CreateCaseHandler creates a case through manual intake. The client's
// access code is minted (or reused for a known client email) and mailed
// to them after creation.
func CreateCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		ClientName  string `json:"client_name"`
		ClientPhone string `json:"client_phone"`
		ClientEmail string `json:"client_email"`
		FirmName    string `json:"firm_name"`
		FirmEmail   string `json:"firm_email"`
		FirmPhone   string `json:"firm_phone"`
		CaseType    string `json:"case_type"`
		CaseStatus  string `json:"case_status"`
		DateOpened  string `json:"date_opened"`
		Notes       string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Invalid request body."})
	}

	opened, err := services.ParseOpenedDate(req.DateOpened)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "date_opened: " + err.Error()})
	}

	newCase := models.Case{
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		ClientEmail:  req.ClientEmail,
		FirmName:     req.FirmName,
		FirmEmail:    req.FirmEmail,
		FirmPhone:    req.FirmPhone,
		AttorneyID:   &user.ID,
		AttorneyName: user.Name,
		CaseType:     req.CaseType,
		CaseStatus:   req.CaseStatus,
		DateOpened:   opened,
		Notes:        req.Notes,
	}

	service := services.NewCaseService(db.DB, Notifier)
	if err := service.CreateCase(c.Request().Context(), &newCase); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": verr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to create case."})
	}

	if cfg, ok := c.Get("config").(*config.Config); ok && cfg != nil {
		services.SendEmailAsync(cfg, services.BuildClientAccessCodeEmail(
			newCase.ClientEmail, newCase.ClientName, newCase.ClientCode, newCase.FirmName))
	}

	return c.JSON(http.StatusCreated, newCase)
}

// CaseUpdateHandler applies a partial update to one of the attorney's
// cases. status_note distinguishes an explicit empty string (record an
// empty note for the current status) from omission (no note update).
func CaseUpdateHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	caseID := c.Param("id")

	var in services.CaseUpdateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Invalid request body."})
	}

	service := services.NewCaseService(db.DB, Notifier)

	existing, err := service.GetCase(caseID)
	if err != nil {
		if err == services.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to load case."})
	}
	// Ownership failures look identical to missing cases
	if existing.AttorneyID == nil || *existing.AttorneyID != user.ID {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
	}

	updated, note, err := service.UpdateCase(c.Request().Context(), caseID, &user.ID, in)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": verr.Error()})
		}
		if err == services.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to update case."})
	}

	statusNote := ""
	if note != nil {
		statusNote = note.Note
	}
	return c.JSON(http.StatusOK, map[string]string{
		"notes":       updated.Notes,
		"case_status": updated.CaseStatus,
		"status_note": statusNote,
	})
}
