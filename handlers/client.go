package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"case_track_app_go/db"
	"case_track_app_go/services"
)

type statusNoteItem struct {
	CaseStatus string    `json:"case_status"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type casePublic struct {
	ID          string           `json:"id"`
	FirmName    string           `json:"firm_name"`
	FirmEmail   string           `json:"firm_email"`
	FirmPhone   string           `json:"firm_phone"`
	CaseType    string           `json:"case_type"`
	CaseStatus  string           `json:"case_status"`
	DateOpened  time.Time        `json:"date_opened"`
	LastUpdate  time.Time        `json:"last_update"`
	Notes       string           `json:"notes"`
	StatusNotes []statusNoteItem `json:"status_notes"`
}

// clientProfile is synthesized from the client's case rows; there is no
// standalone client record.
type clientProfile struct {
	Name  string       `json:"name"`
	Code  string       `json:"code"`
	Email string       `json:"email"`
	Phone string       `json:"phone"`
	Cases []casePublic `json:"cases"`
}

// ClientLookupHandler resolves an access code to the client's profile and
// case list. The 404 message stays generic so codes cannot be probed.
func ClientLookupHandler(c echo.Context) error {
	code := strings.TrimSpace(c.QueryParam("code"))
	if code == "" && c.Request().Method == http.MethodPost {
		var req struct {
			Code string `json:"code"`
		}
		if err := c.Bind(&req); err == nil {
			code = strings.TrimSpace(req.Code)
		}
	}
	if code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Missing 'code' parameter."})
	}

	service := services.NewCaseService(db.DB, nil)
	cases, err := service.CasesByClientCode(code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Lookup failed."})
	}
	if len(cases) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Client not found."})
	}

	newest := cases[0]
	profile := clientProfile{
		Name:  newest.ClientName,
		Code:  newest.ClientCode,
		Email: newest.ClientEmail,
		Phone: newest.ClientPhone,
		Cases: make([]casePublic, 0, len(cases)),
	}
	for _, cs := range cases {
		item := casePublic{
			ID:          cs.ID,
			FirmName:    cs.FirmName,
			FirmEmail:   cs.FirmEmail,
			FirmPhone:   cs.FirmPhone,
			CaseType:    cs.CaseType,
			CaseStatus:  cs.CaseStatus,
			DateOpened:  cs.DateOpened,
			LastUpdate:  cs.LastUpdate,
			Notes:       cs.Notes,
			StatusNotes: make([]statusNoteItem, 0, len(cs.StatusNotes)),
		}
		for _, note := range cs.StatusNotes {
			item.StatusNotes = append(item.StatusNotes, statusNoteItem{
				CaseStatus: note.CaseStatus,
				Note:       note.Note,
				CreatedAt:  note.CreatedAt,
				UpdatedAt:  note.UpdatedAt,
			})
		}
		profile.Cases = append(profile.Cases, item)
	}

	return c.JSON(http.StatusOK, profile)
}

// ClientCallRequestHandler lets a client ask their attorney for a call.
// The delivered count mirrors the push fan-out result.
func ClientCallRequestHandler(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Invalid request body."})
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Missing 'code' in request body."})
	}

	service := services.NewCaseService(db.DB, nil)
	latest, err := service.LatestCaseByClientCode(req.Code)
	if err != nil {
		if err == services.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"detail": "Client not found."})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Lookup failed."})
	}

	delivered := 0
	if Notifier != nil {
		delivered = Notifier.NotifyAttorneyCallRequest(c.Request().Context(), latest)
	}
	return c.JSON(http.StatusOK, map[string]int{"delivered": delivered})
}
