package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"case_track_app_go/db"
	"case_track_app_go/middleware"
	"case_track_app_go/services"
)

// Notifier is the shared dispatcher, wired once at startup
var Notifier *services.NotifyService

// SetNotifier installs the dispatcher used by handlers that fan out pushes
func SetNotifier(n *services.NotifyService) {
	Notifier = n
}

// AttorneyDeviceRegisterHandler appends a push token for the authenticated
// attorney. Registration is idempotent: known tokens are a no-op.
func AttorneyDeviceRegisterHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Invalid request body."})
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "device_id is required"})
	}

	service := services.NewDeviceService(db.DB)
	if err := service.RegisterAttorneyDevice(user.ID, req.DeviceID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to register device."})
	}

	return c.JSON(http.StatusOK, map[string]string{"detail": "OK"})
}

// ClientDeviceRegisterHandler appends a push token under a client access
// code, with the same idempotent semantics.
func ClientDeviceRegisterHandler(c echo.Context) error {
	var req struct {
		ClientCode string `json:"client_code"`
		DeviceID   string `json:"device_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Invalid request body."})
	}
	if strings.TrimSpace(req.ClientCode) == "" || strings.TrimSpace(req.DeviceID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "client_code and device_id are required"})
	}

	service := services.NewDeviceService(db.DB)
	if err := service.RegisterClientDevice(req.ClientCode, req.DeviceID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to register device."})
	}

	return c.JSON(http.StatusOK, map[string]string{"detail": "OK"})
}
