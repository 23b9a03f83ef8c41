package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"case_track_app_go/config"
	"case_track_app_go/db"
	"case_track_app_go/services"
)

// ImportCasesHandler runs the bulk CSV pipeline. With dry_run=true the
// file is fully validated and deduplicated but nothing is persisted.
func ImportCasesHandler(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "file is required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "failed to open uploaded file"})
	}
	defer src.Close()

	dryRun := false
	switch strings.ToLower(c.FormValue("dry_run")) {
	case "true", "1", "yes", "on":
		dryRun = true
	}

	cfg, _ := c.Get("config").(*config.Config)

	result, err := services.ImportCasesCSV(c.Request().Context(), db.DB, cfg, src, dryRun)
	if err != nil {
		// File-level failure: encoding, missing headers, storage
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	}
	if len(result.Errors) > 0 {
		return c.JSON(http.StatusBadRequest, result)
	}
	return c.JSON(http.StatusOK, result)
}

// ImportTemplateHandler serves the spreadsheet template for bulk import
func ImportTemplateHandler(c echo.Context) error {
	buf, err := services.GenerateImportTemplate()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Failed to generate template."})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="case_import_template.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
