package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"case_track_app_go/config"
	"case_track_app_go/models"
)

// Required header columns, in template order
var importRequiredColumns = []string{
	"Client Name",
	"Phone",
	"Email",
	"Firm Name",
	"Case Type",
	"Case Status",
	"Date Opened",
	"Notes",
}

// Optional columns. When "Status Note" is absent, the "Notes" column feeds
// the status note instead.
var importOptionalColumns = []string{
	"Status Note",
	"Firm Email",
	"Firm Phone",
}

// ImportRowError reports one validation failure. Row numbering starts at 2
// because row 1 is the header.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ImportRowError) String() string {
	return fmt.Sprintf("Row %d: %s %s", e.Row, e.Field, e.Message)
}

// ImportDuplicate reports one row excluded by deduplication
type ImportDuplicate struct {
	Row         int    `json:"row"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Source      string `json:"source"` // "file" or "database"
}

// ImportResult contains the summary of the import process. In dry-run mode
// CreatedCount is the would-create count and nothing is persisted.
type ImportResult struct {
	DryRun                  bool              `json:"dry_run"`
	TotalRows               int               `json:"total_rows"`
	CreatedCount            int               `json:"created_count"`
	SkippedDuplicatesInFile int               `json:"skipped_duplicates_in_file"`
	SkippedDuplicatesInDB   int               `json:"skipped_duplicates_in_db"`
	Duplicates              []ImportDuplicate `json:"duplicates"`
	Errors                  []ImportRowError  `json:"errors,omitempty"`
}

type importRow struct {
	rowNumber  int
	clientName string
	phone      string
	email      string
	firmName   string
	firmEmail  string
	firmPhone  string
	caseType   string
	caseStatus string
	dateOpened time.Time
	notes      string
	statusNote string
}

// dedupKey is the case-insensitive, digit-normalized identity of a row.
// Dates compare by calendar day only.
func (r *importRow) dedupKey() string {
	return strings.Join([]string{
		strings.ToLower(r.clientName),
		r.phone,
		strings.ToLower(r.email),
		strings.ToLower(r.firmName),
		r.caseType,
		r.caseStatus,
		r.dateOpened.Format("2006-01-02"),
	}, "|")
}

// ParseOpenedDate parses the opened-date field: strict YYYY-MM-DD first,
// then a general ISO-8601 timestamp. A blank field defaults to now.
func ParseOpenedDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or an ISO-8601 timestamp")
}

// ImportCasesCSV runs the bulk pipeline: parse, validate, deduplicate, then
// commit or report. Validation is all-or-nothing across the batch: any row
// error rejects the whole import and nothing is persisted. A non-nil error
// return is reserved for file-level failures (encoding, headers, storage);
// row-level failures come back in ImportResult.Errors.
func ImportCasesCSV(ctx context.Context, db *gorm.DB, cfg *config.Config, file io.Reader, dryRun bool) (*ImportResult, error) {
	db = db.WithContext(ctx)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("import file is not valid UTF-8")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("import file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range importRequiredColumns {
		if _, ok := colIndex[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	_, hasStatusNoteCol := colIndex["Status Note"]

	cell := func(record []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	result := &ImportResult{DryRun: dryRun}

	// --- Phase 1: parse + per-row validation ---
	var rows []importRow
	rowNumber := 1 // header was row 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "row", Message: fmt.Sprintf("malformed CSV record: %v", err)})
			continue
		}

		errsBefore := len(result.Errors)
		row := importRow{rowNumber: rowNumber}

		row.clientName = cell(record, "Client Name")
		if row.clientName == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Client Name", Message: "is required"})
		}

		row.phone = models.NormalizePhone(cell(record, "Phone"))
		if len(row.phone) != 10 {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Phone", Message: "must contain exactly 10 digits"})
		}

		row.email = cell(record, "Email")
		if row.email == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Email", Message: "is required"})
		}

		row.firmName = cell(record, "Firm Name")
		if row.firmName == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Firm Name", Message: "is required"})
		}
		row.firmEmail = cell(record, "Firm Email")
		if firmPhone := cell(record, "Firm Phone"); firmPhone != "" {
			row.firmPhone = models.NormalizePhone(firmPhone)
			if len(row.firmPhone) != 10 {
				result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Firm Phone", Message: "must contain exactly 10 digits when present"})
			}
		}

		row.caseType = cell(record, "Case Type")
		if !models.IsValidCaseType(row.caseType) {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Case Type", Message: fmt.Sprintf("%q is not a recognized case type", row.caseType)})
		}

		row.caseStatus = cell(record, "Case Status")
		if !models.IsValidCaseStatus(row.caseStatus) {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Case Status", Message: fmt.Sprintf("%q is not a recognized case status", row.caseStatus)})
		}

		opened, err := ParseOpenedDate(cell(record, "Date Opened"))
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Field: "Date Opened", Message: err.Error()})
		} else {
			row.dateOpened = opened
		}

		row.notes = cell(record, "Notes")
		if hasStatusNoteCol {
			row.statusNote = cell(record, "Status Note")
		} else {
			row.statusNote = row.notes
		}

		if len(result.Errors) == errsBefore {
			rows = append(rows, row)
		}
	}

	// Validation is all-or-nothing across the batch
	if len(result.Errors) > 0 {
		return result, nil
	}

	// --- Phase 2: deduplicate, in-file first ---
	seen := make(map[string]bool, len(rows))
	var candidates []importRow
	for _, row := range rows {
		key := row.dedupKey()
		if seen[key] {
			result.SkippedDuplicatesInFile++
			result.Duplicates = append(result.Duplicates, ImportDuplicate{Row: row.rowNumber, ClientName: row.clientName, ClientEmail: row.email, Source: "file"})
			continue
		}
		seen[key] = true
		candidates = append(candidates, row)
	}

	// Then against the store, on the same key fields
	var toCreate []importRow
	for _, row := range candidates {
		var count int64
		err := db.Model(&models.Case{}).
			Where("lower(client_name) = ? AND client_phone = ? AND lower(client_email) = ? AND lower(firm_name) = ? AND case_type = ? AND case_status = ? AND date(date_opened) = ?",
				strings.ToLower(row.clientName), row.phone, strings.ToLower(row.email), strings.ToLower(row.firmName),
				row.caseType, row.caseStatus, row.dateOpened.Format("2006-01-02")).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check for existing cases: %w", err)
		}
		if count > 0 {
			result.SkippedDuplicatesInDB++
			result.Duplicates = append(result.Duplicates, ImportDuplicate{Row: row.rowNumber, ClientName: row.clientName, ClientEmail: row.email, Source: "database"})
			continue
		}
		toCreate = append(toCreate, row)
	}

	if dryRun {
		result.CreatedCount = len(toCreate)
		return result, nil
	}

	// --- Phase 3: commit ---
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	type newClient struct {
		name  string
		email string
		code  string
		firm  string
	}
	var created []newClient
	codeByEmail := make(map[string]string)

	for _, row := range toCreate {
		emailKey := strings.ToLower(row.email)
		code, ok := codeByEmail[emailKey]
		if !ok {
			var err error
			code, err = ReuseOrGenerateClientCode(tx, row.email, row.clientName)
			if err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to assign client code: %w", err)
			}
			codeByEmail[emailKey] = code
		}

		newCase := models.Case{
			ClientName:  row.clientName,
			ClientCode:  code,
			ClientPhone: row.phone,
			ClientEmail: row.email,
			FirmName:    row.firmName,
			FirmEmail:   row.firmEmail,
			FirmPhone:   row.firmPhone,
			CaseType:    row.caseType,
			CaseStatus:  row.caseStatus,
			DateOpened:  row.dateOpened,
			Notes:       row.notes,
		}
		if err := tx.Create(&newCase).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create case (row %d): %w", row.rowNumber, err)
		}

		if row.statusNote != "" {
			// Imported notes carry no acting principal
			if _, err := UpsertStatusNote(tx, newCase.ID, newCase.CaseStatus, row.statusNote, nil); err != nil {
				tx.Rollback()
				return nil, err
			}
		}

		result.CreatedCount++
		created = append(created, newClient{name: row.clientName, email: row.email, code: code, firm: row.firmName})
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	// Send access-code emails after commit so an email failure cannot roll
	// back created rows. One email per client code, not per case.
	if cfg != nil && len(created) > 0 {
		go func(clients []newClient) {
			notified := make(map[string]bool, len(clients))
			for _, cl := range clients {
				if notified[cl.code] {
					continue
				}
				notified[cl.code] = true
				SendEmailAsync(cfg, BuildClientAccessCodeEmail(cl.email, cl.name, cl.code, cl.firm))
			}
		}(created)
	}

	return result, nil
}

// GenerateImportTemplate builds the downloadable spreadsheet template with
// the expected headers and one example row.
func GenerateImportTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Cases"
	f.SetSheetName("Sheet1", sheet)

	headers := append(append([]string{}, importRequiredColumns...), importOptionalColumns...)
	for i, header := range headers {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cellName, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", lastCol, headerStyle)
	f.SetColWidth(sheet, "A", "K", 22)

	example := []interface{}{
		"Jane Roe",
		"5551234567",
		"jane.roe@example.com",
		"Roe & Partners",
		models.CaseTypes[0],
		models.CaseStatuses[0],
		time.Now().Format("2006-01-02"),
		"Initial intake call completed",
		"Signed retainer received",
		"intake@roepartners.com",
		"5559876543",
	}
	for i, value := range example {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cellName, value)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
