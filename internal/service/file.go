package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/storage"
	"github.com/xuri/excelize/v2"
)

// MaxImportRows bounds the data rows accepted by one CSV import.
const MaxImportRows = 5000

// Column headers shared by CSV and XLSX exports. Imports match headers
// case-insensitively and ignore unknown columns.
var (
	inspectionColumns = []string{"Id", "Plant Name", "Inspection Date", "Country", "State", "City", "Notes", "Status", "Confidence Score"}
	userColumns       = []string{"Id", "Email", "First Name", "Last Name", "Role", "Created At"}
)

// =============================================================================
// Interface Definition
// =============================================================================

// FileService exports inspections and users to CSV or XLSX and imports them
// from CSV.
type FileService interface {
	// ExportInspections renders every inspection of the user. An inspection
	// without an analysis gets empty Status and Confidence Score cells.
	ExportInspections(ctx context.Context, userID int64, format string) (*domain.ExportFile, error)

	// ExportUsers renders every user.
	ExportUsers(ctx context.Context, format string) (*domain.ExportFile, error)

	// RequestInspectionExport queues a DataExport task for the user.
	RequestInspectionExport(ctx context.Context, userID int64, format, notifyEmail string) (*domain.Task, error)

	// DownloadExport reads back an asynchronous export the user owns.
	// Returns nil, nil when no such export exists for the user.
	DownloadExport(ctx context.Context, userID int64, name string) (*domain.ExportFile, error)

	// ImportInspectionsCSV creates an inspection for the user per valid row.
	// Invalid rows are skipped and reported.
	ImportInspectionsCSV(ctx context.Context, userID int64, r io.Reader) (*domain.ImportResult, error)

	// ImportUsersCSV parses and validates user rows without creating
	// accounts; the result counts the rows that would be accepted.
	ImportUsersCSV(ctx context.Context, r io.Reader) (*domain.ImportResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type fileService struct {
	inspections  InspectionService
	users        UserService
	tasks        TaskService
	storage      storage.Storage
	exportPrefix string
	logger       *slog.Logger
	now          func() time.Time
}

// NewFileService creates a new FileService. Asynchronous exports are read
// from store under exportPrefix.
func NewFileService(
	inspections InspectionService,
	users UserService,
	tasks TaskService,
	store storage.Storage,
	exportPrefix string,
	logger *slog.Logger,
) FileService {
	return &fileService{
		inspections:  inspections,
		users:        users,
		tasks:        tasks,
		storage:      store,
		exportPrefix: exportPrefix,
		logger:       logger,
		now:          time.Now,
	}
}

// =============================================================================
// Export
// =============================================================================

func (s *fileService) ExportInspections(ctx context.Context, userID int64, format string) (*domain.ExportFile, error) {
	const op = "file.export_inspections"

	format, ok := domain.ParseExportFormat(format)
	if !ok {
		return nil, domain.Invalid(op, "Format must be csv or excel")
	}

	list, err := s.inspections.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(list))
	for i := range list {
		rows = append(rows, inspectionRow(&list[i]))
	}

	file, err := s.render(format, domain.ExportTypeInspections, "Inspections", inspectionColumns, rows)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render export")
	}
	s.logger.Info("inspections exported", "user_id", userID, "format", format, "rows", file.Rows)
	return file, nil
}

func (s *fileService) ExportUsers(ctx context.Context, format string) (*domain.ExportFile, error) {
	const op = "file.export_users"

	format, ok := domain.ParseExportFormat(format)
	if !ok {
		return nil, domain.Invalid(op, "Format must be csv or excel")
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(users))
	for _, u := range users {
		rows = append(rows, []interface{}{
			u.ID,
			u.Email,
			u.FirstName,
			u.LastName,
			string(u.Role),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	file, err := s.render(format, domain.ExportTypeUsers, "Users", userColumns, rows)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render export")
	}
	s.logger.Info("users exported", "format", format, "rows", file.Rows)
	return file, nil
}

func (s *fileService) RequestInspectionExport(ctx context.Context, userID int64, format, notifyEmail string) (*domain.Task, error) {
	const op = "file.request_export"

	format, ok := domain.ParseExportFormat(format)
	if !ok {
		return nil, domain.Invalid(op, "Format must be csv or excel")
	}
	notifyEmail = domain.NormalizeEmail(notifyEmail)
	if notifyEmail != "" && !domain.IsValidEmail(notifyEmail) {
		return nil, domain.NewValidationError(op, "notifyEmail", "Email address is not valid")
	}

	return s.tasks.Enqueue(ctx, domain.DataExportTask{
		ExportType:  domain.ExportTypeInspections,
		Format:      format,
		UserID:      userID,
		NotifyEmail: notifyEmail,
	})
}

func (s *fileService) DownloadExport(ctx context.Context, userID int64, name string) (*domain.ExportFile, error) {
	const op = "file.download_export"

	if !storage.IsPlainName(name) {
		return nil, domain.NewValidationError(op, "name", "Export name is not valid")
	}

	rc, info, err := s.storage.Get(ctx, storage.ExportKey(s.exportPrefix, userID, name))
	if err != nil {
		if storage.IsNotFound(err) || storage.IsInvalidKey(err) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to read export")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read export")
	}

	return &domain.ExportFile{
		FileName:    name,
		ContentType: storage.DetectContentType(info.ContentType, name, data),
		Data:        data,
	}, nil
}

// inspectionRow flattens an inspection. A nil cell is written empty.
func inspectionRow(i *domain.Inspection) []interface{} {
	row := []interface{}{
		i.ID,
		i.PlantName,
		i.InspectionDate.UTC().Format("2006-01-02"),
		i.Country,
		i.State,
		i.City,
		i.Notes,
		nil,
		nil,
	}
	if i.Analysis != nil {
		row[7] = i.Analysis.Status
		row[8] = i.Analysis.ConfidenceScore
	}
	return row
}

func (s *fileService) render(format, exportType, sheet string, headers []string, rows [][]interface{}) (*domain.ExportFile, error) {
	var (
		data []byte
		err  error
	)
	if format == domain.ExportFormatExcel {
		data, err = renderXLSX(sheet, headers, rows)
	} else {
		data, err = renderCSV(headers, rows)
	}
	if err != nil {
		return nil, err
	}
	return &domain.ExportFile{
		FileName:    domain.ExportFileName(exportType, format, s.now()),
		ContentType: domain.ExportContentType(format),
		Data:        data,
		Rows:        len(rows),
	}, nil
}

func renderCSV(headers []string, rows [][]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, v := range row {
			record[i] = csvCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return domain.FormatConfidence(x)
	default:
		return fmt.Sprint(x)
	}
}

func renderXLSX(sheet string, headers []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	})
	if err != nil {
		return nil, err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, style); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Import
// =============================================================================

// csvTable is a parsed CSV file addressed by header name.
type csvTable struct {
	columns map[string]int
	records [][]string
}

func (t *csvTable) get(record []string, name string) string {
	i, ok := t.columns[strings.ToLower(name)]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// readCSV parses r and checks that every required header is present.
func readCSV(op string, r io.Reader, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewValidationError(op, "file", "CSV file is empty")
		}
		return nil, domain.NewValidationError(op, "file", "CSV file could not be parsed")
	}

	t := &csvTable{columns: make(map[string]int, len(header))}
	for i, h := range header {
		// Excel prepends a byte order mark to UTF-8 CSV files.
		h = strings.TrimPrefix(h, "\ufeff")
		t.columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := t.columns[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewValidationError(op, "file", "Missing required columns: "+strings.Join(missing, ", "))
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewValidationError(op, "file", fmt.Sprintf("CSV file could not be parsed: %v", err))
		}
		if len(t.records) == MaxImportRows {
			return nil, domain.Errorf(domain.ETOOLARGE, op, "CSV file must not exceed %d rows", MaxImportRows)
		}
		t.records = append(t.records, record)
	}
	return t, nil
}

func (s *fileService) ImportInspectionsCSV(ctx context.Context, userID int64, r io.Reader) (*domain.ImportResult, error) {
	const op = "file.import_inspections"

	table, err := readCSV(op, r, "Plant Name", "Inspection Date", "Country", "State", "City")
	if err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	for i, record := range table.records {
		rowNum := i + 2
		date, err := domain.ParseDate(table.get(record, "Inspection Date"), false)
		if err != nil {
			result.Skip(rowNum, "Inspection Date must be YYYY-MM-DD or RFC3339")
			continue
		}

		_, err = s.inspections.Create(ctx, domain.CreateInspectionParams{
			UserID:         userID,
			PlantName:      table.get(record, "Plant Name"),
			InspectionDate: date,
			Country:        table.get(record, "Country"),
			State:          table.get(record, "State"),
			City:           table.get(record, "City"),
			Notes:          table.get(record, "Notes"),
		})
		if err != nil {
			if domain.ErrorCode(err) != domain.EINVALID {
				return nil, err
			}
			result.Skip(rowNum, validationSummary(err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("inspections imported", "user_id", userID, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func (s *fileService) ImportUsersCSV(ctx context.Context, r io.Reader) (*domain.ImportResult, error) {
	const op = "file.import_users"

	table, err := readCSV(op, r, "Email", "First Name", "Last Name")
	if err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	seen := make(map[string]bool, len(table.records))
	for i, record := range table.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowNum := i + 2
		email := domain.NormalizeEmail(table.get(record, "Email"))
		role := domain.Role(strings.ToLower(table.get(record, "Role")))
		if role == "" {
			role = domain.RoleFarmer
		}

		v := domain.NewValidator(op)
		first, last := table.get(record, "First Name"), table.get(record, "Last Name")
		v.Check(first != "" && len(first) <= domain.MaxNameLength, "firstName", "First name is required and at most 100 characters")
		v.Check(last != "" && len(last) <= domain.MaxNameLength, "lastName", "Last name is required and at most 100 characters")
		v.Check(domain.IsValidEmail(email), "email", "Email address is not valid")
		v.Check(role.IsValid(), "role", "Role must be one of farmer, admin, researcher or student")
		if err := v.Err(); err != nil {
			result.Skip(rowNum, validationSummary(err))
			continue
		}
		if seen[email] {
			result.Skip(rowNum, "Duplicate email in file")
			continue
		}
		seen[email] = true
		result.Imported++
	}

	s.logger.Info("users import validated", "accepted", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// validationSummary joins field messages in a stable order.
func validationSummary(err error) string {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return domain.ErrorMessage(err)
	}
	msgs := make([]string, 0, len(ve.Fields))
	for _, key := range slices.Sorted(maps.Keys(ve.Fields)) {
		msgs = append(msgs, ve.Fields[key])
	}
	return strings.Join(msgs, "; ")
}
