package core

// importer.go implements the customer CSV import.
//
// The import reads the file record by record and never aborts on a bad row:
//
//	missing header columns -> no rows processed, one error
//	email already stored   -> skipped duplicate, not an error
//	invalid or failed row  -> counted as failed, "Row N: <message>"
//	unreadable stream      -> "Failed to read file: <message>", stop
//
// Imported customers always start as LEAD. At most Import.MaxRows data rows
// are read; the rest of the file is ignored.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daoninhthai/crm/internal/csvcodec"
	"github.com/daoninhthai/crm/internal/logging"
)

// RequiredImportColumns must all appear in the header of an import file.
var RequiredImportColumns = []string{"first_name", "last_name", "email"}

// ImportResult summarizes one import run.
type ImportResult struct {
	TotalRows         int      `json:"totalRows"`
	ImportedCount     int      `json:"importedCount"`
	SkippedDuplicates int      `json:"skippedDuplicates"`
	FailedCount       int      `json:"failedCount"`
	Errors            []string `json:"errors"`
}

type rowOutcome int

const (
	rowImported rowOutcome = iota
	rowDuplicate
)

// ImportCustomers reads customers from a CSV stream. Only a full import
// slot queue (ErrTooManyImports) or a cancelled ctx produce an error; every
// other problem is reported in the result.
func (s *Service) ImportCustomers(ctx context.Context, r io.Reader) (ImportResult, error) {
	result := ImportResult{Errors: []string{}}

	if err := s.limiter.Acquire(ctx); err != nil {
		return result, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Import.Timeout)
	defer cancel()

	logger := logging.WithFields(ctx, "import_id", uuid.NewString())
	start := time.Now()
	logger.Info("customer import started")

	reader := csvcodec.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		result.Errors = append(result.Errors, "CSV file is empty")
		return result, nil
	}
	if err != nil {
		result.Errors = append(result.Errors, "Failed to read file: "+err.Error())
		return result, nil
	}

	idx, missing := ValidateHeaders(header, RequiredImportColumns)
	if len(missing) > 0 {
		result.Errors = append(result.Errors, missingColumnsMessage(missing))
		return result, nil
	}

	maxRows := s.cfg.Import.MaxRows
	for result.TotalRows < maxRows {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, "Import aborted: "+err.Error())
			break
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, "Failed to read file: "+err.Error())
			logger.Error("import read failed", "row", result.TotalRows+1, "error", err)
			break
		}
		if blankRecord(fields) {
			continue
		}

		result.TotalRows++
		outcome, err := s.importRow(ctx, fields, idx)
		switch {
		case err != nil:
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", result.TotalRows, err.Error()))
			logger.Warn("import row failed", "row", result.TotalRows, "error", err)
		case outcome == rowDuplicate:
			result.SkippedDuplicates++
		default:
			result.ImportedCount++
		}
	}

	logger.Info("customer import completed",
		"total", result.TotalRows,
		"imported", result.ImportedCount,
		"duplicates", result.SkippedDuplicates,
		"failed", result.FailedCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// importRow maps, validates and stores one record.
func (s *Service) importRow(ctx context.Context, fields []string, idx HeaderIndex) (rowOutcome, error) {
	c := customerFromRecord(fields, idx)
	c.Status = StatusLead

	if err := validateStruct(c); err != nil {
		return 0, err
	}

	exists, err := s.store.ExistsByEmail(ctx, c.Email)
	if err != nil {
		return 0, wrapIO("check email", err)
	}
	if exists {
		return rowDuplicate, nil
	}

	if _, err := s.store.CreateCustomer(ctx, c); err != nil {
		// The unique index has the final word on duplicates.
		if errors.Is(err, ErrDuplicate) {
			return rowDuplicate, nil
		}
		return 0, err
	}
	return rowImported, nil
}

// customerFromRecord maps the recognized import columns. Blank values and
// unparseable dates are left absent.
func customerFromRecord(fields []string, idx HeaderIndex) Customer {
	get := func(column string) string {
		i, ok := idx[column]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	c := Customer{
		FirstName: get("first_name"),
		LastName:  get("last_name"),
		Email:     get("email"),
		Phone:     get("phone"),
		Company:   get("company"),
		City:      get("city"),
		Country:   get("country"),
		Notes:     get("notes"),
	}
	if d, ok := ParseDate(get("last_contact_date")); ok {
		c.LastContactDate = &d
	}
	return c
}

func blankRecord(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func missingColumnsMessage(missing []string) string {
	return "Missing required columns: " + strings.Join(missing, ", ")
}

// ValidateImportFile checks an upload before it is imported and returns
// every problem found. An empty slice means the file looks importable.
func (s *Service) ValidateImportFile(size int64, contentType string, r io.Reader) []string {
	problems := []string{}

	if size == 0 {
		return append(problems, "File is empty")
	}

	ct := strings.ToLower(contentType)
	if ct != "" && !strings.Contains(ct, "csv") && !strings.Contains(ct, "text/plain") {
		problems = append(problems, "Invalid file type. Expected CSV but got: "+contentType)
	}

	if limit := s.cfg.Import.MaxFileSize; size > limit {
		problems = append(problems, fmt.Sprintf("File size exceeds %dMB limit", limit/(1024*1024)))
	}

	header, err := csvcodec.NewReader(r).Read()
	switch {
	case errors.Is(err, io.EOF):
		problems = append(problems, "CSV file has no header row")
	case err != nil:
		problems = append(problems, "Cannot read file: "+err.Error())
	default:
		if _, missing := ValidateHeaders(header, RequiredImportColumns); len(missing) > 0 {
			problems = append(problems, missingColumnsMessage(missing))
		}
	}

	return problems
}

// maxPreviewRows caps the limit a caller may ask PreviewImport for.
const maxPreviewRows = 100

// PreviewImport maps the first limit data rows without storing anything.
// A non-positive limit uses Import.PreviewRows.
func (s *Service) PreviewImport(r io.Reader, limit int) ([]Customer, error) {
	if limit <= 0 {
		limit = s.cfg.Import.PreviewRows
	}
	limit = min(limit, maxPreviewRows)

	reader := csvcodec.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Customer{}, nil
	}
	if err != nil {
		return nil, wrapIO("read import file", err)
	}

	idx, missing := ValidateHeaders(header, RequiredImportColumns)
	if len(missing) > 0 {
		return nil, newValidationError("", "", missingColumnsMessage(missing))
	}

	preview := make([]Customer, 0, limit)
	for len(preview) < limit {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return preview, wrapIO("read import file", err)
		}
		if blankRecord(fields) {
			continue
		}
		c := customerFromRecord(fields, idx)
		c.Status = StatusLead
		preview = append(preview, c)
	}
	return preview, nil
}
