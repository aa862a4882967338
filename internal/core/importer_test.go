package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestImportCustomers_MissingColumns(t *testing.T) {
	env := newTestService(t)
	csv := "first_name,last_name,phone\nAda,Lovelace,555\n"

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 0 || res.ImportedCount != 0 {
		t.Errorf("totals = %d/%d, want 0/0", res.TotalRows, res.ImportedCount)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Missing required columns: email" {
		t.Errorf("Errors = %q, want missing email column", res.Errors)
	}
}

func TestImportCustomers_SkipsExistingEmail(t *testing.T) {
	env := newTestService(t)
	mustCreateCustomer(t, env, "Existing", "second@example.com")

	csv := strings.Join([]string{
		"first_name,last_name,email,company",
		"Ada,Lovelace,first@example.com,Analytical",
		"Bob,Builder,SECOND@example.com,",
		"Cy,Young,third@example.com,",
	}, "\n")

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 3 || res.ImportedCount != 2 || res.SkippedDuplicates != 1 || res.FailedCount != 0 {
		t.Errorf("result = %+v, want total 3, imported 2, skipped 1, failed 0", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %q, want none", res.Errors)
	}

	n, _ := env.svc.CountCustomers(context.Background(), CustomerFilter{Status: StatusLead})
	if n != 2 {
		t.Errorf("LEAD customers = %d, want 2", n)
	}
}

func TestImportCustomers_DuplicateWithinFile(t *testing.T) {
	env := newTestService(t)
	csv := "email,first_name,last_name\na@example.com,A,One\nA@EXAMPLE.COM,A,Two\n"

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.ImportedCount != 1 || res.SkippedDuplicates != 1 {
		t.Errorf("result = %+v, want 1 imported, 1 skipped", res)
	}
}

func TestImportCustomers_FailedRows(t *testing.T) {
	env := newTestService(t)
	csv := strings.Join([]string{
		"First_Name,Last_Name,Email",
		"Ada,Lovelace,ada@example.com",
		",Nameless,nameless@example.com",
		"Bad,Email,not-an-email",
	}, "\r\n")

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 3 || res.ImportedCount != 1 || res.FailedCount != 2 {
		t.Errorf("result = %+v, want total 3, imported 1, failed 2", res)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("Errors = %q, want 2 entries", res.Errors)
	}
	if !strings.HasPrefix(res.Errors[0], "Row 2: firstName") {
		t.Errorf("Errors[0] = %q, want prefix %q", res.Errors[0], "Row 2: firstName")
	}
	if !strings.HasPrefix(res.Errors[1], "Row 3: email") {
		t.Errorf("Errors[1] = %q, want prefix %q", res.Errors[1], "Row 3: email")
	}
}

func TestImportCustomers_QuotedFieldsAndBOM(t *testing.T) {
	env := newTestService(t)
	csv := "\ufefffirst_name,last_name,email,notes,city\n" +
		"Ada,Lovelace,ada@example.com,\"Met at expo, \"\"keen\"\"\nfollow up\",London\n" +
		"\n" +
		"Bob,Builder,bob@example.com,,\n"

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 2 || res.ImportedCount != 2 {
		t.Fatalf("result = %+v, want 2 imported", res)
	}

	list, _ := env.svc.ListCustomers(context.Background(), CustomerFilter{})
	want := "Met at expo, \"keen\"\nfollow up"
	if list[0].Notes != want {
		t.Errorf("Notes = %q, want %q", list[0].Notes, want)
	}
	if list[0].City != "London" {
		t.Errorf("City = %q, want London", list[0].City)
	}
	if list[1].City != "" || list[1].Notes != "" {
		t.Errorf("blank optional fields = %q/%q, want absent", list[1].City, list[1].Notes)
	}
}

func TestImportCustomers_EmptyFile(t *testing.T) {
	env := newTestService(t)

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "CSV file is empty" {
		t.Errorf("Errors = %q, want CSV file is empty", res.Errors)
	}
}

func TestImportCustomers_RowCap(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxRows = 2
	env := newTestServiceWith(t, cfg)

	csv := "first_name,last_name,email\nA,One,a@example.com\nB,Two,b@example.com\nC,Three,c@example.com\n"
	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 2 || res.ImportedCount != 2 {
		t.Errorf("result = %+v, want 2 rows read", res)
	}
}

func TestImportCustomers_Busy(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxWaitTime = 10 * time.Millisecond
	env := newTestServiceWith(t, cfg)
	if err := env.svc.limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() on an idle limiter error = %v", err)
	}
	defer env.svc.limiter.Release()

	_, err := env.svc.ImportCustomers(context.Background(), strings.NewReader("first_name,last_name,email\n"))
	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("error = %v, want ErrTooManyImports", err)
	}
}

func TestValidateImportFile(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 2 * 1024 * 1024
	env := newTestServiceWith(t, cfg)
	good := "first_name,last_name,email\n"

	tests := []struct {
		name        string
		size        int64
		contentType string
		body        string
		want        []string
	}{
		{"valid", int64(len(good)), "text/csv", good, []string{}},
		{"plain text allowed", int64(len(good)), "text/plain; charset=utf-8", good, []string{}},
		{"empty", 0, "text/csv", "", []string{"File is empty"}},
		{"wrong type", int64(len(good)), "application/pdf", good, []string{"Invalid file type. Expected CSV but got: application/pdf"}},
		{"too large", 3 * 1024 * 1024, "text/csv", good, []string{"File size exceeds 2MB limit"}},
		{"no header", 1, "text/csv", "", []string{"CSV file has no header row"}},
		{"missing columns", 10, "text/csv", "email,phone\n", []string{"Missing required columns: first_name, last_name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.svc.ValidateImportFile(tt.size, tt.contentType, strings.NewReader(tt.body))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("ValidateImportFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreviewImport(t *testing.T) {
	env := newTestService(t)
	var b strings.Builder
	b.WriteString("first_name,last_name,email\n")
	for i := 0; i < 15; i++ {
		b.WriteString("A,B,a@example.com\n")
	}

	rows, err := env.svc.PreviewImport(strings.NewReader(b.String()), 0)
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	if len(rows) != 10 {
		t.Errorf("default preview = %d rows, want 10", len(rows))
	}
	if rows[0].Status != StatusLead || rows[0].Email != "a@example.com" {
		t.Errorf("row = %+v, want mapped LEAD customer", rows[0])
	}

	rows, _ = env.svc.PreviewImport(strings.NewReader(b.String()), 3)
	if len(rows) != 3 {
		t.Errorf("preview(3) = %d rows, want 3", len(rows))
	}

	n, _ := env.svc.CountCustomers(context.Background(), CustomerFilter{})
	if n != 0 {
		t.Errorf("preview stored %d customers, want 0", n)
	}

	if _, err := env.svc.PreviewImport(strings.NewReader("email\nx@example.com\n"), 5); !errors.Is(err, ErrValidation) {
		t.Errorf("missing columns error = %v, want ErrValidation", err)
	}
}

func TestPreviewImport_LastContactDate(t *testing.T) {
	env := newTestService(t)
	csv := "first_name,last_name,email,last_contact_date\nA,B,a@example.com,2024-03-05\nC,D,c@example.com,someday\n"

	rows, err := env.svc.PreviewImport(strings.NewReader(csv), 0)
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if rows[0].LastContactDate == nil || !rows[0].LastContactDate.Equal(want) {
		t.Errorf("LastContactDate = %v, want %v", rows[0].LastContactDate, want)
	}
	if rows[1].LastContactDate != nil {
		t.Errorf("unparseable date = %v, want nil", rows[1].LastContactDate)
	}
}

func TestImportCustomers_StrayQuoteInNotes(t *testing.T) {
	env := newTestService(t)
	csv := strings.Join([]string{
		"first_name,last_name,email,notes",
		`Ada,Lovelace,ada@example.com,wants 5" monitor`,
		"Bob,Builder,bob@example.com,",
		"Cy,Young,cy@example.com,call back",
		"Di,Prince,di@example.com,",
	}, "\n")

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 4 || res.ImportedCount != 4 || res.FailedCount != 0 {
		t.Errorf("result = %+v, want total 4, imported 4, failed 0", res)
	}

	got, err := env.svc.ListCustomers(context.Background(), CustomerFilter{Name: "Ada"})
	if err != nil || len(got) != 1 {
		t.Fatalf("ListCustomers(Ada) = %v, %v", got, err)
	}
	if got[0].Notes != `wants 5" monitor` {
		t.Errorf("Notes = %q, want %q", got[0].Notes, `wants 5" monitor`)
	}
}

func TestImportCustomers_UnclosedQuoteStillCountsRows(t *testing.T) {
	env := newTestService(t)
	csv := strings.Join([]string{
		"first_name,last_name,email,notes",
		`Ada,Lovelace,ada@example.com,"prefers email`,
		"Bob,Builder,bob@example.com,",
		"Cy,Young,cy@example.com,",
	}, "\n")

	res, err := env.svc.ImportCustomers(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCustomers() error = %v", err)
	}
	if res.TotalRows != 3 || res.ImportedCount != 3 {
		t.Errorf("result = %+v, want total 3, imported 3", res)
	}
}
