package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/daoninhthai/crm/internal/config"
	"github.com/daoninhthai/crm/internal/core"
	"github.com/daoninhthai/crm/internal/kv"
	"github.com/daoninhthai/crm/internal/mail"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second, ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{Driver: "memory"},
		Import: config.ImportConfig{
			MaxFileSize: 1 << 20, MaxRows: 100, MaxConcurrent: 1,
			MaxWaitTime: 50 * time.Millisecond, Timeout: time.Minute, PreviewRows: 10,
		},
		Security: config.SecurityConfig{EnableCSP: true},
		Report: config.ReportConfig{
			Enabled: true, Recipients: []string{"sales@example.com"}, Timezone: "UTC",
			WeeklyDay: "monday", WeeklyHour: 8,
			MonthlyDay: 1, MonthlyHour: 7, StaleHour: 9, StaleDays: 30,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc := core.NewService(core.NewMemoryStore(), kv.NewMemory(), mail.NewLogSender(nil), cfg)
	s := NewServer(svc, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// do sends a request with an optional JSON body through the router.
func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func createCustomer(t *testing.T, s *Server, first, email string) core.Customer {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/customers", map[string]any{
		"firstName": first, "lastName": "Tester", "email": email, "company": "Acme",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[core.Customer](t, rec)
}

func createDeal(t *testing.T, s *Server, customerID int64, title, value string) core.Deal {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/deals", map[string]any{
		"title": title, "customerId": customerID, "value": value, "assignedTo": "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create deal status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[core.Deal](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, http.MethodGet, "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[healthResponse](t, rec)
	if got.Status != "ok" || got.Imports.MaxConcurrent != 1 || got.Imports.Available != 1 {
		t.Errorf("health = %+v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("CSP header missing with EnableCSP")
	}
}

func TestCustomerLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig())
	ada := createCustomer(t, s, "Ada", "ada@example.com")
	if ada.ID != 1 || ada.Status != core.StatusActive {
		t.Errorf("created = %+v, want id 1 ACTIVE", ada)
	}
	createCustomer(t, s, "Bob", "bob@example.com")

	rec := do(t, s, http.MethodGet, "/api/customers?limit=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if got := decode[[]core.Customer](t, rec); len(got) != 1 {
		t.Errorf("list returned %d, want 1 with limit", len(got))
	}
	if rec.Header().Get("X-Total-Count") != "2" {
		t.Errorf("X-Total-Count = %q, want 2", rec.Header().Get("X-Total-Count"))
	}

	rec = do(t, s, http.MethodPatch, "/api/customers/1/status?status=churned", nil)
	if rec.Code != http.StatusOK || decode[core.Customer](t, rec).Status != core.StatusChurned {
		t.Errorf("status change = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPatch, "/api/customers/1/contact", nil)
	if rec.Code != http.StatusOK || decode[core.Customer](t, rec).LastContactDate == nil {
		t.Errorf("touch contact = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPut, "/api/customers/1", map[string]any{
		"firstName": "Ada", "lastName": "King", "email": "ada@example.com",
	})
	if rec.Code != http.StatusOK || decode[core.Customer](t, rec).LastName != "King" {
		t.Errorf("update = %d %s", rec.Code, rec.Body.String())
	}

	if rec = do(t, s, http.MethodDelete, "/api/customers/1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec = do(t, s, http.MethodGet, "/api/customers/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t, testConfig())
	createCustomer(t, s, "Ada", "ada@example.com")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"not found", http.MethodGet, "/api/customers/42", nil, http.StatusNotFound, "CRM001"},
		{"duplicate email", http.MethodPost, "/api/customers", map[string]any{
			"firstName": "A", "lastName": "B", "email": "ADA@example.com",
		}, http.StatusConflict, "CRM002"},
		{"validation", http.MethodPost, "/api/customers", map[string]any{
			"firstName": "", "lastName": "B", "email": "x@example.com",
		}, http.StatusBadRequest, "CRM004"},
		{"bad id", http.MethodGet, "/api/customers/abc", nil, http.StatusBadRequest, "CRM004"},
		{"empty body", http.MethodPost, "/api/deals", nil, http.StatusBadRequest, "CRM004"},
		{"unknown status filter", http.MethodGet, "/api/customers?status=VIP", nil, http.StatusBadRequest, "CRM004"},
		{"unknown stage filter", http.MethodGet, "/api/deals?stage=DONE", nil, http.StatusBadRequest, "CRM004"},
		{"unknown report kind", http.MethodPost, "/api/reports/daily/run", nil, http.StatusBadRequest, "CRM004"},
		{"unknown report type", http.MethodGet, "/api/reports?type=DAILY", nil, http.StatusBadRequest, "CRM004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			got := decode[ErrorResponse](t, rec)
			if got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.Message == "" || got.Error == "" {
				t.Errorf("response = %+v, want message and error", got)
			}
		})
	}
}

func TestDealStageMoves(t *testing.T) {
	s := newTestServer(t, testConfig())
	c := createCustomer(t, s, "Ada", "ada@example.com")
	d := createDeal(t, s, c.ID, "Big deal", "1000")
	if d.Stage != core.StageLead || d.Probability != 10 {
		t.Errorf("new deal = %+v, want LEAD at 10%%", d)
	}

	rec := do(t, s, http.MethodPatch, "/api/deals/1/stage?stage=WON", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("LEAD to WON status = %d, want 422", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "CRM003" || !strings.Contains(got.Error, "allowed transitions: [QUALIFIED, LOST]") {
		t.Errorf("transition error = %+v", got)
	}

	for _, stage := range []string{"qualified", "PROPOSAL", "NEGOTIATION", "WON"} {
		rec = do(t, s, http.MethodPatch, "/api/deals/1/stage?stage="+stage, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("move to %s status = %d, body %s", stage, rec.Code, rec.Body.String())
		}
	}
	won := decode[core.Deal](t, rec)
	if won.Probability != 100 || won.ActualCloseDate == nil {
		t.Errorf("won deal = %+v, want probability 100 and close date", won)
	}

	rec = do(t, s, http.MethodGet, "/api/deals?stage=won&customer=1", nil)
	if got := decode[[]core.Deal](t, rec); len(got) != 1 {
		t.Errorf("filtered deals = %d, want 1", len(got))
	}

	rec = do(t, s, http.MethodGet, "/api/pipeline/representative/alice", nil)
	if got := decode[[]core.Deal](t, rec); len(got) != 1 {
		t.Errorf("representative deals = %d, want 1", len(got))
	}

	rec = do(t, s, http.MethodGet, "/api/pipeline/summary", nil)
	summary := decode[core.PipelineSummary](t, rec)
	if summary.TotalDeals != 1 || summary.CountByStage[core.StageWon] != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rec = do(t, s, http.MethodGet, "/api/pipeline", nil)
	board := decode[map[core.Stage][]core.Deal](t, rec)
	if len(board) != len(core.Stages) || len(board[core.StageWon]) != 1 {
		t.Errorf("board = %v, want every stage with the won deal", board)
	}

	rec = do(t, s, http.MethodGet, "/api/dashboard/stats", nil)
	stats := decode[core.DashboardStats](t, rec)
	if stats.WonDeals != 1 || stats.ConversionRate != 100 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestActivities(t *testing.T) {
	s := newTestServer(t, testConfig())
	c := createCustomer(t, s, "Ada", "ada@example.com")
	d := createDeal(t, s, c.ID, "Deal", "10")

	rec := do(t, s, http.MethodPost, "/api/activities", map[string]any{
		"type": "call", "subject": "Intro", "customerId": c.ID, "dealId": d.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create activity status = %d, body %s", rec.Code, rec.Body.String())
	}
	a := decode[core.Activity](t, rec)
	if a.Type != core.ActivityCall {
		t.Errorf("Type = %s, want CALL", a.Type)
	}

	for _, path := range []string{"/api/customers/1/activities", "/api/deals/1/activities"} {
		rec = do(t, s, http.MethodGet, path, nil)
		if got := decode[[]core.Activity](t, rec); len(got) != 1 {
			t.Errorf("%s = %d activities, want 1", path, len(got))
		}
	}

	if rec = do(t, s, http.MethodDelete, "/api/activities/1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec = do(t, s, http.MethodGet, "/api/activities/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", rec.Code)
	}
}

// multipartRequest builds a POST with the CSV in the "file" field.
func multipartRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = io.WriteString(part, content)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportCustomers(t *testing.T) {
	s := newTestServer(t, testConfig())
	createCustomer(t, s, "Ada", "ada@example.com")

	csv := "first_name,last_name,email,company\n" +
		"Ada,Lovelace,ada@example.com,Acme\n" +
		"Grace,Hopper,grace@example.com,Navy\n" +
		",NoFirst,nofirst@example.com,\n"
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, multipartRequest(t, "/api/customers/import", "customers.csv", csv))

	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[core.ImportResult](t, rec)
	if got.TotalRows != 3 || got.ImportedCount != 1 || got.SkippedDuplicates != 1 || got.FailedCount != 1 {
		t.Errorf("result = %+v, want 3/1/1/1", got)
	}

	rec = do(t, s, http.MethodGet, "/api/customers?status=LEAD", nil)
	if leads := decode[[]core.Customer](t, rec); len(leads) != 1 || leads[0].Email != "grace@example.com" {
		t.Errorf("imported leads = %+v", leads)
	}
}

func TestImportCustomers_MissingColumnsIsAResult(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, multipartRequest(t, "/api/customers/import", "c.csv", "name,email\nAda,a@example.com\n"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[core.ImportResult](t, rec)
	if got.TotalRows != 0 || len(got.Errors) != 1 || !strings.HasPrefix(got.Errors[0], "Missing required columns") {
		t.Errorf("result = %+v", got)
	}
}

func TestImportUploadErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 1024
	s := newTestServer(t, cfg)

	tests := []struct {
		name    string
		req     *http.Request
		wantMsg string
	}{
		{"too large", multipartRequest(t, "/api/customers/import", "big.csv", strings.Repeat("x", 200<<10)), "exceeds"},
		{"not utf8", multipartRequest(t, "/api/customers/import", "latin1.csv", "first_name,last_name,email\nJos\xe9,X,j@example.com\n"), "UTF-8"},
		{"no file", httptest.NewRequest(http.MethodPost, "/api/customers/import", strings.NewReader("")), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if got := decode[ErrorResponse](t, rec); !strings.Contains(got.Error, tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", got.Error, tt.wantMsg)
			}
		})
	}
}

func TestValidateAndPreviewImport(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, multipartRequest(t, "/api/customers/import/validate", "c.csv", "first_name,email\nAda,a@example.com\n"))
	v := decode[validationResponse](t, rec)
	if v.Valid || len(v.Errors) != 1 || v.Errors[0] != "Missing required columns: last_name" {
		t.Errorf("validate = %+v", v)
	}

	csv := "first_name,last_name,email\nA,One,a@example.com\nB,Two,b@example.com\nC,Three,c@example.com\n"
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, multipartRequest(t, "/api/customers/import/preview?limit=2", "c.csv", csv))
	if got := decode[[]core.Customer](t, rec); len(got) != 2 || got[1].LastName != "Two" {
		t.Errorf("preview = %+v, want first two rows", got)
	}

	rec = do(t, s, http.MethodGet, "/api/customers", nil)
	if got := decode[[]core.Customer](t, rec); len(got) != 0 {
		t.Errorf("preview stored %d customers, want 0", len(got))
	}
}

func TestExportCustomers(t *testing.T) {
	s := newTestServer(t, testConfig())
	createCustomer(t, s, "Ada", "ada@example.com")

	rec := do(t, s, http.MethodGet, "/api/customers/export?columns=Email,Status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != core.CSVContentType {
		t.Errorf("Content-Type = %q, want %q", ct, core.CSVContentType)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, `attachment; filename="customers_`) || !strings.HasSuffix(cd, `.csv"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	if !strings.Contains(body, "ada@example.com,ACTIVE") {
		t.Errorf("body = %q, want the customer row", body)
	}

	rec = do(t, s, http.MethodGet, "/api/customers/export?columns=contact&status=lead", nil)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "contacts_") {
		t.Errorf("contact export disposition = %q", cd)
	}
	if strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Error("status filter ignored: ACTIVE customer exported as LEAD")
	}
}

func TestEmailTemplateRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/email-templates", map[string]any{
		"name": "Welcome", "subject": "Hi {{firstName}}", "body": "Hello {{firstName}}", "category": "onboarding",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/email-templates/1/render", map[string]string{"firstName": "Ada"})
	got := decode[core.RenderedEmail](t, rec)
	if got.Subject != "Hi Ada" || got.Body != "Hello Ada" {
		t.Errorf("rendered = %+v", got)
	}

	rec = do(t, s, http.MethodPost, "/api/email-templates/1/render", nil)
	if got := decode[core.RenderedEmail](t, rec); got.Subject != "Hi {{firstName}}" {
		t.Errorf("render without vars = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/email-templates?category=ONBOARDING", nil)
	if list := decode[[]core.EmailTemplate](t, rec); len(list) != 1 {
		t.Errorf("list = %d templates, want 1", len(list))
	}

	if rec = do(t, s, http.MethodDelete, "/api/email-templates/1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec = do(t, s, http.MethodGet, "/api/email-templates/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", rec.Code)
	}
}

func TestRunReports(t *testing.T) {
	s := newTestServer(t, testConfig())
	createCustomer(t, s, "Ada", "ada@example.com")

	rec := do(t, s, http.MethodPost, "/api/reports/weekly/run", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("weekly run status = %d, body %s", rec.Code, rec.Body.String())
	}
	if r := decode[core.Report](t, rec); r.Type != core.ReportWeekly || !strings.HasPrefix(r.Content, "=== CRM Weekly Report ===") {
		t.Errorf("weekly report = %+v", r)
	}

	rec = do(t, s, http.MethodPost, "/api/reports/stale-leads/run", nil)
	if got := decode[staleLeadsResponse](t, rec); got.Count != 0 {
		t.Errorf("stale leads = %+v, want none for a never-contacted customer", got)
	}

	rec = do(t, s, http.MethodGet, "/api/reports?type=weekly", nil)
	if list := decode[[]core.Report](t, rec); len(list) != 1 {
		t.Errorf("reports = %d, want 1", len(list))
	}
}

func TestAnalyticsRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())
	c := createCustomer(t, s, "Ada", "ada@example.com")
	createDeal(t, s, c.ID, "Open", "500")
	do(t, s, http.MethodPatch, "/api/deals/1/stage?stage=QUALIFIED", nil)

	rec := do(t, s, http.MethodGet, "/api/analytics/forecast", nil)
	if got := decode[map[string]string](t, rec); got["forecast"] != "50" {
		t.Errorf("forecast = %v, want 50 (500 at 10%%)", got)
	}

	rec = do(t, s, http.MethodGet, "/api/analytics/acquisition?months=3", nil)
	if got := decode[[]core.TrendPoint](t, rec); len(got) != 3 || got[2].Count != 1 {
		t.Errorf("acquisition = %v", got)
	}

	for _, path := range []string{
		"/api/analytics/cycle-time", "/api/analytics/win-rates", "/api/analytics/churn",
		"/api/analytics/top-deals?limit=5", "/api/dashboard/revenue-by-month", "/api/dashboard/deals-by-stage",
		"/api/dashboard/top-performers", "/api/dashboard/customers-by-company", "/api/pipeline/value",
	} {
		if rec := do(t, s, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestDashboardPage(t *testing.T) {
	s := newTestServer(t, testConfig())
	c := createCustomer(t, s, "Ada", "ada@example.com")
	rec := do(t, s, http.MethodPost, "/api/deals", map[string]any{
		"title": "T", "customerId": c.ID, "value": "10", "assignedTo": "<script>x</script>",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create deal = %d", rec.Code)
	}
	for _, st := range []string{"QUALIFIED", "PROPOSAL", "NEGOTIATION", "WON"} {
		do(t, s, http.MethodPatch, "/api/deals/1/stage?stage="+st, nil)
	}

	rec = do(t, s, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"CRM Dashboard", "Total customers", "NEGOTIATION", "&lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, "<script>x") {
		t.Error("dashboard did not escape representative name")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	if rec := do(t, s, http.MethodGet, "/api/customers", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with key = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200 without key", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://app.example.com"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/customers", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("Allow-Methods = %q, want POST", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Total-Count") {
		t.Errorf("Expose-Headers = %q, want X-Total-Count listed", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin was allowed")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	rl := &rateLimiter{visitors: map[string]*visitor{}, rate: 2, window: time.Minute, now: func() time.Time { return now }}

	for i, want := range []bool{true, true, false} {
		if got := rl.allow("1.2.3.4"); got != want {
			t.Errorf("request %d allow = %v, want %v", i+1, got, want)
		}
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other client should have its own budget")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("1.2.3.4") {
		t.Error("budget should reset after the window")
	}

	now = now.Add(3 * time.Minute)
	rl.sweep()
	if len(rl.visitors) != 0 {
		t.Errorf("sweep left %d visitors, want 0", len(rl.visitors))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(t, cfg)

	var last *httptest.ResponseRecorder
	for range 3 {
		last = do(t, s, http.MethodGet, "/healthz", nil)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", last.Header().Get("Retry-After"))
	}
	if got := decode[ErrorResponse](t, last); got.Code != "CRM010" {
		t.Errorf("code = %s, want CRM010", got.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{&core.NotFoundError{Resource: "Customer", ID: 1}, http.StatusNotFound},
		{&core.DuplicateError{Resource: "Customer", Field: "email", Value: "a"}, http.StatusConflict},
		{&core.TransitionError{From: core.StageLead, To: core.StageWon}, http.StatusUnprocessableEntity},
		{&core.ValidationError{Field: "email", Message: "bad"}, http.StatusBadRequest},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{core.ErrIO, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
