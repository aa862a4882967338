package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	db "github.com/daoninhthai/crm/internal/database"
)

// Postgres error codes the store translates into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool. The schema must already be applied
// (see database.Migrate).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) queries() *db.Queries {
	return db.New(p.pool)
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

// translate maps driver errors onto the domain error categories.
func translate(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(resource, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &DuplicateError{Resource: resource, Field: "email", Value: fmt.Sprint(id)}
		case pgForeignKeyViolation:
			return newValidationError("", "", "referenced record does not exist: "+pgErr.ConstraintName)
		}
	}
	return wrapIO(resource, err)
}

// ----------------------------------------------------------------------------
// Customers
// ----------------------------------------------------------------------------

func (p *PostgresStore) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	row, err := p.queries().CreateCustomer(ctx, customerParams(c))
	if err != nil {
		return Customer{}, translate(err, "Customer", c.Email)
	}
	return customerFromRow(row), nil
}

func (p *PostgresStore) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	row, err := p.queries().GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, translate(err, "Customer", id)
	}
	return customerFromRow(row), nil
}

func (p *PostgresStore) ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error) {
	rows, err := p.queries().ListCustomers(ctx, customerWhere(f), f.Limit, f.Offset)
	if err != nil {
		return nil, wrapIO("list customers", err)
	}
	out := make([]Customer, len(rows))
	for i, r := range rows {
		out[i] = customerFromRow(r)
	}
	return out, nil
}

func (p *PostgresStore) CountCustomers(ctx context.Context, f CustomerFilter) (int64, error) {
	n, err := p.queries().CountCustomers(ctx, customerWhere(f))
	if err != nil {
		return 0, wrapIO("count customers", err)
	}
	return n, nil
}

func (p *PostgresStore) UpdateCustomer(ctx context.Context, c Customer) (Customer, error) {
	row, err := p.queries().UpdateCustomer(ctx, db.UpdateCustomerParams{
		ID:                   c.ID,
		CreateCustomerParams: customerParams(c),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Customer{}, &DuplicateError{Resource: "Customer", Field: "email", Value: c.Email}
		}
		return Customer{}, translate(err, "Customer", c.ID)
	}
	return customerFromRow(row), nil
}

func (p *PostgresStore) DeleteCustomer(ctx context.Context, id int64) error {
	n, err := p.queries().DeleteCustomer(ctx, id)
	if err != nil {
		return wrapIO("delete customer", err)
	}
	if n == 0 {
		return notFound("Customer", id)
	}
	return nil
}

func (p *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ok, err := p.queries().CustomerExistsByEmail(ctx, email)
	if err != nil {
		return false, wrapIO("check email", err)
	}
	return ok, nil
}

// customerWhere builds the SQL filter equivalent of matchesCustomer.
func customerWhere(f CustomerFilter) *db.WhereBuilder {
	wb := db.NewWhereBuilder()
	wb.Add("status", string(f.Status))
	if f.ExcludeStatus != "" {
		wb.AddCompare("status", "<>", string(f.ExcludeStatus))
	}
	wb.AddFold("company", f.Company)
	wb.AddSearch(f.Name, "first_name", "last_name")
	if f.CreatedFrom != nil {
		wb.AddCompare("created_at", ">=", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		wb.AddCompare("created_at", "<=", *f.CreatedTo)
	}
	if f.ContactedFrom != nil || f.ContactedTo != nil || f.ContactedUntil != nil {
		wb.AddRaw("last_contact_date IS NOT NULL")
	}
	if f.ContactedFrom != nil {
		wb.AddCompare("last_contact_date", ">=", ToPgDate(f.ContactedFrom))
	}
	if f.ContactedTo != nil {
		wb.AddCompare("last_contact_date", "<=", ToPgDate(f.ContactedTo))
	}
	if f.ContactedUntil != nil {
		wb.AddCompare("last_contact_date", "<", ToPgDate(f.ContactedUntil))
	}
	return wb
}

// ----------------------------------------------------------------------------
// Deals
// ----------------------------------------------------------------------------

func (p *PostgresStore) CreateDeal(ctx context.Context, d Deal) (Deal, error) {
	row, err := p.queries().CreateDeal(ctx, dealParams(d))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Deal{}, notFound("Customer", d.CustomerID)
		}
		return Deal{}, translate(err, "Deal", d.ID)
	}
	return dealFromRow(row), nil
}

func (p *PostgresStore) GetDeal(ctx context.Context, id int64) (Deal, error) {
	row, err := p.queries().GetDeal(ctx, id)
	if err != nil {
		return Deal{}, translate(err, "Deal", id)
	}
	return dealFromRow(row), nil
}

func (p *PostgresStore) ListDeals(ctx context.Context, f DealFilter) ([]Deal, error) {
	wb := db.NewWhereBuilder()
	wb.Add("stage", string(f.Stage))
	wb.AddFold("assigned_to", f.AssignedTo)
	wb.Add("customer_id", f.CustomerID)

	rows, err := p.queries().ListDeals(ctx, wb, f.Limit, f.Offset)
	if err != nil {
		return nil, wrapIO("list deals", err)
	}
	out := make([]Deal, len(rows))
	for i, r := range rows {
		out[i] = dealFromRow(r)
	}
	return out, nil
}

func (p *PostgresStore) UpdateDeal(ctx context.Context, d Deal) (Deal, error) {
	row, err := p.queries().UpdateDeal(ctx, db.UpdateDealParams{ID: d.ID, CreateDealParams: dealParams(d)})
	if err != nil {
		return Deal{}, translate(err, "Deal", d.ID)
	}
	return dealFromRow(row), nil
}

// MutateDeal locks the row with SELECT ... FOR UPDATE, applies fn and writes
// the result in the same transaction.
func (p *PostgresStore) MutateDeal(ctx context.Context, id int64, fn func(Deal) (Deal, error)) (Deal, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Deal{}, wrapIO("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	q := p.queries().WithTx(tx)
	row, err := q.GetDealForUpdate(ctx, id)
	if err != nil {
		return Deal{}, translate(err, "Deal", id)
	}
	existing := dealFromRow(row)

	updated, err := fn(existing)
	if err != nil {
		return existing, err
	}

	saved, err := q.UpdateDeal(ctx, db.UpdateDealParams{ID: id, CreateDealParams: dealParams(updated)})
	if err != nil {
		return existing, translate(err, "Deal", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return existing, wrapIO("commit transaction", err)
	}
	return dealFromRow(saved), nil
}

func (p *PostgresStore) DeleteDeal(ctx context.Context, id int64) error {
	n, err := p.queries().DeleteDeal(ctx, id)
	if err != nil {
		return wrapIO("delete deal", err)
	}
	if n == 0 {
		return notFound("Deal", id)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Activities
// ----------------------------------------------------------------------------

func (p *PostgresStore) CreateActivity(ctx context.Context, a Activity) (Activity, error) {
	row, err := p.queries().CreateActivity(ctx, activityParams(a))
	if err != nil {
		return Activity{}, translate(err, "Activity", a.ID)
	}
	return activityFromRow(row), nil
}

func (p *PostgresStore) GetActivity(ctx context.Context, id int64) (Activity, error) {
	row, err := p.queries().GetActivity(ctx, id)
	if err != nil {
		return Activity{}, translate(err, "Activity", id)
	}
	return activityFromRow(row), nil
}

func (p *PostgresStore) ListActivitiesByCustomer(ctx context.Context, customerID int64) ([]Activity, error) {
	rows, err := p.queries().ListActivitiesByCustomer(ctx, customerID)
	if err != nil {
		return nil, wrapIO("list activities", err)
	}
	return activitiesFromRows(rows), nil
}

func (p *PostgresStore) ListActivitiesByDeal(ctx context.Context, dealID int64) ([]Activity, error) {
	rows, err := p.queries().ListActivitiesByDeal(ctx, dealID)
	if err != nil {
		return nil, wrapIO("list activities", err)
	}
	return activitiesFromRows(rows), nil
}

func activitiesFromRows(rows []db.Activity) []Activity {
	out := make([]Activity, len(rows))
	for i, r := range rows {
		out[i] = activityFromRow(r)
	}
	return out
}

func (p *PostgresStore) DeleteActivity(ctx context.Context, id int64) error {
	n, err := p.queries().DeleteActivity(ctx, id)
	if err != nil {
		return wrapIO("delete activity", err)
	}
	if n == 0 {
		return notFound("Activity", id)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Stats
// ----------------------------------------------------------------------------

func (p *PostgresStore) CountCustomersByStatus(ctx context.Context) (map[CustomerStatus]int64, error) {
	rows, err := p.queries().CountCustomersByStatus(ctx)
	if err != nil {
		return nil, wrapIO("count customers by status", err)
	}
	out := make(map[CustomerStatus]int64, len(rows))
	for _, r := range rows {
		out[CustomerStatus(r.Status)] = r.Count
	}
	return out, nil
}

func (p *PostgresStore) CountDealsByStage(ctx context.Context) (map[Stage]int64, error) {
	rows, err := p.queries().CountDealsByStage(ctx)
	if err != nil {
		return nil, wrapIO("count deals by stage", err)
	}
	out := make(map[Stage]int64, len(rows))
	for _, r := range rows {
		out[Stage(r.Stage)] = r.Count
	}
	return out, nil
}

func (p *PostgresStore) SumDealValueByStage(ctx context.Context) (map[Stage]decimal.Decimal, error) {
	rows, err := p.queries().SumDealValueByStage(ctx)
	if err != nil {
		return nil, wrapIO("sum deal value by stage", err)
	}
	out := make(map[Stage]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[Stage(r.Stage)] = FromPgNumeric(r.Total).Decimal
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Reports
// ----------------------------------------------------------------------------

func (p *PostgresStore) SaveReport(ctx context.Context, r Report) (Report, error) {
	row, err := p.queries().SaveReport(ctx, db.SaveReportParams{
		ReportType:  string(r.Type),
		Content:     r.Content,
		PeriodStart: ToPgDate(&r.PeriodStart),
		PeriodEnd:   ToPgDate(&r.PeriodEnd),
	})
	if err != nil {
		return Report{}, wrapIO("save report", err)
	}
	return reportFromRow(row), nil
}

func (p *PostgresStore) ListReports(ctx context.Context, reportType ReportType) ([]Report, error) {
	rows, err := p.queries().ListReports(ctx, string(reportType))
	if err != nil {
		return nil, wrapIO("list reports", err)
	}
	out := make([]Report, len(rows))
	for i, r := range rows {
		out[i] = reportFromRow(r)
	}
	return out, nil
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
