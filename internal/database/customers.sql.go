package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, first_name, last_name, email, phone, company, address, city, country,
	notes, industry, source, deal_value, status, last_contact_date, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.Phone,
		&i.Company,
		&i.Address,
		&i.City,
		&i.Country,
		&i.Notes,
		&i.Industry,
		&i.Source,
		&i.DealValue,
		&i.Status,
		&i.LastContactDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCustomer = `INSERT INTO customers (
	first_name, last_name, email, phone, company, address, city, country,
	notes, industry, source, deal_value, status, last_contact_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           pgtype.Text
	Company         pgtype.Text
	Address         pgtype.Text
	City            pgtype.Text
	Country         pgtype.Text
	Notes           pgtype.Text
	Industry        pgtype.Text
	Source          pgtype.Text
	DealValue       pgtype.Numeric
	Status          string
	LastContactDate pgtype.Date
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.Address,
		arg.City,
		arg.Country,
		arg.Notes,
		arg.Industry,
		arg.Source,
		arg.DealValue,
		arg.Status,
		arg.LastContactDate,
	)
	return scanCustomer(row)
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

func (q *Queries) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, id))
}

const updateCustomer = `UPDATE customers SET
	first_name = $2, last_name = $3, email = $4, phone = $5, company = $6,
	address = $7, city = $8, country = $9, notes = $10, industry = $11,
	source = $12, deal_value = $13, status = $14, last_contact_date = $15,
	updated_at = now()
WHERE id = $1
RETURNING ` + customerColumns

type UpdateCustomerParams struct {
	ID int64
	CreateCustomerParams
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer,
		arg.ID,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.Address,
		arg.City,
		arg.Country,
		arg.Notes,
		arg.Industry,
		arg.Source,
		arg.DealValue,
		arg.Status,
		arg.LastContactDate,
	)
	return scanCustomer(row)
}

const deleteCustomer = `DELETE FROM customers WHERE id = $1`

// DeleteCustomer returns the number of rows removed.
func (q *Queries) DeleteCustomer(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCustomer, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const customerExistsByEmail = `SELECT EXISTS (SELECT 1 FROM customers WHERE lower(email) = lower($1))`

func (q *Queries) CustomerExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, customerExistsByEmail, email).Scan(&exists)
	return exists, err
}

// ListCustomers runs a filtered listing. A non-positive limit means no limit.
func (q *Queries) ListCustomers(ctx context.Context, wb *WhereBuilder, limit, offset int) ([]Customer, error) {
	paging := wb.Page(limit, offset)
	where, args := wb.Build()
	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY id` + paging

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Customer{}
	for rows.Next() {
		i, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) CountCustomers(ctx context.Context, wb *WhereBuilder) (int64, error) {
	where, args := wb.Build()
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&count)
	return count, err
}
