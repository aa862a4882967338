package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const dealColumns = `id, title, description, value, stage, probability, customer_id, assigned_to,
	expected_close_date, actual_close_date, source, created_at, updated_at`

func scanDeal(row pgx.Row) (Deal, error) {
	var i Deal
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Value,
		&i.Stage,
		&i.Probability,
		&i.CustomerID,
		&i.AssignedTo,
		&i.ExpectedCloseDate,
		&i.ActualCloseDate,
		&i.Source,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createDeal = `INSERT INTO deals (
	title, description, value, stage, probability, customer_id, assigned_to,
	expected_close_date, actual_close_date, source
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + dealColumns

type CreateDealParams struct {
	Title             string
	Description       pgtype.Text
	Value             pgtype.Numeric
	Stage             string
	Probability       int32
	CustomerID        int64
	AssignedTo        pgtype.Text
	ExpectedCloseDate pgtype.Date
	ActualCloseDate   pgtype.Date
	Source            pgtype.Text
}

func (q *Queries) CreateDeal(ctx context.Context, arg CreateDealParams) (Deal, error) {
	row := q.db.QueryRow(ctx, createDeal,
		arg.Title,
		arg.Description,
		arg.Value,
		arg.Stage,
		arg.Probability,
		arg.CustomerID,
		arg.AssignedTo,
		arg.ExpectedCloseDate,
		arg.ActualCloseDate,
		arg.Source,
	)
	return scanDeal(row)
}

const getDeal = `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`

func (q *Queries) GetDeal(ctx context.Context, id int64) (Deal, error) {
	return scanDeal(q.db.QueryRow(ctx, getDeal, id))
}

const getDealForUpdate = `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 FOR UPDATE`

// GetDealForUpdate locks the row until the surrounding transaction ends.
func (q *Queries) GetDealForUpdate(ctx context.Context, id int64) (Deal, error) {
	return scanDeal(q.db.QueryRow(ctx, getDealForUpdate, id))
}

const updateDeal = `UPDATE deals SET
	title = $2, description = $3, value = $4, stage = $5, probability = $6,
	customer_id = $7, assigned_to = $8, expected_close_date = $9,
	actual_close_date = $10, source = $11, updated_at = now()
WHERE id = $1
RETURNING ` + dealColumns

type UpdateDealParams struct {
	ID int64
	CreateDealParams
}

func (q *Queries) UpdateDeal(ctx context.Context, arg UpdateDealParams) (Deal, error) {
	row := q.db.QueryRow(ctx, updateDeal,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.Value,
		arg.Stage,
		arg.Probability,
		arg.CustomerID,
		arg.AssignedTo,
		arg.ExpectedCloseDate,
		arg.ActualCloseDate,
		arg.Source,
	)
	return scanDeal(row)
}

const deleteDeal = `DELETE FROM deals WHERE id = $1`

func (q *Queries) DeleteDeal(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDeal, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListDeals runs a filtered listing. A non-positive limit means no limit.
func (q *Queries) ListDeals(ctx context.Context, wb *WhereBuilder, limit, offset int) ([]Deal, error) {
	paging := wb.Page(limit, offset)
	where, args := wb.Build()
	query := `SELECT ` + dealColumns + ` FROM deals` + where + ` ORDER BY id` + paging

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Deal{}
	for rows.Next() {
		i, err := scanDeal(rows)
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
