package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const activityColumns = `id, type, subject, notes, customer_id, deal_id, performed_by,
	duration_minutes, activity_date, created_at`

func scanActivity(row pgx.Row) (Activity, error) {
	var i Activity
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Subject,
		&i.Notes,
		&i.CustomerID,
		&i.DealID,
		&i.PerformedBy,
		&i.DurationMinutes,
		&i.ActivityDate,
		&i.CreatedAt,
	)
	return i, err
}

const createActivity = `INSERT INTO activities (
	type, subject, notes, customer_id, deal_id, performed_by, duration_minutes, activity_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + activityColumns

type CreateActivityParams struct {
	Type            string
	Subject         string
	Notes           pgtype.Text
	CustomerID      int64
	DealID          pgtype.Int8
	PerformedBy     pgtype.Text
	DurationMinutes pgtype.Int4
	ActivityDate    pgtype.Timestamptz
}

func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) (Activity, error) {
	row := q.db.QueryRow(ctx, createActivity,
		arg.Type,
		arg.Subject,
		arg.Notes,
		arg.CustomerID,
		arg.DealID,
		arg.PerformedBy,
		arg.DurationMinutes,
		arg.ActivityDate,
	)
	return scanActivity(row)
}

const getActivity = `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

func (q *Queries) GetActivity(ctx context.Context, id int64) (Activity, error) {
	return scanActivity(q.db.QueryRow(ctx, getActivity, id))
}

const listActivitiesByCustomer = `SELECT ` + activityColumns + ` FROM activities
WHERE customer_id = $1 ORDER BY activity_date DESC, id DESC`

func (q *Queries) ListActivitiesByCustomer(ctx context.Context, customerID int64) ([]Activity, error) {
	return q.listActivities(ctx, listActivitiesByCustomer, customerID)
}

const listActivitiesByDeal = `SELECT ` + activityColumns + ` FROM activities
WHERE deal_id = $1 ORDER BY activity_date DESC, id DESC`

func (q *Queries) ListActivitiesByDeal(ctx context.Context, dealID int64) ([]Activity, error) {
	return q.listActivities(ctx, listActivitiesByDeal, dealID)
}

func (q *Queries) listActivities(ctx context.Context, query string, id int64) ([]Activity, error) {
	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Activity{}
	for rows.Next() {
		i, err := scanActivity(rows)
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

const deleteActivity = `DELETE FROM activities WHERE id = $1`

func (q *Queries) DeleteActivity(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteActivity, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
