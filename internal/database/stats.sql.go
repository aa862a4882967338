package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countCustomersByStatus = `SELECT status, COUNT(*) FROM customers GROUP BY status`

type CountCustomersByStatusRow struct {
	Status string
	Count  int64
}

func (q *Queries) CountCustomersByStatus(ctx context.Context) ([]CountCustomersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countCustomersByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []CountCustomersByStatusRow{}
	for rows.Next() {
		var i CountCustomersByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countDealsByStage = `SELECT stage, COUNT(*) FROM deals GROUP BY stage`

type CountDealsByStageRow struct {
	Stage string
	Count int64
}

func (q *Queries) CountDealsByStage(ctx context.Context) ([]CountDealsByStageRow, error) {
	rows, err := q.db.Query(ctx, countDealsByStage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []CountDealsByStageRow{}
	for rows.Next() {
		var i CountDealsByStageRow
		if err := rows.Scan(&i.Stage, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Deals without a value count as zero.
const sumDealValueByStage = `SELECT stage, COALESCE(SUM(value), 0)::numeric FROM deals GROUP BY stage`

type SumDealValueByStageRow struct {
	Stage string
	Total pgtype.Numeric
}

func (q *Queries) SumDealValueByStage(ctx context.Context) ([]SumDealValueByStageRow, error) {
	rows, err := q.db.Query(ctx, sumDealValueByStage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []SumDealValueByStageRow{}
	for rows.Next() {
		var i SumDealValueByStageRow
		if err := rows.Scan(&i.Stage, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
