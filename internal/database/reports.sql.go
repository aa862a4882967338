package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reportColumns = `id, report_type, content, period_start, period_end, created_at`

func scanReport(row pgx.Row) (Report, error) {
	var i Report
	err := row.Scan(
		&i.ID,
		&i.ReportType,
		&i.Content,
		&i.PeriodStart,
		&i.PeriodEnd,
		&i.CreatedAt,
	)
	return i, err
}

const saveReport = `INSERT INTO reports (report_type, content, period_start, period_end)
VALUES ($1, $2, $3, $4)
RETURNING ` + reportColumns

type SaveReportParams struct {
	ReportType  string
	Content     string
	PeriodStart pgtype.Date
	PeriodEnd   pgtype.Date
}

func (q *Queries) SaveReport(ctx context.Context, arg SaveReportParams) (Report, error) {
	row := q.db.QueryRow(ctx, saveReport,
		arg.ReportType,
		arg.Content,
		arg.PeriodStart,
		arg.PeriodEnd,
	)
	return scanReport(row)
}

const listReports = `SELECT ` + reportColumns + ` FROM reports
WHERE ($1::text = '' OR report_type = $1)
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListReports(ctx context.Context, reportType string) ([]Report, error) {
	rows, err := q.db.Query(ctx, listReports, reportType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Report{}
	for rows.Next() {
		i, err := scanReport(rows)
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
