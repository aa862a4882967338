package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"github.com/daoninhthai/crm/internal/core"
	"github.com/daoninhthai/crm/internal/logging"
)

// dashboardData is everything the HTML dashboard shows.
type dashboardData struct {
	Stats      core.DashboardStats
	Pipeline   core.PipelineSummary
	Values     map[core.Stage]decimal.Decimal
	Performers []core.PerformerStats
}

// handleDashboard renders the HTML overview page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		data dashboardData
		err  error
	)
	if data.Stats, err = s.service.DashboardStats(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	if data.Pipeline, err = s.service.PipelineSummary(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	if data.Values, err = s.service.PipelineValueByStage(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	if data.Performers, err = s.service.TopPerformers(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardPage(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render dashboard", "error", err)
	}
}

// dashboardPage is the full dashboard document.
func dashboardPage(d dashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>CRM Dashboard</title>`+
			`<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}td,th{padding:.25rem .75rem;border-bottom:1px solid #ddd;text-align:left}</style>`+
			`</head><body><h1>CRM Dashboard</h1>`); err != nil {
			return err
		}
		for _, c := range []templ.Component{statsSection(d.Stats), pipelineSection(d), performersSection(d.Performers)} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func statsSection(st core.DashboardStats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rows := [][]string{
			{"Total customers", strconv.FormatInt(st.TotalCustomers, 10)},
			{"Active customers", strconv.FormatInt(st.ActiveCustomers, 10)},
			{"Total deals", strconv.FormatInt(st.TotalDeals, 10)},
			{"Won deals", strconv.FormatInt(st.WonDeals, 10)},
			{"Won revenue", "$" + st.TotalRevenue.StringFixed(2)},
			{"Conversion rate", strconv.FormatFloat(st.ConversionRate, 'f', 2, 64) + "%"},
		}
		return table(w, "Overview", nil, rows)
	})
}

func pipelineSection(d dashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rows := make([][]string, 0, len(core.Stages))
		for _, stage := range core.Stages {
			rows = append(rows, []string{
				string(stage),
				strconv.FormatInt(d.Pipeline.CountByStage[stage], 10),
				"$" + d.Values[stage].StringFixed(2),
			})
		}
		caption := fmt.Sprintf("Pipeline (weighted $%s)", d.Pipeline.WeightedValue.StringFixed(2))
		return table(w, caption, []string{"Stage", "Deals", "Value"}, rows)
	})
}

func performersSection(performers []core.PerformerStats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rows := make([][]string, 0, len(performers))
		for _, p := range performers {
			rows = append(rows, []string{p.Representative, strconv.FormatInt(p.WonDeals, 10), "$" + p.Revenue.StringFixed(2)})
		}
		return table(w, "Top performers", []string{"Representative", "Won deals", "Revenue"}, rows)
	})
}

// table writes an escaped HTML table with an h2 caption.
func table(w io.Writer, caption string, head []string, rows [][]string) error {
	var b []byte
	b = append(b, "<section><h2>"...)
	b = append(b, templ.EscapeString(caption)...)
	b = append(b, "</h2><table>"...)
	if len(head) > 0 {
		b = append(b, "<tr>"...)
		for _, h := range head {
			b = append(b, "<th>"+templ.EscapeString(h)+"</th>"...)
		}
		b = append(b, "</tr>"...)
	}
	for _, row := range rows {
		b = append(b, "<tr>"...)
		for _, cell := range row {
			b = append(b, "<td>"+templ.EscapeString(cell)+"</td>"...)
		}
		b = append(b, "</tr>"...)
	}
	b = append(b, "</table></section>"...)
	_, err := w.Write(b)
	return err
}
