package core

// analytics.go holds the dashboard read models. Every function is pure over
// the slices it is given; the service reloads the data on every call.

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrendPoint is one month of a time series.
type TrendPoint struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// RevenuePoint is the won revenue of one month.
type RevenuePoint struct {
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

// PerformerStats is the won business of one representative.
type PerformerStats struct {
	Representative string          `json:"representative"`
	WonDeals       int64           `json:"wonDeals"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// CompanyCount is the number of customers at one company.
type CompanyCount struct {
	Company string `json:"company"`
	Count   int64  `json:"count"`
}

// DashboardStats is the headline block of the dashboard.
type DashboardStats struct {
	TotalCustomers  int64           `json:"totalCustomers"`
	ActiveCustomers int64           `json:"activeCustomers"`
	TotalDeals      int64           `json:"totalDeals"`
	WonDeals        int64           `json:"wonDeals"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	ConversionRate  float64         `json:"conversionRate"`
}

var forecastStages = []Stage{StageQualified, StageProposal, StageNegotiation}

// monthLabel renders "JAN 2026".
func monthLabel(t time.Time) string {
	return strings.ToUpper(t.Format("Jan")) + " " + strconv.Itoa(t.Year())
}

// monthWindows returns the first day of each of the last n months,
// including the month of now, oldest first.
func monthWindows(n int, now time.Time) []time.Time {
	if n <= 0 {
		return nil
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, i-(n-1), 0)
	}
	return out
}

// sameMonth reports whether t falls in the calendar month starting at start.
func sameMonth(t, start time.Time) bool {
	t = t.In(start.Location())
	return t.Year() == start.Year() && t.Month() == start.Month()
}

// percent returns part/whole*100 rounded half-up to 2 decimals, or 0 when
// whole is zero.
func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(whole), 2).
		InexactFloat64()
}

// AcquisitionTrend counts customers created in each of the last months
// months, including the current one, oldest first.
func AcquisitionTrend(customers []Customer, months int, now time.Time) []TrendPoint {
	windows := monthWindows(months, now)
	out := make([]TrendPoint, len(windows))
	for i, start := range windows {
		out[i].Label = monthLabel(start)
		for _, c := range customers {
			if !c.CreatedAt.IsZero() && sameMonth(c.CreatedAt, start) {
				out[i].Count++
			}
		}
	}
	return out
}

// AverageDealCycleDays is the mean number of days from creation to close
// over WON deals that have both dates. Zero when no deal qualifies.
func AverageDealCycleDays(deals []Deal) float64 {
	var sum, n int
	for _, d := range deals {
		if d.Stage != StageWon || d.ActualCloseDate == nil || d.CreatedAt.IsZero() {
			continue
		}
		sum += daysBetween(d.CreatedAt, *d.ActualCloseDate)
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// RevenueForecast sums the weighted value of the open deals past LEAD.
func RevenueForecast(deals []Deal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		if slices.Contains(forecastStages, d.Stage) {
			total = total.Add(weightedDealValue(d))
		}
	}
	return total
}

// WinRateByRepresentative returns won/(won+lost) as a percentage for each
// assignee with at least one closed deal.
func WinRateByRepresentative(deals []Deal) map[string]float64 {
	type tally struct{ won, closed int64 }
	byRep := make(map[string]*tally)

	for _, d := range deals {
		rep := strings.TrimSpace(d.AssignedTo)
		if !d.Stage.Closed() || rep == "" {
			continue
		}
		t, ok := byRep[rep]
		if !ok {
			t = &tally{}
			byRep[rep] = t
		}
		t.closed++
		if d.Stage == StageWon {
			t.won++
		}
	}

	out := make(map[string]float64, len(byRep))
	for rep, t := range byRep {
		out[rep] = percent(t.won, t.closed)
	}
	return out
}

// ChurnRate is churned/total as a percentage, 0 when there are no customers.
func ChurnRate(total, churned int64) float64 {
	return percent(churned, total)
}

// ConversionRate is the share of all deals that were won, as a percentage.
func ConversionRate(deals []Deal) float64 {
	var won int64
	for _, d := range deals {
		if d.Stage == StageWon {
			won++
		}
	}
	return percent(won, int64(len(deals)))
}

// TopDealsByValue returns the n most valuable open deals that have a value,
// highest first.
func TopDealsByValue(deals []Deal, n int) []Deal {
	if n <= 0 {
		return []Deal{}
	}
	open := make([]Deal, 0, len(deals))
	for _, d := range deals {
		if !d.Stage.Closed() && d.Value.Valid {
			open = append(open, d)
		}
	}
	slices.SortStableFunc(open, func(a, b Deal) int {
		return b.Value.Decimal.Cmp(a.Value.Decimal)
	})
	if len(open) > n {
		open = open[:n]
	}
	return open
}

// RevenueByMonth sums the value of deals won in each of the last months
// months, oldest first.
func RevenueByMonth(deals []Deal, months int, now time.Time) []RevenuePoint {
	windows := monthWindows(months, now)
	out := make([]RevenuePoint, len(windows))
	for i, start := range windows {
		out[i] = RevenuePoint{Label: monthLabel(start), Revenue: decimal.Zero}
		for _, d := range deals {
			if d.Stage == StageWon && d.ActualCloseDate != nil && sameClosedMonth(*d.ActualCloseDate, start) {
				out[i].Revenue = out[i].Revenue.Add(dealValue(d))
			}
		}
	}
	return out
}

// sameClosedMonth compares a calendar date, stored at midnight UTC, with a
// month window without shifting it across a day boundary.
func sameClosedMonth(date, start time.Time) bool {
	return date.Year() == start.Year() && date.Month() == start.Month()
}

// TopPerformers ranks representatives by won revenue, then by won count.
// Deals without an assignee are left out.
func TopPerformers(deals []Deal) []PerformerStats {
	byRep := make(map[string]*PerformerStats)
	for _, d := range deals {
		rep := strings.TrimSpace(d.AssignedTo)
		if d.Stage != StageWon || rep == "" {
			continue
		}
		p, ok := byRep[rep]
		if !ok {
			p = &PerformerStats{Representative: rep, Revenue: decimal.Zero}
			byRep[rep] = p
		}
		p.WonDeals++
		p.Revenue = p.Revenue.Add(dealValue(d))
	}

	out := make([]PerformerStats, 0, len(byRep))
	for _, p := range byRep {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b PerformerStats) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		if c := cmp.Compare(b.WonDeals, a.WonDeals); c != 0 {
			return c
		}
		return strings.Compare(a.Representative, b.Representative)
	})
	return out
}

// CustomersByCompany counts customers per company, largest first. Customers
// without a company are left out.
func CustomersByCompany(customers []Customer) []CompanyCount {
	counts := make(map[string]int64)
	for _, c := range customers {
		if company := strings.TrimSpace(c.Company); company != "" {
			counts[company]++
		}
	}

	out := make([]CompanyCount, 0, len(counts))
	for company, n := range counts {
		out = append(out, CompanyCount{Company: company, Count: n})
	}
	slices.SortFunc(out, func(a, b CompanyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Company, b.Company)
	})
	return out
}
