package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// dashboardMonths is the window of the revenue-by-month chart.
const dashboardMonths = 6

func (s *Service) allCustomers(ctx context.Context) ([]Customer, error) {
	return s.ListCustomers(ctx, CustomerFilter{})
}

// CustomerAcquisitionTrend counts new customers per month over the last
// months months.
func (s *Service) CustomerAcquisitionTrend(ctx context.Context, months int) ([]TrendPoint, error) {
	if months <= 0 || months > 120 {
		return nil, newValidationError("months", "", "must be between 1 and 120")
	}
	customers, err := s.allCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return AcquisitionTrend(customers, months, s.now().In(s.location())), nil
}

// AverageDealCycleTime returns the mean days from creation to a win.
func (s *Service) AverageDealCycleTime(ctx context.Context) (float64, error) {
	deals, err := s.ListDeals(ctx, DealFilter{Stage: StageWon})
	if err != nil {
		return 0, err
	}
	return AverageDealCycleDays(deals), nil
}

// RevenueForecast returns the weighted value of the open pipeline.
func (s *Service) RevenueForecast(ctx context.Context) (decimal.Decimal, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return RevenueForecast(deals), nil
}

// WinRateByRepresentative returns each assignee's win percentage.
func (s *Service) WinRateByRepresentative(ctx context.Context) (map[string]float64, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return nil, err
	}
	return WinRateByRepresentative(deals), nil
}

// ChurnRate returns the percentage of customers that churned.
func (s *Service) ChurnRate(ctx context.Context) (float64, error) {
	total, err := s.CountCustomers(ctx, CustomerFilter{})
	if err != nil {
		return 0, err
	}
	churned, err := s.CountCustomers(ctx, CustomerFilter{Status: StatusChurned})
	if err != nil {
		return 0, err
	}
	return ChurnRate(total, churned), nil
}

// TopDealsByValue returns the limit most valuable open deals.
func (s *Service) TopDealsByValue(ctx context.Context, limit int) ([]Deal, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return nil, err
	}
	return TopDealsByValue(deals, limit), nil
}

// DashboardStats returns the headline numbers of the dashboard.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	total, err := s.CountCustomers(ctx, CustomerFilter{})
	if err != nil {
		return DashboardStats{}, err
	}
	active, err := s.CountCustomers(ctx, CustomerFilter{Status: StatusActive})
	if err != nil {
		return DashboardStats{}, err
	}
	deals, err := s.allDeals(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		TotalCustomers:  total,
		ActiveCustomers: active,
		TotalDeals:      int64(len(deals)),
		TotalRevenue:    decimal.Zero,
		ConversionRate:  ConversionRate(deals),
	}
	for _, d := range deals {
		if d.Stage == StageWon {
			stats.WonDeals++
			stats.TotalRevenue = stats.TotalRevenue.Add(dealValue(d))
		}
	}
	return stats, nil
}

// RevenueByMonth returns won revenue for each of the last six months.
func (s *Service) RevenueByMonth(ctx context.Context) ([]RevenuePoint, error) {
	deals, err := s.ListDeals(ctx, DealFilter{Stage: StageWon})
	if err != nil {
		return nil, err
	}
	return RevenueByMonth(deals, dashboardMonths, s.now().In(s.location())), nil
}

// TopPerformers ranks representatives by won revenue.
func (s *Service) TopPerformers(ctx context.Context) ([]PerformerStats, error) {
	deals, err := s.ListDeals(ctx, DealFilter{Stage: StageWon})
	if err != nil {
		return nil, err
	}
	return TopPerformers(deals), nil
}

// CustomersByCompany counts customers per company.
func (s *Service) CustomersByCompany(ctx context.Context) ([]CompanyCount, error) {
	customers, err := s.allCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return CustomersByCompany(customers), nil
}
