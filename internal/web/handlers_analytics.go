package web

// handlers_analytics.go serves the dashboard aggregates and the analytics
// endpoints. All of them are read-only views over current data.

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// defaultTrendMonths and defaultTopDeals apply when the query omits them.
const (
	defaultTrendMonths = 12
	defaultTopDeals    = 10
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.DashboardStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleRevenueByMonth(w http.ResponseWriter, r *http.Request) {
	points, err := s.service.RevenueByMonth(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, points)
}

func (s *Server) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	performers, err := s.service.TopPerformers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, performers)
}

func (s *Server) handleCustomersByCompany(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.CustomersByCompany(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, counts)
}

// handleAcquisitionTrend handles GET /api/analytics/acquisition?months=.
func (s *Server) handleAcquisitionTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.service.CustomerAcquisitionTrend(r.Context(), parseIntParam(r, "months", defaultTrendMonths))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, trend)
}

func (s *Server) handleCycleTime(w http.ResponseWriter, r *http.Request) {
	days, err := s.service.AverageDealCycleTime(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]float64{"averageDays": days})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := s.service.RevenueForecast(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]decimal.Decimal{"forecast": forecast})
}

func (s *Server) handleWinRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.service.WinRateByRepresentative(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rates)
}

func (s *Server) handleChurnRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.service.ChurnRate(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]float64{"churnRate": rate})
}

// handleTopDeals handles GET /api/analytics/top-deals?limit=.
func (s *Server) handleTopDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.service.TopDealsByValue(r.Context(), parseIntParam(r, "limit", defaultTopDeals))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, deals)
}
