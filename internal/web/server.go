// Package web provides the HTTP API and dashboard of the CRM server.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/daoninhthai/crm/internal/config"
	"github.com/daoninhthai/crm/internal/core"
	crmmw "github.com/daoninhthai/crm/internal/web/middleware"
)

// Server is the HTTP server for the CRM API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	// stop ends the rate limiter cleanup goroutines.
	stop context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		stop:    cancel,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(crmmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(crmmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(s.securityHeaders)
	if len(s.cfg.Security.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Security.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "X-API-Key"},
			ExposedHeaders: []string{"X-Total-Count", "Content-Disposition"},
			MaxAge:         600,
		}))
	}

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(crmmw.APIKeyAuth(&s.cfg.Security))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.handleListCustomers)
			r.Post("/", s.handleCreateCustomer)
			r.Get("/export", s.handleExportCustomers)

			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled && s.cfg.Rate.ImportLimit > 0 {
					r.Use(newRateLimiter(ctx, s.cfg.Rate.ImportLimit, time.Minute).middleware)
				}
				r.Post("/import", s.handleImportCustomers)
				r.Post("/import/validate", s.handleValidateImport)
				r.Post("/import/preview", s.handlePreviewImport)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCustomer)
				r.Put("/", s.handleUpdateCustomer)
				r.Delete("/", s.handleDeleteCustomer)
				r.Patch("/status", s.handleChangeCustomerStatus)
				r.Patch("/contact", s.handleTouchCustomerContact)
				r.Get("/activities", s.handleCustomerActivities)
			})
		})

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", s.handleListDeals)
			r.Post("/", s.handleCreateDeal)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDeal)
				r.Put("/", s.handleUpdateDeal)
				r.Delete("/", s.handleDeleteDeal)
				r.Patch("/stage", s.handleMoveDealStage)
				r.Get("/activities", s.handleDealActivities)
			})
		})

		r.Route("/pipeline", func(r chi.Router) {
			r.Get("/", s.handlePipelineBoard)
			r.Get("/value", s.handlePipelineValue)
			r.Get("/summary", s.handlePipelineSummary)
			r.Get("/representative/{name}", s.handleDealsByRepresentative)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Post("/", s.handleCreateActivity)
			r.Get("/{id}", s.handleGetActivity)
			r.Delete("/{id}", s.handleDeleteActivity)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", s.handleDashboardStats)
			r.Get("/revenue-by-month", s.handleRevenueByMonth)
			r.Get("/deals-by-stage", s.handleDealsByStage)
			r.Get("/top-performers", s.handleTopPerformers)
			r.Get("/customers-by-company", s.handleCustomersByCompany)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/acquisition", s.handleAcquisitionTrend)
			r.Get("/cycle-time", s.handleCycleTime)
			r.Get("/forecast", s.handleForecast)
			r.Get("/win-rates", s.handleWinRates)
			r.Get("/churn", s.handleChurnRate)
			r.Get("/top-deals", s.handleTopDeals)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Post("/{kind}/run", s.handleRunReport)
		})

		r.Route("/email-templates", func(r chi.Router) {
			r.Get("/", s.handleListEmailTemplates)
			r.Post("/", s.handleCreateEmailTemplate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEmailTemplate)
				r.Put("/", s.handleUpdateEmailTemplate)
				r.Delete("/", s.handleDeleteEmailTemplate)
				r.Post("/render", s.handleRenderEmailTemplate)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleHealth reports store reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok", Imports: s.service.ImportLimiterStatus()}
	status := http.StatusOK
	if err := s.service.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		resp.Status, resp.Store = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// The dashboard uses inline styles only.
			w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a fixed window rate limiter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
// Stale visitors are swept until ctx ends.
func newRateLimiter(ctx context.Context, rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// cleanup removes stale visitor entries once per window.
func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been resolved by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSONStatus(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
				Action:  "Please wait a moment before trying again",
				Code:    "CRM010",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
