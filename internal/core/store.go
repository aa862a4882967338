package core

// store.go defines the persistence contracts used by the service.
//
// Two implementations exist: MemoryStore for tests and the "memory" database
// driver, and PostgresStore backed by pgx. Both report missing rows as
// ErrNotFound and email collisions as ErrDuplicate.

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerStore persists customers.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error)
	CountCustomers(ctx context.Context, f CustomerFilter) (int64, error)
	UpdateCustomer(ctx context.Context, c Customer) (Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// DealStore persists deals.
type DealStore interface {
	CreateDeal(ctx context.Context, d Deal) (Deal, error)
	GetDeal(ctx context.Context, id int64) (Deal, error)
	ListDeals(ctx context.Context, f DealFilter) ([]Deal, error)
	UpdateDeal(ctx context.Context, d Deal) (Deal, error)
	DeleteDeal(ctx context.Context, id int64) error

	// MutateDeal loads the deal, passes it to fn and persists the result as
	// one atomic step. If fn returns an error nothing is written.
	MutateDeal(ctx context.Context, id int64, fn func(Deal) (Deal, error)) (Deal, error)
}

// ActivityStore persists activities.
type ActivityStore interface {
	CreateActivity(ctx context.Context, a Activity) (Activity, error)
	GetActivity(ctx context.Context, id int64) (Activity, error)
	ListActivitiesByCustomer(ctx context.Context, customerID int64) ([]Activity, error)
	ListActivitiesByDeal(ctx context.Context, dealID int64) ([]Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
}

// ReportStore persists generated report bodies.
type ReportStore interface {
	SaveReport(ctx context.Context, r Report) (Report, error)
	ListReports(ctx context.Context, reportType ReportType) ([]Report, error)
}

// StatsStore groups and counts inside the store. Groups without rows may
// be absent from the returned maps.
type StatsStore interface {
	CountCustomersByStatus(ctx context.Context) (map[CustomerStatus]int64, error)
	CountDealsByStage(ctx context.Context) (map[Stage]int64, error)
	SumDealValueByStage(ctx context.Context) (map[Stage]decimal.Decimal, error)
}

// Store is the full persistence surface of the CRM.
type Store interface {
	CustomerStore
	DealStore
	ActivityStore
	ReportStore
	StatsStore

	Ping(ctx context.Context) error
	Close()
}

// matchesCustomer applies f to c. Paging is not considered.
func matchesCustomer(c Customer, f CustomerFilter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && c.Status == f.ExcludeStatus {
		return false
	}
	if f.Company != "" && !equalFoldTrim(c.Company, f.Company) {
		return false
	}
	if f.Name != "" && !containsFold(c.FirstName, f.Name) && !containsFold(c.LastName, f.Name) {
		return false
	}
	if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.ContactedFrom != nil || f.ContactedTo != nil || f.ContactedUntil != nil {
		if c.LastContactDate == nil {
			return false
		}
		day := dateOf(*c.LastContactDate)
		if f.ContactedFrom != nil && day.Before(dateOf(*f.ContactedFrom)) {
			return false
		}
		if f.ContactedTo != nil && day.After(dateOf(*f.ContactedTo)) {
			return false
		}
		if f.ContactedUntil != nil && !day.Before(dateOf(*f.ContactedUntil)) {
			return false
		}
	}
	return true
}

// matchesDeal applies f to d. Paging is not considered.
func matchesDeal(d Deal, f DealFilter) bool {
	if f.Stage != "" && d.Stage != f.Stage {
		return false
	}
	if f.AssignedTo != "" && !equalFoldTrim(d.AssignedTo, f.AssignedTo) {
		return false
	}
	if f.CustomerID != 0 && d.CustomerID != f.CustomerID {
		return false
	}
	return true
}

// page slices items by offset and limit. A non-positive limit means no limit.
func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func timePtr(t time.Time) *time.Time { return &t }
