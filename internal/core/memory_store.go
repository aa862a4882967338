package core

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore is a Store held in process memory. A single mutex guards all
// tables, so every method (MutateDeal included) is atomic.
type MemoryStore struct {
	mu sync.Mutex

	now func() time.Time

	customers  map[int64]Customer
	deals      map[int64]Deal
	activities map[int64]Activity
	reports    map[int64]Report

	nextCustomer int64
	nextDeal     int64
	nextActivity int64
	nextReport   int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:        time.Now,
		customers:  make(map[int64]Customer),
		deals:      make(map[int64]Deal),
		activities: make(map[int64]Activity),
		reports:    make(map[int64]Report),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() {}

// ----------------------------------------------------------------------------
// Customers
// ----------------------------------------------------------------------------

func (m *MemoryStore) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTakenLocked(c.Email, 0) {
		return Customer{}, &DuplicateError{Resource: "Customer", Field: "email", Value: c.Email}
	}

	m.nextCustomer++
	now := m.now()
	c.ID = m.nextCustomer
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.customers[c.ID] = c
	return c, nil
}

func (m *MemoryStore) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return Customer{}, notFound("Customer", id)
	}
	return c, nil
}

func (m *MemoryStore) ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Customer, 0, len(m.customers))
	for _, c := range m.customers {
		if matchesCustomer(c, f) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Customer) int { return cmpInt64(a.ID, b.ID) })
	return page(out, f.Offset, f.Limit), nil
}

func (m *MemoryStore) CountCustomers(ctx context.Context, f CustomerFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, c := range m.customers {
		if matchesCustomer(c, f) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) UpdateCustomer(ctx context.Context, c Customer) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.customers[c.ID]
	if !ok {
		return Customer{}, notFound("Customer", c.ID)
	}
	if m.emailTakenLocked(c.Email, c.ID) {
		return Customer{}, &DuplicateError{Resource: "Customer", Field: "email", Value: c.Email}
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = m.now()
	m.customers[c.ID] = c
	return c, nil
}

func (m *MemoryStore) DeleteCustomer(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[id]; !ok {
		return notFound("Customer", id)
	}
	delete(m.customers, id)

	// Mirror ON DELETE CASCADE.
	for did, d := range m.deals {
		if d.CustomerID == id {
			delete(m.deals, did)
		}
	}
	for aid, a := range m.activities {
		if a.CustomerID == id {
			delete(m.activities, aid)
		}
	}
	return nil
}

func (m *MemoryStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emailTakenLocked(email, 0), nil
}

// emailTakenLocked reports whether another customer uses email.
// Callers hold m.mu.
func (m *MemoryStore) emailTakenLocked(email string, exceptID int64) bool {
	for _, c := range m.customers {
		if c.ID != exceptID && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Deals
// ----------------------------------------------------------------------------

func (m *MemoryStore) CreateDeal(ctx context.Context, d Deal) (Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[d.CustomerID]; !ok {
		return Deal{}, notFound("Customer", d.CustomerID)
	}

	m.nextDeal++
	now := m.now()
	d.ID = m.nextDeal
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	m.deals[d.ID] = d
	return d, nil
}

func (m *MemoryStore) GetDeal(ctx context.Context, id int64) (Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deals[id]
	if !ok {
		return Deal{}, notFound("Deal", id)
	}
	return d, nil
}

func (m *MemoryStore) ListDeals(ctx context.Context, f DealFilter) ([]Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Deal, 0, len(m.deals))
	for _, d := range m.deals {
		if matchesDeal(d, f) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b Deal) int { return cmpInt64(a.ID, b.ID) })
	return page(out, f.Offset, f.Limit), nil
}

func (m *MemoryStore) UpdateDeal(ctx context.Context, d Deal) (Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.deals[d.ID]
	if !ok {
		return Deal{}, notFound("Deal", d.ID)
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = m.now()
	m.deals[d.ID] = d
	return d, nil
}

func (m *MemoryStore) MutateDeal(ctx context.Context, id int64, fn func(Deal) (Deal, error)) (Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.deals[id]
	if !ok {
		return Deal{}, notFound("Deal", id)
	}

	updated, err := fn(existing)
	if err != nil {
		return existing, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = m.now()
	m.deals[id] = updated
	return updated, nil
}

func (m *MemoryStore) DeleteDeal(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deals[id]; !ok {
		return notFound("Deal", id)
	}
	delete(m.deals, id)

	// Mirror ON DELETE SET NULL on activities.deal_id.
	for aid, a := range m.activities {
		if a.DealID != nil && *a.DealID == id {
			a.DealID = nil
			m.activities[aid] = a
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Activities
// ----------------------------------------------------------------------------

func (m *MemoryStore) CreateActivity(ctx context.Context, a Activity) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[a.CustomerID]; !ok {
		return Activity{}, notFound("Customer", a.CustomerID)
	}
	if a.DealID != nil {
		if _, ok := m.deals[*a.DealID]; !ok {
			return Activity{}, notFound("Deal", *a.DealID)
		}
	}

	m.nextActivity++
	a.ID = m.nextActivity
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now()
	}
	m.activities[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetActivity(ctx context.Context, id int64) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[id]
	if !ok {
		return Activity{}, notFound("Activity", id)
	}
	return a, nil
}

func (m *MemoryStore) ListActivitiesByCustomer(ctx context.Context, customerID int64) ([]Activity, error) {
	return m.listActivities(func(a Activity) bool { return a.CustomerID == customerID }), nil
}

func (m *MemoryStore) ListActivitiesByDeal(ctx context.Context, dealID int64) ([]Activity, error) {
	return m.listActivities(func(a Activity) bool { return a.DealID != nil && *a.DealID == dealID }), nil
}

// listActivities returns matching activities, newest activity date first.
func (m *MemoryStore) listActivities(match func(Activity) bool) []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Activity, 0)
	for _, a := range m.activities {
		if match(a) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Activity) int {
		if c := b.ActivityDate.Compare(a.ActivityDate); c != 0 {
			return c
		}
		return cmpInt64(b.ID, a.ID)
	})
	return out
}

func (m *MemoryStore) DeleteActivity(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.activities[id]; !ok {
		return notFound("Activity", id)
	}
	delete(m.activities, id)
	return nil
}

// ----------------------------------------------------------------------------
// Stats
// ----------------------------------------------------------------------------

func (m *MemoryStore) CountCustomersByStatus(ctx context.Context) (map[CustomerStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[CustomerStatus]int64)
	for _, c := range m.customers {
		out[c.Status]++
	}
	return out, nil
}

func (m *MemoryStore) CountDealsByStage(ctx context.Context) (map[Stage]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CountByStage(m.dealsLocked()), nil
}

func (m *MemoryStore) SumDealValueByStage(ctx context.Context) (map[Stage]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ValueByStage(m.dealsLocked()), nil
}

func (m *MemoryStore) dealsLocked() []Deal {
	out := make([]Deal, 0, len(m.deals))
	for _, d := range m.deals {
		out = append(out, d)
	}
	return out
}

// ----------------------------------------------------------------------------
// Reports
// ----------------------------------------------------------------------------

func (m *MemoryStore) SaveReport(ctx context.Context, r Report) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextReport++
	r.ID = m.nextReport
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now()
	}
	m.reports[r.ID] = r
	return r, nil
}

func (m *MemoryStore) ListReports(ctx context.Context, reportType ReportType) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Report, 0)
	for _, r := range m.reports {
		if reportType == "" || r.Type == reportType {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Report) int { return cmpInt64(b.ID, a.ID) })
	return out, nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
