package core

import (
	"context"
	"strings"
	"time"

	"github.com/daoninhthai/crm/internal/logging"
)

// normalizeCustomer trims every text field. Blank optional fields become "".
func normalizeCustomer(c Customer) Customer {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = optional(c.Phone)
	c.Company = optional(c.Company)
	c.Address = optional(c.Address)
	c.City = optional(c.City)
	c.Country = optional(c.Country)
	c.Notes = optional(c.Notes)
	c.Industry = optional(c.Industry)
	c.Source = optional(c.Source)
	return c
}

// CreateCustomer validates and stores a new customer. A customer without a
// status starts as ACTIVE. An email already in use yields a *DuplicateError.
func (s *Service) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	c = normalizeCustomer(c)
	c.ID = 0
	c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
	if c.Status == "" {
		c.Status = StatusActive
	}
	status, err := ParseCustomerStatus(string(c.Status))
	if err != nil {
		return Customer{}, err
	}
	c.Status = status
	if err := validateStruct(c); err != nil {
		return Customer{}, err
	}
	if err := validatePositive("dealValue", c.DealValue); err != nil {
		return Customer{}, err
	}

	exists, err := s.store.ExistsByEmail(ctx, c.Email)
	if err != nil {
		return Customer{}, wrapIO("check email", err)
	}
	if exists {
		return Customer{}, &DuplicateError{Resource: "Customer", Field: "email", Value: c.Email}
	}

	created, err := s.store.CreateCustomer(ctx, c)
	if err != nil {
		return Customer{}, wrapIO("create customer", err)
	}
	logging.FromContext(ctx).Info("customer created", "customer_id", created.ID, "status", created.Status)
	return created, nil
}

// GetCustomer returns a customer by id.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, wrapIO("get customer", err)
	}
	return c, nil
}

// ListCustomers returns customers matching f, ordered by id.
func (s *Service) ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error) {
	out, err := s.store.ListCustomers(ctx, f)
	if err != nil {
		return nil, wrapIO("list customers", err)
	}
	return out, nil
}

// CountCustomers counts customers matching f. Paging fields are ignored.
func (s *Service) CountCustomers(ctx context.Context, f CustomerFilter) (int64, error) {
	n, err := s.store.CountCustomers(ctx, f)
	if err != nil {
		return 0, wrapIO("count customers", err)
	}
	return n, nil
}

// UpdateCustomer replaces the contact fields of a customer. Status and last
// contact date have their own operations and are left untouched.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, in Customer) (Customer, error) {
	existing, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, wrapIO("get customer", err)
	}

	in = normalizeCustomer(in)
	updated := existing
	updated.FirstName = in.FirstName
	updated.LastName = in.LastName
	updated.Email = in.Email
	updated.Phone = in.Phone
	updated.Company = in.Company
	updated.Address = in.Address
	updated.City = in.City
	updated.Country = in.Country
	updated.Notes = in.Notes
	updated.Industry = in.Industry
	updated.Source = in.Source
	updated.DealValue = in.DealValue

	if err := validateStruct(updated); err != nil {
		return Customer{}, err
	}
	if err := validatePositive("dealValue", updated.DealValue); err != nil {
		return Customer{}, err
	}
	if !strings.EqualFold(existing.Email, updated.Email) {
		exists, err := s.store.ExistsByEmail(ctx, updated.Email)
		if err != nil {
			return Customer{}, wrapIO("check email", err)
		}
		if exists {
			return Customer{}, &DuplicateError{Resource: "Customer", Field: "email", Value: updated.Email}
		}
	}

	saved, err := s.store.UpdateCustomer(ctx, updated)
	if err != nil {
		return Customer{}, wrapIO("update customer", err)
	}
	return saved, nil
}

// ChangeCustomerStatus moves a customer to another lifecycle status.
func (s *Service) ChangeCustomerStatus(ctx context.Context, id int64, status string) (Customer, error) {
	st, err := ParseCustomerStatus(status)
	if err != nil {
		return Customer{}, err
	}
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, wrapIO("get customer", err)
	}
	if c.Status == st {
		return c, nil
	}

	from := c.Status
	c.Status = st
	saved, err := s.store.UpdateCustomer(ctx, c)
	if err != nil {
		return Customer{}, wrapIO("update customer", err)
	}
	logging.FromContext(ctx).Info("customer status changed", "customer_id", id, "from", from, "to", st)
	return saved, nil
}

// TouchCustomerContact records that the customer was contacted today.
func (s *Service) TouchCustomerContact(ctx context.Context, id int64) (Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, wrapIO("get customer", err)
	}
	c.LastContactDate = timePtr(s.today())
	saved, err := s.store.UpdateCustomer(ctx, c)
	if err != nil {
		return Customer{}, wrapIO("update customer", err)
	}
	return saved, nil
}

// DeleteCustomer removes a customer together with its deals and activities.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return wrapIO("delete customer", err)
	}
	logging.FromContext(ctx).Info("customer deleted", "customer_id", id)
	return nil
}

// CountCustomersByStatus returns the number of customers per status. Every
// status is present.
func (s *Service) CountCustomersByStatus(ctx context.Context) (map[CustomerStatus]int64, error) {
	counts, err := s.store.CountCustomersByStatus(ctx)
	if err != nil {
		return nil, wrapIO("count customers by status", err)
	}
	return fillKeys(counts, CustomerStatuses, 0), nil
}
