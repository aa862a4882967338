package core

import (
	"context"
	"strings"
)

// CreateActivity logs an interaction. The customer must exist; a deal, when
// given, must exist and belong to the same customer. A zero activity date
// means now.
func (s *Service) CreateActivity(ctx context.Context, a Activity) (Activity, error) {
	a.ID = 0
	a.Type = ActivityType(strings.ToUpper(strings.TrimSpace(string(a.Type))))
	a.Subject = strings.TrimSpace(a.Subject)
	a.Notes = optional(a.Notes)
	a.PerformedBy = optional(a.PerformedBy)
	if a.ActivityDate.IsZero() {
		a.ActivityDate = s.now()
	}

	if err := validateStruct(a); err != nil {
		return Activity{}, err
	}
	if _, err := s.store.GetCustomer(ctx, a.CustomerID); err != nil {
		return Activity{}, wrapIO("get customer", err)
	}
	if a.DealID != nil {
		d, err := s.store.GetDeal(ctx, *a.DealID)
		if err != nil {
			return Activity{}, wrapIO("get deal", err)
		}
		if d.CustomerID != a.CustomerID {
			return Activity{}, newValidationError("dealId", "", "deal belongs to another customer")
		}
	}

	created, err := s.store.CreateActivity(ctx, a)
	if err != nil {
		return Activity{}, wrapIO("create activity", err)
	}
	return created, nil
}

// GetActivity returns an activity by id.
func (s *Service) GetActivity(ctx context.Context, id int64) (Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, wrapIO("get activity", err)
	}
	return a, nil
}

// ListCustomerActivities returns a customer's activities, newest first.
func (s *Service) ListCustomerActivities(ctx context.Context, customerID int64) ([]Activity, error) {
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, wrapIO("get customer", err)
	}
	out, err := s.store.ListActivitiesByCustomer(ctx, customerID)
	if err != nil {
		return nil, wrapIO("list activities", err)
	}
	return out, nil
}

// ListDealActivities returns a deal's activities, newest first.
func (s *Service) ListDealActivities(ctx context.Context, dealID int64) ([]Activity, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, wrapIO("get deal", err)
	}
	out, err := s.store.ListActivitiesByDeal(ctx, dealID)
	if err != nil {
		return nil, wrapIO("list activities", err)
	}
	return out, nil
}

// DeleteActivity removes an activity.
func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return wrapIO("delete activity", err)
	}
	return nil
}
