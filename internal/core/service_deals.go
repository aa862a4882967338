package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daoninhthai/crm/internal/logging"
)

// normalizeDeal trims the text fields of d.
func normalizeDeal(d Deal) Deal {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = optional(d.Description)
	d.AssignedTo = optional(d.AssignedTo)
	d.Source = optional(d.Source)
	return d
}

// CreateDeal opens a deal at the LEAD stage. Stage, probability and actual
// close date from the input are ignored.
func (s *Service) CreateDeal(ctx context.Context, d Deal) (Deal, error) {
	d = normalizeDeal(d)
	d.ID = 0
	d.Stage = StageLead
	d.Probability = StageProbability[StageLead]
	d.ActualCloseDate = nil
	d.CreatedAt, d.UpdatedAt = time.Time{}, time.Time{}

	if err := validateStruct(d); err != nil {
		return Deal{}, err
	}
	if err := validatePositive("value", d.Value); err != nil {
		return Deal{}, err
	}
	if _, err := s.store.GetCustomer(ctx, d.CustomerID); err != nil {
		return Deal{}, wrapIO("get customer", err)
	}

	created, err := s.store.CreateDeal(ctx, d)
	if err != nil {
		return Deal{}, wrapIO("create deal", err)
	}
	logging.FromContext(ctx).Info("deal created", "deal_id", created.ID, "customer_id", created.CustomerID)
	return created, nil
}

// GetDeal returns a deal by id.
func (s *Service) GetDeal(ctx context.Context, id int64) (Deal, error) {
	d, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return Deal{}, wrapIO("get deal", err)
	}
	return d, nil
}

// ListDeals returns deals matching f, ordered by id.
func (s *Service) ListDeals(ctx context.Context, f DealFilter) ([]Deal, error) {
	out, err := s.store.ListDeals(ctx, f)
	if err != nil {
		return nil, wrapIO("list deals", err)
	}
	return out, nil
}

// UpdateDeal replaces the descriptive fields of a deal. Stage, probability
// and actual close date only change through MoveDealToStage.
func (s *Service) UpdateDeal(ctx context.Context, id int64, in Deal) (Deal, error) {
	in = normalizeDeal(in)

	updated, err := s.store.MutateDeal(ctx, id, func(d Deal) (Deal, error) {
		d.Title = in.Title
		d.Description = in.Description
		d.Value = in.Value
		d.AssignedTo = in.AssignedTo
		d.ExpectedCloseDate = in.ExpectedCloseDate
		d.Source = in.Source

		if err := validateStruct(d); err != nil {
			return d, err
		}
		if err := validatePositive("value", d.Value); err != nil {
			return d, err
		}
		return d, nil
	})
	if err != nil {
		return Deal{}, wrapIO("update deal", err)
	}
	return updated, nil
}

// MoveDealToStage runs one pipeline transition. The read, the transition
// check and the write happen atomically in the store; a rejected move
// leaves the deal untouched and returns a *TransitionError.
func (s *Service) MoveDealToStage(ctx context.Context, id int64, target string) (Deal, error) {
	to, err := ParseStage(target)
	if err != nil {
		return Deal{}, err
	}
	today := s.today()

	var from Stage
	moved, err := s.store.MutateDeal(ctx, id, func(d Deal) (Deal, error) {
		from = d.Stage
		return ApplyTransition(d, to, today)
	})
	if err != nil {
		return Deal{}, wrapIO("move deal", err)
	}

	logging.FromContext(ctx).Info("deal moved",
		"deal_id", id,
		"from", from,
		"to", moved.Stage,
		"probability", moved.Probability,
	)
	return moved, nil
}

// DeleteDeal removes a deal. Its activities stay, detached from the deal.
func (s *Service) DeleteDeal(ctx context.Context, id int64) error {
	if err := s.store.DeleteDeal(ctx, id); err != nil {
		return wrapIO("delete deal", err)
	}
	logging.FromContext(ctx).Info("deal deleted", "deal_id", id)
	return nil
}

// allDeals loads every deal.
func (s *Service) allDeals(ctx context.Context) ([]Deal, error) {
	return s.ListDeals(ctx, DealFilter{})
}

// PipelineBoard returns all deals grouped by stage.
func (s *Service) PipelineBoard(ctx context.Context) (map[Stage][]Deal, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByStage(deals), nil
}

// PipelineValueByStage sums deal values per stage. Every stage is present.
func (s *Service) PipelineValueByStage(ctx context.Context) (map[Stage]decimal.Decimal, error) {
	sums, err := s.store.SumDealValueByStage(ctx)
	if err != nil {
		return nil, wrapIO("sum deal value by stage", err)
	}
	return fillKeys(sums, Stages, decimal.Zero), nil
}

// PipelineCountByStage counts deals per stage. Every stage is present.
func (s *Service) PipelineCountByStage(ctx context.Context) (map[Stage]int64, error) {
	counts, err := s.store.CountDealsByStage(ctx)
	if err != nil {
		return nil, wrapIO("count deals by stage", err)
	}
	return fillKeys(counts, Stages, 0), nil
}

// PipelineSummary aggregates the whole deal set.
func (s *Service) PipelineSummary(ctx context.Context) (PipelineSummary, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return PipelineSummary{}, err
	}
	return SummarizePipeline(deals), nil
}

// DealsByRepresentative returns the deals assigned to name.
func (s *Service) DealsByRepresentative(ctx context.Context, name string) ([]Deal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newValidationError("assignedTo", name, "representative name is required")
	}
	return s.ListDeals(ctx, DealFilter{AssignedTo: name})
}

// TotalWonRevenue sums the value of all WON deals.
func (s *Service) TotalWonRevenue(ctx context.Context) (decimal.Decimal, error) {
	deals, err := s.ListDeals(ctx, DealFilter{Stage: StageWon})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, d := range deals {
		total = total.Add(dealValue(d))
	}
	return total, nil
}
