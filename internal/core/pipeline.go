package core

// pipeline.go implements the sales pipeline state machine and the
// aggregations computed over a set of deals.
//
// Transitions are validated against allowedTransitions. Only the terminal
// stages carry side effects:
//
//	WON  -> probability 100, actual close date = today
//	LOST -> probability 0,   actual close date = today
//	LOST -> LEAD (reopen) clears the actual close date
//
// Every other successful move changes the stage only.

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// allowedTransitions maps each stage to the stages a deal may move to next.
var allowedTransitions = map[Stage][]Stage{
	StageLead:        {StageQualified, StageLost},
	StageQualified:   {StageProposal, StageLost},
	StageProposal:    {StageNegotiation, StageLost},
	StageNegotiation: {StageWon, StageLost},
	StageWon:         {},
	StageLost:        {StageLead},
}

// StageProbability is the fixed probability per stage from the older
// unvalidated move operation.
//
// Deprecated: stage moves go through ApplyTransition, which only assigns
// probability for WON and LOST. This table survives as the initial
// probability of a newly created deal.
var StageProbability = map[Stage]int{
	StageLead:        10,
	StageQualified:   25,
	StageProposal:    50,
	StageNegotiation: 75,
	StageWon:         100,
	StageLost:        0,
}

// AllowedTransitions returns the stages reachable from stage, in pipeline order.
func AllowedTransitions(from Stage) []Stage {
	return slices.Clone(allowedTransitions[from])
}

// CanTransition reports whether a deal may move from one stage to another.
func CanTransition(from, to Stage) bool {
	return slices.Contains(allowedTransitions[from], to)
}

// ApplyTransition returns a copy of deal moved to stage "to" with its side
// effects applied. The input deal is never modified; on error the caller's
// deal is unchanged.
func ApplyTransition(deal Deal, to Stage, today time.Time) (Deal, error) {
	if !CanTransition(deal.Stage, to) {
		return deal, &TransitionError{
			From:    deal.Stage,
			To:      to,
			Allowed: AllowedTransitions(deal.Stage),
		}
	}

	moved := deal
	moved.Stage = to

	switch to {
	case StageWon:
		closed := dateOf(today)
		moved.Probability = 100
		moved.ActualCloseDate = &closed
	case StageLost:
		closed := dateOf(today)
		moved.Probability = 0
		moved.ActualCloseDate = &closed
	case StageLead:
		moved.ActualCloseDate = nil
	}

	return moved, nil
}

// PipelineSummary is the one-pass aggregate over a deal set.
type PipelineSummary struct {
	TotalDeals         int64           `json:"totalDeals"`
	TotalValue         decimal.Decimal `json:"totalValue"`
	WeightedValue      decimal.Decimal `json:"weightedValue"`
	AverageProbability float64         `json:"averageProbability"`
	CountByStage       map[Stage]int64 `json:"countByStage"`
}

// dealValue returns the deal's value, or zero when absent.
func dealValue(d Deal) decimal.Decimal {
	if !d.Value.Valid {
		return decimal.Zero
	}
	return d.Value.Decimal
}

// weightedDealValue is value x probability / 100, rounded half-up to cents.
func weightedDealValue(d Deal) decimal.Decimal {
	return dealValue(d).Mul(decimal.NewFromInt(int64(d.Probability))).Shift(-2).Round(2)
}

// WeightedValue sums the per-deal weighted values.
func WeightedValue(deals []Deal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		total = total.Add(weightedDealValue(d))
	}
	return total
}

// ValueByStage sums deal values per stage. Every stage is present.
func ValueByStage(deals []Deal) map[Stage]decimal.Decimal {
	out := make(map[Stage]decimal.Decimal, len(Stages))
	for _, s := range Stages {
		out[s] = decimal.Zero
	}
	for _, d := range deals {
		out[d.Stage] = out[d.Stage].Add(dealValue(d))
	}
	return out
}

// CountByStage counts deals per stage. Every stage is present.
func CountByStage(deals []Deal) map[Stage]int64 {
	out := make(map[Stage]int64, len(Stages))
	for _, s := range Stages {
		out[s] = 0
	}
	for _, d := range deals {
		out[d.Stage]++
	}
	return out
}

// GroupByStage returns the board view of the pipeline. Every stage is
// present, possibly with an empty slice.
func GroupByStage(deals []Deal) map[Stage][]Deal {
	out := make(map[Stage][]Deal, len(Stages))
	for _, s := range Stages {
		out[s] = []Deal{}
	}
	for _, d := range deals {
		out[d.Stage] = append(out[d.Stage], d)
	}
	return out
}

// SummarizePipeline computes counts, raw and weighted totals and the mean
// probability in a single pass.
func SummarizePipeline(deals []Deal) PipelineSummary {
	summary := PipelineSummary{
		TotalValue:    decimal.Zero,
		WeightedValue: decimal.Zero,
		CountByStage:  make(map[Stage]int64, len(Stages)),
	}
	for _, s := range Stages {
		summary.CountByStage[s] = 0
	}

	var probSum int64
	for _, d := range deals {
		summary.TotalDeals++
		summary.TotalValue = summary.TotalValue.Add(dealValue(d))
		summary.WeightedValue = summary.WeightedValue.Add(weightedDealValue(d))
		summary.CountByStage[d.Stage]++
		probSum += int64(d.Probability)
	}
	if summary.TotalDeals > 0 {
		summary.AverageProbability = float64(probSum) / float64(summary.TotalDeals)
	}
	return summary
}

// fillKeys returns a copy of m holding every key in keys; missing keys get
// zero. Keys outside keys are dropped.
func fillKeys[K comparable, V any](m map[K]V, keys []K, zero V) map[K]V {
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		} else {
			out[k] = zero
		}
	}
	return out
}
