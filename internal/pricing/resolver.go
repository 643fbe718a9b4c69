package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/curbside-labs/lotwatch/internal/domain"
)

// DefaultHourlyRate applies when no pricing rule covers the queried time.
const DefaultHourlyRate = 5.00

type RuleLister interface {
	ListActiveByLot(ctx context.Context, lotID uuid.UUID) ([]domain.PricingRule, error)
}

type LotGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingLot, error)
}

// RateQuote is the outcome of a rate resolution. RuleUsed is nil when the
// default rate applied.
type RateQuote struct {
	BaseRate     float64             `json:"base_rate"`
	FinalRate    float64             `json:"final_rate"`
	SurgeApplied bool                `json:"surge_applied"`
	RuleUsed     *domain.PricingRule `json:"rule_used,omitempty"`
}

type Resolver struct {
	rules       RuleLister
	lots        LotGetter
	defaultRate float64
}

func NewResolver(rules RuleLister, lots LotGetter, defaultRate float64) *Resolver {
	if defaultRate <= 0 {
		defaultRate = DefaultHourlyRate
	}
	return &Resolver{rules: rules, lots: lots, defaultRate: defaultRate}
}

// CurrentRate resolves the hourly rate for the lot at the given time. Active
// rules covering the weekday and time window compete; the repository hands
// them over highest priority first, newest first on ties, so the first match
// wins. Surge pricing kicks in when the winning rule has it enabled and the
// lot's occupancy percentage has reached the rule's threshold.
func (r *Resolver) CurrentRate(ctx context.Context, lotID uuid.UUID, at time.Time) (*RateQuote, error) {
	lot, err := r.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	rules, err := r.rules.ListActiveByLot(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("resolve rate for lot %s: %w", lotID, err)
	}

	var winner *domain.PricingRule
	for i := range rules {
		if rules[i].AppliesAt(at) {
			winner = &rules[i]
			break
		}
	}

	if winner == nil {
		return &RateQuote{BaseRate: r.defaultRate, FinalRate: r.defaultRate}, nil
	}

	quote := &RateQuote{
		BaseRate:  winner.BaseRate,
		FinalRate: winner.BaseRate,
		RuleUsed:  winner,
	}

	if winner.SurgeActive && lot.OccupancyPercent() >= winner.SurgeThreshold {
		surged := winner.BaseRate * (1 + winner.SurgeRate/100)
		if winner.MaxRate != nil && surged > *winner.MaxRate {
			surged = *winner.MaxRate
		}
		quote.FinalRate = roundCents(surged)
		quote.SurgeApplied = true
	}

	return quote, nil
}

// FareFor computes the amount owed for a stay. Duration rounds up to whole
// hours and is billed at the rate in effect at exit time, with a one hour
// minimum.
func (r *Resolver) FareFor(ctx context.Context, lotID uuid.UUID, entryTime, exitTime time.Time) (float64, *RateQuote, error) {
	quote, err := r.CurrentRate(ctx, lotID, exitTime)
	if err != nil {
		return 0, nil, err
	}

	hours := math.Ceil(exitTime.Sub(entryTime).Hours())
	if hours < 1 {
		hours = 1
	}

	return roundCents(hours * quote.FinalRate), quote, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
