package perfmon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campaign-lab/internal/campaign"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// RecalibrationJob consumes exactly one recalibration event, runs the
// campaign optimizer over a configured set of parameter variants, and
// leaves promotion to the optimizer's guardrail and significance gates.
type RecalibrationJob struct {
	events    storage.RecalibrationEventStore
	optimizer *campaign.Optimizer
	variants  []domain.StrategyParams
	now       func() time.Time
}

// NewRecalibrationJob wires a job to its event store, optimizer, and
// parameter variants.
func NewRecalibrationJob(events storage.RecalibrationEventStore, opt *campaign.Optimizer, variants []domain.StrategyParams) *RecalibrationJob {
	return &RecalibrationJob{
		events:    events,
		optimizer: opt,
		variants:  variants,
		now:       time.Now,
	}
}

// Consume claims the event and runs a campaign over the given bars with
// the given seed. The claim happens before the campaign: a second
// consumer of the same event gets domain.ErrEventConsumed and never
// triggers a second promotion. The claim is not rolled back on campaign
// failure; an operator re-raises a fresh event instead of replaying a
// half-processed one.
func (j *RecalibrationJob) Consume(ctx context.Context, eventID string, bars []domain.PriceBar, seed int64) ([]*domain.CampaignResult, error) {
	event, err := j.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Consumed {
		return nil, fmt.Errorf("%w: %s", domain.ErrEventConsumed, eventID)
	}

	if err := j.events.MarkConsumed(ctx, eventID, j.now().UnixMilli()); err != nil {
		if errors.Is(err, storage.ErrAlreadyConsumed) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEventConsumed, eventID)
		}
		return nil, err
	}

	log.Printf("perfmon: recalibrating asset=%s venue=%s reason=%s event=%s",
		event.Asset, event.Venue, event.Reason, eventID)
	return j.optimizer.RunCampaign(ctx, bars, j.variants, seed)
}
