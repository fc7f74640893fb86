// Package refresh implements the batch price-refresh pipeline: select stale
// observations, fetch current prices, notify owners on drops, and persist
// every attempt exactly once.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-notifier/internal/notify"
	"price-notifier/internal/pricesource"
	"price-notifier/internal/storage"
)

// DefaultBatchSize bounds one refresh run when no batch size is configured.
const DefaultBatchSize = 5

// PriceFetcher resolves the current price for an observation's URL.
type PriceFetcher interface {
	FetchByURL(ctx context.Context, productURL string) (pricesource.Outcome, error)
}

// Recorder receives pipeline outcome counts.
type Recorder interface {
	FetchSuccess()
	FetchFailure(reason string)
	NotificationQueued()
	NotificationFailed(reason string)
	BatchCompleted(items int)
}

// Refresher runs one batch at a time, sequentially, with per-item failure
// isolation. It is the only writer of observation price state.
type Refresher struct {
	store      storage.ObservationStore
	fetcher    PriceFetcher
	dispatcher notify.Dispatcher
	stats      Recorder
	logger     zerolog.Logger
	batchSize  int
	now        func() time.Time
}

// New constructs a Refresher. A batchSize <= 0 falls back to DefaultBatchSize.
func New(store storage.ObservationStore, fetcher PriceFetcher, dispatcher notify.Dispatcher, stats Recorder, batchSize int, logger zerolog.Logger) *Refresher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Refresher{
		store:      store,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		stats:      stats,
		logger:     logger.With().Str("component", "refresh").Logger(),
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Run processes one batch of stale observations and returns how many were
// attempted. Only a failure to select the batch propagates; every per-item
// failure is isolated and deferred to a later run.
func (r *Refresher) Run(ctx context.Context) (int, error) {
	batch, err := r.store.FindStale(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select stale observations: %w", err)
	}

	if len(batch) == 0 {
		r.logger.Info().Msg("no observations due for refresh")
		return 0, nil
	}

	r.logger.Info().Int("count", len(batch)).Msg("starting batch refresh")

	for i := range batch {
		r.processOne(ctx, &batch[i])
	}

	r.stats.BatchCompleted(len(batch))
	return len(batch), nil
}

func (r *Refresher) processOne(ctx context.Context, obs *storage.Observation) {
	checkedAt := r.now().UTC()

	outcome, err := r.fetcher.FetchByURL(ctx, obs.URL)
	switch {
	case err != nil:
		r.stats.FetchFailure(string(pricesource.ReasonTransient))
		r.logger.Error().Err(err).Int64("observation_id", obs.ID).
			Msg("price source unreachable; skipping item")
	case outcome.Found():
		r.stats.FetchSuccess()
		r.applyUpdate(ctx, obs, outcome, checkedAt)
	default:
		r.stats.FetchFailure(string(outcome.Reason))
		r.logger.Warn().Int64("observation_id", obs.ID).
			Str("reason", string(outcome.Reason)).
			Str("message", outcome.Message).
			Msg("price fetch failed; leaving price untouched")
	}

	// Always mark the attempt and persist, whatever the fetch did. A failed
	// item must not stay infinitely stale and monopolise the next batch.
	obs.Touch(checkedAt)
	if saveErr := r.store.Save(ctx, obs); saveErr != nil {
		r.logger.Error().Err(saveErr).Int64("observation_id", obs.ID).Msg("failed to persist observation")
	}
}

func (r *Refresher) applyUpdate(ctx context.Context, obs *storage.Observation, outcome pricesource.Outcome, checkedAt time.Time) {
	oldPrice := obs.CurrentPrice
	newPrice := outcome.Price

	if newPrice.Cmp(oldPrice) < 0 {
		r.notifyDrop(ctx, obs, oldPrice, newPrice)
	}

	obs.AddSample(newPrice, checkedAt)
	if outcome.Name != "" && outcome.Name != obs.Name {
		obs.Name = outcome.Name
	}

	r.logger.Info().Int64("observation_id", obs.ID).
		Str("old_price", oldPrice.String()).
		Str("new_price", newPrice.String()).
		Msg("price refreshed")
}

// notifyDrop submits a price-drop event. Dispatch failures are counted and
// logged but never undo the price update this run has already computed.
func (r *Refresher) notifyDrop(ctx context.Context, obs *storage.Observation, oldPrice, newPrice decimal.Decimal) {
	event := notify.Event{
		To:      obs.OwnerEmail,
		Subject: "Price Drop Alert!",
		Body:    fmt.Sprintf("Price for %s dropped from %s to %s", obs.Name, oldPrice, newPrice),
	}

	if err := r.dispatcher.Send(ctx, event); err != nil {
		r.stats.NotificationFailed("submit")
		r.logger.Error().Err(err).Str("to", obs.OwnerEmail).Int64("observation_id", obs.ID).
			Msg("price updated but notification dispatch failed")
		return
	}
	r.stats.NotificationQueued()
}
