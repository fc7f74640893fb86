// Package product implements the owner-scoped product observation operations:
// registering a product through the price source, listing, details, deletion.
package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"price-notifier/internal/pricesource"
	"price-notifier/internal/storage"
)

// ErrNotFound indicates the id does not exist or belongs to another owner.
// The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("product: observation not found")

// ResolveError reports why the price source could not resolve a product
// during registration.
type ResolveError struct {
	Reason  pricesource.FailureReason
	Message string
}

func (e *ResolveError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("product: source resolution failed (%s)", e.Reason)
	}
	return fmt.Sprintf("product: source resolution failed (%s): %s", e.Reason, e.Message)
}

// SourceClient is the subset of the price-source client registration needs.
type SourceClient interface {
	FetchByName(ctx context.Context, name string) (pricesource.Outcome, error)
	FetchByURL(ctx context.Context, productURL string) (pricesource.Outcome, error)
}

// Service coordinates the store and the price source for product operations.
type Service struct {
	store  storage.ProductStore
	client SourceClient
	logger zerolog.Logger
	now    func() time.Time
}

// NewService constructs the product service.
func NewService(store storage.ProductStore, client SourceClient, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		logger: logger.With().Str("component", "product").Logger(),
		now:    time.Now,
	}
}

// ObserveByName resolves a product via the source's search endpoint and starts
// observing it for the given owner.
func (s *Service) ObserveByName(ctx context.Context, ownerEmail, name string) (storage.Observation, error) {
	outcome, err := s.client.FetchByName(ctx, name)
	if err != nil {
		return storage.Observation{}, fmt.Errorf("resolve product by name: %w", err)
	}
	return s.create(ctx, ownerEmail, outcome)
}

// ObserveByURL resolves a product via the source's direct endpoint and starts
// observing it for the given owner.
func (s *Service) ObserveByURL(ctx context.Context, ownerEmail, productURL string) (storage.Observation, error) {
	outcome, err := s.client.FetchByURL(ctx, productURL)
	if err != nil {
		return storage.Observation{}, fmt.Errorf("resolve product by url: %w", err)
	}
	return s.create(ctx, ownerEmail, outcome)
}

func (s *Service) create(ctx context.Context, ownerEmail string, outcome pricesource.Outcome) (storage.Observation, error) {
	if !outcome.Found() {
		return storage.Observation{}, &ResolveError{Reason: outcome.Reason, Message: outcome.Message}
	}

	now := s.now().UTC()
	obs := storage.Observation{
		Name:       outcome.Name,
		URL:        outcome.CanonicalURL,
		OwnerEmail: ownerEmail,
	}
	obs.AddSample(outcome.Price, now)
	obs.Touch(now)

	if err := s.store.CreateObservation(ctx, &obs); err != nil {
		return storage.Observation{}, fmt.Errorf("create observation: %w", err)
	}

	s.logger.Info().Int64("observation_id", obs.ID).Str("owner", ownerEmail).Msg("observation started")
	return obs, nil
}

// List returns the owner's observations.
func (s *Service) List(ctx context.Context, ownerEmail string) ([]storage.Observation, error) {
	return s.store.ListByOwner(ctx, ownerEmail)
}

// Details returns one observation with its full price history, owner-scoped.
func (s *Service) Details(ctx context.Context, id int64, ownerEmail string) (storage.Observation, error) {
	obs, err := s.store.GetByIDAndOwner(ctx, id, ownerEmail)
	if err != nil {
		if errors.Is(err, storage.ErrObservationNotFound) {
			return storage.Observation{}, ErrNotFound
		}
		return storage.Observation{}, err
	}
	return obs, nil
}

// Delete removes an observation and its history, owner-scoped.
func (s *Service) Delete(ctx context.Context, id int64, ownerEmail string) error {
	err := s.store.DeleteByIDAndOwner(ctx, id, ownerEmail)
	if err != nil {
		if errors.Is(err, storage.ErrObservationNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info().Int64("observation_id", id).Str("owner", ownerEmail).Msg("observation deleted")
	return nil
}
