package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-notifier/internal/pricesource"
	"price-notifier/internal/storage"
)

type fakeProductStore struct {
	created []storage.Observation
	byOwner map[string][]storage.Observation
	getErr  error
	delErr  error
}

func (f *fakeProductStore) CreateObservation(ctx context.Context, obs *storage.Observation) error {
	obs.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *obs)
	return nil
}

func (f *fakeProductStore) ListByOwner(ctx context.Context, owner string) ([]storage.Observation, error) {
	return f.byOwner[owner], nil
}

func (f *fakeProductStore) GetByIDAndOwner(ctx context.Context, id int64, owner string) (storage.Observation, error) {
	if f.getErr != nil {
		return storage.Observation{}, f.getErr
	}
	for _, obs := range f.byOwner[owner] {
		if obs.ID == id {
			return obs, nil
		}
	}
	return storage.Observation{}, storage.ErrObservationNotFound
}

func (f *fakeProductStore) DeleteByIDAndOwner(ctx context.Context, id int64, owner string) error {
	return f.delErr
}

type fakeSource struct {
	outcome pricesource.Outcome
	err     error
}

func (f *fakeSource) FetchByName(ctx context.Context, name string) (pricesource.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeSource) FetchByURL(ctx context.Context, url string) (pricesource.Outcome, error) {
	return f.outcome, f.err
}

func TestObserveByURLCreatesObservationWithInitialSample(t *testing.T) {
	store := &fakeProductStore{}
	source := &fakeSource{outcome: pricesource.Outcome{
		Kind:         pricesource.KindFound,
		Name:         "Widget",
		Price:        decimal.NewFromInt(199),
		CanonicalURL: "https://shop.example/p/widget",
	}}

	svc := NewService(store, source, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	obs, err := svc.ObserveByURL(context.Background(), "owner@example.com", "https://shop.example/p/1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	if obs.URL != "https://shop.example/p/widget" {
		t.Fatalf("stored url must be the source's canonical url, got %q", obs.URL)
	}
	if obs.OwnerEmail != "owner@example.com" {
		t.Fatalf("owner not recorded: %q", obs.OwnerEmail)
	}
	if len(obs.History) != 1 || obs.History[0].Price.Cmp(decimal.NewFromInt(199)) != 0 {
		t.Fatalf("initial sample missing: %+v", obs.History)
	}
	if obs.CurrentPrice.Cmp(decimal.NewFromInt(199)) != 0 {
		t.Fatalf("current price must equal initial sample, got %s", obs.CurrentPrice)
	}
	if obs.LastCheckedAt == nil {
		t.Fatal("registration counts as a check")
	}
}

func TestObserveByNameResolutionFailure(t *testing.T) {
	source := &fakeSource{outcome: pricesource.Outcome{
		Kind:    pricesource.KindNotFound,
		Reason:  pricesource.ReasonNotFound,
		Message: "no match",
	}}

	svc := NewService(&fakeProductStore{}, source, zerolog.Nop())

	_, err := svc.ObserveByName(context.Background(), "owner@example.com", "widget")
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("expected ResolveError, got %v", err)
	}
	if resolveErr.Reason != pricesource.ReasonNotFound || resolveErr.Message != "no match" {
		t.Fatalf("classification lost: %+v", resolveErr)
	}
}

func TestDetailsScopedToOwner(t *testing.T) {
	store := &fakeProductStore{byOwner: map[string][]storage.Observation{
		"alice@example.com": {{ID: 7, Name: "Widget", OwnerEmail: "alice@example.com"}},
	}}

	svc := NewService(store, &fakeSource{}, zerolog.Nop())

	if _, err := svc.Details(context.Background(), 7, "alice@example.com"); err != nil {
		t.Fatalf("owner must see own observation: %v", err)
	}
	if _, err := svc.Details(context.Background(), 7, "bob@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign observation must look absent, got %v", err)
	}
}

func TestDeleteMapsStoreNotFound(t *testing.T) {
	store := &fakeProductStore{delErr: storage.ErrObservationNotFound}
	svc := NewService(store, &fakeSource{}, zerolog.Nop())

	if err := svc.Delete(context.Background(), 1, "owner@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
