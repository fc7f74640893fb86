package refresh

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-notifier/internal/notify"
	"price-notifier/internal/pricesource"
	"price-notifier/internal/storage"
)

type fakeStore struct {
	stale    []storage.Observation
	findErr  error
	saved    []storage.Observation
	saveErr  error
	findCall int
}

func (f *fakeStore) FindStale(ctx context.Context, limit int) ([]storage.Observation, error) {
	f.findCall++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if len(f.stale) > limit {
		return f.stale[:limit], nil
	}
	return f.stale, nil
}

func (f *fakeStore) Save(ctx context.Context, obs *storage.Observation) error {
	f.saved = append(f.saved, *obs)
	return f.saveErr
}

type fakeFetcher struct {
	outcomes map[string]pricesource.Outcome
	errs     map[string]error
	calls    []string
}

func (f *fakeFetcher) FetchByURL(ctx context.Context, url string) (pricesource.Outcome, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return pricesource.Outcome{}, err
	}
	return f.outcomes[url], nil
}

type fakeDispatcher struct {
	events []notify.Event
	err    error
}

func (f *fakeDispatcher) Send(ctx context.Context, event notify.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeRecorder struct {
	fetchSuccess  int
	fetchFailures []string
	queued        int
	notifyFailed  []string
	batches       int
	items         int
}

func (f *fakeRecorder) FetchSuccess()                     { f.fetchSuccess++ }
func (f *fakeRecorder) FetchFailure(reason string)        { f.fetchFailures = append(f.fetchFailures, reason) }
func (f *fakeRecorder) NotificationQueued()               { f.queued++ }
func (f *fakeRecorder) NotificationFailed(reason string)  { f.notifyFailed = append(f.notifyFailed, reason) }
func (f *fakeRecorder) BatchCompleted(items int)          { f.batches++; f.items += items }

func foundOutcome(name string, price int64) pricesource.Outcome {
	return pricesource.Outcome{
		Kind:  pricesource.KindFound,
		Name:  name,
		Price: decimal.NewFromInt(price),
	}
}

func observation(id int64, url string, price int64, checked *time.Time) storage.Observation {
	return storage.Observation{
		ID:            id,
		Name:          "product",
		URL:           url,
		OwnerEmail:    "owner@example.com",
		CurrentPrice:  decimal.NewFromInt(price),
		LastCheckedAt: checked,
	}
}

func newRefresher(store *fakeStore, fetcher *fakeFetcher, dispatcher *fakeDispatcher, stats *fakeRecorder, batchSize int) *Refresher {
	r := New(store, fetcher, dispatcher, stats, batchSize, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRunEmptyBatchIsNoOp(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{}
	dispatcher := &fakeDispatcher{}

	r := newRefresher(store, fetcher, dispatcher, &fakeRecorder{}, 5)

	count, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("empty batch must not error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 processed, got %d", count)
	}
	if len(fetcher.calls) != 0 {
		t.Fatal("client must not be invoked on an empty batch")
	}
	if len(dispatcher.events) != 0 {
		t.Fatal("dispatcher must not be invoked on an empty batch")
	}
	if len(store.saved) != 0 {
		t.Fatal("nothing should be persisted on an empty batch")
	}
}

func TestRunSelectionFailurePropagates(t *testing.T) {
	store := &fakeStore{findErr: errors.New("connection reset")}
	r := newRefresher(store, &fakeFetcher{}, &fakeDispatcher{}, &fakeRecorder{}, 5)

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("selection failure must surface to the caller")
	}
}

func TestRunPriceDropNotifiesOwnerOnce(t *testing.T) {
	store := &fakeStore{stale: []storage.Observation{observation(1, "u1", 100, nil)}}
	fetcher := &fakeFetcher{outcomes: map[string]pricesource.Outcome{"u1": foundOutcome("Widget", 80)}}
	dispatcher := &fakeDispatcher{}
	stats := &fakeRecorder{}

	r := newRefresher(store, fetcher, dispatcher, stats, 5)

	count, err := r.Run(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("run: count=%d err=%v", count, err)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(dispatcher.events))
	}
	event := dispatcher.events[0]
	if event.To != "owner@example.com" {
		t.Fatalf("notification must address the owner, got %q", event.To)
	}
	if !strings.Contains(event.Body, "100") || !strings.Contains(event.Body, "80") {
		t.Fatalf("body must carry old and new price: %q", event.Body)
	}

	saved := store.saved[0]
	if saved.CurrentPrice.Cmp(decimal.NewFromInt(80)) != 0 {
		t.Fatalf("persisted price must be the new price, got %s", saved.CurrentPrice)
	}
	if saved.Name != "Widget" {
		t.Fatalf("name must follow the source, got %q", saved.Name)
	}
	if len(saved.History) != 1 || saved.History[0].Price.Cmp(decimal.NewFromInt(80)) != 0 {
		t.Fatalf("newest sample must carry the new price: %+v", saved.History)
	}
	if stats.queued != 1 {
		t.Fatalf("expected one queued notification, got %d", stats.queued)
	}
}

func TestRunEqualOrHigherPriceNeverNotifies(t *testing.T) {
	for name, newPrice := range map[string]int64{"equal": 100, "higher": 120} {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{stale: []storage.Observation{observation(1, "u1", 100, nil)}}
			fetcher := &fakeFetcher{outcomes: map[string]pricesource.Outcome{"u1": foundOutcome("Widget", newPrice)}}
			dispatcher := &fakeDispatcher{}

			r := newRefresher(store, fetcher, dispatcher, &fakeRecorder{}, 5)
			if _, err := r.Run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}

			if len(dispatcher.events) != 0 {
				t.Fatalf("no notification expected, got %d", len(dispatcher.events))
			}
			if store.saved[0].CurrentPrice.Cmp(decimal.NewFromInt(newPrice)) != 0 {
				t.Fatal("price must still be updated without a notification")
			}
		})
	}
}

func TestRunFailureOutcomeLeavesPriceUntouched(t *testing.T) {
	checked := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{stale: []storage.Observation{observation(1, "u1", 100, &checked)}}
	fetcher := &fakeFetcher{outcomes: map[string]pricesource.Outcome{
		"u1": {Kind: pricesource.KindNotFound, Reason: pricesource.ReasonNotFound, Message: "gone"},
	}}
	stats := &fakeRecorder{}

	r := newRefresher(store, fetcher, &fakeDispatcher{}, stats, 5)
	count, err := r.Run(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("run: count=%d err=%v", count, err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("save must be called exactly once, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.CurrentPrice.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("failed fetch must not change the price, got %s", saved.CurrentPrice)
	}
	if len(saved.History) != 0 {
		t.Fatal("failed fetch must not append history")
	}
	if saved.LastCheckedAt == nil || !saved.LastCheckedAt.After(checked) {
		t.Fatalf("lastCheckedAt must advance on failure too: %v", saved.LastCheckedAt)
	}
	if len(stats.fetchFailures) != 1 || stats.fetchFailures[0] != string(pricesource.ReasonNotFound) {
		t.Fatalf("failure must be counted by reason: %v", stats.fetchFailures)
	}
}

func TestRunTransientFaultIsolatedToItem(t *testing.T) {
	store := &fakeStore{stale: []storage.Observation{
		observation(1, "down", 100, nil),
		observation(2, "up", 50, nil),
	}}
	fetcher := &fakeFetcher{
		errs:     map[string]error{"down": pricesource.ErrSourceUnreachable},
		outcomes: map[string]pricesource.Outcome{"up": foundOutcome("Widget", 40)},
	}
	dispatcher := &fakeDispatcher{}
	stats := &fakeRecorder{}

	r := newRefresher(store, fetcher, dispatcher, stats, 5)
	count, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("per-item fault must not abort the run: %v", err)
	}
	if count != 2 {
		t.Fatalf("processed count includes failed items, got %d", count)
	}
	if len(store.saved) != 2 {
		t.Fatalf("both items must be persisted, got %d", len(store.saved))
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("second item must still be processed, got %d events", len(dispatcher.events))
	}
	if len(stats.fetchFailures) != 1 || stats.fetchFailures[0] != string(pricesource.ReasonTransient) {
		t.Fatalf("transient fault must be counted: %v", stats.fetchFailures)
	}
}

func TestRunNotificationFailureDoesNotBlockPersist(t *testing.T) {
	store := &fakeStore{stale: []storage.Observation{observation(1, "u1", 100, nil)}}
	fetcher := &fakeFetcher{outcomes: map[string]pricesource.Outcome{"u1": foundOutcome("Widget", 80)}}
	dispatcher := &fakeDispatcher{err: notify.ErrSerialize}
	stats := &fakeRecorder{}

	r := newRefresher(store, fetcher, dispatcher, stats, 5)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("notification failure must not raise out of Run: %v", err)
	}

	saved := store.saved[0]
	if saved.CurrentPrice.Cmp(decimal.NewFromInt(80)) != 0 {
		t.Fatalf("price update must survive a failed dispatch, got %s", saved.CurrentPrice)
	}
	if len(saved.History) != 1 {
		t.Fatal("history sample must survive a failed dispatch")
	}
	if len(stats.notifyFailed) != 1 {
		t.Fatalf("dispatch failure must be counted separately: %v", stats.notifyFailed)
	}
}

func TestRunBatchSizeBoundsSelection(t *testing.T) {
	stale := make([]storage.Observation, 0, 12)
	outcomes := map[string]pricesource.Outcome{}
	for i := int64(1); i <= 12; i++ {
		url := string(rune('a' + i))
		stale = append(stale, observation(i, url, 100, nil))
		outcomes[url] = foundOutcome("Widget", 100)
	}

	store := &fakeStore{stale: stale}
	fetcher := &fakeFetcher{outcomes: outcomes}

	r := newRefresher(store, fetcher, &fakeDispatcher{}, &fakeRecorder{}, 5)
	count, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 attempted, got %d", count)
	}
	if len(fetcher.calls) != 5 {
		t.Fatalf("only the selected batch may be fetched, got %d calls", len(fetcher.calls))
	}
}

func TestRunProcessesInSelectionOrder(t *testing.T) {
	store := &fakeStore{stale: []storage.Observation{
		observation(1, "first", 10, nil),
		observation(2, "second", 10, nil),
		observation(3, "third", 10, nil),
	}}
	fetcher := &fakeFetcher{outcomes: map[string]pricesource.Outcome{
		"first":  foundOutcome("a", 10),
		"second": foundOutcome("b", 10),
		"third":  foundOutcome("c", 10),
	}}

	r := newRefresher(store, fetcher, &fakeDispatcher{}, &fakeRecorder{}, 5)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"first", "second", "third"}
	for i, url := range want {
		if fetcher.calls[i] != url {
			t.Fatalf("order violated at %d: got %v", i, fetcher.calls)
		}
	}
}

func TestRepeatedNotFoundOnlyAdvancesLastChecked(t *testing.T) {
	checked := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	obs := observation(1, "u1", 100, &checked)
	fetcher := &fakeFetcher{outcomes: map[string]pricesource.Outcome{
		"u1": {Kind: pricesource.KindNotFound, Reason: pricesource.ReasonNotFound},
	}}

	for run := 0; run < 3; run++ {
		store := &fakeStore{stale: []storage.Observation{obs}}
		r := newRefresher(store, fetcher, &fakeDispatcher{}, &fakeRecorder{}, 5)
		if _, err := r.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		obs = store.saved[0]
	}

	if obs.CurrentPrice.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("price drifted across failing runs: %s", obs.CurrentPrice)
	}
	if len(obs.History) != 0 {
		t.Fatal("history grew across failing runs")
	}
	if obs.LastCheckedAt == nil || !obs.LastCheckedAt.After(checked) {
		t.Fatal("lastCheckedAt must still advance")
	}
}
