package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/pkg/config"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	"github.com/pierrevannier/freelancehub-backend/pkg/outbox"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeSubsRepo struct {
	batches [][]models.Subscription
	call    int
	marked  []uuid.UUID
	markErr error
}

func (f *fakeSubsRepo) FetchDueForExpiryTx(tx *gorm.DB, now time.Time, limit int) ([]models.Subscription, error) {
	if f.call >= len(f.batches) {
		return nil, nil
	}
	batch := f.batches[f.call]
	f.call++
	return batch, nil
}

func (f *fakeSubsRepo) MarkExpiredTx(tx *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func lapsedSubscription() models.Subscription {
	return models.Subscription{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		PlanCode:         enums.PlanPro,
		Status:           enums.SubscriptionStatusActive,
		CurrentPeriodEnd: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newSweeperForTests(t *testing.T, subs *fakeSubsRepo, events *fakeEmitter) *Sweeper {
	t.Helper()
	sweeper, err := NewSweeper(SweeperParams{
		Config:        &config.Config{},
		Logger:        logger.New(logger.Options{ServiceName: "cron-worker-test"}),
		DB:            fakeDB{},
		Subscriptions: subs,
		Events:        events,
	})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	sweeper.now = func() time.Time {
		return time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)
	}
	return sweeper
}

func TestSweepExpiresAndEmits(t *testing.T) {
	first := lapsedSubscription()
	second := lapsedSubscription()
	subs := &fakeSubsRepo{batches: [][]models.Subscription{{first, second}}}
	events := &fakeEmitter{}
	sweeper := newSweeperForTests(t, subs, events)

	total, err := sweeper.sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 expired got %d", total)
	}
	if len(subs.marked) != 2 {
		t.Fatalf("expected 2 marked rows got %d", len(subs.marked))
	}
	if len(events.events) != 2 {
		t.Fatalf("expected 2 events got %d", len(events.events))
	}

	event := events.events[0]
	if event.EventType != enums.EventSubscriptionExpired {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	data, ok := event.Data.(outbox.SubscriptionExpiredData)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if data.SubscriptionID != first.ID || data.UserID != first.UserID {
		t.Fatalf("payload does not match subscription: %+v", data)
	}
	if data.PeriodEnd != first.CurrentPeriodEnd {
		t.Fatalf("unexpected period end: %s", data.PeriodEnd)
	}
}

func TestSweepDrainsFullBatches(t *testing.T) {
	full := make([]models.Subscription, sweepBatchSize)
	for i := range full {
		full[i] = lapsedSubscription()
	}
	remainder := []models.Subscription{lapsedSubscription()}
	subs := &fakeSubsRepo{batches: [][]models.Subscription{full, remainder}}
	events := &fakeEmitter{}
	sweeper := newSweeperForTests(t, subs, events)

	total, err := sweeper.sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if total != sweepBatchSize+1 {
		t.Fatalf("expected %d expired got %d", sweepBatchSize+1, total)
	}
	if subs.call != 2 {
		t.Fatalf("expected 2 fetches got %d", subs.call)
	}
}

func TestSweepStopsOnEmitFailure(t *testing.T) {
	subs := &fakeSubsRepo{batches: [][]models.Subscription{{lapsedSubscription()}}}
	events := &fakeEmitter{err: errors.New("outbox unavailable")}
	sweeper := newSweeperForTests(t, subs, events)

	if _, err := sweeper.sweep(context.Background()); err == nil {
		t.Fatal("expected error when event emit fails")
	}
}

func TestSweepNothingDue(t *testing.T) {
	subs := &fakeSubsRepo{}
	events := &fakeEmitter{}
	sweeper := newSweeperForTests(t, subs, events)

	total, err := sweeper.sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 expired got %d", total)
	}
	if len(events.events) != 0 {
		t.Fatal("no events expected")
	}
}
