package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pierrevannier/freelancehub-backend/pkg/config"
	"github.com/pierrevannier/freelancehub-backend/pkg/db/models"
	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
	"github.com/pierrevannier/freelancehub-backend/pkg/logger"
	"github.com/pierrevannier/freelancehub-backend/pkg/metrics"
	"github.com/pierrevannier/freelancehub-backend/pkg/outbox"
)

const (
	sweepJobName       = "subscription_expiry_sweep"
	sweepBatchSize     = 100
	defaultSweepPeriod = 24 * time.Hour
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type subscriptionsRepository interface {
	FetchDueForExpiryTx(tx *gorm.DB, now time.Time, limit int) ([]models.Subscription, error)
	MarkExpiredTx(tx *gorm.DB, id uuid.UUID) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type SweeperParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Subscriptions subscriptionsRepository
	Events        outboxEmitter
	Metrics       *metrics.JobMetrics
}

// Sweeper flips lapsed subscriptions to expired on a fixed interval. SKIP
// LOCKED on the fetch keeps concurrent replicas from expiring the same rows.
type Sweeper struct {
	logg       *logger.Logger
	db         dbClient
	subs       subscriptionsRepository
	events     outboxEmitter
	jobMetrics *metrics.JobMetrics
	interval   time.Duration
	now        func() time.Time
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscriptions repository is required")
	}
	if params.Events == nil {
		return nil, errors.New("outbox emitter is required")
	}

	interval := params.Config.Sweep.Interval
	if interval <= 0 {
		interval = defaultSweepPeriod
	}

	return &Sweeper{
		logg:       params.Logger,
		db:         params.DB,
		subs:       params.Subscriptions,
		events:     params.Events,
		jobMetrics: params.Metrics,
		interval:   interval,
		now:        time.Now,
	}, nil
}

func (s *Sweeper) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// One pass on startup so a restarted worker does not wait a full
	// interval before catching up.
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	start := time.Now()
	total, err := s.sweep(ctx)
	s.jobMetrics.ObserveDuration(sweepJobName, time.Since(start))

	logCtx := s.logg.WithFields(ctx, map[string]any{"expired": total})
	if err != nil {
		s.jobMetrics.IncFailure(sweepJobName)
		s.logg.Error(logCtx, "expiry sweep failed", err)
		return
	}
	s.jobMetrics.IncSuccess(sweepJobName)
	s.logg.Info(logCtx, "expiry sweep completed")
}

// sweep drains due subscriptions batch by batch and reports how many it
// expired before stopping.
func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	total := 0
	for {
		expired, err := s.sweepBatch(ctx)
		total += expired
		if err != nil {
			return total, err
		}
		if expired < sweepBatchSize {
			return total, nil
		}
	}
}

func (s *Sweeper) sweepBatch(ctx context.Context) (int, error) {
	expired := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now().UTC()
		rows, err := s.subs.FetchDueForExpiryTx(tx, now, sweepBatchSize)
		if err != nil {
			return err
		}

		for _, sub := range rows {
			if err := s.subs.MarkExpiredTx(tx, sub.ID); err != nil {
				return fmt.Errorf("mark expired %s: %w", sub.ID, err)
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventSubscriptionExpired,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				Data: outbox.SubscriptionExpiredData{
					SubscriptionID: sub.ID,
					UserID:         sub.UserID,
					Plan:           sub.PlanCode.String(),
					PeriodEnd:      sub.CurrentPeriodEnd,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emit expiry event %s: %w", sub.ID, err)
			}
			expired++
		}
		return nil
	})
	return expired, err
}
